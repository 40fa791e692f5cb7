package models

// ProposedAction is one entry of the flat action batch supplied by an upstream
// analysis step. Field names follow the producer payload; the engine inspects
// only AgentID and ActionType for dependency inference.
type ProposedAction struct {
	ID          string         `json:"id"          validate:"required"`
	AgentID     string         `json:"agent_id"    validate:"required"`
	ActionType  string         `json:"action_type" validate:"required"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	TimeoutSecs int            `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// ActionPlan is a named batch of proposed actions.
type ActionPlan struct {
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Actions     []ProposedAction `json:"actions"     validate:"required,min=1,dive"`
}
