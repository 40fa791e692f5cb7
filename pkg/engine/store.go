package engine

import (
	"sync"

	"github.com/kubegenie/kubegenie/pkg/models"
)

// WorkflowStore holds the active and completed workflow registries for one
// engine instance. It replaces process-wide registries so tests and embedders
// can construct isolated stores.
type WorkflowStore struct {
	mu        sync.RWMutex
	active    map[string]*models.Workflow
	completed map[string]*models.Workflow
}

func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{
		active:    make(map[string]*models.Workflow),
		completed: make(map[string]*models.Workflow),
	}
}

// Add registers a workflow in the active registry.
func (s *WorkflowStore) Add(workflow *models.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[workflow.ID] = workflow
}

// Get returns the workflow for an id from either registry.
func (s *WorkflowStore) Get(id string) (*models.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if workflow, ok := s.active[id]; ok {
		return workflow, true
	}

	workflow, ok := s.completed[id]

	return workflow, ok
}

// Retire moves a workflow from the active to the completed registry.
func (s *WorkflowStore) Retire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workflow, ok := s.active[id]
	if !ok {
		return
	}

	delete(s.active, id)
	s.completed[id] = workflow
}

// Status returns an immutable snapshot of the workflow with the given id.
func (s *WorkflowStore) Status(id string) (*models.WorkflowSnapshot, error) {
	workflow, ok := s.Get(id)
	if !ok {
		return nil, ErrWorkflowNotFound
	}

	return workflow.Snapshot(), nil
}

// List returns snapshots of every known workflow, active and completed.
func (s *WorkflowStore) List() []*models.WorkflowSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]*models.WorkflowSnapshot, 0, len(s.active)+len(s.completed))

	for _, workflow := range s.active {
		snapshots = append(snapshots, workflow.Snapshot())
	}

	for _, workflow := range s.completed {
		snapshots = append(snapshots, workflow.Snapshot())
	}

	return snapshots
}
