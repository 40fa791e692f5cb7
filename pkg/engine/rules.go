package engine

import (
	"strings"

	"github.com/kubegenie/kubegenie/pkg/models"
)

// DependencyRule derives ordering edges between actions in one batch based on
// their source category and kind. Categories are matched as substrings of the
// producing agent id; an empty DependsOnKind matches every kind.
//
// Rules are data, not scheduler internals: new categories are added by
// extending the rule table.
type DependencyRule struct {
	SourceCategory    string
	DependsOnCategory string
	DependsOnKind     string
}

// DefaultRules returns the built-in rule table:
//
//  1. cost actions wait for security hardening, so right-sizing never runs
//     before hardening changes that might alter resource shape have landed
//  2. cost actions wait for every remediation action, regardless of kind,
//     so nothing is optimized around broken resources
func DefaultRules() []DependencyRule {
	return []DependencyRule{
		{SourceCategory: "cost", DependsOnCategory: "security", DependsOnKind: "security_hardening"},
		{SourceCategory: "cost", DependsOnCategory: "remediation", DependsOnKind: ""},
	}
}

// InferDependencies evaluates the rule table pairwise over a single batch and
// returns the dependency edges per action id. Rules never consider actions
// from other batches. Self-edges and duplicates are suppressed.
func InferDependencies(rules []DependencyRule, actions []models.ProposedAction) map[string][]string {
	deps := make(map[string][]string, len(actions))

	for _, rule := range rules {
		for _, dependent := range actions {
			if !strings.Contains(dependent.AgentID, rule.SourceCategory) {
				continue
			}

			for _, prerequisite := range actions {
				if prerequisite.ID == dependent.ID {
					continue
				}

				if !strings.Contains(prerequisite.AgentID, rule.DependsOnCategory) {
					continue
				}

				if rule.DependsOnKind != "" && prerequisite.ActionType != rule.DependsOnKind {
					continue
				}

				if !containsString(deps[dependent.ID], prerequisite.ID) {
					deps[dependent.ID] = append(deps[dependent.ID], prerequisite.ID)
				}
			}
		}
	}

	return deps
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}

	return false
}
