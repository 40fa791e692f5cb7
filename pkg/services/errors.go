package services

import (
	"errors"

	"github.com/kubegenie/kubegenie/pkg/engine"
)

var (
	// ErrWorkflowNotFound is returned when the requested workflow id is
	// unknown to both the engine and the persistence layer.
	ErrWorkflowNotFound = engine.ErrWorkflowNotFound

	// ErrInvalidState is returned when an operation is not legal for the
	// workflow's current status, such as executing a workflow twice.
	ErrInvalidState = engine.ErrInvalidState
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
