// Package model provides the shared lifecycle and interfaces of dfencode transformers.
package model

import (
	"sync"

	"github.com/dfencode/dfencode/pkg/errors"
)

// EstimatorState is the lifecycle state of a transformer.
type EstimatorState int

const (
	// NotFitted is the initial state.
	NotFitted EstimatorState = iota
	// Fitted is reached through Fit and re-entered by every later Fit.
	Fitted
)

func (s EstimatorState) String() string {
	if s == Fitted {
		return "fitted"
	}
	return "not_fitted"
}

// StateManager tracks the fitted state of a transformer in a thread-safe manner.
// Transformers hold it by pointer; it must not be copied after first use.
type StateManager struct {
	mu    sync.RWMutex
	state EstimatorState

	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager in the NotFitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the transformer has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Fitted
}

// State returns the current lifecycle state.
func (s *StateManager) State() EstimatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// MarkFitted records a successful fit and the shape it was fitted on.
func (s *StateManager) MarkFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Fitted
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset returns to the NotFitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NotFitted
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions returns the number of features and samples seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming modelName and method if the
// transformer has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
