// Package model provides the estimator interfaces, fitted-state bookkeeping and
// weight export types shared by the estimators of this module.
package model

import (
	"sync"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// StateManager manages the fitted state of an estimator in a thread-safe manner.
// Estimators hold it by composition.
type StateManager struct {
	mu sync.RWMutex

	fitted    bool
	nFeatures int
	nSamples  int64 // examples seen across every Fit and PartialFit call
	nIter     int   // completed passes over the data
}

// NewStateManager creates a new, unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the estimator has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset returns the state to unfitted and clears all counters.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
	s.nIter = 0
}

// SetNumFeatures records the size of the feature space.
func (s *StateManager) SetNumFeatures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nFeatures = n
}

// NumFeatures returns the size of the feature space, 0 before fitting.
func (s *StateManager) NumFeatures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures
}

// RecordPass adds one completed pass over samples examples.
func (s *StateManager) RecordPass(samples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nSamples += int64(samples)
	s.nIter++
}

// SamplesSeen returns the total number of examples trained on.
func (s *StateManager) SamplesSeen() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nSamples
}

// NIterations returns the number of completed passes.
func (s *StateManager) NIterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nIter
}

// RequireFitted returns a NotFittedError naming modelName and method if the
// estimator has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// ModelState represents the bookkeeping part of an estimator's state.
type ModelState struct {
	Fitted      bool  `json:"fitted"`
	NFeatures   int   `json:"n_features,omitempty"`
	SamplesSeen int64 `json:"samples_seen,omitempty"`
	NIterations int   `json:"n_iterations,omitempty"`
}

// GetState returns the current state as a ModelState.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ModelState{
		Fitted:      s.fitted,
		NFeatures:   s.nFeatures,
		SamplesSeen: s.nSamples,
		NIterations: s.nIter,
	}
}

// SetState restores the state from a ModelState.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = state.Fitted
	s.nFeatures = state.NFeatures
	s.nSamples = state.SamplesSeen
	s.nIter = state.NIterations
}
