package http

import (
	"sync/atomic"
	"time"

	"flightprice/ml"
)

// ModelInfo describes the currently active model.
type ModelInfo struct {
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
	ModelAlias   string `json:"model_alias,omitempty"`
	LoadedAt     string `json:"loaded_at"`
	ModelType    string `json:"model_type"`
}

// ActiveModel pairs the loaded ensemble with its metadata. The pair is
// swapped as one unit so readers never see a half-updated state.
type ActiveModel struct {
	Ensemble *ml.Ensemble
	Info     ModelInfo
}

// ModelState holds the shared current-model reference. Get and swap are
// single atomic pointer operations; readers never block the swapper.
type ModelState struct {
	current atomic.Pointer[ActiveModel]
}

// NewModelState returns an empty (not yet loaded) state.
func NewModelState() *ModelState {
	return &ModelState{}
}

// Get returns the active model, or nil before the first load.
func (s *ModelState) Get() *ActiveModel {
	return s.current.Load()
}

// Swap atomically replaces the active model.
func (s *ModelState) Swap(next *ActiveModel) {
	s.current.Store(next)
}

// Loaded reports whether a model is currently available.
func (s *ModelState) Loaded() bool {
	return s.current.Load() != nil
}

func newModelInfo(name, version, alias, modelType string) ModelInfo {
	return ModelInfo{
		ModelName:    name,
		ModelVersion: version,
		ModelAlias:   alias,
		LoadedAt:     time.Now().UTC().Format(time.RFC3339),
		ModelType:    modelType,
	}
}
