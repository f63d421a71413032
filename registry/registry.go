// Package registry talks to the external model registry: versioned
// model artifacts, immutable run metadata, and mutable aliases.
package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrVersionNotFound means the requested model version does not
	// exist in the registry.
	ErrVersionNotFound = errors.New("model version not found")
	// ErrAliasNotFound means the alias is not assigned on the model.
	ErrAliasNotFound = errors.New("model alias not found")
)

// ModelVersion is a registry-assigned identifier for one trained
// artifact. Identity and stored metrics are immutable once created;
// aliases are mutable pointers reassignable at any time.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Aliases   []string  `json:"aliases,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunData is the immutable metadata attached to a training run.
type RunData struct {
	Params  map[string]string  `json:"params"`
	Metrics map[string]float64 `json:"metrics"`
}

// Client is the registry operations surface used by training,
// validation, promotion and serving.
type Client interface {
	// GetModelVersion returns one version, or ErrVersionNotFound.
	GetModelVersion(ctx context.Context, name, version string) (*ModelVersion, error)
	// GetVersionByAlias resolves a mutable alias to the version it
	// currently points at, or ErrAliasNotFound.
	GetVersionByAlias(ctx context.Context, name, alias string) (*ModelVersion, error)
	// SetAlias points alias at version, overwriting any previous
	// assignment. Idempotent.
	SetAlias(ctx context.Context, name, alias, version string) error
	// SearchVersions lists all versions of the named model.
	SearchVersions(ctx context.Context, name string) ([]ModelVersion, error)
	// CreateVersion registers a new version carrying run metadata.
	CreateVersion(ctx context.Context, name string, run RunData, artifact []byte) (*ModelVersion, error)
	// GetRunData returns the immutable params and metrics recorded at
	// version creation time.
	GetRunData(ctx context.Context, name, version string) (*RunData, error)
	// DownloadArtifact fetches the serialized model for a version.
	DownloadArtifact(ctx context.Context, name, version string) ([]byte, error)
}
