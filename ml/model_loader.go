package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MemberArtifact is one serialized ensemble member tagged with its
// model kind, so the artifact does not depend on any one language's
// generic object serialization.
type MemberArtifact struct {
	Name string          `json:"name"`
	Kind string          `json:"kind"`
	Blob json.RawMessage `json:"blob"`
}

// Artifact is the on-disk envelope for a trained ensemble.
type Artifact struct {
	SchemaVersion int                `json:"schema_version"`
	ModelType     string             `json:"model_type"`
	TrainedAt     time.Time          `json:"trained_at"`
	Weights       map[string]float64 `json:"weights"`
	Members       []MemberArtifact   `json:"members"`
	Preprocessor  *Preprocessor      `json:"preprocessor,omitempty"`
}

// Artifact serializes a trained ensemble.
func (e *Ensemble) Artifact() (*Artifact, error) {
	if !e.trained {
		return nil, ErrModelNotReady
	}
	art := &Artifact{
		SchemaVersion: 1,
		ModelType:     "ensemble",
		TrainedAt:     time.Now().UTC(),
		Weights:       e.Weights,
		Preprocessor:  e.Pre,
	}
	for _, name := range e.MemberNames() {
		member := e.Members[name]
		blob, err := json.Marshal(member)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", name, err)
		}
		art.Members = append(art.Members, MemberArtifact{Name: name, Kind: member.Kind(), Blob: blob})
	}
	return art, nil
}

// Save writes the ensemble artifact to path, creating parent
// directories as needed.
func (e *Ensemble) Save(path string) error {
	art, err := e.Artifact()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(art)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadEnsemble reads an ensemble artifact from disk.
func LoadEnsemble(path string) (*Ensemble, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeEnsemble(payload)
}

// DecodeEnsemble reconstructs an ensemble from artifact bytes. A
// decoded ensemble counts as trained.
func DecodeEnsemble(payload []byte) (*Ensemble, error) {
	var art Artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if art.ModelType != "ensemble" {
		return nil, fmt.Errorf("unsupported model type %q", art.ModelType)
	}
	if len(art.Members) == 0 {
		return nil, errors.New("artifact has no members")
	}

	ens := &Ensemble{
		Members: make(map[string]Regressor, len(art.Members)),
		Weights: art.Weights,
		Pre:     art.Preprocessor,
		trained: true,
	}
	if ens.Weights == nil {
		ens.Weights = make(map[string]float64)
	}
	for _, member := range art.Members {
		// A member without a weight would silently contribute nothing.
		if _, ok := ens.Weights[member.Name]; !ok {
			return nil, fmt.Errorf("artifact weight table has no entry for member %q", member.Name)
		}
		model, err := decodeMember(member)
		if err != nil {
			return nil, err
		}
		ens.Members[member.Name] = model
	}
	return ens, nil
}

func decodeMember(member MemberArtifact) (Regressor, error) {
	switch member.Kind {
	case "random_forest":
		model := &RandomForest{}
		if err := json.Unmarshal(member.Blob, model); err != nil {
			return nil, fmt.Errorf("decode %s: %w", member.Name, err)
		}
		return model, nil
	case "gradient_boost":
		model := &GradientBoost{}
		if err := json.Unmarshal(member.Blob, model); err != nil {
			return nil, fmt.Errorf("decode %s: %w", member.Name, err)
		}
		return model, nil
	case "extra_trees":
		model := &ExtraTrees{}
		if err := json.Unmarshal(member.Blob, model); err != nil {
			return nil, fmt.Errorf("decode %s: %w", member.Name, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model kind %q", member.Kind)
	}
}
