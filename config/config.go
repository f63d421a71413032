// Package config loads service configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the full configuration shared by the serving API and the
// offline pipelines. One file covers data preparation, model
// hyperparameters, evaluation thresholds and runtime wiring.
type Config struct {
	Data struct {
		RawPath      string   `yaml:"raw_path"`
		ProcessedDir string   `yaml:"processed_dir"`
		Target       string   `yaml:"target"`
		Numerical    []string `yaml:"numerical_features"`
		Categorical  []string `yaml:"categorical_features"`
		TestSize     float64  `yaml:"test_size"`
		RandomState  int64    `yaml:"random_state"`
	} `yaml:"data"`

	Preprocessing struct {
		ScaleNumerical bool   `yaml:"scale_numerical"`
		Scaler         string `yaml:"scaler"` // standard, minmax, robust
	} `yaml:"preprocessing"`

	Models struct {
		RandomForest  TreeParams `yaml:"random_forest"`
		GradientBoost TreeParams `yaml:"gradient_boost"`
		ExtraTrees    TreeParams `yaml:"extra_trees"`
	} `yaml:"models"`

	Ensemble struct {
		Strategy string             `yaml:"strategy"`
		Weights  map[string]float64 `yaml:"weights"`
	} `yaml:"ensemble"`

	Evaluation struct {
		Thresholds Thresholds `yaml:"thresholds"`
	} `yaml:"evaluation"`

	Registry struct {
		URI          string `yaml:"uri"`
		ModelName    string `yaml:"model_name"`
		DefaultAlias string `yaml:"default_alias"`
	} `yaml:"registry"`

	Model struct {
		LocalPath string `yaml:"local_path"`
	} `yaml:"model"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Http struct {
		Port int `yaml:"port"`
	} `yaml:"http"`

	Log struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"`
	} `yaml:"log"`

	Drift struct {
		ReferencePath string `yaml:"reference_path"`
		MinSamples    int    `yaml:"min_samples"`
		ReportsDir    string `yaml:"reports_dir"`
	} `yaml:"drift"`
}

// TreeParams are hyperparameters for one tree-based regressor, taken
// verbatim from configuration at build time.
type TreeParams struct {
	NEstimators  int     `yaml:"n_estimators"`
	MaxDepth     int     `yaml:"max_depth"`
	MinSplit     int     `yaml:"min_samples_split"`
	LearningRate float64 `yaml:"learning_rate"`
	SubSample    float64 `yaml:"subsample"`
	RandomState  int64   `yaml:"random_state"`
}

// Thresholds are the promotion gates checked during validation.
type Thresholds struct {
	MinR2   float64 `yaml:"min_r2"`
	MaxRMSE float64 `yaml:"max_rmse"`
	MaxMAPE float64 `yaml:"max_mape"`
}

// Load reads the YAML file at path, then applies environment overrides.
// A .env file next to the working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8000
	}
	if c.Data.TestSize == 0 {
		c.Data.TestSize = 0.2
	}
	if c.Preprocessing.Scaler == "" {
		c.Preprocessing.Scaler = "standard"
	}
	if c.Registry.DefaultAlias == "" {
		c.Registry.DefaultAlias = "production"
	}
	if c.Registry.ModelName == "" {
		c.Registry.ModelName = "FlightPricePredictor"
	}
	if c.Model.LocalPath == "" {
		c.Model.LocalPath = "models/latest.json"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/predictions.db"
	}
	if c.Drift.MinSamples == 0 {
		c.Drift.MinSamples = 100
	}
	if c.Drift.ReportsDir == "" {
		c.Drift.ReportsDir = "reports"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REGISTRY_URI"); v != "" {
		c.Registry.URI = v
	}
	if v := os.Getenv("REGISTERED_MODEL_NAME"); v != "" {
		c.Registry.ModelName = v
	}
	if v := os.Getenv("MODEL_ALIAS"); v != "" {
		c.Registry.DefaultAlias = v
	}
	if v := os.Getenv("MODEL_LOCAL_PATH"); v != "" {
		c.Model.LocalPath = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Http.Port = port
		}
	}
}

// validate rejects configurations that would only fail later at
// training or promotion time. Malformed weights and thresholds are
// fatal at startup.
func (c *Config) validate() error {
	if c.Data.TestSize <= 0 || c.Data.TestSize >= 1 {
		return fmt.Errorf("config: test_size must be in (0,1), got %v", c.Data.TestSize)
	}
	switch c.Preprocessing.Scaler {
	case "standard", "minmax", "robust":
	default:
		return fmt.Errorf("config: unknown scaler %q", c.Preprocessing.Scaler)
	}
	for name, weight := range c.Ensemble.Weights {
		if weight < 0 {
			return fmt.Errorf("config: ensemble weight for %s is negative: %v", name, weight)
		}
	}
	t := c.Evaluation.Thresholds
	if t.MaxRMSE < 0 || t.MaxMAPE < 0 {
		return fmt.Errorf("config: evaluation thresholds must be non-negative")
	}
	return nil
}
