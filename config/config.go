// Package config loads the engine-level runtime configuration that
// sits above a chain file: provider defaults, cost rates, artefact
// retention, logging format and the other FMF_* environment
// overrides. Precedence (lowest to highest): file defaults, profile
// overlay, environment overrides, programmatic overrides, explicit
// per-run overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/logging"
)

// InferMode mirrors the engine's inference mode enum for the purpose
// of the top-level override FMF_INFER_MODE.
type InferMode string

const (
	InferModeAuto    InferMode = "auto"
	InferModeRegular InferMode = "regular"
	InferModeStream  InferMode = "stream"
)

// Runtime holds the engine-wide settings consumed by components other
// than the chain file itself: artefact retention, cost rates, hashing
// algorithm, aggregation caps and logging.
type Runtime struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	ArtefactsDir      string `yaml:"artefacts_dir"`
	ArtefactsRetain   int    `yaml:"artefacts_retain_last" env:"FMF_ARTEFACTS__RETAIN_LAST"`
	HashAlgo          string `yaml:"hash_algo" env:"FMF_HASH_ALGO"`
	InferMode         string `yaml:"infer_mode" env:"FMF_INFER_MODE"`
	JoinMaxChars      int    `yaml:"join_max_chars" env:"FMF_JOIN_MAX_CHARS"`
	JoinMaxItems      int    `yaml:"join_max_items" env:"FMF_JOIN_MAX_ITEMS"`
	CostPromptPer1K   float64 `yaml:"cost_prompt_per_1k" env:"FMF_COST_PROMPT_PER_1K"`
	CostCompletePer1K float64 `yaml:"cost_completion_per_1k" env:"FMF_COST_COMPLETION_PER_1K"`
	LogFormat         string `yaml:"log_format" env:"FMF_LOG_FORMAT"`
	ExperimentalStream bool  `yaml:"experimental_streaming" env:"FMF_EXPERIMENTAL_STREAMING"`

	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
	APIKeys    map[string]string `yaml:"-"`
}

func defaults() *Runtime {
	return &Runtime{
		Provider:        "azure_openai",
		ArtefactsDir:    "artefacts",
		ArtefactsRetain: 0,
		HashAlgo:        "blake2b",
		InferMode:       string(InferModeAuto),
		JoinMaxChars:    4000,
		JoinMaxItems:    50,
		LogFormat:       string(logging.FormatFromEnv()),
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		APIKeys:         map[string]string{},
	}
}

// Load builds a Runtime by applying, in order: built-in defaults, the
// YAML file at path (if non-empty and present), a named profile
// overlay within that file, then FMF_* environment overrides.
func Load(path, profile string) (*Runtime, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errs.ConfigErrorf(err, "reading config file %s", path)
			}
		} else {
			var doc struct {
				Runtime `yaml:",inline"`
				Profiles map[string]Runtime `yaml:"profiles"`
			}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, errs.ConfigErrorf(err, "parsing config file %s", path)
			}
			merge(cfg, &doc.Runtime)
			if profile != "" {
				overlay, ok := doc.Profiles[profile]
				if !ok {
					return nil, errs.ConfigError("unknown profile %q in %s", profile, path)
				}
				merge(cfg, &overlay)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errs.ConfigErrorf(err, "parsing FMF_* environment overrides")
	}
	return cfg, nil
}

// merge deep-merges non-zero scalar fields from src into dst, matching
// the "deep-merge for maps, replace for lists" rule; Runtime has no
// list fields, only scalars and a map, so this amounts to a
// non-zero-field overlay plus a key-wise map merge.
func merge(dst, src *Runtime) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.ArtefactsDir != "" {
		dst.ArtefactsDir = src.ArtefactsDir
	}
	if src.ArtefactsRetain != 0 {
		dst.ArtefactsRetain = src.ArtefactsRetain
	}
	if src.HashAlgo != "" {
		dst.HashAlgo = src.HashAlgo
	}
	if src.InferMode != "" {
		dst.InferMode = src.InferMode
	}
	if src.JoinMaxChars != 0 {
		dst.JoinMaxChars = src.JoinMaxChars
	}
	if src.JoinMaxItems != 0 {
		dst.JoinMaxItems = src.JoinMaxItems
	}
	if src.CostPromptPer1K != 0 {
		dst.CostPromptPer1K = src.CostPromptPer1K
	}
	if src.CostCompletePer1K != 0 {
		dst.CostCompletePer1K = src.CostCompletePer1K
	}
	if src.LogFormat != "" {
		dst.LogFormat = src.LogFormat
	}
	if src.ExperimentalStream {
		dst.ExperimentalStream = true
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.MaxRetries != 0 {
		dst.MaxRetries = src.MaxRetries
	}
	for k, v := range src.APIKeys {
		dst.APIKeys[k] = v
	}
}

// Save persists the runtime configuration to a YAML file at path,
// creating parent directories as needed.
func (c *Runtime) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.ConfigErrorf(err, "marshalling runtime config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.ConfigErrorf(err, "creating config directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.ConfigErrorf(err, "writing config file %s", path)
	}
	return nil
}
