// Package chain defines the declarative chain/step config model and
// the template/expression language the executor evaluates per unit,
// grounded on spec.md §3 (ChainConfig/ChainStep) and §6 (chain YAML
// schema).
package chain

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/jsonenforce"
)

// InputsMode selects which iteration domain a chain's inputs produce.
type InputsMode string

const (
	ModeChunks      InputsMode = ""
	ModeTableRows   InputsMode = "table_rows"
	ModeDataframe   InputsMode = "dataframe_rows"
	ModeImagesGroup InputsMode = "images_group"
)

// TableOptions configures table_rows/dataframe_rows ingestion.
type TableOptions struct {
	TextColumn  interface{} `yaml:"text_column"`
	PassThrough []string    `yaml:"pass_through"`
}

// ImagesOptions configures images_group ingestion.
type ImagesOptions struct {
	GroupSize int `yaml:"group_size"`
}

// Inputs describes a chain's input source and iteration mode.
type Inputs struct {
	Connector string           `yaml:"connector"`
	Select    []string         `yaml:"select"`
	Mode      InputsMode       `yaml:"mode"`
	Table     TableOptions     `yaml:"table"`
	Images    ImagesOptions    `yaml:"images"`
	Rows      []map[string]any `yaml:"rows"`
}

// RagStepConfig is a step's optional retrieval augmentation.
type RagStepConfig struct {
	Pipeline     string `yaml:"pipeline"`
	Query        string `yaml:"query"`
	TopKText     int    `yaml:"top_k_text"`
	TopKImages   int    `yaml:"top_k_images"`
	TextVar      string `yaml:"text_var"`
	ImageVar     string `yaml:"image_var"`
	InjectPrompt *bool  `yaml:"inject_prompt"`
}

// InjectsPrompt reports whether retrieved text should be appended to
// the rendered prompt body, defaulting to true per spec.md §6.
func (r RagStepConfig) InjectsPrompt() bool {
	return r.InjectPrompt == nil || *r.InjectPrompt
}

// StepParams carries provider-level overrides for one step.
type StepParams struct {
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// StepOutput is a step's output declaration: a bare name, or a name
// plus JSON-enforcement options.
type StepOutput struct {
	Name         string              `yaml:"name"`
	Expects      string              `yaml:"expects"`
	Schema       *jsonenforce.Schema `yaml:"schema"`
	ParseRetries int                 `yaml:"parse_retries"`
}

// UnmarshalYAML accepts both "output: <name>" and the expanded map
// form, matching spec.md §6's `output: <name> | {name, expects, ...}`.
func (o *StepOutput) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&o.Name)
	}
	type alias StepOutput
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*o = StepOutput(a)
	return nil
}

// Step is one chain step: a prompt reference, input bindings, an
// output contract, and optional RAG/multimodal/inference overrides.
type Step struct {
	ID              string            `yaml:"id"`
	PromptRef       string            `yaml:"prompt"`
	Inputs          map[string]string `yaml:"inputs"`
	Output          StepOutput        `yaml:"output"`
	Params          StepParams        `yaml:"params"`
	Mode            string            `yaml:"mode"`
	InferMode       string            `yaml:"infer"`
	Rag             *RagStepConfig    `yaml:"rag"`
	ContinueOnError *bool             `yaml:"continue_on_error"`
}

// Multimodal reports whether the step assembles image parts.
func (s Step) Multimodal() bool { return s.Mode == "multimodal" }

// Output destination for a chain's results: either a filesystem save
// or a named external export.
type OutputSink struct {
	Save   string `yaml:"save"`
	Export string `yaml:"export"`
	From   string `yaml:"from"`
	As     string `yaml:"as"`
}

// Config is a fully parsed chain file, immutable for the duration of a
// run.
type Config struct {
	Name            string       `yaml:"name"`
	Inputs          Inputs       `yaml:"inputs"`
	Steps           []Step       `yaml:"steps"`
	Outputs         []OutputSink `yaml:"outputs"`
	Concurrency     int          `yaml:"concurrency"`
	ContinueOnError bool         `yaml:"continue_on_error"`
}

// DefaultConcurrency matches the teacher's conservative worker-pool
// default for a single-machine batch job.
const DefaultConcurrency = 4

// Load parses a chain YAML file at path and validates output_name
// uniqueness.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.ConfigErrorf(err, "reading chain file %s", path)
	}
	return Parse(data)
}

// Parse parses chain YAML bytes directly, used by tests and by
// callers that already have the file contents in memory.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errs.ConfigErrorf(err, "parsing chain yaml")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Name == "" {
		return errs.ConfigErrorf(nil, "chain config missing 'name'")
	}
	if len(cfg.Steps) == 0 {
		return errs.ConfigErrorf(nil, "chain config has no steps")
	}
	seen := make(map[string]bool, len(cfg.Steps))
	for _, step := range cfg.Steps {
		name := step.Output.Name
		if name == "" {
			return errs.ConfigErrorf(nil, "step %q has no output name", step.ID)
		}
		if seen[name] {
			return errs.ConfigErrorf(nil, "duplicate output_name %q", name)
		}
		seen[name] = true
	}
	return nil
}
