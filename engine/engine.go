// Package engine is the top-level facade that wires connectors, the
// prompt registry, RAG pipelines and a provider into a runnable chain,
// generalising the teacher's functional-options-then-initialize idiom
// (raggo.RAGConfig/RAGOption/NewRAG) from a fixed RAG setup to an
// arbitrary chain/run configuration, per original_source's
// sdk/client.py FMF facade.
package engine

import (
	"context"
	"os"

	"github.com/bonehead-labs/fmf/config"
	"github.com/bonehead-labs/fmf/connector"
	"github.com/bonehead-labs/fmf/logging"
	"github.com/bonehead-labs/fmf/prompt"
	"github.com/bonehead-labs/fmf/provider"
	"github.com/bonehead-labs/fmf/rag"
)

// Engine coordinates one or more chain runs sharing the same runtime
// config, connectors, prompt registry and provider.
type Engine struct {
	cfg          *config.Runtime
	connectors   map[string]connector.Connector
	registry     *prompt.Registry
	provider     provider.Provider
	ragPipelines map[string]*rag.Pipeline
	logger       logging.Logger
}

// Option configures an Engine before Initialize runs.
type Option func(*engineOptions)

type engineOptions struct {
	configPath   string
	profile      string
	connectors   map[string]connector.Connector
	provider     provider.Provider
	registry     *prompt.Registry
	ragPipelines map[string]*rag.Pipeline
}

// WithConfigPath points Initialize at a runtime config file. When the
// path is empty no file is read: only the built-in defaults and FMF_*
// environment overrides apply.
func WithConfigPath(path string) Option {
	return func(o *engineOptions) { o.configPath = path }
}

// WithProfile selects a named profile overlay within the config file.
func WithProfile(profile string) Option {
	return func(o *engineOptions) { o.profile = profile }
}

// WithConnector registers a named connector a chain's inputs.connector
// can reference.
func WithConnector(name string, c connector.Connector) Option {
	return func(o *engineOptions) {
		if o.connectors == nil {
			o.connectors = map[string]connector.Connector{}
		}
		o.connectors[name] = c
	}
}

// WithProvider overrides the provider Initialize would otherwise build
// from the runtime config, primarily for tests.
func WithProvider(p provider.Provider) Option {
	return func(o *engineOptions) { o.provider = p }
}

// WithPromptRegistry overrides the default filesystem-backed prompt
// registry.
func WithPromptRegistry(r *prompt.Registry) Option {
	return func(o *engineOptions) { o.registry = r }
}

// WithRagPipeline registers a named, already-populated RAG pipeline a
// chain step's rag.pipeline can reference.
func WithRagPipeline(name string, p *rag.Pipeline) Option {
	return func(o *engineOptions) {
		if o.ragPipelines == nil {
			o.ragPipelines = map[string]*rag.Pipeline{}
		}
		o.ragPipelines[name] = p
	}
}

// New builds an Engine, applying opts then resolving the runtime
// config, provider and prompt registry, mirroring raggo.NewRAG's
// options-then-initialize construction.
func New(opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := config.Load(o.configPath, o.profile)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		connectors:   o.connectors,
		ragPipelines: o.ragPipelines,
		logger:       logging.New(logging.LogLevelInfo, logging.Format(cfg.LogFormat)),
	}
	if e.connectors == nil {
		e.connectors = map[string]connector.Connector{}
	}
	if e.ragPipelines == nil {
		e.ragPipelines = map[string]*rag.Pipeline{}
	}

	if err := e.initialize(o); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) initialize(o *engineOptions) error {
	if o.provider != nil {
		e.provider = o.provider
	} else {
		built, err := provider.Build(context.Background(), providerConfigFromRuntime(e.cfg))
		if err != nil {
			return err
		}
		e.provider = built
	}

	if o.registry != nil {
		e.registry = o.registry
	} else {
		root := os.Getenv("FMF_PROMPT_ROOT")
		if root == "" {
			root = "prompts"
		}
		e.registry = prompt.NewRegistry(root, "index.yaml")
	}
	return nil
}

// providerConfigFromRuntime maps the engine-level runtime config to a
// provider.Config, reading the provider-specific connection details
// (API keys, endpoints, regions) from FMF_* environment variables per
// spec.md §6's external-interfaces env var table.
func providerConfigFromRuntime(cfg *config.Runtime) provider.Config {
	pc := provider.Config{Kind: cfg.Provider, RatePerSec: 5}
	switch cfg.Provider {
	case "azure_openai":
		pc.AzureOpenAI.APIKey = firstNonEmpty(cfg.APIKeys["azure_openai"], os.Getenv("FMF_AZURE_OPENAI_API_KEY"))
		pc.AzureOpenAI.BaseURL = os.Getenv("FMF_AZURE_OPENAI_BASE_URL")
		pc.AzureOpenAI.Model = cfg.Model
	case "aws_bedrock":
		pc.Bedrock.Region = os.Getenv("FMF_AWS_REGION")
		pc.Bedrock.ModelID = cfg.Model
	case "template", "":
		pc.Template.Value = os.Getenv("FMF_TEMPLATE_VALUE")
	}
	return pc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
