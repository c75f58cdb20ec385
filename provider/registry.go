package provider

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/bonehead-labs/fmf/errs"
)

// Config is the provider section of a chain's YAML config, mirroring
// original_source's inference/unified.py build_llm_client dispatch
// (cfg.provider selects a kind, then the matching sub-config builds
// the adapter).
type Config struct {
	Kind       string // "azure_openai" | "aws_bedrock" | "template"
	RatePerSec float64

	AzureOpenAI struct {
		APIKey   string
		BaseURL  string
		Model    string
	}
	Bedrock struct {
		Region  string
		ModelID string
	}
	Template struct {
		Value string
	}
}

// Build constructs the configured provider, mirroring
// inference/registry.py's build_provider/register_provider pattern
// collapsed to a direct switch since FMF ships a fixed, small provider
// set rather than a user-extensible plugin registry.
func Build(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Kind {
	case "azure_openai":
		if cfg.AzureOpenAI.APIKey == "" {
			return nil, errs.ConfigErrorf(nil, "azure_openai provider requires an api key")
		}
		return NewOpenAIProvider(cfg.AzureOpenAI.APIKey, cfg.AzureOpenAI.BaseURL, cfg.AzureOpenAI.Model, cfg.RatePerSec), nil
	case "aws_bedrock":
		if cfg.Bedrock.ModelID == "" {
			return nil, errs.ConfigErrorf(nil, "aws_bedrock provider requires a model id")
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Bedrock.Region))
		if err != nil {
			return nil, errs.ConfigErrorf(err, "loading aws config for bedrock")
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return NewBedrockProvider(client, cfg.Bedrock.ModelID, cfg.RatePerSec), nil
	case "template", "":
		return NewTemplateProvider(cfg.Template.Value), nil
	default:
		return nil, errs.ConfigErrorf(nil, "unsupported inference provider %q", cfg.Kind)
	}
}
