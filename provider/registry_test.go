package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultsToTemplateProvider(t *testing.T) {
	p, err := Build(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, "template", p.Name())
}

func TestBuildAzureOpenAIRequiresAPIKey(t *testing.T) {
	_, err := Build(context.Background(), Config{Kind: "azure_openai"})
	assert.Error(t, err)
}

func TestBuildBedrockRequiresModelID(t *testing.T) {
	_, err := Build(context.Background(), Config{Kind: "aws_bedrock"})
	assert.Error(t, err)
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	_, err := Build(context.Background(), Config{Kind: "nonsense"})
	assert.Error(t, err)
}
