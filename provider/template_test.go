package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateProviderEchoesLastUserMessage(t *testing.T) {
	p := NewTemplateProvider("Echo: {{ input }}")
	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Text: "be terse"},
			{Role: RoleUser, Text: "hello world"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello world", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestTemplateProviderStreamsWordsToOnToken(t *testing.T) {
	p := NewTemplateProvider("one two three")
	var seen []string
	_, err := p.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Text: "ignored"}},
		Stream:   true,
		OnToken:  func(s string) { seen = append(seen, s) },
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestTemplateProviderDefaultsToEcho(t *testing.T) {
	p := NewTemplateProvider("")
	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Text: "ping"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ping", resp.Text)
}
