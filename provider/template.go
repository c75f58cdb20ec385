package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/bonehead-labs/fmf/chunk"
)

// TemplateProvider is the deterministic, network-free provider used in
// tests and demos: it renders Template with Complete's last user
// message substituted for "{{ input }}" and returns that text as the
// completion, grounded on original_source's
// inference/providers/template_provider/provider.py (there a
// NotImplementedError skeleton; here filled in with the concrete
// echo behaviour spec.md §8 scenario 1 exercises as the "dummy
// provider").
type TemplateProvider struct {
	Template string
	counter  chunk.TokenCounter
}

// NewTemplateProvider builds a template provider. template may contain
// "{{ input }}", substituted with the last user message's text.
func NewTemplateProvider(template string) *TemplateProvider {
	if template == "" {
		template = "{{ input }}"
	}
	return &TemplateProvider{Template: template, counter: chunk.WordTokenCounter{}}
}

func (p *TemplateProvider) Name() string           { return "template" }
func (p *TemplateProvider) SupportsStreaming() bool { return true }

func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Text
		}
	}
	return ""
}

func (p *TemplateProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	text := strings.ReplaceAll(p.Template, "{{ input }}", lastUserText(req.Messages))
	if req.Stream && req.OnToken != nil {
		for _, word := range strings.Fields(text) {
			req.OnToken(word + " ")
		}
	}
	return Completion{
		Text:             text,
		Model:            fmt.Sprintf("template:%d", len(p.Template)),
		StopReason:       "stop",
		PromptTokens:     p.counter.Count(lastUserText(req.Messages)),
		CompletionTokens: p.counter.Count(text),
	}, nil
}
