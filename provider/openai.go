package provider

import (
	"context"
	"strings"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bonehead-labs/fmf/chunk"
	"github.com/bonehead-labs/fmf/errs"
)

// OpenAIProvider is the Azure-OpenAI-like adapter: chat.completions
// mapping with image parts as base64 data URLs, a fixed-rate limiter,
// and exponential-backoff retry on 429/5xx, grounded on
// original_source's inference/azure_openai.py and upgraded from its
// raw urllib transport to the real SDK.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	rateLimiter *RateLimiter
	budget      RetryBudget
	counter     chunk.TokenCounter
	lastRetries int32
}

// NewOpenAIProvider builds an adapter targeting model via apiKey. When
// baseURL is non-empty it is used instead of the public OpenAI
// endpoint, covering Azure-style deployment URLs.
func NewOpenAIProvider(apiKey, baseURL, model string, ratePerSec float64) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		rateLimiter: NewRateLimiter(ratePerSec),
		budget:      DefaultRetryBudget(),
		counter:     chunk.WordTokenCounter{},
	}
}

func (p *OpenAIProvider) Name() string           { return "azure_openai" }
func (p *OpenAIProvider) SupportsStreaming() bool { return true }

func (p *OpenAIProvider) toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		cm := openai.ChatCompletionMessage{Role: string(m.Role)}
		if len(m.Parts) == 0 {
			cm.Content = m.Text
			out = append(out, cm)
			continue
		}
		parts := make([]openai.ChatMessagePart, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch part.Type {
			case "text":
				parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part.Text})
			case "image_url":
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: part.URL},
				})
			case "image_base64":
				url := "data:" + part.MediaType + ";base64," + part.Data
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: url},
				})
			}
		}
		cm.MultiContent = parts
		out = append(out, cm)
	}
	return out
}

func (p *OpenAIProvider) estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += p.counter.Count(m.Text)
		for _, part := range m.Parts {
			total += p.counter.Count(part.Text)
		}
	}
	return total
}

// Complete issues a chat completion, streaming token deltas through
// req.OnToken when req.Stream is set and the provider call supports it.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	completion, retryCount, err := retries(ctx, p.budget, func() (Completion, error) {
		if err := p.rateLimiter.Wait(ctx); err != nil {
			return Completion{}, err
		}
		if req.Stream && req.OnToken != nil {
			return p.stream(ctx, req)
		}
		return p.once(ctx, req)
	})
	atomic.StoreInt32(&p.lastRetries, int32(retryCount))
	return completion, err
}

// LastRetries reports the retry count observed during the most recent
// Complete call.
func (p *OpenAIProvider) LastRetries() int { return int(atomic.LoadInt32(&p.lastRetries)) }

func (p *OpenAIProvider) chatRequest(req Request) openai.ChatCompletionRequest {
	cr := openai.ChatCompletionRequest{Model: p.model, Messages: p.toChatMessages(req.Messages)}
	if req.Temperature != nil {
		cr.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		cr.MaxTokens = *req.MaxTokens
	}
	return cr
}

func (p *OpenAIProvider) once(ctx context.Context, req Request) (Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.chatRequest(req))
	if err != nil {
		return Completion{}, statusError{cause: err, code: httpStatusFromErr(err)}
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errs.InferenceErrorf(nil, "openai response contained no choices")
	}
	choice := resp.Choices[0]
	promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if promptTokens == 0 {
		promptTokens = p.estimateTokens(req.Messages)
	}
	if completionTokens == 0 {
		completionTokens = p.counter.Count(choice.Message.Content)
	}
	return Completion{
		Text:             choice.Message.Content,
		Model:            resp.Model,
		StopReason:       string(choice.FinishReason),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}, nil
}

func (p *OpenAIProvider) stream(ctx context.Context, req Request) (Completion, error) {
	cr := p.chatRequest(req)
	cr.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, cr)
	if err != nil {
		return Completion{}, statusError{cause: err, code: httpStatusFromErr(err)}
	}
	defer stream.Close()

	var b strings.Builder
	model := p.model
	stop := ""
	for {
		chunkResp, err := stream.Recv()
		if err != nil {
			break
		}
		model = chunkResp.Model
		if len(chunkResp.Choices) == 0 {
			continue
		}
		delta := chunkResp.Choices[0].Delta.Content
		if delta != "" {
			b.WriteString(delta)
			req.OnToken(delta)
		}
		if chunkResp.Choices[0].FinishReason != "" {
			stop = string(chunkResp.Choices[0].FinishReason)
		}
	}
	text := b.String()
	if text == "" {
		return Completion{}, errs.InferenceErrorf(nil, "openai stream produced no tokens")
	}
	return Completion{
		Text: text, Model: model, StopReason: stop,
		PromptTokens:     p.estimateTokens(req.Messages),
		CompletionTokens: p.counter.Count(text),
	}, nil
}
