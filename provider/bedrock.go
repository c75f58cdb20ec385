package provider

import (
	"context"
	"encoding/base64"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/bonehead-labs/fmf/chunk"
	"github.com/bonehead-labs/fmf/errs"
)

// BedrockProvider is the Anthropic-on-Bedrock adapter: messages map to
// the Converse API's system/messages split, image parts become
// ImageBlock content, grounded on original_source's
// inference/bedrock.py (system+user payload shape) and
// goadesign-goa-ai's bedrock client (the real Converse/ConverseStream
// SDK surface, trimmed of its tool-use and transcript-ledger
// machinery — nothing in SPEC_FULL.md's provider contract needs tool
// calling).
type BedrockProvider struct {
	client      *bedrockruntime.Client
	modelID     string
	rl          *RateLimiter
	budget      RetryBudget
	counter     chunk.TokenCounter
	lastRetries int32
}

// NewBedrockProvider wraps an already-configured Bedrock runtime
// client for modelID.
func NewBedrockProvider(client *bedrockruntime.Client, modelID string, ratePerSec float64) *BedrockProvider {
	return &BedrockProvider{
		client:  client,
		modelID: modelID,
		rl:      NewRateLimiter(ratePerSec),
		budget:  DefaultRetryBudget(),
		counter: chunk.WordTokenCounter{},
	}
}

func (p *BedrockProvider) Name() string           { return "aws_bedrock" }
func (p *BedrockProvider) SupportsStreaming() bool { return true }

func toContentBlocks(parts []Part, text string) []types.ContentBlock {
	if len(parts) == 0 {
		return []types.ContentBlock{&types.ContentBlockMemberText{Value: text}}
	}
	blocks := make([]types.ContentBlock, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case "text":
			blocks = append(blocks, &types.ContentBlockMemberText{Value: part.Text})
		case "image_base64":
			data, err := base64.StdEncoding.DecodeString(part.Data)
			if err != nil {
				continue
			}
			format := types.ImageFormatPng
			if strings.Contains(part.MediaType, "jpeg") {
				format = types.ImageFormatJpeg
			}
			blocks = append(blocks, &types.ContentBlockMemberImage{
				Value: types.ImageBlock{
					Format: format,
					Source: &types.ImageSourceMemberBytes{Value: data},
				},
			})
		}
	}
	return blocks
}

func (p *BedrockProvider) buildInput(req Request) *bedrockruntime.ConverseInput {
	var system []types.SystemContentBlock
	var messages []types.Message
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Text})
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{Role: role, Content: toContentBlocks(m.Parts, m.Text)})
	}

	cfg := &types.InferenceConfiguration{}
	if req.Temperature != nil {
		cfg.Temperature = aws.Float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		cfg.MaxTokens = aws.Int32(int32(*req.MaxTokens))
	}

	return &bedrockruntime.ConverseInput{
		ModelId:         aws.String(p.modelID),
		Messages:        messages,
		System:          system,
		InferenceConfig: cfg,
	}
}

func (p *BedrockProvider) estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += p.counter.Count(m.Text)
	}
	return total
}

func (p *BedrockProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	completion, retryCount, err := retries(ctx, p.budget, func() (Completion, error) {
		if err := p.rl.Wait(ctx); err != nil {
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
func (p *BedrockProvider) LastRetries() int { return int(atomic.LoadInt32(&p.lastRetries)) }

func (p *BedrockProvider) once(ctx context.Context, req Request) (Completion, error) {
	out, err := p.client.Converse(ctx, p.buildInput(req))
	if err != nil {
		return Completion{}, statusError{cause: err, code: httpStatusFromErr(err)}
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return Completion{}, errs.InferenceErrorf(nil, "bedrock response had no message output")
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	promptTokens, completionTokens := 0, 0
	if out.Usage != nil {
		if out.Usage.InputTokens != nil {
			promptTokens = int(*out.Usage.InputTokens)
		}
		if out.Usage.OutputTokens != nil {
			completionTokens = int(*out.Usage.OutputTokens)
		}
	}
	if promptTokens == 0 {
		promptTokens = p.estimateTokens(req.Messages)
	}
	text := b.String()
	if completionTokens == 0 {
		completionTokens = p.counter.Count(text)
	}
	return Completion{
		Text: text, Model: p.modelID, StopReason: string(out.StopReason),
		PromptTokens: promptTokens, CompletionTokens: completionTokens,
	}, nil
}

func (p *BedrockProvider) stream(ctx context.Context, req Request) (Completion, error) {
	out, err := p.client.ConverseStream(ctx, p.buildInput(req))
	if err != nil {
		return Completion{}, statusError{cause: err, code: httpStatusFromErr(err)}
	}
	stream := out.GetStream()
	defer stream.Close()

	var b strings.Builder
	stopReason := ""
	promptTokens, completionTokens := 0, 0
	for event := range stream.Events() {
		switch e := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			if delta, ok := e.Value.Delta.(*types.ContentBlockDeltaMemberText); ok {
				b.WriteString(delta.Value)
				req.OnToken(delta.Value)
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			stopReason = string(e.Value.StopReason)
		case *types.ConverseStreamOutputMemberMetadata:
			if e.Value.Usage != nil {
				if e.Value.Usage.InputTokens != nil {
					promptTokens = int(*e.Value.Usage.InputTokens)
				}
				if e.Value.Usage.OutputTokens != nil {
					completionTokens = int(*e.Value.Usage.OutputTokens)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Completion{}, statusError{cause: err, code: httpStatusFromErr(err)}
	}
	text := b.String()
	if text == "" {
		return Completion{}, errs.InferenceErrorf(nil, "bedrock stream produced no tokens")
	}
	if promptTokens == 0 {
		promptTokens = p.estimateTokens(req.Messages)
	}
	if completionTokens == 0 {
		completionTokens = p.counter.Count(text)
	}
	return Completion{Text: text, Model: p.modelID, StopReason: stopReason, PromptTokens: promptTokens, CompletionTokens: completionTokens}, nil
}
