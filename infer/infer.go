// Package infer implements the mode-selection runtime that sits above
// a provider.Provider: it decides whether to stream or call
// regular, falling back and recording telemetry, grounded directly on
// original_source's inference/runtime.py (invoke_with_mode).
package infer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/provider"
)

// Mode selects streaming behaviour for one invocation.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeRegular Mode = "regular"
	ModeStream  Mode = "stream"

	DefaultMode Mode = ModeAuto
)

// NormalizeMode maps aliases ("default", "sync", "streaming", ...) onto
// the three canonical modes; empty normalizes to DefaultMode.
func NormalizeMode(value string) (Mode, error) {
	if value == "" {
		return DefaultMode, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "auto", "default":
		return ModeAuto, nil
	case "regular", "sync", "standard":
		return ModeRegular, nil
	case "stream", "streaming":
		return ModeStream, nil
	default:
		return "", errs.ConfigErrorf(nil, "unsupported inference mode %q", value)
	}
}

// Telemetry captures the observable shape of one invocation, matching
// spec §4.10's required fields exactly.
type Telemetry struct {
	Streaming         bool
	SelectedMode      Mode
	FallbackReason    string
	TimeToFirstByteMS int
	LatencyMS         int
	ChunkCount        int
	TokensOut         int
	Retries           int
}

// Invoke runs messages against p under mode, selecting streaming vs.
// regular and falling back per spec §4.10's table.
func Invoke(ctx context.Context, p provider.Provider, messages []provider.Message, temperature *float32, maxTokens *int, mode Mode) (provider.Completion, Telemetry, error) {
	requested := mode
	if requested == "" {
		requested = DefaultMode
	}
	supportsStream := p.SupportsStreaming()

	resolved := requested
	fallbackReason := ""
	useStream := false

	switch requested {
	case ModeStream:
		if !supportsStream {
			return provider.Completion{}, Telemetry{}, errs.ProviderErrorf(nil, "streaming not supported by provider %s", p.Name())
		}
		useStream = true
	case ModeAuto:
		if supportsStream {
			useStream = true
		} else {
			resolved = ModeRegular
			fallbackReason = "streaming_unsupported"
		}
	default:
		resolved = ModeRegular
	}

	start := time.Now()

	var chunkCount int
	var firstToken time.Time
	var gotFirstToken bool
	recordToken := func(string) {
		if !gotFirstToken {
			firstToken = time.Now()
			gotFirstToken = true
		}
		chunkCount++
	}

	var completion provider.Completion
	var err error
	totalRetries := 0

	observe := func() {
		if ro, ok := p.(provider.RetryObserver); ok {
			totalRetries += ro.LastRetries()
		}
	}

	if useStream {
		completion, err = p.Complete(ctx, provider.Request{Messages: messages, Temperature: temperature, MaxTokens: maxTokens, Stream: true, OnToken: recordToken})
		observe()
		if err != nil {
			if requested == ModeAuto {
				fallbackReason = fmt.Sprintf("stream_error:%s", err)
				resolved = ModeRegular
				useStream = false
				completion = provider.Completion{}
				err = nil
			} else {
				return provider.Completion{}, Telemetry{}, errs.ProviderErrorf(err, "streaming request failed")
			}
		}
	}

	if completion.Text == "" && !useStream {
		completion, err = p.Complete(ctx, provider.Request{Messages: messages, Temperature: temperature, MaxTokens: maxTokens, Stream: false})
		observe()
		if err != nil {
			return provider.Completion{}, Telemetry{}, err
		}
		useStream = false
	}

	end := time.Now()
	latency := end.Sub(start)
	if !useStream || !gotFirstToken {
		firstToken = end
	}
	ttfb := firstToken.Sub(start)
	if !useStream {
		chunkCount = 0
		if completion.Text != "" {
			chunkCount = 1
		}
	}

	return completion, Telemetry{
		Streaming:         useStream,
		SelectedMode:      resolved,
		FallbackReason:    fallbackReason,
		TimeToFirstByteMS: int(maxDuration(ttfb, 0) / time.Millisecond),
		LatencyMS:         int(maxDuration(latency, 0) / time.Millisecond),
		ChunkCount:        chunkCount,
		TokensOut:         completion.CompletionTokens,
		Retries:           totalRetries,
	}, nil
}

func maxDuration(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}
