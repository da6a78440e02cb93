package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	"github.com/kailas-cloud/pdfchat/internal/domain/chat"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
)

var _ chat.Completer = (*Completer)(nil)

// Completer calls the /chat/completions endpoint.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	user        string
	provider    string
	logger      *zap.Logger
}

// CompleterConfig adds sampling settings to Config.
type CompleterConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	return &Completer{
		client:      newClient(&cfg.Config, false),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      loggerOrNop(cfg.Logger),
	}
}

func (c *Completer) request(msgs []chat.Message, stream bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    out,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		User:        c.user,
		Stream:      stream,
	}
}

func (c *Completer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Complete returns the whole answer. A failure never yields partial text.
func (c *Completer) Complete(ctx context.Context, msgs []chat.Message) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.request(msgs, false))
	if err != nil {
		c.observe("complete", "error", start)
		return "", parseAPIError(err, "completion", domain.ErrCompletionProvider)
	}
	if len(resp.Choices) == 0 {
		c.observe("complete", "error", start)
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionProvider)
	}

	c.observe("complete", "success", start)
	if resp.Usage.TotalTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streamed completion. The returned stream owns the request
// context; Close cancels it.
func (c *Completer) Stream(ctx context.Context, msgs []chat.Message) (chat.FragmentStream, error) {
	ctx, cancel := c.withTimeout(ctx)

	start := time.Now()
	upstream, err := c.client.CreateChatCompletionStream(ctx, c.request(msgs, true))
	if err != nil {
		cancel()
		c.observe("stream", "error", start)
		return nil, parseAPIError(err, "completion", domain.ErrCompletionProvider)
	}

	return &completionStream{
		upstream:  upstream,
		cancel:    cancel,
		completer: c,
		start:     start,
	}, nil
}

func (c *Completer) observe(mode, status string, start time.Time) {
	metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, mode, status).Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.provider, c.model, mode).Observe(time.Since(start).Seconds())
}

type completionStream struct {
	upstream  *openai.ChatCompletionStream
	cancel    context.CancelFunc
	completer *Completer
	start     time.Time

	done      bool
	closeOnce sync.Once
}

// Recv skips empty deltas (role headers, usage frames).
func (s *completionStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		resp, err := s.upstream.Recv()
		if errors.Is(err, io.EOF) {
			s.finish("success")
			return "", io.EOF
		}
		if err != nil {
			s.finish("error")
			s.completer.logger.Warn("completion stream failed", zap.Error(err))
			return "", parseAPIError(err, "completion stream", domain.ErrCompletionProvider)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *completionStream) finish(status string) {
	s.done = true
	s.completer.observe("stream", status, s.start)
}

func (s *completionStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.upstream.Close()
	})
}
