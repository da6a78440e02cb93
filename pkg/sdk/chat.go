package pdfchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
)

// Ask answers a question about a processed document.
// History holds earlier turns, oldest first.
func (c *Client) Ask(ctx context.Context, documentID, question string, history ...Message) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat.ask", start, err) }()

	answer, err := c.chatSvc.Answer(ctx, toQuestion(documentID, question, history))
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	return answer, nil
}

// AskStream answers like Ask, delivering the answer as it is generated.
// The caller must Close the stream.
func (c *Client) AskStream(
	ctx context.Context, documentID, question string, history ...Message,
) (_ *AnswerStream, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			c.obs.observe("chat.stream", start, err)
		}
	}()

	s, err := c.chatSvc.Stream(ctx, toQuestion(documentID, question, history))
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	return &AnswerStream{inner: s, obs: c.obs, start: start}, nil
}

// AnswerStream yields answer fragments.
type AnswerStream struct {
	inner domchat.FragmentStream
	obs   *observer
	start time.Time
	done  bool
}

// Recv returns the next fragment, or io.EOF once the answer is complete.
func (s *AnswerStream) Recv() (string, error) {
	frag, err := s.inner.Recv()
	if err == nil {
		s.obs.fragment()
	}
	if err != nil && !s.done {
		s.done = true
		if errors.Is(err, io.EOF) {
			s.obs.observe("chat.stream", s.start, nil)
		} else {
			s.obs.observe("chat.stream", s.start, err)
		}
	}
	return frag, err
}

// Close aborts generation. It is safe to call more than once.
func (s *AnswerStream) Close() {
	s.inner.Close()
}

func toQuestion(documentID, question string, history []Message) domchat.Question {
	h := make([]domchat.Message, len(history))
	for i, m := range history {
		h[i] = domchat.Message{Role: domchat.Role(m.Role), Content: m.Content}
	}
	return domchat.Question{DocumentID: documentID, Query: question, History: h}
}
