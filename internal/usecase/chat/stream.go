package chat

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
)

// Stream is a cancellable handle over a generated answer.
// Recv returns io.EOF after the last fragment.
type Stream struct {
	upstream domchat.FragmentStream

	fixed     string
	fixedSent bool

	closeOnce sync.Once
	onClose   func(err error)
	err       error
}

var _ domchat.FragmentStream = (*Stream)(nil)

func fixedStream(answer string) *Stream {
	return &Stream{fixed: answer}
}

func upstreamStream(up domchat.FragmentStream, onClose func(err error)) *Stream {
	return &Stream{upstream: up, onClose: onClose}
}

// Recv returns the next fragment. A provider failure surfaces as
// domain.ErrCompletionProvider after the fragments already delivered.
func (s *Stream) Recv() (string, error) {
	if s.upstream == nil {
		if s.fixedSent {
			return "", io.EOF
		}
		s.fixedSent = true
		return s.fixed, nil
	}

	frag, err := s.upstream.Recv()
	if err == nil {
		return frag, nil
	}
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if !errors.Is(err, domain.ErrCompletionProvider) {
		err = fmt.Errorf("%w: %w", domain.ErrCompletionProvider, err)
	}
	s.err = err
	return "", err
}

// Close aborts generation and releases the upstream connection. Safe to call twice.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		if s.upstream != nil {
			s.upstream.Close()
		}
		if s.onClose != nil {
			s.onClose(s.err)
		}
	})
}
