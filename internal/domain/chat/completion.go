package chat

import "context"

// Completer drives a chat-completion model.
type Completer interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
	Stream(ctx context.Context, msgs []Message) (FragmentStream, error)
}

// FragmentStream yields generated text incrementally.
// Recv returns io.EOF after the last fragment. Close aborts the upstream
// request and is safe to call more than once.
type FragmentStream interface {
	Recv() (string, error)
	Close()
}
