package agent

import (
	"context"
	"io"
)

// Request describes one agent invocation.
type Request struct {
	Prompt string
	// WorkspacePath is the directory the agent operates in, empty when the
	// task has no project.
	WorkspacePath string
	// Capabilities is the resolved tool configuration passed through to the
	// agent unchanged.
	Capabilities map[string]any
}

// Stream yields agent progress messages. Next returns io.EOF when the
// stream is exhausted and any other error when consumption fails.
type Stream interface {
	Next(ctx context.Context) (Message, error)
	// Close releases the underlying process or connection. Safe to call
	// more than once.
	Close() error
}

// Runner starts agent executions. Implementations own message
// classification: consumers only see tagged Messages.
type Runner interface {
	Start(ctx context.Context, req Request) (Stream, error)
}

// sliceStream replays a fixed message sequence; used by tests and the
// no-agent fallback.
type sliceStream struct {
	messages []Message
	pos      int
}

// NewSliceStream returns a Stream that yields the given messages in order
// and then io.EOF.
func NewSliceStream(messages ...Message) Stream {
	return &sliceStream{messages: messages}
}

func (s *sliceStream) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if s.pos >= len(s.messages) {
		return Message{}, io.EOF
	}
	msg := s.messages[s.pos]
	s.pos++
	return msg, nil
}

func (s *sliceStream) Close() error { return nil }
