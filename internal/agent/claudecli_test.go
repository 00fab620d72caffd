package agent

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStreamLineSystem(t *testing.T) {
	msg := ParseStreamLine(`{"type":"system","subtype":"init","session_id":"abc"}`)
	require.Equal(t, KindSystem, msg.Kind)
	require.Equal(t, "init", msg.Subtype)
}

func TestParseStreamLineAssistantText(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"text","text":"working on it"}]}}`
	msg := ParseStreamLine(line)
	require.Equal(t, KindAssistant, msg.Kind)
	require.Equal(t, "working on it", msg.Text)
}

func TestParseStreamLineToolUse(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"write_file","input":{}}]}}`
	msg := ParseStreamLine(line)
	require.Equal(t, KindTool, msg.Kind)
	require.Contains(t, msg.Text, "write_file")
}

func TestParseStreamLineResultSuccess(t *testing.T) {
	line := `{"type":"result","subtype":"success","result":"All tests pass."}`
	msg := ParseStreamLine(line)
	require.Equal(t, KindResult, msg.Kind)
	require.True(t, msg.IsSuccess())
	require.Equal(t, "All tests pass.", msg.Result)
}

func TestParseStreamLineResultError(t *testing.T) {
	msg := ParseStreamLine(`{"type":"result","subtype":"error_max_turns"}`)
	require.Equal(t, KindResult, msg.Kind)
	require.False(t, msg.IsSuccess())
	require.Equal(t, "error_max_turns", msg.Text)
}

func TestParseStreamLineGarbage(t *testing.T) {
	msg := ParseStreamLine("not json at all")
	require.Equal(t, KindAssistant, msg.Kind)
	require.Equal(t, "not json at all", msg.Text)
}

func TestSliceStream(t *testing.T) {
	stream := NewSliceStream(
		Message{Kind: KindAssistant, Text: "one"},
		Message{Kind: KindResult, Subtype: SubtypeSuccess, Result: "done"},
	)

	msg, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "one", msg.Text)

	msg, err = stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, msg.IsSuccess())

	_, err = stream.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceStreamHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := NewSliceStream(Message{Kind: KindAssistant, Text: "never"})
	_, err := stream.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
