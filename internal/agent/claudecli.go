package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"kanban/internal/logging"
)

// CLIRunner drives the Claude Code CLI in non-interactive print mode and
// classifies its stream-json output lines into tagged Messages.
type CLIRunner struct {
	command         string
	skipPermissions bool
	logger          logging.Logger
}

// CLIOption configures a CLIRunner.
type CLIOption func(*CLIRunner)

// WithCommand overrides the CLI binary name.
func WithCommand(command string) CLIOption {
	return func(r *CLIRunner) { r.command = command }
}

// WithSkipPermissions adds the permission bypass flag, required for
// unattended execution.
func WithSkipPermissions(skip bool) CLIOption {
	return func(r *CLIRunner) { r.skipPermissions = skip }
}

// NewCLIRunner creates a runner for the claude CLI.
func NewCLIRunner(opts ...CLIOption) *CLIRunner {
	runner := &CLIRunner{
		command:         "claude",
		skipPermissions: true,
		logger:          logging.NewComponentLogger("CLIRunner"),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Start launches the CLI and returns a stream over its output lines.
func (r *CLIRunner) Start(ctx context.Context, req Request) (Stream, error) {
	if _, err := exec.LookPath(r.command); err != nil {
		return nil, fmt.Errorf("agent CLI %q not found: %w", r.command, err)
	}

	args := []string{"-p", req.Prompt, "--output-format", "stream-json", "--verbose"}
	if r.skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	var mcpConfigPath string
	if len(req.Capabilities) > 0 {
		path, err := writeMCPConfig(req.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("write mcp config: %w", err)
		}
		mcpConfigPath = path
		args = append(args, "--mcp-config", path)
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	if req.WorkspacePath != "" {
		cmd.Dir = req.WorkspacePath
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		removeIfSet(mcpConfigPath)
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		removeIfSet(mcpConfigPath)
		return nil, fmt.Errorf("start %s: %w", r.command, err)
	}

	r.logger.Info("Started agent CLI pid=%d workspace=%s", cmd.Process.Pid, req.WorkspacePath)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &cliStream{
		cmd:           cmd,
		scanner:       scanner,
		mcpConfigPath: mcpConfigPath,
	}, nil
}

type cliStream struct {
	cmd           *exec.Cmd
	scanner       *bufio.Scanner
	mcpConfigPath string
	closed        bool
}

func (s *cliStream) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		return ParseStreamLine(line), nil
	}

	if err := s.scanner.Err(); err != nil {
		return Message{}, fmt.Errorf("read agent output: %w", err)
	}

	// The process may still exit non-zero after a clean result line; the
	// stream itself is done either way.
	_ = s.Close()
	return Message{}, io.EOF
}

func (s *cliStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	removeIfSet(s.mcpConfigPath)
	return s.cmd.Wait()
}

// ParseStreamLine classifies one stream-json output line. Unparseable lines
// degrade to an assistant message carrying the raw text rather than an error.
func ParseStreamLine(line string) Message {
	if !gjson.Valid(line) {
		return Message{Kind: KindAssistant, Text: line}
	}

	parsed := gjson.Parse(line)
	switch parsed.Get("type").String() {
	case "system":
		return Message{
			Kind:    KindSystem,
			Subtype: parsed.Get("subtype").String(),
			Text:    line,
		}
	case "assistant":
		return classifyAssistant(parsed)
	case "user":
		// Tool results come back on user-role messages.
		return Message{Kind: KindTool, Text: toolResultText(parsed)}
	case "result":
		subtype := parsed.Get("subtype").String()
		msg := Message{
			Kind:    KindResult,
			Subtype: subtype,
			Text:    parsed.Get("result").String(),
			Result:  parsed.Get("result").String(),
		}
		if subtype != SubtypeSuccess && msg.Text == "" {
			msg.Text = subtype
		}
		return msg
	default:
		return Message{Kind: KindSystem, Text: line}
	}
}

func classifyAssistant(parsed gjson.Result) Message {
	var texts []string
	var tools []string
	parsed.Get("message.content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			texts = append(texts, block.Get("text").String())
		case "tool_use":
			tools = append(tools, block.Get("name").String())
		}
		return true
	})

	if len(texts) > 0 {
		return Message{Kind: KindAssistant, Text: strings.Join(texts, "\n")}
	}
	if len(tools) > 0 {
		return Message{Kind: KindTool, Text: "using " + strings.Join(tools, ", ")}
	}
	return Message{Kind: KindAssistant, Text: parsed.Get("message").Raw}
}

func toolResultText(parsed gjson.Result) string {
	content := parsed.Get("message.content")
	var parts []string
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "tool_result" {
			if text := block.Get("content").String(); text != "" {
				parts = append(parts, text)
			}
		}
		return true
	})
	if len(parts) == 0 {
		return content.Raw
	}
	return strings.Join(parts, "\n")
}

func writeMCPConfig(capabilities map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{"mcpServers": capabilities})
	if err != nil {
		return "", err
	}
	file, err := os.CreateTemp("", "kanban-mcp-*.json")
	if err != nil {
		return "", err
	}
	if _, err := file.Write(payload); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func removeIfSet(path string) {
	if path != "" {
		_ = os.Remove(filepath.Clean(path))
	}
}
