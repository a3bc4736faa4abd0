// Package console is an interactive shell for trying generated tools
// without an MCP client.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/openapi2mcp"
)

const helpText = `Commands:
  list                     list the available tools
  describe <tool>          show a tool's description and input schema
  call <tool> [json-args]  invoke a tool, e.g. call getPet {"petId": 1}
  help                     show this help
  exit                     leave the console
`

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// Console dispatches commands against a fixed tool set.
type Console struct {
	tools  []*openapi2mcp.Tool
	byName map[string]*openapi2mcp.Tool
	out    io.Writer
	logger *logging.Logger
}

// New creates a console writing to out.
func New(tools []*openapi2mcp.Tool, out io.Writer, logger *logging.Logger) *Console {
	if logger == nil {
		logger = logging.NewSilent()
	}
	byName := make(map[string]*openapi2mcp.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &Console{tools: tools, byName: byName, out: out, logger: logger.WithComponent("console")}
}

// Run reads commands until exit, EOF or ctx is done. historyFile may be empty.
func (c *Console) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "swagger-mcp> ",
		HistoryFile:     historyFile,
		AutoComplete:    c.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	c.out = rl.Stdout()

	fmt.Fprintf(c.out, "%d tools loaded. Type 'help' for commands.\n", len(c.tools))
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.Exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	return ctx.Err()
}

func (c *Console) completer() *readline.PrefixCompleter {
	names := func(string) []string {
		out := make([]string, 0, len(c.tools))
		for _, t := range c.tools {
			out = append(out, t.Name)
		}
		return out
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("describe", readline.PcItemDynamic(names)),
		readline.PcItem("call", readline.PcItemDynamic(names)),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "list", "ls":
		c.list()
		return nil
	case "describe":
		return c.describe(rest)
	case "call":
		return c.call(ctx, rest)
	case "help", "?":
		fmt.Fprint(c.out, helpText)
		return nil
	case "exit", "quit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try 'help')", cmd)
}

func (c *Console) list() {
	tools := append([]*openapi2mcp.Tool(nil), c.tools...)
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	for _, t := range tools {
		fmt.Fprintf(c.out, "%-30s %-7s %s\n", t.Name, t.Operation.Method, t.Operation.Path)
	}
}

func (c *Console) lookup(name string) (*openapi2mcp.Tool, error) {
	if name == "" {
		return nil, errors.New("tool name required")
	}
	t, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("no tool named %q", name)
	}
	return t, nil
}

func (c *Console) describe(name string) error {
	t, err := c.lookup(name)
	if err != nil {
		return err
	}
	schema, err := json.MarshalIndent(t.InputSchema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n\n%s\n\nInput schema:\n%s\n", t.Name, t.Description, schema)
	return nil
}

func (c *Console) call(ctx context.Context, rest string) error {
	name, raw, _ := strings.Cut(rest, " ")
	t, err := c.lookup(name)
	if err != nil {
		return err
	}

	args := map[string]any{}
	if raw = strings.TrimSpace(raw); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	res, err := t.Invoke(ctx, args)
	if err != nil {
		return err
	}
	c.logger.Debug().Str("tool", t.Name).Int("status", res.StatusCode).Msg("tool called")
	if res.IsError() {
		fmt.Fprintf(c.out, "error: %s\n", res.Text())
		return nil
	}
	fmt.Fprintln(c.out, res.Text())
	return nil
}
