package settings

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Standard error is included in the returned
// error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 - fixed binary, arguments from config
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// CLI is a Store backed by the gsettings command.
type CLI struct {
	runner Runner
}

// NewCLI creates a gsettings backed store. A nil runner uses ExecRunner.
func NewCLI(runner Runner) *CLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CLI{runner: runner}
}

// Get returns the string value of schema/key.
func (c *CLI) Get(ctx context.Context, schema, key string) (string, error) {
	out, err := c.runner.Run(ctx, "gsettings", "get", schema, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s: %w", schema, key, err)
	}
	return parseGVariantString(strings.TrimSpace(string(out))), nil
}

// Set writes a string value to schema/key.
func (c *CLI) Set(ctx context.Context, schema, key, value string) error {
	if _, err := c.runner.Run(ctx, "gsettings", "set", schema, key, quoteGVariantString(value)); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", schema, key, err)
	}
	return nil
}

// parseGVariantString decodes a GVariant text string such as 'file:///a.png'
// or "it's". Unquoted input is returned unchanged.
func parseGVariantString(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return s
	}

	body := s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i == len(body)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// quoteGVariantString encodes s as a single-quoted GVariant string.
func quoteGVariantString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
