package action

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/seerai/krampus-auth/auth"
)

// Commands issues workflow commands to the runner.
//
// Contract:
// - Concurrency: safe for concurrent use; each command is written atomically.
// - Errors: command writes are best-effort; ExportVariables reports file errors.
type Commands struct {
	mu      sync.Mutex
	out     io.Writer
	envFile string
	setenv  func(key, value string) error
}

// CommandsOption configures Commands.
type CommandsOption func(*Commands)

// WithSetenv replaces os.Setenv for in-process exports.
func WithSetenv(fn func(key, value string) error) CommandsOption {
	return func(c *Commands) {
		if fn != nil {
			c.setenv = fn
		}
	}
}

// NewCommands creates Commands writing to out. envFile is the GITHUB_ENV
// path; when empty, exports fall back to the set-env command.
func NewCommands(out io.Writer, envFile string, opts ...CommandsOption) *Commands {
	c := &Commands{
		out:     out,
		envFile: envFile,
		setenv:  os.Setenv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue writes ::command::message.
func (c *Commands) Issue(command, message string) {
	c.issue(command, nil, message)
}

// Debug writes a debug message, shown only when step debugging is enabled.
func (c *Commands) Debug(message string) {
	c.Issue("debug", message)
}

// Warning writes a warning annotation.
func (c *Commands) Warning(message string) {
	c.Issue("warning", message)
}

// Error writes an error annotation.
func (c *Commands) Error(message string) {
	c.Issue("error", message)
}

// Info writes a plain log line.
func (c *Commands) Info(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, message)
}

// Mask registers value as a secret so the runner redacts it from logs.
func (c *Commands) Mask(value string) {
	if value == "" {
		return
	}
	c.Issue("add-mask", value)
}

// ExportVariables makes each export visible to this process and to later
// steps. All exports are written to GITHUB_ENV in a single append. Names are
// checked before anything is written, so an invalid export leaves no trace.
func (c *Commands) ExportVariables(exports ...auth.Export) error {
	for _, e := range exports {
		if err := validateEnvName(e.Name); err != nil {
			return fmt.Errorf("export variables: %w", err)
		}
	}

	if c.envFile != "" {
		var b strings.Builder
		for _, e := range exports {
			msg, err := keyValueMessage(e.Name, e.Value)
			if err != nil {
				return err
			}
			b.WriteString(msg)
			b.WriteString("\n")
		}
		if err := appendFile(c.envFile, b.String()); err != nil {
			return fmt.Errorf("export variables: %w", err)
		}
	} else {
		for _, e := range exports {
			c.issue("set-env", map[string]string{"name": e.Name}, e.Value)
		}
	}

	for _, e := range exports {
		if err := c.setenv(e.Name, e.Value); err != nil {
			return fmt.Errorf("set %s: %w", e.Name, err)
		}
	}
	return nil
}

func (c *Commands) issue(command string, props map[string]string, message string) {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(command)
	if len(props) > 0 {
		b.WriteString(" ")
		first := true
		for k, v := range props {
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(escapeProperty(v))
		}
	}
	b.WriteString("::")
	b.WriteString(escapeData(message))
	b.WriteString("\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, b.String())
}

// keyValueMessage formats name<<delim / value / delim for file commands.
func keyValueMessage(name, value string) (string, error) {
	delimiter := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(name, delimiter) {
		return "", fmt.Errorf("unexpected input: name should not contain the delimiter %q", delimiter)
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("unexpected input: value should not contain the delimiter %q", delimiter)
	}
	return name + "<<" + delimiter + "\n" + value + "\n" + delimiter, nil
}

// validateEnvName rejects names os.Setenv would refuse.
func validateEnvName(name string) error {
	if name == "" {
		return errors.New("variable name is empty")
	}
	if strings.ContainsAny(name, "=\x00") {
		return fmt.Errorf("invalid variable name %q", name)
	}
	return nil
}

func appendFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string {
	return dataEscaper.Replace(s)
}

func escapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}
