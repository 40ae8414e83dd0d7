package sink

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"
	"time"

	"github.com/google/shlex"

	"hnwatch/internal/story"
)

const commandTimeout = 15 * time.Second

// Command runs a local program per story, typically a desktop notifier.
// Each argument is a template over the story, so titles with spaces stay a
// single argument.
type Command struct {
	name string
	args []*template.Template
}

// NewCommand parses a command line such as
//
//	terminal-notifier -title "New HN Story" -message {{.Title}} -open {{.Link}}
//
// Words are split with shell quoting and escaping rules.
func NewCommand(line string) (*Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	args := make([]*template.Template, 0, len(words)-1)
	for i, w := range words[1:] {
		t, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(w)
		if err != nil {
			return nil, fmt.Errorf("failed to parse argument %q: %w", w, err)
		}
		args = append(args, t)
	}
	return &Command{name: words[0], args: args}, nil
}

func (c *Command) Name() string { return "command:" + c.name }

// Args renders the argument list for s.
func (c *Command) Args(s story.Story) ([]string, error) {
	out := make([]string, 0, len(c.args))
	for _, t := range c.args {
		var buf bytes.Buffer
		if err := t.Execute(&buf, s); err != nil {
			return nil, fmt.Errorf("failed to render argument: %w", err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}

func (c *Command) Notify(ctx context.Context, s story.Story) error {
	args, err := c.Args(s)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", c.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
