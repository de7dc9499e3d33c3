// Package sed implements the sed-script transformer: a line-oriented
// stream editor supporting substitution and deletion commands, applied to
// text/plain payloads.
package sed

import (
	"context"
	"fmt"
	"strings"

	"github.com/fusepool/sedsvc/internal/model"
)

const mimeTextPlain = "text/plain"

// Transformer applies a per-request sed script to a text payload. It is
// stateless and safe for concurrent use.
type Transformer struct{}

// New creates the sed transformer.
func New() *Transformer {
	return &Transformer{}
}

// InputTypes returns the media types the transformer accepts.
func (t *Transformer) InputTypes() []string {
	return []string{mimeTextPlain}
}

// Transform parses the request's sed script and runs it over the payload.
// Script errors and execution faults are transformation errors scoped to
// this one request.
func (t *Transformer) Transform(ctx context.Context, req *model.Request) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	script, err := Parse(req.Script)
	if err != nil {
		return nil, fmt.Errorf("parse sed script: %w", err)
	}

	out := script.Run(string(req.Data))
	return &model.Result{
		Data:        []byte(out),
		ContentType: mimeTextPlain,
	}, nil
}

// Run executes the script against the input, line by line. A trailing
// newline on the input is preserved on the output.
func (s *Script) Run(input string) string {
	if input == "" {
		return ""
	}

	trailingNewline := strings.HasSuffix(input, "\n")
	body := strings.TrimSuffix(input, "\n")

	var kept []string
	for _, line := range strings.Split(body, "\n") {
		current := line
		deleted := false
		for _, cmd := range s.cmds {
			next, keep := cmd.apply(current)
			if !keep {
				deleted = true
				break
			}
			current = next
		}
		if !deleted {
			kept = append(kept, current)
		}
	}

	out := strings.Join(kept, "\n")
	if trailingNewline && len(kept) > 0 {
		out += "\n"
	}
	return out
}
