// Package transform defines the pluggable transformation unit the engine
// executes. Implementations are format-specific and supplied by the
// surrounding application; the engine only sees this interface.
package transform

import (
	"context"
	"mime"
	"strings"

	"github.com/fusepool/sedsvc/internal/model"
)

// Transformer turns a request payload into a result or an error. A
// returned error is a transformation error: it fails the one job and is
// never allowed to take down the worker loop.
type Transformer interface {
	// Transform applies the request's script to its payload.
	Transform(ctx context.Context, req *model.Request) (*model.Result, error)

	// InputTypes lists the media types this transformer accepts.
	InputTypes() []string
}

// Accepts reports whether the transformer handles the given Content-Type
// value. Parameters (charset etc.) are ignored for the comparison.
func Accepts(t Transformer, contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, in := range t.InputTypes() {
		if strings.EqualFold(in, media) {
			return true
		}
	}
	return false
}
