package transform

import (
	"context"
	"testing"

	"github.com/fusepool/sedsvc/internal/model"
)

type textTransformer struct{}

func (textTransformer) Transform(ctx context.Context, req *model.Request) (*model.Result, error) {
	return &model.Result{Data: req.Data, ContentType: "text/plain"}, nil
}

func (textTransformer) InputTypes() []string {
	return []string{"text/plain"}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"TEXT/PLAIN", true},
		{"application/json", false},
		{"text/html", false},
		{"", false},
		{"not a type", false},
	}

	tr := textTransformer{}
	for _, tt := range tests {
		if got := Accepts(tr, tt.contentType); got != tt.want {
			t.Errorf("Accepts(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
