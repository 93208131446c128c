package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"service error", Validation("bad"), KindValidation},
		{"wrapped service error", fmt.Errorf("ctx: %w", NotFound("missing")), KindNotFound},
		{"route validation", route.NewValidationError("empty name"), KindValidation},
		{"route not found", route.NewNotFoundError(7), KindNotFound},
		{"index unavailable", fmt.Errorf("search: %w", index.ErrUnavailable), KindBackend},
		{"cancelled", context.Canceled, KindCancelled},
		{"deadline", context.DeadlineExceeded, KindCancelled},
		{"unknown", errors.New("boom"), KindBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := WrapError(KindBackend, "embedder unavailable", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "backend: embedder unavailable: root" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestKindString(t *testing.T) {
	if KindValidation.String() != "validation" {
		t.Errorf("got %s", KindValidation)
	}
	if KindBackend.String() != "backend" {
		t.Errorf("got %s", KindBackend)
	}
}
