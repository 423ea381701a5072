package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: Errf(KindValidation, "bad input"), want: http.StatusBadRequest},
		{name: "authentication", err: Errf(KindAuthentication, "bad token"), want: http.StatusUnauthorized},
		{name: "authorization", err: Errf(KindAuthorization, "inactive run"), want: http.StatusForbidden},
		{name: "not found", err: Errf(KindNotFound, "no mapping"), want: http.StatusNotFound},
		{name: "upstream", err: Wrap(KindUpstream, "api down", errors.New("500")), want: http.StatusBadGateway},
		{
			name: "upstream deadline",
			err:  Wrap(KindUpstream, "api timeout", fmt.Errorf("get: %w", context.DeadlineExceeded)),
			want: http.StatusGatewayTimeout,
		},
		{name: "unclassified", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "config", err: Errf(KindConfig, "bad mapping"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Errf(KindNotFound, "x")); got != KindNotFound {
		t.Errorf("KindOf() = %q, want %q", got, KindNotFound)
	}
	wrapped := fmt.Errorf("outer: %w", Errf(KindUpstream, "inner"))
	if got := KindOf(wrapped); got != KindUpstream {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindUpstream)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestPublic(t *testing.T) {
	err := Wrap(KindUpstream, "automation api error", errors.New("secret internal detail"))
	if got := Public(err); got != "automation api error" {
		t.Errorf("Public() = %q, leaked wrapped detail", got)
	}
	if got := Public(errors.New("raw")); got != "internal error" {
		t.Errorf("Public(unclassified) = %q", got)
	}
}
