package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindUnavailable, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "boom").HTTPStatus(); got != tc.want {
			t.Errorf("kind %d mapped to %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(KindUnavailable, "mls fetch failed", base).WithOp("listings.sync")

	if !errors.Is(err, base) {
		t.Error("wrapped error lost its cause")
	}
	if err.Error() != "listings.sync: mls fetch failed" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !Is(err, KindUnavailable) {
		t.Error("kind check failed on wrapped error")
	}
}
