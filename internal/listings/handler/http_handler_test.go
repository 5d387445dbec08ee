package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sngor/bayon-backend/internal/listings/service"
	"github.com/sngor/bayon-backend/platform/httpkit"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestHandler() *HTTPHandler {
	gin.SetMode(gin.TestMode)
	return NewHTTPHandler(nil, validator.New(), logger.New("test"))
}

func TestHandleServiceErrorMapsDomainKinds(t *testing.T) {
	h := newTestHandler()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"listing not found", service.ErrListingNotFound, http.StatusNotFound},
		{"connection not found", service.ErrConnectionNotFound, http.StatusNotFound},
		{"untyped error", errors.New("pool exhausted"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			if !h.handleServiceError(c, tc.err) {
				t.Fatal("error not handled")
			}
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCreateConnectionRejectsInvalidBody(t *testing.T) {
	h := newTestHandler()
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(httpkit.ContextUserIDKey, uuid.New()) })
	h.RegisterRoutes(r.Group(""))

	// apiBaseUrl is not a URL and the token is missing.
	body := `{"provider":"regrid","apiBaseUrl":"not a url"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation failed") {
		t.Fatalf("body = %s, want a validation failure", w.Body.String())
	}
}
