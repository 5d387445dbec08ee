package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/service"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func newTestHandler() *HTTPHandler {
	gin.SetMode(gin.TestMode)
	return NewHTTPHandler(nil, validator.New(), "http://app.test", logger.New("test"))
}

func newTrackingRouter() *gin.Engine {
	h := newTestHandler()
	r := gin.New()
	h.RegisterPublicRoutes(r.Group(""))
	return r
}

func TestTrackOpenServesPixelOnGarbageParams(t *testing.T) {
	r := newTrackingRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/open?sessionId=nope&visitorId=also-nope", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/gif" {
		t.Fatalf("content type = %q, want image/gif", ct)
	}
	if w.Body.Len() != len(trackingPixel) {
		t.Fatalf("body length = %d, want %d", w.Body.Len(), len(trackingPixel))
	}
}

func TestTrackClickRedirectsOnGarbageParams(t *testing.T) {
	r := newTrackingRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/click?sessionId=nope&visitorId=nope&url=http%3A%2F%2Flisting.test%2Fhome", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://listing.test/home" {
		t.Fatalf("location = %q, want the url param", loc)
	}
}

func TestTrackClickFallsBackWithoutTarget(t *testing.T) {
	r := newTrackingRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/click?sessionId=nope&visitorId=nope", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://app.test" {
		t.Fatalf("location = %q, want fallback", loc)
	}
}

func TestSafeRedirectTarget(t *testing.T) {
	cases := []struct {
		target string
		want   bool
	}{
		{"http://listing.test/1", true},
		{"https://listing.test/1", true},
		{"javascript:alert(1)", false},
		{"data:text/html,hi", false},
		{"//evil.test/phish", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := safeRedirectTarget(tc.target); got != tc.want {
			t.Errorf("safeRedirectTarget(%q) = %v, want %v", tc.target, got, tc.want)
		}
	}
}

func TestHandleServiceErrorMapsDomainKinds(t *testing.T) {
	h := newTestHandler()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", service.ErrSessionNotFound, http.StatusNotFound},
		{"visitor not found", service.ErrVisitorNotFound, http.StatusNotFound},
		{"contact required", service.ErrContactRequired, http.StatusBadRequest},
		{"session closed", service.ErrSessionClosed, http.StatusConflict},
		{"qr unavailable", service.ErrQRUnavailable, http.StatusBadGateway},
		{"wrapped sequence error", fmt.Errorf("%w: step 2 has no template", domain.ErrInvalidSequence), http.StatusBadRequest},
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

func TestHandleServiceErrorPassesNil(t *testing.T) {
	h := newTestHandler()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if h.handleServiceError(c, nil) {
		t.Fatal("nil error reported as handled")
	}
}

func TestCheckInRejectsInvalidBody(t *testing.T) {
	r := newTrackingRouter()

	// fullName missing, email malformed: must fail validation before the
	// service is ever consulted.
	body := `{"email":"not-an-email"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkin/some-token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation failed") {
		t.Fatalf("body = %s, want a validation failure", w.Body.String())
	}
}
