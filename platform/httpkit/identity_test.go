package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestGetIdentityReadsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	userID := uuid.New()
	c.Set(ContextUserIDKey, userID)

	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		t.Fatal("identity not authenticated with user id set")
	}
	if id.UserID() != userID {
		t.Fatalf("user id = %s, want %s", id.UserID(), userID)
	}
}

func TestGetIdentityWithoutUserIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetIdentity(c).IsAuthenticated() {
		t.Fatal("empty context produced an authenticated identity")
	}
}

func TestMustGetIdentityAbortsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	if id := MustGetIdentity(c); id != nil {
		t.Fatalf("identity = %v, want nil", id)
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
