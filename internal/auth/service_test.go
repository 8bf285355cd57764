package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/msc/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newTestVerifier() *Verifier {
	return NewVerifier(config.AuthConfig{AdminTokenSecret: "admin-secret"})
}

func TestIssueAndValidate(t *testing.T) {
	v := newTestVerifier()

	token, exp, err := v.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", exp)
	}

	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("expected subject ops, got %q", claims.Subject)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	v := newTestVerifier()
	v.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := v.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	v.nowFunc = time.Now
	if _, err := v.Validate(token); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	other := NewVerifier(config.AuthConfig{AdminTokenSecret: "other-secret"})
	token, _, err := other.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	if _, err := newTestVerifier().Validate(token); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateRequiresAdminClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "viewer",
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("admin-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := newTestVerifier().Validate(signed); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDisabledVerifier(t *testing.T) {
	v := NewVerifier(config.AuthConfig{})
	if v.Enabled() {
		t.Fatalf("expected verifier without secret to be disabled")
	}
	if _, _, err := v.Issue("ops", time.Hour); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := v.Validate("anything"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestVerifier()
	token, _, err := v.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	r := gin.New()
	r.Use(AdminMiddleware(v))
	r.POST("/jobs", func(c *gin.Context) {
		claims, ok := CurrentAdmin(c)
		if !ok {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusAccepted, claims.Subject)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusAccepted},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodPost, "/jobs", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rr.Code)
		}
	}
}
