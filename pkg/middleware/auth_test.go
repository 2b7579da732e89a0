package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTokenRoundTrip(t *testing.T) {
	v := NewTokenVerifier("secret", "storefront")
	tok, err := v.Sign(42, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(tok)
	if err != nil || id != 42 {
		t.Fatalf("Verify = %d, %v", id, err)
	}

	tests := []struct {
		name     string
		verifier *TokenVerifier
		token    func() string
	}{
		{"wrong secret", NewTokenVerifier("other", "storefront"), func() string { return tok }},
		{"wrong issuer", NewTokenVerifier("secret", "elsewhere"), func() string { return tok }},
		{"expired", v, func() string {
			expired, _ := v.Sign(42, -time.Minute)
			return expired
		}},
		{"garbage", v, func() string { return "a.b.c" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.verifier.Verify(tt.token()); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGinOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewTokenVerifier("secret", "")
	r := gin.New()
	r.Use(GinOptionalAuth(v, func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }))
	r.GET("/", func(c *gin.Context) {
		if _, ok := AuthenticatedUserID(c); ok {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	tok, _ := v.Sign(7, time.Minute)
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusOK, "anonymous"},
		{"valid", "Bearer " + tok, http.StatusOK, "user"},
		{"lowercase scheme", "bearer " + tok, http.StatusOK, "user"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusOK, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status || w.Body.String() != tt.body {
				t.Errorf("got %d %q, want %d %q", w.Code, w.Body.String(), tt.status, tt.body)
			}
		})
	}
}
