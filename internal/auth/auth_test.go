package auth

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

func TestGatewayExtractor(t *testing.T) {
	r := httptest.NewRequest("POST", "/license/verify", nil)
	r.Header.Set(HeaderAuthorizerID, "prov:addr:with:colons")
	r.Header.Set(HeaderAuthorizerNamespace, "user")
	r.Header.Set(HeaderAuthorizerScopes, "trail, publish ,")

	c, err := GatewayExtractor{}.Extract(r)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	o, err := c.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if o != (model.Owner{Provider: "prov", Address: "addr:with:colons"}) {
		t.Fatalf("unexpected owner %+v", o)
	}
	if !reflect.DeepEqual(c.Scopes, []string{"trail", "publish"}) || c.Namespace != "user" {
		t.Fatalf("unexpected context %+v", c)
	}
}

func TestGatewayExtractorRejects(t *testing.T) {
	for _, id := range []string{"", "no-separator", ":addr", "prov:"} {
		r := httptest.NewRequest("POST", "/", nil)
		if id != "" {
			r.Header.Set(HeaderAuthorizerID, id)
		}
		if _, err := (GatewayExtractor{}).Extract(r); err == nil {
			t.Fatalf("id %q: expected error", id)
		}
	}
}

func TestMockExtractor(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("Authorization", "Bearer "+LocalDevAPIKey)
	c, err := NewMockExtractor().Extract(r)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if c.ID != "dev:local" {
		t.Fatalf("unexpected id %q", c.ID)
	}
	r.Header.Set("Authorization", "Bearer nope")
	if _, err := NewMockExtractor().Extract(r); err != ErrInvalidAPIKey {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	var got *Context
	h := Middleware(GatewayExtractor{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set(HeaderAuthorizerID, "p:a")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || got == nil || got.ID != "p:a" {
		t.Fatalf("expected pass-through with context, code=%d ctx=%v", rr.Code, got)
	}
}
