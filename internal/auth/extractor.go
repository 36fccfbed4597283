package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

// Headers set by the upstream gateway authorizer.
const (
	HeaderAuthorizerID        = "X-Authorizer-Id"
	HeaderAuthorizerNamespace = "X-Authorizer-Namespace"
	HeaderAuthorizerScopes    = "X-Authorizer-Scopes"
)

// Extractor resolves the caller identity of a request.
type Extractor interface {
	Extract(r *http.Request) (*Context, error)
}

// GatewayExtractor trusts the authorizer headers forwarded by the gateway.
type GatewayExtractor struct{}

func (GatewayExtractor) Extract(r *http.Request) (*Context, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderAuthorizerID))
	if id == "" {
		return nil, ErrMissingAuthorizer
	}
	c := &Context{
		ID:        id,
		Namespace: r.Header.Get(HeaderAuthorizerNamespace),
		Scopes:    parseScopes(r.Header.Get(HeaderAuthorizerScopes)),
	}
	if _, err := c.Owner(); err != nil {
		return nil, err
	}
	return c, nil
}

// LocalDevAPIKey is the hardcoded API key for local development only.
const LocalDevAPIKey = "sk_local_trail_dev_key"

// MockExtractor accepts LocalDevAPIKey and resolves it to a fixed owner.
type MockExtractor struct {
	Owner model.Owner
}

// NewMockExtractor returns a development extractor for the "dev:local" owner.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{Owner: model.Owner{Provider: "dev", Address: "local"}}
}

func (m *MockExtractor) Extract(r *http.Request) (*Context, error) {
	apiKey, err := ExtractAPIKey(r)
	if err != nil {
		return nil, err
	}
	if apiKey != LocalDevAPIKey {
		return nil, ErrInvalidAPIKey
	}
	return &Context{ID: m.Owner.String(), Namespace: "local", Scopes: []string{"*"}}, nil
}

// ExtractAPIKey extracts API key from Authorization header
// Returns the API key or error if missing/invalid format
func ExtractAPIKey(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	// Expect "Bearer <api_key>" format
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header format, expected 'Bearer <api_key>'")
	}

	return parts[1], nil
}

// NewExtractor picks the extractor for an auth mode ("gateway" or "dev").
func NewExtractor(mode string) Extractor {
	if mode == "dev" {
		return NewMockExtractor()
	}
	return GatewayExtractor{}
}
