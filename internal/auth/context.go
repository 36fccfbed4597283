package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

// Context is the caller identity resolved for a request.
type Context struct {
	ID        string   `json:"id"` // provider:address
	Namespace string   `json:"namespace"`
	Scopes    []string `json:"scopes"`
}

// Owner resolves the ledger owner named by the authorizer id.
func (c *Context) Owner() (model.Owner, error) {
	o, err := model.ParseOwner(c.ID)
	if err != nil {
		return model.Owner{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return o, nil
}

func parseScopes(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type ctxKey struct{}

// WithContext attaches c to ctx.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the caller identity stored by Middleware.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Context)
	return c, ok && c != nil
}
