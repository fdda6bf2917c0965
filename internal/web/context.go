package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// WithRequestMetadata marks ctx as an HTTP-triggered run from the client's address.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by TrustedRealIP
	ctx = core.ContextWithTrigger(ctx, core.TriggerHTTP)
	return core.ContextWithIPAddress(ctx, ip)
}
