package httpapi

import (
	"context"
	"net"
)

type connContextKey struct{}

// ConnContext is installed as [http.Server.ConnContext] so that handlers can
// recover the underlying [net.Conn] and key per-connection state (the HTTP
// streaming rings) on it.
func ConnContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, connContextKey{}, c)
}

func connFromContext(r interface{ Context() context.Context }) net.Conn {
	c, _ := r.Context().Value(connContextKey{}).(net.Conn)
	return c
}
