package app

import "context"

type contextKey string

const clientIPKey contextKey = "client_ip"

// WithClientIP attaches the caller's IP address to the context so audit writes
// deep in the service layer can record it without widening every signature.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the caller's IP address, or "" when none was attached.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
