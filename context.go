package authcore

import "context"

// clientMeta is what the transport knows about the caller. Login stores it
// on the new session and audit events carry it.
type clientMeta struct {
	ip        string
	userAgent string
}

type clientMetaKey struct{}

func metaFrom(ctx context.Context) clientMeta {
	if ctx == nil {
		return clientMeta{}
	}
	m, _ := ctx.Value(clientMetaKey{}).(clientMeta)
	return m
}

// WithClientIP records the caller's IP address. Login throttling keys on it
// when IP throttling is enabled.
func WithClientIP(ctx context.Context, ip string) context.Context {
	m := metaFrom(ctx)
	m.ip = ip
	return context.WithValue(ctx, clientMetaKey{}, m)
}

// WithUserAgent records the caller's User-Agent header.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	m := metaFrom(ctx)
	m.userAgent = userAgent
	return context.WithValue(ctx, clientMetaKey{}, m)
}

func clientIPFromContext(ctx context.Context) string  { return metaFrom(ctx).ip }
func userAgentFromContext(ctx context.Context) string { return metaFrom(ctx).userAgent }
