package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// ClientMetadata stores the remote IP and User-Agent on the request context.
// Put a proxy-aware handler such as chi's RealIP in front of it when the
// service runs behind a load balancer.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcore.WithClientIP(r.Context(), remoteIP(r.RemoteAddr))
		ctx = authcore.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
