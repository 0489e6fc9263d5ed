package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/ecoride/rewards/foundation/web"
)

// AllowOrigin reports whether the request origin is accepted by the
// configured origins. The configuration is either "*" or a comma separated
// list of origins. Requests without an Origin header are same origin.
func AllowOrigin(allowed string, origin string) bool {
	if origin == "" {
		return true
	}

	for _, a := range strings.Split(allowed, ",") {
		a = strings.TrimSpace(a)
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}

	return false
}

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// The reward api only accepts reads and reward submissions. Only a matching
// origin is echoed back, so a disallowed origin gets no cors headers.
func Cors(allowed string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if origin != "" && AllowOrigin(allowed, origin) {
				allow := origin
				if strings.TrimSpace(allowed) == "*" {
					allow = "*"
				}

				w.Header().Set("Access-Control-Allow-Origin", allow)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
