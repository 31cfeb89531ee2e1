package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins ("https://start.example.com"),
	// subdomain patterns ("*.example.com") or "*". A "*" entry has no
	// effect when AllowCredentials is set.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int
}

// DefaultCORSConfig returns CORS defaults for the start page API.
// No origins are allowed until configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID", "Accept"},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 86400,
	}
}

// originPolicy is the parsed form of CORSConfig.AllowedOrigins.
type originPolicy struct {
	any    bool
	exact  map[string]struct{}
	suffix []string // ".example.com" for "*.example.com"
}

func newOriginPolicy(origins []string, credentials bool) originPolicy {
	p := originPolicy{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			p.any = !credentials
		case strings.HasPrefix(o, "*."):
			p.suffix = append(p.suffix, o[1:])
		default:
			p.exact[o] = struct{}{}
		}
	}
	return p
}

// allows reports whether origin may receive CORS headers. A subdomain
// pattern matches any host strictly below its domain, at any depth and
// on any port, but never the bare domain itself.
func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	if len(p.suffix) == 0 {
		return false
	}

	_, host, ok := strings.Cut(origin, "://")
	if !ok || host == "" || strings.ContainsAny(host, "/@") {
		return false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, s := range p.suffix {
		if len(host) > len(s) && strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// CORS answers preflight requests and decorates responses for allowed
// origins. Requests without an Origin header pass through untouched.
// Disallowed preflights get 403; other disallowed requests are served
// without CORS headers so the browser drops the response.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newOriginPolicy(cfg.AllowedOrigins, cfg.AllowCredentials)

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	var maxAge string
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions

			switch {
			case origin == "":
				next.ServeHTTP(w, r)
				return
			case !policy.allows(origin):
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
