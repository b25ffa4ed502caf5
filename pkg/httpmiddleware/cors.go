package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers a browser client of the API needs to send and read by default.
var (
	defaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	defaultCORSHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	defaultCORSExpose  = []string{
		"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
	}
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to GET, POST, PATCH, DELETE and OPTIONS.
	AllowMethods []string
	// AllowHeaders defaults to Authorization, Content-Type and X-Request-ID.
	AllowHeaders []string
	// ExposeHeaders defaults to the request id and rate limit headers.
	ExposeHeaders []string
	// AllowCredentials lets browsers send the refresh token cookie. A
	// wildcard origin is then answered with the request origin.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits it.
	MaxAge int
}

// corsPolicy is a CORSConfig with its header values precomputed.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]string // lowercase -> configured spelling
	credentials bool

	methods string
	headers string
	expose  string
	maxAge  string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		anyOrigin:   len(cfg.AllowOrigins) == 0,
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		credentials: cfg.AllowCredentials,
		methods:     joinOr(cfg.AllowMethods, defaultCORSMethods),
		headers:     joinOr(cfg.AllowHeaders, defaultCORSHeaders),
		expose:      joinOr(cfg.ExposeHeaders, defaultCORSExpose),
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func joinOr(values, fallback []string) string {
	if len(values) == 0 {
		values = fallback
	}
	return strings.Join(values, ", ")
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is rejected.
func (p *corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin && p.credentials:
		return origin
	case p.anyOrigin:
		return "*"
	default:
		return p.origins[strings.ToLower(origin)]
	}
}

// varies reports whether responses depend on the Origin header.
func (p *corsPolicy) varies() bool {
	return !p.anyOrigin || p.credentials
}

func (p *corsPolicy) preflight(w http.ResponseWriter, allow string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
	if allow != "" {
		h.Set("Access-Control-Allow-Origin", allow)
		h.Set("Access-Control-Allow-Methods", p.methods)
		h.Set("Access-Control-Allow-Headers", p.headers)
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.maxAge != "" {
			h.Set("Access-Control-Max-Age", p.maxAge)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *corsPolicy) actual(w http.ResponseWriter, allow string) {
	h := w.Header()
	if p.varies() {
		h.Add("Vary", "Origin")
	}
	if allow == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Expose-Headers", p.expose)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORS answers preflight requests with 204 without calling next and
// decorates every other cross-origin response. Origins match
// case-insensitively.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				if p.varies() {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allow := p.allowOrigin(origin)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				p.preflight(w, allow)
				return
			}
			p.actual(w, allow)
			next.ServeHTTP(w, r)
		})
	}
}
