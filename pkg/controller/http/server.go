package http

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"golang.org/x/time/rate"
)

// DefaultMaxUploadSize is the largest accepted image
const DefaultMaxUploadSize = 10 << 20

// config holds internal HTTP server configuration
type config struct {
	addr             string
	sessionSecret    []byte
	cookieSecure     bool
	adminRedirectURL string
	loginRate        rate.Limit
	loginBurst       int
	maxUploadSize    int64
	trustProxy       bool
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithSessionSecret sets the secret the session cookie keys are derived from
func WithSessionSecret(secret string) Option {
	return func(c *config) {
		c.sessionSecret = []byte(secret)
	}
}

// WithCookieSecure marks cookies Secure (HTTPS only)
func WithCookieSecure(secure bool) Option {
	return func(c *config) {
		c.cookieSecure = secure
	}
}

// WithAdminRedirectURL sets where the browser goes after signing in
func WithAdminRedirectURL(url string) Option {
	return func(c *config) {
		c.adminRedirectURL = url
	}
}

// WithLoginRateLimit sets the per-IP rate of login and callback requests
func WithLoginRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.loginRate = limit
		c.loginBurst = burst
	}
}

// WithMaxUploadSize sets the largest accepted image in bytes
func WithMaxUploadSize(size int64) Option {
	return func(c *config) {
		c.maxUploadSize = size
	}
}

// WithTrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Enable
// only behind a reverse proxy that overwrites these headers.
func WithTrustProxy(trust bool) Option {
	return func(c *config) {
		c.trustProxy = trust
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server. A session secret is required.
func NewServer(
	ctx context.Context,
	contentUC interfaces.ContentUseCase,
	imageUC interfaces.ImageUseCase,
	authUC interfaces.AuthUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:             "localhost:8080",
		adminRedirectURL: "/admin",
		loginRate:        DefaultLoginRate,
		loginBurst:       DefaultLoginBurst,
		maxUploadSize:    DefaultMaxUploadSize,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	sessions, err := newSessionStore(cfg.sessionSecret, cfg.cookieSecure)
	if err != nil {
		return nil, err
	}

	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	pages := &pageHandler{contentUC: contentUC}
	images := &imageHandler{imageUC: imageUC, maxUploadSize: cfg.maxUploadSize}
	auth := &authHandler{
		authUC:           authUC,
		sessions:         sessions,
		adminRedirectURL: cfg.adminRedirectURL,
	}
	limiter := newIPLimiter(cfg.loginRate, cfg.loginBurst)

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	if cfg.trustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)
	router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, goerr.New("Not found", goerr.T(types.ErrTagNotFound), goerr.V("path", r.URL.Path)))
	})

	// Health check
	router.Get("/health", handleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", handleOpenAPI)

		r.Group(func(r chi.Router) {
			r.Use(validator.Middleware)
			r.Get("/pages", pages.listPages)
			r.Get("/page", pages.readPage)
			r.Get("/images", images.listImages)
		})

		// Writes: the session is checked first, then parameters
		r.Group(func(r chi.Router) {
			r.Use(auth.requireAdmin)
			r.Use(validator.Middleware)
			r.Put("/page", pages.updatePage)
			r.Post("/preview", pages.previewPage)
			r.Post("/images", images.uploadImage)
		})
	})

	router.Route("/auth", func(r chi.Router) {
		r.With(limiter.Middleware).Get("/login", auth.login)
		r.With(limiter.Middleware).Get("/callback", auth.callback)
		r.Post("/logout", auth.logout)
		r.With(auth.requireAdmin).Get("/me", auth.me)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
