package config

import (
	"time"

	controller "github.com/m-mizutani/tidepool/pkg/controller/http"
	"github.com/m-mizutani/tidepool/pkg/usecase"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Server holds server configuration
type Server struct {
	Addr           string
	MaxUploadMB    int64
	LoginPerMinute int64
	LoginBurst     int64
	TrustProxy     bool
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("TIDEPOOL_ADDR"),
		},
		&cli.Int64Flag{
			Name:        "max-upload-mb",
			Usage:       "Largest accepted image in megabytes",
			Value:       controller.DefaultMaxUploadSize >> 20,
			Destination: &c.MaxUploadMB,
			Sources:     cli.EnvVars("TIDEPOOL_MAX_UPLOAD_MB"),
		},
		&cli.Int64Flag{
			Name:        "login-rate",
			Usage:       "Sign-in requests allowed per minute per client IP",
			Value:       20,
			Destination: &c.LoginPerMinute,
			Sources:     cli.EnvVars("TIDEPOOL_LOGIN_RATE"),
		},
		&cli.Int64Flag{
			Name:        "login-burst",
			Usage:       "Sign-in request burst per client IP",
			Value:       controller.DefaultLoginBurst,
			Destination: &c.LoginBurst,
			Sources:     cli.EnvVars("TIDEPOOL_LOGIN_BURST"),
		},
		&cli.BoolFlag{
			Name:        "trust-proxy",
			Usage:       "Take the client IP from X-Forwarded-For (only behind a trusted reverse proxy)",
			Destination: &c.TrustProxy,
			Sources:     cli.EnvVars("TIDEPOOL_TRUST_PROXY"),
		},
	}
}

// MaxUploadSize returns the upload limit in bytes
func (c *Server) MaxUploadSize() int64 {
	if c.MaxUploadMB <= 0 {
		return controller.DefaultMaxUploadSize
	}
	return c.MaxUploadMB << 20
}

// ServerOptions returns the HTTP server options
func (c *Server) ServerOptions() []controller.Option {
	limit := rate.Every(time.Minute / time.Duration(max(c.LoginPerMinute, 1)))
	return []controller.Option{
		controller.WithAddr(c.Addr),
		controller.WithMaxUploadSize(c.MaxUploadSize()),
		controller.WithLoginRateLimit(limit, int(max(c.LoginBurst, 1))),
		controller.WithTrustProxy(c.TrustProxy),
	}
}

// UseCaseOptions returns the use case options sharing the upload limit
func (c *Server) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithMaxUploadSize(c.MaxUploadSize()),
	}
}
