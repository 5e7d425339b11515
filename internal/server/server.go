package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tasktrack/internal/attachstore"
	"tasktrack/internal/lifecycle"
	"tasktrack/internal/policy"
	"tasktrack/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 30 * time.Second

	defaultPageSize = 5
	maxPageSize     = 100

	loginMaxFailures = 5
	loginWindow      = 5 * time.Minute
	loginBlockedFor  = 15 * time.Minute
)

// Options wires a Server to its storage and policy.
type Options struct {
	Addr               string
	Store              store.Gateway
	Files              *attachstore.Store
	Tasks              *lifecycle.Manager
	Policy             policy.Policy
	Logger             *slog.Logger
	SessionTTL         time.Duration
	AdminRole          string
	SecureCookie       bool
	PageSize           int
	MaxUploadBytes     int64
	MultipartMaxMemory int64
}

// Server wraps HTTP handlers for the tasktrack API.
type Server struct {
	addr               string
	store              store.Gateway
	files              *attachstore.Store
	tasks              *lifecycle.Manager
	policy             policy.Policy
	auth               *AuthService
	loginLimiter       *loginRateLimiter
	logger             *slog.Logger
	secureCookie       bool
	pageSize           int
	maxUploadBytes     int64
	multipartMaxMemory int64
	now                func() time.Time
}

// New creates a new server instance.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	multipartMemory := opts.MultipartMaxMemory
	if multipartMemory <= 0 {
		multipartMemory = 8 << 20
	}

	return &Server{
		addr:               opts.Addr,
		store:              opts.Store,
		files:              opts.Files,
		tasks:              opts.Tasks,
		policy:             opts.Policy,
		auth:               NewAuthService(opts.Store, opts.SessionTTL, opts.AdminRole),
		loginLimiter:       newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockedFor),
		logger:             logger,
		secureCookie:       opts.SecureCookie,
		pageSize:           pageSize,
		maxUploadBytes:     maxUpload,
		multipartMaxMemory: multipartMemory,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log().Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("starting server", "addr", s.addr)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log().Info("shutting down server", "reason", context.Cause(ctx))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	s.log().Info("server stopped")
	return nil
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
