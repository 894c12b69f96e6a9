package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, SIGINT/SIGTERM arrives, or the
// listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	if err := s.configureTLS(httpServer); err != nil {
		s.releaseResources()
		return err
	}

	s.logStartup(httpServer)
	return s.startWithGracefulShutdown(ctx, httpServer)
}

func (s *Server) logStartup(httpServer *http.Server) {
	scheme := "http"
	if httpServer.TLSConfig != nil {
		scheme = "https"
	}
	historyBackend := "disabled"
	if s.history != nil {
		historyBackend = s.history.Name()
	}

	s.Logger.Info("Starting HTTP server",
		"address", fmt.Sprintf("%s://%s", scheme, httpServer.Addr),
		"version", s.Version,
		"tls_mode", s.TLSConfig.Mode,
		"auth_enabled", len(s.APIKeys) > 0,
		"rate_limit_enabled", s.RateLimiter != nil,
		"max_file_size_mb", s.MaxFileSize>>20,
		"history", historyBackend,
		"vault_tls_polling", s.vaultPoller != nil)
	s.Logger.Debug("Registered endpoints",
		"public", []string{"GET /health", "GET /stats"},
		"protected", []string{
			"POST /resume/analyze", "POST /interview/generate", "POST /answer-feedback",
			"POST /ideal-answer", "POST /ask", "GET /history/resume", "GET /history/interview",
		})
}

func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		var err error
		if server.TLSConfig != nil {
			// Certificates come from TLSConfig.GetCertificate.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.releaseResources()
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())
	case <-ctx.Done():
		s.Logger.Info("Context cancelled, starting graceful shutdown")
	}

	return s.performGracefulShutdown(server)
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.releaseResources()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// releaseResources stops background goroutines owned by the server.
func (s *Server) releaseResources() {
	if s.vaultPoller != nil {
		s.vaultPoller.Stop()
	}
	if s.Certificates != nil {
		if err := s.Certificates.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
