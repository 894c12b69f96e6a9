package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/observability"
	"resumerag/internal/watch"
)

// CertReloader serves the current TLS certificate and client CA pool.
// Material comes from inline content when present, else from files, and
// can be swapped at runtime by the file watcher or the Vault poller.
type CertReloader struct {
	mu sync.RWMutex

	cfg    config.TLSConfig
	cert   *tls.Certificate
	caPool *x509.CertPool
	expiry time.Time

	reloadCount   int64
	failureCount  int64
	lastReload    time.Time
	lastReloadErr string

	watcher *watch.FileWatcher
	metrics *observability.Metrics
	logger  *errors.Logger
}

// NewCertReloader loads the initial material. It fails when the
// certificate, key, or (for mutual mode) the CA cannot be loaded.
func NewCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*CertReloader, error) {
	r := &CertReloader{cfg: cfg, metrics: metrics, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the configured material. On failure the previous
// certificate stays in service.
func (r *CertReloader) Reload() error {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()
	return r.apply(cfg)
}

// ApplyContent replaces the inline PEM material. Empty arguments keep the
// current value.
func (r *CertReloader) ApplyContent(cert, key, ca string) error {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	if cert != "" {
		cfg.CertContent = cert
	}
	if key != "" {
		cfg.KeyContent = key
	}
	if ca != "" {
		cfg.CAContent = ca
	}
	return r.apply(cfg)
}

func (r *CertReloader) apply(cfg config.TLSConfig) error {
	cert, expiry, pool, err := loadTLSMaterial(cfg)

	r.mu.Lock()
	r.reloadCount++
	r.lastReload = time.Now()
	if err != nil {
		r.failureCount++
		r.lastReloadErr = err.Error()
	} else {
		r.cfg = cfg
		r.cert = cert
		r.expiry = expiry
		r.caPool = pool
		r.lastReloadErr = ""
	}
	r.mu.Unlock()

	r.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load TLS certificates", err)
	}
	if r.logger != nil {
		r.logger.Info("TLS certificates loaded", "expiry", expiry)
	}
	return nil
}

// GetCertificate is used as tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if !r.expiry.IsZero() && time.Now().After(r.expiry) {
		if r.logger != nil {
			r.logger.Warn("Serving expired certificate", "expiry", r.expiry, "server_name", hello.ServerName)
		}
	}
	return r.cert, nil
}

// ClientCAs returns the CA pool used to verify client certificates, or
// nil outside mutual mode.
func (r *CertReloader) ClientCAs() *x509.CertPool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caPool
}

// CheckExpiry returns the time left before the certificate expires.
func (r *CertReloader) CheckExpiry() (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.expiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(r.expiry), nil
}

// StartWatching reloads whenever a configured certificate file changes.
// It is a no-op unless WatchFiles is set and material comes from files.
func (r *CertReloader) StartWatching() error {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	if !cfg.WatchFiles || cfg.CertContent != "" {
		return nil
	}
	r.watcher = watch.New("tls", []string{cfg.CertFile, cfg.KeyFile, cfg.CAFile}, cfg.DebounceDelay, func() {
		if err := r.Reload(); err != nil && r.logger != nil {
			r.logger.LogError(err, "Failed to reload certificates after file change")
		}
	}, r.logger)
	return r.watcher.Start()
}

// Stop stops the file watcher, if any.
func (r *CertReloader) Stop() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Stop()
}

// Status reports reload counters and expiry for /health and /stats.
func (r *CertReloader) Status() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]any{
		"mode":          r.cfg.Mode,
		"expiry":        r.expiry,
		"reload_count":  r.reloadCount,
		"failure_count": r.failureCount,
		"last_reload":   r.lastReload,
		"file_watching": r.watcher != nil,
	}
	if r.lastReloadErr != "" {
		status["last_error"] = r.lastReloadErr
	}
	if !r.expiry.IsZero() {
		status["expires_in"] = time.Until(r.expiry).Round(time.Second).String()
	}
	return status
}

// loadTLSMaterial reads the key pair and, in mutual mode, the CA bundle.
func loadTLSMaterial(cfg config.TLSConfig) (*tls.Certificate, time.Time, *x509.CertPool, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, time.Time{}, nil, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("failed to load server cert/key: %w", err)
	}

	var expiry time.Time
	if len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, time.Time{}, nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
		expiry = leaf.NotAfter
	}

	if cfg.Mode != "mutual" {
		return &cert, expiry, nil, nil
	}

	var caPEM []byte
	switch {
	case cfg.CAContent != "":
		caPEM = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		if caPEM, err = os.ReadFile(cfg.CAFile); err != nil {
			return nil, time.Time{}, nil, fmt.Errorf("failed to read CA file: %w", err)
		}
	default:
		return nil, time.Time{}, nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, time.Time{}, nil, fmt.Errorf("failed to parse CA certificate")
	}
	return &cert, expiry, pool, nil
}
