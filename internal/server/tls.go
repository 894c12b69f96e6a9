package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"resumerag/internal/errors"
)

// configureTLS loads certificates and sets httpServer.TLSConfig for the
// server and mutual modes. Disabled mode leaves the server on plain HTTP.
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode), nil)
	}

	certs, err := NewCertReloader(s.TLSConfig, s.metrics, s.Logger)
	if err != nil {
		return err
	}
	s.Certificates = certs

	if err := certs.StartWatching(); err != nil {
		return fmt.Errorf("failed to start certificate file watcher: %w", err)
	}
	if err := s.startVaultPoller(); err != nil {
		return err
	}

	httpServer.TLSConfig = s.buildTLSConfig()
	return nil
}

// startVaultPoller keeps the serving certificate in sync with Vault when a
// poll interval and TLS secret path are configured.
func (s *Server) startVaultPoller() error {
	vaultCfg := s.AppConfig.Vault
	if s.vault == nil || vaultCfg.TLSPollInterval <= 0 || vaultCfg.Secrets.TLSCerts == "" {
		return nil
	}

	s.vaultPoller = NewVaultPoller(s.vault, vaultCfg.Secrets.TLSCerts, vaultCfg.TLSPollInterval,
		func(data CertificateData) error {
			return s.Certificates.ApplyContent(data.CertContent, data.KeyContent, data.CAContent)
		}, s.Logger)
	return s.vaultPoller.Start()
}

// buildTLSConfig creates the TLS configuration. Certificates and client CAs
// are resolved per handshake so reloads take effect without a restart.
func (s *Server) buildTLSConfig() *tls.Config {
	base := &tls.Config{
		MinVersion:     minTLSVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.Certificates.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}
	if s.TLSConfig.Mode != "mutual" {
		return base
	}

	base.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	base.ClientCAs = s.Certificates.ClientCAs()
	base.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		cfg.ClientCAs = s.Certificates.ClientCAs()
		return cfg, nil
	}
	return base
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
