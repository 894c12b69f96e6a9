package server

import (
	"fmt"
	"sync"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// SecretReader reads a KVv2 secret with its version.
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// CertificateData holds PEM material read from Vault.
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultPoller polls a Vault secret and hands new TLS material to apply
// whenever the secret's version increases.
type VaultPoller struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	apply        func(CertificateData) error
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
}

// NewVaultPoller creates a poller; call Start to begin polling.
func NewVaultPoller(client SecretReader, secretPath string, pollInterval time.Duration, apply func(CertificateData) error, logger *errors.Logger) *VaultPoller {
	return &VaultPoller{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		apply:        apply,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling Vault for secret changes
func (vp *VaultPoller) Start() error {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	if vp.running {
		return fmt.Errorf("vault poller is already running")
	}
	if vp.pollInterval <= 0 {
		return fmt.Errorf("vault poll interval must be positive")
	}
	vp.running = true
	go vp.pollLoop()
	if vp.logger != nil {
		vp.logger.Info("Vault TLS poller started", "secret_path", vp.secretPath, "poll_interval", vp.pollInterval)
	}
	return nil
}

// Stop stops polling.
func (vp *VaultPoller) Stop() {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	if !vp.running {
		return
	}
	close(vp.stopChan)
	vp.running = false
}

func (vp *VaultPoller) pollLoop() {
	ticker := time.NewTicker(vp.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := vp.poll(); err != nil && vp.logger != nil {
				vp.logger.LogError(err, "Failed to refresh TLS material from Vault")
			}
		case <-vp.stopChan:
			return
		}
	}
}

// poll reads the secret once and applies it when its version moved
// forward. It reports whether new material was applied.
func (vp *VaultPoller) poll() (bool, error) {
	secret, err := vp.client.GetSecretV2(vp.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return false, fmt.Errorf("secret %s not found", vp.secretPath)
	}

	vp.mu.Lock()
	if secret.Version <= vp.lastVersion {
		vp.mu.Unlock()
		return false, nil
	}
	vp.mu.Unlock()

	data := certificateData(secret)
	if err := vp.apply(data); err != nil {
		return false, err
	}

	vp.mu.Lock()
	vp.lastVersion = secret.Version
	vp.mu.Unlock()

	if vp.logger != nil {
		vp.logger.Info("Applied TLS material from Vault", "secret_path", vp.secretPath, "version", secret.Version)
	}
	return true, nil
}

func certificateData(secret *config.VaultSecret) CertificateData {
	var data CertificateData
	if v, ok := secret.Data["cert"].(string); ok {
		data.CertContent = v
	}
	if v, ok := secret.Data["key"].(string); ok {
		data.KeyContent = v
	}
	if v, ok := secret.Data["ca"].(string); ok {
		data.CAContent = v
	}
	return data
}

// Status returns the current status of the poller for /stats.
func (vp *VaultPoller) Status() map[string]any {
	vp.mu.RLock()
	defer vp.mu.RUnlock()
	return map[string]any{
		"running":       vp.running,
		"poll_interval": vp.pollInterval.String(),
		"secret_path":   vp.secretPath,
		"last_version":  vp.lastVersion,
	}
}
