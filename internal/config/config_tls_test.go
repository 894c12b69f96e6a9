package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTLSConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		tls      TLSConfig
		errorMsg string
	}{
		{name: "empty mode", tls: TLSConfig{}},
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}},
		{
			name: "server with files",
			tls:  TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"},
		},
		{
			name: "server with content",
			tls:  TLSConfig{Mode: "server", CertContent: "C", KeyContent: "K", MinVersion: "1.3"},
		},
		{
			name:     "server missing key",
			tls:      TLSConfig{Mode: "server", CertFile: "c.pem"},
			errorMsg: "TLS key is required for server mode",
		},
		{
			name:     "server cert from two sources",
			tls:      TLSConfig{Mode: "server", CertFile: "c.pem", CertContent: "C", KeyFile: "k.pem"},
			errorMsg: "TLS certificate has both a file and content",
		},
		{
			name: "mutual valid",
			tls:  TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "verify"},
		},
		{
			name:     "mutual missing CA",
			tls:      TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"},
			errorMsg: "TLS CA certificate is required for mutual mode",
		},
		{
			name:     "mutual bad policy",
			tls:      TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAContent: "CA", ClientAuthPolicy: "maybe"},
			errorMsg: "invalid clientAuthPolicy: maybe",
		},
		{
			name:     "bad min version",
			tls:      TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1"},
			errorMsg: "invalid TLS minVersion: 1.1",
		},
		{
			name:     "unknown mode",
			tls:      TLSConfig{Mode: "optional"},
			errorMsg: "invalid TLS mode: optional",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tls.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}
