package config

import "fmt"

// Validate checks that the TLS mode has the material it needs and that
// each piece comes from exactly one source.
func (t TLSConfig) Validate() error {
	switch t.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	checks := []func() error{
		func() error { return requireOneSource("certificate", t.CertFile, t.CertContent, t.Mode) },
		func() error { return requireOneSource("key", t.KeyFile, t.KeyContent, t.Mode) },
	}
	if t.Mode == "mutual" {
		checks = append(checks,
			func() error { return requireOneSource("CA certificate", t.CAFile, t.CAContent, t.Mode) },
			t.validateClientAuthPolicy,
		)
	}
	checks = append(checks, t.validateMinVersion)

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func requireOneSource(what, file, content, mode string) error {
	switch {
	case file == "" && content == "":
		return fmt.Errorf("TLS %s is required for %s mode (provide a file or content)", what, mode)
	case file != "" && content != "":
		return fmt.Errorf("TLS %s has both a file and content; choose one", what)
	}
	return nil
}

func (t TLSConfig) validateClientAuthPolicy() error {
	switch t.ClientAuthPolicy {
	case "", "require", "request", "verify":
		return nil
	}
	return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
}

func (t TLSConfig) validateMinVersion() error {
	switch t.MinVersion {
	case "", "1.2", "1.3":
		return nil
	}
	return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
}
