package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/config"
)

func TestApplyServeFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("tls-mode", "", "")
	cmd.Flags().String("cert-file", "", "")
	cmd.Flags().String("key-file", "", "")
	cmd.Flags().String("ca-file", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--tls-mode", "server"}))

	sc := config.ServerConfig{Host: "127.0.0.1", Port: "8080"}
	sc.TLS.CertFile = "/etc/cert.pem"

	require.NoError(t, applyServeFlags(cmd, &sc))
	assert.Equal(t, "9090", sc.Port)
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, "server", sc.TLS.Mode)
	assert.Equal(t, "/etc/cert.pem", sc.TLS.CertFile)
}

func TestRootRegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "analyze", "questions", "feedback", "ideal", "ask", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestCapabilityFlags(t *testing.T) {
	for _, cmd := range []*cobra.Command{analyzeCmd, questionsCmd, feedbackCmd, idealCmd, askCmd} {
		for _, flag := range []string{"resume", "resume-text", "jd", "jd-text", "output", "format"} {
			assert.NotNil(t, cmd.Flags().Lookup(flag), "%s lacks --%s", cmd.Name(), flag)
		}
		assert.NotNil(t, cmd.PreRunE, cmd.Name())
	}

	assert.NotNil(t, feedbackCmd.Flags().Lookup("answer"))
	assert.NotNil(t, questionsCmd.Flags().Lookup("num-questions"))
	assert.Nil(t, analyzeCmd.Flags().Lookup("question"))
}
