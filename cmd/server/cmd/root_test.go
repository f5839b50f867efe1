package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRootCommand creates a fresh root command for testing. The default
// action is a no-op so tests never start a server.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   rootCmd.Use,
		Short: rootCmd.Short,
		Long:  rootCmd.Long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	var configPath, logLevel, logFormat string
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	// Subcommands are package-level; detach them from any previous parent.
	for _, sub := range []*cobra.Command{serveCmd, migrateCmd, adminCmd, reindexCmd, versionCmd, healthcheckCmd} {
		if sub.HasParent() {
			sub.Parent().RemoveCommand(sub)
		}
		root.AddCommand(sub)
	}
	return root
}

func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{name: "help flag", args: []string{"--help"}, expectedOutput: "Vitrin server"},
		{name: "short help flag", args: []string{"-h"}, expectedOutput: "multilingual"},
		{name: "invalid flag", args: []string{"--invalid-flag"}, expectedOutput: "unknown flag: --invalid-flag", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, newRootCommand(), tt.args...)
			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "persistent flag %q", flag)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := newRootCommand()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "admin", "reindex", "version", "healthcheck"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("JWT_SECRET", "test-secret-at-least-32-characters-long")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("JWT_SECRET", "test-secret-at-least-32-characters-long")

	logLevel, logFormat = "debug", "console"
	t.Cleanup(func() { logLevel, logFormat = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigFile(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "SERVER_PORT", "LOCALES"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
DATABASE_URL: postgres://from-file
JWT_SECRET: file-secret-at-least-32-characters-long
SERVER_PORT: 9191
LOCALES: [en, ar]
`), 0o600))

	configPath = path
	t.Cleanup(func() { configPath = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-file", cfg.Database.URL)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, []string{"en", "ar"}, cfg.Locales.Supported)
}

func TestLoadConfigMissingRequiredVars(t *testing.T) {
	tests := []struct {
		name        string
		databaseURL string
		jwtSecret   string
		expectError bool
	}{
		{name: "missing DATABASE_URL", jwtSecret: "test-secret-at-least-32-characters-long", expectError: true},
		{name: "missing JWT_SECRET", databaseURL: "postgres://test", expectError: true},
		{name: "valid config", databaseURL: "postgres://test", jwtSecret: "test-secret-at-least-32-characters-long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tt.databaseURL)
			t.Setenv("JWT_SECRET", tt.jwtSecret)

			_, err := loadConfig()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
