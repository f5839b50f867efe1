package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setVersion(t *testing.T) {
	t.Helper()
	origVersion, origGitCommit, origBuildDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origGitCommit, origBuildDate
		versionJSON = false
	})
	Version = "1.0.0"
	GitCommit = "abc123"
	BuildDate = "2026-01-27T12:00:00Z"
}

func TestVersionCommand(t *testing.T) {
	setVersion(t)

	output, err := execute(t, newRootCommand(), "version")
	require.NoError(t, err)

	for _, expected := range []string{
		"Vitrin Server",
		"Version:    1.0.0",
		"Git commit: abc123",
		"Build date: 2026-01-27T12:00:00Z",
		"Go version:",
		"Platform:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	setVersion(t)

	output, err := execute(t, newRootCommand(), "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &info))
	assert.Equal(t, "1.0.0", info["version"])
	assert.Equal(t, "abc123", info["git_commit"])
	assert.NotEmpty(t, info["go_version"])
}
