// pkg/config/config_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test layered configuration loading and overrides

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchctl/pkg/config"
	"touchctl/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	s, err := config.LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err, "a missing user file falls back to defaults")

	assert.Equal(t, "interactive", s.Prompt.Mode)
	assert.True(t, s.Elevation.Auto)
	assert.Equal(t, []string{"touch screen", "touchscreen"}, s.Match("touchscreen"))
	assert.Equal(t, []string{"touch pad", "touchpad"}, s.Match("touchpad"))
	assert.Empty(t, s.Match("trackball"))
}

func TestLoadUserFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchctl.toml")
	content := `
[prompt]
mode = "assume-yes"

[devices.touchscreen]
match = ["wacom"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := config.LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "assume-yes", s.Prompt.Mode)
	assert.Equal(t, []string{"wacom"}, s.Match("touchscreen"))
	// Untouched keys keep their defaults.
	assert.True(t, s.Elevation.Auto)
	assert.Equal(t, []string{"touch pad", "touchpad"}, s.Match("touchpad"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[prompt]\nmode = \"assume-yes\"\n"), 0644))

	t.Setenv("TOUCHCTL_PROMPT_MODE", "assume-no")
	t.Setenv("TOUCHCTL_ELEVATION_AUTO", "false")

	s, err := config.LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "assume-no", s.Prompt.Mode)
	assert.False(t, s.Elevation.Auto)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[prompt\nmode ="), 0644))

	_, err := config.LoadFrom(path)
	assert.Equal(t, errors.ErrConfigLoad, errors.GetErrorCode(err))
}

func TestDefaultsContentIsTheEmbeddedFile(t *testing.T) {
	content := config.DefaultsContent()
	assert.Contains(t, content, "[prompt]")
	assert.Contains(t, content, "[devices.touchscreen]")
}
