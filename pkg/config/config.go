// Package config loads layered settings: embedded defaults, then an
// optional touchctl.toml in the user's config directory, then TOUCHCTL_*
// environment variables. Later layers win.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"touchctl/pkg/errors"
)

// PromptSettings controls the elevation consent prompt.
type PromptSettings struct {
	Mode string `koanf:"mode"`
}

// ElevationSettings controls automatic elevated retries.
type ElevationSettings struct {
	Auto bool `koanf:"auto"`
}

// DeviceSettings tunes how one device is found during enumeration.
type DeviceSettings struct {
	Match []string `koanf:"match"`
}

// Settings is the typed view of the merged configuration.
type Settings struct {
	Prompt    PromptSettings            `koanf:"prompt"`
	Elevation ElevationSettings         `koanf:"elevation"`
	Devices   map[string]DeviceSettings `koanf:"devices"`
}

// Match returns the enumeration filter for a device, empty when the
// configuration has none.
func (s *Settings) Match(device string) []string {
	return s.Devices[device].Match
}

const envPrefix = "TOUCHCTL_"

// DefaultPath returns the user configuration file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "touchctl", "touchctl.toml")
}

// Load reads the configuration from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the configuration with the user file at path. A missing
// file is fine; a present but broken one is not.
func LoadFrom(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load built-in defaults")
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path)
		}
	} else if !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to stat config file %s", path)
	}

	// TOUCHCTL_PROMPT_MODE=assume-no maps to prompt.mode. List-valued
	// keys have no environment form.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	var settings Settings
	if err := k.Unmarshal("", &settings); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to decode configuration")
	}
	return &settings, nil
}
