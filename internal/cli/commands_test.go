// internal/cli/commands_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test command wiring and status rendering helpers

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchctl/pkg/errors"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "touchctl", root.Use)

	want := []string{"status", "enable", "disable", "clear", "devices", "doctor", "version", "genconfig"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing command %q", name)
	}

	for _, flag := range []string{"verbose", "yes", "no", "elevate"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
}

func TestToggleCommandsDefaultModes(t *testing.T) {
	root := NewRootCmd()
	defaults := map[string]string{"enable": "device", "disable": "device", "clear": "user"}

	for _, c := range root.Commands() {
		want, ok := defaults[c.Name()]
		if !ok {
			continue
		}
		f := c.Flags().Lookup("mode")
		require.NotNil(t, f, "%s has no mode flag", c.Name())
		assert.Equal(t, want, f.DefValue)
	}
}

func TestConflictingConsentFlags(t *testing.T) {
	_, err := buildEnv(&rootFlags{assumeYes: true, assumeNo: true})
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))
}

func TestPolicyCell(t *testing.T) {
	on, off := true, false

	cell, err := policyCell(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "absent", cell)

	cell, err = policyCell(&on, nil)
	require.NoError(t, err)
	assert.Equal(t, "on", cell)

	cell, err = policyCell(&off, nil)
	require.NoError(t, err)
	assert.Equal(t, "off", cell)

	cell, err = policyCell(nil, errors.New(errors.ErrNotApplicable, "no such level"))
	require.NoError(t, err)
	assert.Equal(t, "n/a", cell)

	_, err = policyCell(nil, errors.New(errors.ErrInternal, "boom"))
	assert.Error(t, err)
}

func TestEffectiveLabel(t *testing.T) {
	assert.Equal(t, "active", effectiveLabel(true))
	assert.Equal(t, "inactive", effectiveLabel(false))
}
