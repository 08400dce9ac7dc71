// pkg/prompt/prompt_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test elevation consent modes

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchctl/pkg/errors"
)

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"interactive", "assume-yes", "assume-no"} {
		m, err := ParseMode(valid)
		require.NoError(t, err)
		assert.Equal(t, Mode(valid), m)
	}

	_, err := ParseMode("yes")
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))

	_, err = ParseMode("")
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))
}

func TestAssumeModesNeverAsk(t *testing.T) {
	asked := false
	yes := New(ModeAssumeYes)
	yes.confirm = func(string) bool { asked = true; return false }
	assert.True(t, yes.ConfirmElevate())

	no := New(ModeAssumeNo)
	no.confirm = func(string) bool { asked = true; return true }
	assert.False(t, no.ConfirmElevate())

	assert.False(t, asked, "assume modes must not prompt")
}

func TestInteractiveUsesConfirm(t *testing.T) {
	// Tests run without a terminal on stdin, so the non-interactive
	// fallback is what is observable here: the request is declined
	// before the prompt backend is reached.
	a := New(ModeInteractive)
	prompted := false
	a.confirm = func(string) bool { prompted = true; return true }

	assert.False(t, a.ConfirmElevate())
	assert.False(t, prompted)
}
