// pkg/device/enum_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test pnputil enumeration output parsing

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnum = "Microsoft PnP Utility\r\n" +
	"\r\n" +
	"Instance ID:                HID\\WACF2200&COL05\\4&10c64f9&0&0004\r\n" +
	"Device Description:         HID-compliant touch screen\r\n" +
	"Class Name:                 HIDClass\r\n" +
	"Status:                     Started\r\n" +
	"\r\n" +
	"Instance ID:                HID\\VID_046D&PID_C52B\\6&2c53453&0&0000\r\n" +
	"Device Description:         HID Keyboard Device\r\n" +
	"Class Name:                 HIDClass\r\n" +
	"Status:                     Started\r\n"

func TestParseBlocksDropsBanner(t *testing.T) {
	blocks := parseBlocks(sampleEnum, nil)

	require.Len(t, blocks, 2, "banner block has no fields and must be dropped")
	for _, b := range blocks {
		assert.Contains(t, b, "Instance ID")
	}
}

func TestParseBlocksTrimsFieldsAndValues(t *testing.T) {
	blocks := parseBlocks(sampleEnum, nil)
	require.NotEmpty(t, blocks)

	assert.Equal(t, `HID\WACF2200&COL05\4&10c64f9&0&0004`, blocks[0]["Instance ID"])
	assert.Equal(t, "Started", blocks[0]["Status"])
}

func TestParseBlocksFiltersByName(t *testing.T) {
	blocks := parseBlocks(sampleEnum, []string{"touch screen"})
	require.Len(t, blocks, 1)
	assert.Equal(t, "HID-compliant touch screen", blocks[0]["Device Description"])

	// Case-insensitive, any of the names.
	blocks = parseBlocks(sampleEnum, []string{"nothing", "TOUCH SCREEN"})
	assert.Len(t, blocks, 1)

	assert.Empty(t, parseBlocks(sampleEnum, []string{"trackball"}))
}

func TestParseBlocksSplitsAtFirstColon(t *testing.T) {
	out := "Driver Date: 2023/06/08 12:30\n"
	blocks := parseBlocks(out, nil)

	require.Len(t, blocks, 1)
	assert.Equal(t, "2023/06/08 12:30", blocks[0]["Driver Date"])
}

func TestParseBlocksHandlesPlainLF(t *testing.T) {
	out := "Instance ID: a\nStatus: Started\n\nInstance ID: b\nStatus: Disabled\n"
	blocks := parseBlocks(out, nil)

	require.Len(t, blocks, 2)
	assert.Equal(t, "Disabled", blocks[1]["Status"])
}

func TestParseBlocksEmptyOutput(t *testing.T) {
	assert.Empty(t, parseBlocks("", nil))
	assert.Empty(t, parseBlocks("Microsoft PnP Utility\r\n", nil))
}

func TestFieldsLookupIsCaseInsensitive(t *testing.T) {
	f := Fields{"Instance ID": "x"}

	v, ok := f.Lookup("instance id")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = f.Lookup("Problem Code")
	assert.False(t, ok)
}
