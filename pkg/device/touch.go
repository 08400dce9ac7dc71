package device

import (
	"touchctl/pkg/powershell"
	"touchctl/pkg/registry"
)

// Touchscreen models the HID touch screen. Its TouchGate policy exists
// both machine-wide and per-user. matchNames, when given, replace the
// default enumeration filter.
func Touchscreen(run powershell.Runner, store Store, consent powershell.Consent, matchNames ...string) *Device {
	if len(matchNames) == 0 {
		matchNames = []string{"touch screen", "touchscreen"}
	}
	return New(Config{
		Name:       "touchscreen",
		MatchNames: matchNames,
		SystemKey: &Key{
			Path: `HKLM:\SOFTWARE\Microsoft\Wisp\Touch`,
			Name: "TouchGate",
			Kind: registry.KindDWord,
		},
		UserKey: &Key{
			Path: `HKCU:\SOFTWARE\Microsoft\Wisp\Touch`,
			Name: "TouchGate",
			Kind: registry.KindDWord,
		},
	}, run, store, consent)
}

// Touchpad models the precision touchpad. Windows keeps its switch
// per-user only, so the device has no system key.
func Touchpad(run powershell.Runner, store Store, consent powershell.Consent, matchNames ...string) *Device {
	if len(matchNames) == 0 {
		matchNames = []string{"touch pad", "touchpad"}
	}
	return New(Config{
		Name:       "touchpad",
		MatchNames: matchNames,
		UserKey: &Key{
			Path: `HKCU:\SOFTWARE\Microsoft\Windows\CurrentVersion\PrecisionTouchPad\Status`,
			Name: "Enabled",
			Kind: registry.KindDWord,
		},
	}, run, store, consent)
}
