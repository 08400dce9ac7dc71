// Package device models a touch input device that can be switched off at
// three independent levels: the device instance itself (pnputil), a
// machine-wide registry policy, and a per-user registry policy. The model
// computes the effective state from all three and publishes a change
// notification after every successful mutation.
package device

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"touchctl/pkg/classify"
	"touchctl/pkg/errors"
	"touchctl/pkg/logging"
	"touchctl/pkg/observe"
	"touchctl/pkg/powershell"
	"touchctl/pkg/registry"
)

// State is the target of a toggle.
type State string

// Mode selects which level a toggle acts on.
type Mode string

const (
	StateEnable  State = "enable"
	StateDisable State = "disable"
	// StateNone clears a registry policy so it no longer participates in
	// the effective state. It has no meaning at the device level.
	StateNone State = "none"

	ModeDevice Mode = "device"
	ModeSystem Mode = "system"
	ModeUser   Mode = "user"
)

// ParseState validates a user-supplied state string.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(s)) {
	case StateEnable:
		return StateEnable, nil
	case StateDisable:
		return StateDisable, nil
	case StateNone:
		return StateNone, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown state %q, want enable, disable or none", s)
}

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeDevice:
		return ModeDevice, nil
	case ModeSystem:
		return ModeSystem, nil
	case ModeUser:
		return ModeUser, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown mode %q, want device, system or user", s)
}

// Key locates one registry policy value.
type Key struct {
	Path string
	Name string
	Kind registry.Kind
}

// Store is the registry surface the model needs. *registry.Accessor
// satisfies it.
type Store interface {
	Test(path, name string, o registry.Options) (bool, error)
	Get(path, name string, o registry.Options) (interface{}, registry.Kind, error)
	Set(path string, v *registry.Value, skipIfSet bool, o registry.Options) error
	Delete(path, name string, o registry.Options) error
}

// Options controls elevation for one device call.
type Options struct {
	Elevate     bool
	AutoElevate bool
}

// DefaultOptions enables consent-gated auto elevation.
func DefaultOptions() Options {
	return Options{AutoElevate: true}
}

// Config describes one concrete device.
type Config struct {
	// Name labels the device in logs and the CLI.
	Name string
	// MatchNames filter the enumeration; a block matching any of them
	// (case-insensitive substring) belongs to this device.
	MatchNames []string
	// SystemKey and UserKey locate the machine-wide and per-user policy
	// values. A nil key means the level does not exist for this device.
	SystemKey *Key
	UserKey   *Key
}

// Device is the model for one touch input device.
type Device struct {
	cfg     Config
	run     powershell.Runner
	store   Store
	consent powershell.Consent
	pub     observe.Publisher
	logger  zerolog.Logger
}

// New creates a Device. The consent collaborator is asked before any
// elevated retry.
func New(cfg Config, run powershell.Runner, store Store, consent powershell.Consent) *Device {
	return &Device{
		cfg:     cfg,
		run:     run,
		store:   store,
		consent: consent,
		logger:  logging.GetLogger("device").With().Str("device", cfg.Name).Logger(),
	}
}

// Name returns the device's display name.
func (d *Device) Name() string { return d.cfg.Name }

// Attach registers an observer for post-mutation notifications.
func (d *Device) Attach(o observe.Observer) { d.pub.Attach(o) }

// Detach removes a previously attached observer.
func (d *Device) Detach(o observe.Observer) { d.pub.Detach(o) }

const enumCommand = "pnputil /enum-devices /class HIDClass"

// Status values pnputil reports for a device instance.
const (
	statusDisabled = "disabled"
	statusStarted  = "started"
	statusProblem  = "problem"
)

// Info enumerates HID devices and returns the fields of the single block
// matching this device. Zero or multiple matches fail with
// DEVICE_NOT_FOUND.
func (d *Device) Info(o Options) (Fields, error) {
	var fields Fields
	err := powershell.ElevateRetry(d.consent, o.Elevate, o.AutoElevate,
		errors.ErrDevicePermission, errors.ErrDeviceAborted,
		func(elevate bool) error {
			var err error
			fields, err = d.enumerate(d.cfg.MatchNames, elevate)
			return err
		})
	return fields, err
}

// InfoAll enumerates every HID device, unfiltered.
func (d *Device) InfoAll(o Options) ([]Fields, error) {
	var all []Fields
	err := powershell.ElevateRetry(d.consent, o.Elevate, o.AutoElevate,
		errors.ErrDevicePermission, errors.ErrDeviceAborted,
		func(elevate bool) error {
			res, err := d.run.Run(enumCommand, powershell.Options{Elevate: elevate, Propagate: true})
			if err != nil {
				return err
			}
			if cerr := classify.Device.Check(res.Combined(), res.Code); cerr != nil {
				return cerr
			}
			all = parseBlocks(res.Stdout, nil)
			return nil
		})
	return all, err
}

// Field returns one enumeration field of this device. With strict set, a
// missing field fails with FIELD_NOT_FOUND; otherwise it returns "".
func (d *Device) Field(name string, strict bool, o Options) (string, error) {
	info, err := d.Info(o)
	if err != nil {
		return "", err
	}
	v, ok := info.Lookup(name)
	if !ok && strict {
		return "", errors.Newf(errors.ErrFieldNotFound, "device has no %q field", name)
	}
	return v, nil
}

// Exists reports whether the device instance is present at all.
func (d *Device) Exists() (bool, error) {
	_, err := d.Info(DefaultOptions())
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrDeviceNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Enabled reports whether the device instance is enabled. Any status other
// than "Disabled" counts as enabled.
func (d *Device) Enabled() (bool, error) {
	status, err := d.Field("Status", true, DefaultOptions())
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(status, statusDisabled), nil
}

// Running reports whether the device driver is started.
func (d *Device) Running() (bool, error) {
	status, err := d.Field("Status", true, DefaultOptions())
	if err != nil {
		return false, err
	}
	return strings.EqualFold(status, statusStarted), nil
}

// Working reports whether the device is free of problems.
func (d *Device) Working() (bool, error) {
	status, err := d.Field("Status", true, DefaultOptions())
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(status, statusProblem), nil
}

// Problem returns the device's problem code and status, both "" when the
// enumeration does not report them.
func (d *Device) Problem() (code, status string, err error) {
	code, err = d.Field("Problem Code", false, DefaultOptions())
	if err != nil {
		return "", "", err
	}
	status, err = d.Field("Problem Status", false, DefaultOptions())
	if err != nil {
		return "", "", err
	}
	return code, status, nil
}

// SystemEnabled reads the machine-wide policy: true/false when the value
// is explicitly set, nil when the value is absent or has an unexpected
// type. Devices without a system key fail with NOT_APPLICABLE.
func (d *Device) SystemEnabled() (*bool, error) {
	if d.cfg.SystemKey == nil {
		return nil, errors.Newf(errors.ErrNotApplicable, "%s has no system-level setting", d.cfg.Name)
	}
	return d.policyValue(*d.cfg.SystemKey)
}

// UserEnabled reads the per-user policy, with the same tri-state semantics
// as SystemEnabled.
func (d *Device) UserEnabled() (*bool, error) {
	if d.cfg.UserKey == nil {
		return nil, errors.Newf(errors.ErrNotApplicable, "%s has no user-level setting", d.cfg.Name)
	}
	return d.policyValue(*d.cfg.UserKey)
}

func (d *Device) policyValue(k Key) (*bool, error) {
	data, kind, err := d.store.Get(k.Path, k.Name, registry.DefaultOptions())
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrRegNotFound) {
			return nil, nil
		}
		return nil, d.wrapRegErr(err)
	}

	want, err := registry.Normalize(k.Kind)
	if err != nil {
		return nil, err
	}
	if kind != want {
		// A value of the wrong type is treated as unset rather than
		// guessed at.
		d.logger.Warn().Str("path", k.Path).Str("name", k.Name).
			Stringer("kind", kind).Msg("Policy value has unexpected type, ignoring")
		return nil, nil
	}

	// Only 0 and 1 are explicit answers. Anything else is unrecognized
	// and defers to the other levels, same as an absent value.
	switch v := data.(type) {
	case int64:
		if v == 0 || v == 1 {
			b := v == 1
			return &b, nil
		}
	}
	return nil, nil
}

// Active computes the effective state across all three levels. A disabled
// device instance is always inactive. Otherwise the machine-wide policy
// dominates: when it allows the device (set true or absent), only an
// explicit per-user false deactivates it; when it forbids the device, only
// an explicit per-user true activates it. Levels a device does not have
// count as absent.
func (d *Device) Active() (bool, error) {
	enabled, err := d.Enabled()
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}

	sys, err := d.levelValue(d.SystemEnabled)
	if err != nil {
		return false, err
	}
	usr, err := d.levelValue(d.UserEnabled)
	if err != nil {
		return false, err
	}

	if sys == nil || *sys {
		return usr == nil || *usr, nil
	}
	return usr != nil && *usr, nil
}

// levelValue treats a level the device does not have as an absent value.
func (d *Device) levelValue(read func() (*bool, error)) (*bool, error) {
	v, err := read()
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotApplicable) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Enable switches the device on at the given level.
func (d *Device) Enable(mode Mode) error {
	return d.Toggle(StateEnable, mode, DefaultOptions())
}

// Disable switches the device off at the given level.
func (d *Device) Disable(mode Mode) error {
	return d.Toggle(StateDisable, mode, DefaultOptions())
}

// Clear removes the policy at the given registry level.
func (d *Device) Clear(mode Mode) error {
	return d.Toggle(StateNone, mode, DefaultOptions())
}

// Toggle applies state at the selected level. Arguments are validated
// before any external command is issued: unknown states or modes and the
// device/none combination fail with INVALID_OPERATION, a registry mode the
// device does not have fails with NOT_APPLICABLE. On success observers are
// notified exactly once, after the whole operation (including any elevated
// retry) has settled.
func (d *Device) Toggle(state State, mode Mode, o Options) error {
	if err := d.validate(state, mode); err != nil {
		return err
	}

	var err error
	if mode == ModeDevice {
		err = d.toggleInstance(state, o)
	} else {
		err = d.togglePolicy(state, mode, o)
	}
	if err != nil {
		return err
	}

	d.logger.Info().Str("state", string(state)).Str("mode", string(mode)).Msg("Device toggled")
	d.pub.Notify(d)
	return nil
}

func (d *Device) validate(state State, mode Mode) error {
	switch state {
	case StateEnable, StateDisable, StateNone:
	default:
		return errors.Newf(errors.ErrInvalidOperation, "unknown state %q", state)
	}

	switch mode {
	case ModeDevice:
		if state == StateNone {
			return errors.New(errors.ErrInvalidOperation, "a device instance cannot be set to none, only enabled or disabled")
		}
	case ModeSystem:
		if d.cfg.SystemKey == nil {
			return errors.Newf(errors.ErrNotApplicable, "%s has no system-level setting", d.cfg.Name)
		}
	case ModeUser:
		if d.cfg.UserKey == nil {
			return errors.Newf(errors.ErrNotApplicable, "%s has no user-level setting", d.cfg.Name)
		}
	default:
		return errors.Newf(errors.ErrInvalidOperation, "unknown mode %q", mode)
	}
	return nil
}

// toggleInstance drives pnputil. Both the lookup and the toggle run inside
// the same retry body so an elevated retry repeats the read too, keeping
// the instance id and the toggle at the same privilege level.
func (d *Device) toggleInstance(state State, o Options) error {
	return powershell.ElevateRetry(d.consent, o.Elevate, o.AutoElevate,
		errors.ErrDevicePermission, errors.ErrDeviceAborted,
		func(elevate bool) error {
			info, err := d.enumerate(d.cfg.MatchNames, elevate)
			if err != nil {
				return err
			}
			id, ok := info.Lookup("Instance ID")
			if !ok {
				return errors.New(errors.ErrFieldNotFound, "enumeration block has no Instance ID field")
			}

			cmd := fmt.Sprintf(`pnputil /%s-device "%s"`, state, id)
			res, err := d.run.Run(cmd, powershell.Options{Elevate: elevate, Propagate: true})
			if err != nil {
				return err
			}

			out := res.Combined()
			if cerr := classify.Device.Check(out, res.Code); cerr != nil {
				if errors.IsErrorCode(cerr, errors.ErrDeviceAlreadySet) {
					return nil // already in the requested state
				}
				return cerr
			}

			// pnputil exits 0 even for a bogus instance id, printing only
			// its banner. The word "success" in the output is the one
			// reliable confirmation.
			if strings.Contains(strings.ToLower(out), "success") {
				return nil
			}
			return errors.Newf(errors.ErrInternal,
				"failed to %s device, stdout: %q stderr: %q", state, res.Stdout, res.Stderr)
		})
}

// togglePolicy writes, or clears, the registry value for the level. The
// store runs its own permission retry; its generic registry failures are
// re-labelled as device-level ones here.
func (d *Device) togglePolicy(state State, mode Mode, o Options) error {
	k := d.cfg.UserKey
	if mode == ModeSystem {
		k = d.cfg.SystemKey
	}
	ro := registry.Options{Elevate: o.Elevate, AutoElevate: o.AutoElevate}

	var err error
	switch state {
	case StateEnable, StateDisable:
		data := 0
		if state == StateEnable {
			data = 1
		}
		err = d.store.Set(k.Path, &registry.Value{Name: k.Name, Data: data, Kind: k.Kind}, true, ro)
	case StateNone:
		var exists bool
		exists, err = d.store.Test(k.Path, k.Name, ro)
		if err == nil && exists {
			err = d.store.Delete(k.Path, k.Name, ro)
		}
	}
	return d.wrapRegErr(err)
}

// wrapRegErr translates store failure codes into this package's
// vocabulary so callers see a uniform surface.
func (d *Device) wrapRegErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.IsErrorCode(err, errors.ErrUserAborted):
		return errors.Wrap(err, errors.ErrDeviceAborted, "elevation cancelled by user")
	case errors.IsErrorCode(err, errors.ErrRegPermission):
		return errors.Wrap(err, errors.ErrDevicePermission, "registry access denied")
	}
	return err
}

// enumerate runs the enumeration at a fixed privilege level and narrows
// the output to the single block matching names.
func (d *Device) enumerate(names []string, elevate bool) (Fields, error) {
	res, err := d.run.Run(enumCommand, powershell.Options{Elevate: elevate, Propagate: true})
	if err != nil {
		return nil, err
	}
	if cerr := classify.Device.Check(res.Combined(), res.Code); cerr != nil {
		return nil, cerr
	}

	blocks := parseBlocks(res.Stdout, names)
	if len(blocks) != 1 {
		return nil, errors.Newf(errors.ErrDeviceNotFound,
			"found %d HID devices matching %v, need exactly one", len(blocks), names)
	}
	return blocks[0], nil
}
