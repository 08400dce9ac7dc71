package cli

import (
	"github.com/pterm/pterm"

	"touchctl/pkg/device"
	"touchctl/pkg/errors"
)

// deviceRow collects one status table row: instance status, both policy
// levels and the effective state.
func deviceRow(d *device.Device) ([]string, error) {
	instance, err := d.Field("Status", true, device.DefaultOptions())
	if err != nil {
		if !errors.IsErrorCode(err, errors.ErrDeviceNotFound) {
			return nil, err
		}
		return []string{d.Name(), "not found", "-", "-", "inactive"}, nil
	}

	sys, err := policyCell(d.SystemEnabled())
	if err != nil {
		return nil, err
	}
	usr, err := policyCell(d.UserEnabled())
	if err != nil {
		return nil, err
	}

	active, err := d.Active()
	if err != nil {
		return nil, err
	}
	return []string{d.Name(), instance, sys, usr, effectiveLabel(active)}, nil
}

// policyCell renders a tri-state policy read: on, off, absent, or n/a for
// a level the device does not have.
func policyCell(v *bool, err error) (string, error) {
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotApplicable) {
			return "n/a", nil
		}
		return "", err
	}
	switch {
	case v == nil:
		return "absent", nil
	case *v:
		return "on", nil
	}
	return "off", nil
}

func effectiveLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// statusPrinter re-queries a device after a change and reports the new
// effective state.
type statusPrinter struct{}

func (p *statusPrinter) Update(subject interface{}) {
	d, ok := subject.(*device.Device)
	if !ok {
		return
	}
	active, err := d.Active()
	if err != nil {
		pterm.Warning.Printfln("%s changed, but the new state could not be read: %v", d.Name(), err)
		return
	}
	pterm.Success.Printfln("%s is now %s", d.Name(), effectiveLabel(active))
}
