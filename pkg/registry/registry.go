// Package registry reads and writes Windows registry keys and values by
// driving PowerShell's registry provider cmdlets.
//
// Reads round-trip through an intermediate JSON file rather than stdout:
// scraping values off the console loses type fidelity and trips over
// quoting and encoding, while a `{"data": ..., "type": ...}` exchange file
// written by ConvertTo-Json preserves both the payload and its kind.
package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"touchctl/pkg/classify"
	"touchctl/pkg/errors"
	"touchctl/pkg/logging"
	"touchctl/pkg/powershell"
)

// Value is a named registry payload with its type tag.
type Value struct {
	Name string
	Data interface{}
	Kind Kind
}

// Options controls elevation for one accessor call.
type Options struct {
	Elevate     bool
	AutoElevate bool
}

// DefaultOptions enables consent-gated auto elevation.
func DefaultOptions() Options {
	return Options{AutoElevate: true}
}

// Accessor performs registry operations through a command Runner.
type Accessor struct {
	run     powershell.Runner
	consent powershell.Consent
	logger  zerolog.Logger
}

// New creates an Accessor. The consent collaborator is asked before any
// elevated retry.
func New(run powershell.Runner, consent powershell.Consent) *Accessor {
	return &Accessor{
		run:     run,
		consent: consent,
		logger:  logging.GetLogger("registry"),
	}
}

// Test reports whether a key path exists, or, when name is non-empty,
// whether the named value exists under it.
func (a *Accessor) Test(path, name string, o Options) (bool, error) {
	if name == "" {
		var exists bool
		err := powershell.ElevateRetry(a.consent, o.Elevate, o.AutoElevate,
			errors.ErrRegPermission, errors.ErrUserAborted,
			func(elevate bool) error {
				var err error
				exists, err = a.testPath(path, elevate)
				return err
			})
		return exists, err
	}

	_, _, err := a.Get(path, name, o)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrRegNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get fetches a value and its kind. A missing path or value fails with
// REG_NOT_FOUND. A permission failure triggers at most one consent-gated
// elevated retry.
func (a *Accessor) Get(path, name string, o Options) (interface{}, Kind, error) {
	var data interface{}
	var kind Kind

	err := powershell.ElevateRetry(a.consent, o.Elevate, o.AutoElevate,
		errors.ErrRegPermission, errors.ErrUserAborted,
		func(elevate bool) error {
			var err error
			data, kind, err = a.get(path, name, elevate)
			return err
		})
	return data, kind, err
}

// Set creates a bare key (v == nil) or creates-or-overwrites a named value
// (v fully populated). A partially populated value fails with
// INVALID_INPUT. With skipIfSet, a value that already matches is left
// untouched. Intermediate key levels are created as needed.
func (a *Accessor) Set(path string, v *Value, skipIfSet bool, o Options) error {
	return powershell.ElevateRetry(a.consent, o.Elevate, o.AutoElevate,
		errors.ErrRegPermission, errors.ErrUserAborted,
		func(elevate bool) error {
			return a.set(path, v, skipIfSet, elevate)
		})
}

// Delete removes a named value, or the entire key subtree when name is
// empty. Deleting something that does not exist is a successful no-op.
func (a *Accessor) Delete(path, name string, o Options) error {
	return powershell.ElevateRetry(a.consent, o.Elevate, o.AutoElevate,
		errors.ErrRegPermission, errors.ErrUserAborted,
		func(elevate bool) error {
			return a.delete(path, name, elevate)
		})
}

func (a *Accessor) testPath(path string, elevate bool) (bool, error) {
	cmd := fmt.Sprintf("Test-Path -LiteralPath '%s'", powershell.SafePath(path))
	res, err := a.run.Run(cmd, powershell.Options{Elevate: elevate, Propagate: true})
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(res.Stdout)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if cerr := classify.Registry.Check(res.Combined(), res.Code); cerr != nil {
		return false, cerr
	}
	return false, errors.Newf(errors.ErrInternal,
		"Test-Path failed, stdout: %q stderr: %q", res.Stdout, res.Stderr)
}

// exchange is the fixed schema of the JSON exchange file. GetValueKind's
// enum may serialize as a number or a name depending on the PowerShell
// version, so the type field stays loosely typed and goes through
// Normalize.
type exchange struct {
	Data interface{} `json:"data"`
	Type interface{} `json:"type"`
}

func (a *Accessor) get(path, name string, elevate bool) (interface{}, Kind, error) {
	jsonFile := filepath.Join(os.TempDir(), "touchctl-"+uuid.NewString()+".json")
	if err := os.WriteFile(jsonFile, nil, 0600); err != nil {
		return nil, KindUnknown, errors.Wrap(err, errors.ErrInternal, "failed to create exchange file")
	}
	defer func() {
		if err := os.Remove(jsonFile); err != nil && !os.IsNotExist(err) {
			a.logger.Warn().Err(err).Str("file", jsonFile).Msg("Failed to clean up exchange file")
		}
	}()

	// GetValue has a null fallback; GetValueKind does not and throws on a
	// missing value, so the null check runs first. The final New-Item
	// rewrite strips the BOM the redirection adds.
	cmd := fmt.Sprintf(
		"$key = Get-Item -LiteralPath '%s'; "+
			"$data = $key.GetValue('%s', $null); "+
			"if ($data -eq $null) { throw [System.Management.Automation.ItemNotFoundException] }; "+
			"$type = $key.GetValueKind('%s'); "+
			"$table = @{data = $data; type = $type}; "+
			"$json = $table | ConvertTo-Json -Compress; "+
			"$jsonFile = '%s'; "+
			"$json >$jsonFile; "+
			"New-Item -Path $jsonFile -Force -Value (Get-Content -Raw -LiteralPath $jsonFile) | Out-Null",
		powershell.SafePath(path),
		powershell.SafePath(name),
		powershell.SafePath(name),
		powershell.SafePath(jsonFile),
	)

	res, err := a.run.Run(cmd, powershell.Options{Elevate: elevate, Propagate: true})
	if err != nil {
		return nil, KindUnknown, err
	}

	if out := res.Combined(); out != "" {
		// The command is silent on success; output means failure.
		if cerr := classify.Registry.Check(out, res.Code); cerr != nil {
			return nil, KindUnknown, cerr
		}
		return nil, KindUnknown, errors.Newf(errors.ErrInternal,
			"unexpected output, stdout: %q stderr: %q", res.Stdout, res.Stderr)
	}

	raw, err := os.ReadFile(jsonFile)
	if err != nil {
		return nil, KindUnknown, errors.Wrap(err, errors.ErrInternal, "failed to read exchange file")
	}
	payload := strings.TrimSpace(string(raw))
	if payload == "" {
		return nil, KindUnknown, errors.New(errors.ErrInternal, "empty exchange file")
	}

	var ex exchange
	if err := json.Unmarshal([]byte(payload), &ex); err != nil {
		return nil, KindUnknown, errors.Wrap(err, errors.ErrInternal, "failed to decode exchange file")
	}

	kind, err := Normalize(ex.Type)
	if err != nil {
		return nil, KindUnknown, err
	}
	return normalizeData(ex.Data), kind, nil
}

func (a *Accessor) set(path string, v *Value, skipIfSet bool, elevate bool) error {
	if v != nil && (v.Name == "" || v.Data == nil) {
		return errors.New(errors.ErrInvalidInput, "bad parameter set: a value needs name, data and type")
	}

	var wantKind Kind
	if v != nil {
		var err error
		wantKind, err = Normalize(v.Kind)
		if err != nil {
			return err
		}
		if wantKind == KindUnknown {
			// The sentinel is read-only; Set-ItemProperty has no
			// 'UNKNOWN' type to write.
			return errors.New(errors.ErrInvalidInput, "bad parameter set: a value needs a concrete registry type")
		}
	}

	if skipIfSet && v != nil {
		data, kind, err := a.get(path, v.Name, elevate)
		switch {
		case err == nil:
			if kind == wantKind && valuesEqual(data, v.Data) {
				return nil // already set, nothing to do
			}
		case errors.IsErrorCode(err, errors.ErrRegNotFound):
			// fall through to the write
		default:
			return err
		}
	}

	exists, err := a.testPath(path, elevate)
	if err != nil {
		return err
	}

	var cmd string
	if exists {
		if v == nil {
			return nil // the key is all that was asked for
		}
		typeName, err := KindName(wantKind)
		if err != nil {
			return err
		}
		cmd = fmt.Sprintf(
			"Set-ItemProperty -LiteralPath '%s' -Name '%s' -Value '%v' -Type '%s' -Force | Out-Null",
			powershell.SafePath(path), powershell.SafePath(v.Name), v.Data, typeName)
	} else {
		// New-Item -Force creates missing intermediate keys, but it also
		// overwrites an existing key wholesale. Re-check the path right
		// before creating so a key that appeared in between is never
		// clobbered.
		appeared, err := a.testPath(path, elevate)
		if err != nil {
			return err
		}
		if appeared {
			return errors.New(errors.ErrInternal, "key appeared during set; refusing to overwrite it")
		}

		if v == nil {
			cmd = fmt.Sprintf("New-Item -Path '%s' -Force | Out-Null", powershell.SafePath(path))
		} else {
			typeName, err := KindName(wantKind)
			if err != nil {
				return err
			}
			cmd = fmt.Sprintf(
				"New-Item -Path '%s' -Force | New-ItemProperty -Name '%s' -Value '%v' -PropertyType '%s' -Force | Out-Null",
				powershell.SafePath(path), powershell.SafePath(v.Name), v.Data, typeName)
		}
	}

	res, err := a.run.Run(cmd, powershell.Options{Elevate: elevate, Propagate: true})
	if err != nil {
		return err
	}
	return a.expectSilent(res)
}

func (a *Accessor) delete(path, name string, elevate bool) error {
	exists, err := a.exists(path, name, elevate)
	if err != nil {
		return err
	}
	if !exists {
		return nil // already gone
	}

	var cmd string
	if name == "" {
		cmd = fmt.Sprintf("Remove-Item -LiteralPath '%s' -Recurse -Force | Out-Null",
			powershell.SafePath(path))
	} else {
		cmd = fmt.Sprintf("Remove-ItemProperty -LiteralPath '%s' -Name '%s' -Force | Out-Null",
			powershell.SafePath(path), powershell.SafePath(name))
	}

	res, err := a.run.Run(cmd, powershell.Options{Elevate: elevate, Propagate: true})
	if err != nil {
		return err
	}
	return a.expectSilent(res)
}

// exists checks path (or path+value) existence at a fixed elevation level,
// for use inside an ElevateRetry body.
func (a *Accessor) exists(path, name string, elevate bool) (bool, error) {
	if name == "" {
		return a.testPath(path, elevate)
	}
	_, _, err := a.get(path, name, elevate)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrRegNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// expectSilent treats any output from a should-be-silent mutation as an
// error: classified if a pattern matches, fatal otherwise.
func (a *Accessor) expectSilent(res powershell.Result) error {
	out := res.Combined()
	if out == "" {
		return nil
	}
	if cerr := classify.Registry.Check(out, res.Code); cerr != nil {
		return cerr
	}
	return errors.Newf(errors.ErrInternal,
		"unexpected output, stdout: %q stderr: %q", res.Stdout, res.Stderr)
}

// normalizeData undoes JSON's number widening: integral floats come back
// as int64 so DWORD payloads compare naturally.
func normalizeData(v interface{}) interface{} {
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return int64(f)
	}
	return v
}

// valuesEqual compares a stored payload with a requested one across the
// numeric type boundary introduced by the JSON round-trip.
func valuesEqual(a, b interface{}) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
