package registry

import (
	"strings"

	"touchctl/pkg/errors"
)

// Kind is the canonical registry value type, numbered after .NET's
// Microsoft.Win32.RegistryValueKind enum. Three naming schemes are in
// concurrent use across the tooling this package scrapes: the Winnt.h
// REG_* names, the RegistryValueKind names, and the capitalized friendly
// form the cmdlets accept. All of them normalize to this one integer.
type Kind int

const (
	KindNone         Kind = -1
	KindUnknown      Kind = 0
	KindString       Kind = 1
	KindExpandString Kind = 2
	KindBinary       Kind = 3
	KindDWord        Kind = 4
	KindMultiString  Kind = 7
	KindQWord        Kind = 11
)

// winapiTypes maps Winnt.h REG_* names to their numeric codes.
// https://learn.microsoft.com/en-us/windows/win32/sysinfo/registry-value-types
var winapiTypes = map[string]int{
	"REG_NONE":                       0,
	"REG_SZ":                         1,
	"REG_EXPAND_SZ":                  2,
	"REG_BINARY":                     3,
	"REG_DWORD":                      4,
	"REG_DWORD_LITTLE_ENDIAN":        4, // alias
	"REG_DWORD_BIG_ENDIAN":           5,
	"REG_LINK":                       6,
	"REG_MULTI_SZ":                   7,
	"REG_RESOURCE_LIST":              8,
	"REG_FULL_RESOURCE_DESCRIPTOR":   9,
	"REG_RESOURCE_REQUIREMENTS_LIST": 10,
	"REG_QWORD":                      11,
	"REG_QWORD_LITTLE_ENDIAN":        11, // alias
}

// valueKinds maps RegistryValueKind enum names (GetValueKind output) to
// their codes.
var valueKinds = map[string]int{
	"NONE":         -1,
	"UNKNOWN":      0,
	"STRING":       1,
	"EXPANDSTRING": 2,
	"BINARY":       3,
	"DWORD":        4,
	"MULTISTRING":  7,
	"QWORD":        11,
}

var kindNames = map[Kind]string{
	KindNone:         "NONE",
	KindUnknown:      "UNKNOWN",
	KindString:       "STRING",
	KindExpandString: "EXPANDSTRING",
	KindBinary:       "BINARY",
	KindDWord:        "DWORD",
	KindMultiString:  "MULTISTRING",
	KindQWord:        "QWORD",
}

var friendlyNames = map[Kind]string{
	KindNone:         "None",
	KindUnknown:      "Unknown",
	KindString:       "String",
	KindExpandString: "ExpandString",
	KindBinary:       "Binary",
	KindDWord:        "DWord",
	KindMultiString:  "MultiString",
	KindQWord:        "QWord",
}

var supportedKinds = map[Kind]bool{
	KindNone: true, KindUnknown: true, KindString: true, KindExpandString: true,
	KindBinary: true, KindDWord: true, KindMultiString: true, KindQWord: true,
}

// Normalize resolves a registry type in any of its representations — a
// numeric code, a REG_* name (with or without the prefix), a kind name, or
// the friendly capitalized form — to the canonical Kind. Codes outside the
// supported set normalize to KindUnknown rather than failing; unrecognized
// strings and unsupported input types fail with INVALID_INPUT. Normalize
// is idempotent: feeding a Kind back in returns it unchanged.
func Normalize(t interface{}) (Kind, error) {
	var code int

	switch v := t.(type) {
	case Kind:
		code = int(v)
	case int:
		code = v
	case int64:
		code = int(v)
	case float64:
		// JSON numbers decode as float64
		code = int(v)
	case string:
		name := strings.ToUpper(strings.TrimSpace(v))
		switch {
		case strings.HasPrefix(name, "REG_"):
			i, ok := winapiTypes[name]
			if !ok {
				return KindUnknown, errors.Newf(errors.ErrInvalidInput, "unknown registry type %q", v)
			}
			code = i
		default:
			if i, ok := winapiTypes["REG_"+name]; ok {
				code = i
			} else if i, ok := valueKinds[name]; ok {
				code = i
			} else {
				return KindUnknown, errors.Newf(errors.ErrInvalidInput, "unknown registry type %q", v)
			}
		}
	default:
		return KindUnknown, errors.Newf(errors.ErrInvalidInput, "unsupported registry type representation %T", t)
	}

	k := Kind(code)
	if !supportedKinds[k] {
		return KindUnknown, nil
	}
	return k, nil
}

// KindName returns the canonical (all-caps) name for a registry type in
// any representation. It fails with KIND_NAME_NOT_FOUND when the
// normalized code has no name.
func KindName(t interface{}) (string, error) {
	k, err := Normalize(t)
	if err != nil {
		return "", err
	}
	name, ok := kindNames[k]
	if !ok {
		return "", errors.Newf(errors.ErrKindNameNotFound, "no name for registry type %d", int(k))
	}
	return name, nil
}

// FriendlyName returns the capitalized form used in user-facing output and
// by the cmdlets' -Type parameter, e.g. "DWord".
func FriendlyName(t interface{}) (string, error) {
	k, err := Normalize(t)
	if err != nil {
		return "", err
	}
	name, ok := friendlyNames[k]
	if !ok {
		return "", errors.Newf(errors.ErrKindNameNotFound, "no friendly name for registry type %d", int(k))
	}
	return name, nil
}

// String implements fmt.Stringer with the friendly form.
func (k Kind) String() string {
	if name, ok := friendlyNames[k]; ok {
		return name
	}
	return "Unknown"
}
