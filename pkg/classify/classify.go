// Package classify turns raw external-process output into domain errors.
//
// PowerShell and pnputil have no single reliable failure signal: a command
// may succeed with a non-zero exit code, or fail with its error text on
// stdout instead of stderr. The only workable approach is to scan combined
// output for known phrases. Each subsystem owns an ordered rule table; the
// first rule with a matching pattern wins. No match means "no classified
// error found", which callers must still treat as fatal when output was
// unexpected.
package classify

import (
	"regexp"

	"touchctl/pkg/errors"
)

// Rule maps one error code to the text patterns (and optional exit codes)
// that identify it.
type Rule struct {
	Code     errors.ErrorCode
	Patterns []*regexp.Regexp
	// ExitCodes additionally match against the process return code.
	ExitCodes []int
}

// Classifier scans output against its rules in declaration order.
type Classifier struct {
	rules []Rule
}

// New creates a classifier from an ordered rule list.
func New(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Check scans combined process output (and the return code) against the
// rule table. It returns a coded error for the first matching rule, or nil
// if nothing matched. When only is non-empty, rules whose code is not
// listed are skipped.
func (c *Classifier) Check(output string, rc int, only ...errors.ErrorCode) error {
	for _, rule := range c.rules {
		if len(only) > 0 && !containsCode(only, rule.Code) {
			continue
		}

		for _, re := range rule.Patterns {
			if re.MatchString(output) {
				return errors.Newf(rule.Code, "output matches pattern %q", re.String()).
					WithDetail("output", output)
			}
		}
		for _, code := range rule.ExitCodes {
			if rc == code {
				return errors.Newf(rule.Code, "return code %d", rc).
					WithDetail("output", output)
			}
		}
	}
	return nil
}

func containsCode(codes []errors.ErrorCode, code errors.ErrorCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func patterns(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(`(?i)`+e))
	}
	return res
}

// Patterns are English-locale only. Non-English Windows installations are a
// known gap; the tables are data, so locale variants can be appended.

// Command classifies PowerShell-level failures.
var Command = New(
	Rule{
		Code: errors.ErrAccessDenied,
		Patterns: patterns(
			`\baccess.*?not\s+allowed\b`,
			`\baccess.*?denied\b`,
			`PermissionDenied(?:Exception)?`,
			`SecurityException`,
		),
	},
	Rule{
		// e.g. "This command cannot be run due to the error: The operation
		// was canceled by the user."
		Code: errors.ErrUserAborted,
		Patterns: patterns(
			`\boperation.*?cancell?ed\b`,
			`\bcancell?ed\s+by.*?user\b`,
		),
	},
	Rule{
		// e.g. "The term 'hello' is not recognized as the name of a cmdlet,
		// function, script file, or operable program."
		Code: errors.ErrCommandNotFound,
		Patterns: patterns(
			`\bthe\s+term.*?is\s+not\s+recogni[sz]ed\b`,
			`\bnot\s+recogni[sz]ed\s+as\s+the\s+name\s+of\b`,
			`CommandNotFound(?:Exception)?`,
		),
	},
	Rule{
		// e.g. "This program is blocked by group policy. For more
		// information, contact your system administrator."
		Code: errors.ErrPowershellDisabled,
		Patterns: patterns(
			`\b(?:program.*?blocked)?.*?group\s+policy\b`,
			`\b(?:contact\s+your\s+)?system\s+admins?(?:istrators?)?\b`,
		),
	},
)

// Registry classifies registry cmdlet failures.
var Registry = New(
	Rule{
		Code: errors.ErrRegPermission,
		Patterns: patterns(
			`\baccess.*?not\s+allowed\b`,
			`\baccess.*?denied\b`,
			`PermissionDenied(?:Exception)?`,
			`SecurityException`,
		),
	},
	Rule{
		// e.g. "The specified registry key does not exist."
		Code: errors.ErrRegNotFound,
		Patterns: patterns(
			`\bcannot\s+find\s+path\b`,
			`\bdoes\s+not\s+exist\b`,
			`PathNotFound(?:Exception)?`,
			`ItemNotFound(?:Exception)?`,
		),
	},
	Rule{
		Code: errors.ErrRegExists,
		Patterns: patterns(
			`\balready\s+exists\b`,
			`ResourceExists(?:Exception)?`,
		),
	},
)

// Device classifies pnputil failures. Exit code 50 is ERROR_NOT_SUPPORTED
// territory in practice: pnputil returns it when the device is already in
// the requested state.
var Device = New(
	Rule{
		Code: errors.ErrDevicePermission,
		Patterns: patterns(
			`\baccess.*?not\s+allowed\b`,
			`\baccess.*?denied\b`,
		),
	},
	Rule{
		Code: errors.ErrDeviceAborted,
		Patterns: patterns(
			`\boperation.*?cancell?ed\b`,
			`\bcancell?ed\s+by.*?user\b`,
		),
	},
	Rule{
		Code: errors.ErrDeviceNotFound,
		Patterns: patterns(
			`\bno\s+devices\s+were\s+found\b`,
		),
	},
	Rule{
		Code: errors.ErrDeviceAlreadySet,
		Patterns: patterns(
			`\balready\s+enabled\b`,
			`\balready\s+disabled\b`,
		),
		ExitCodes: []int{50},
	},
)
