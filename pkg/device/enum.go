package device

import "strings"

// Fields is one parsed enumeration block, field name to value.
type Fields map[string]string

// Lookup returns a field's value by name, case-insensitively. pnputil's
// field casing ("Instance ID", "Problem Code") is not worth trusting.
func (f Fields) Lookup(name string) (string, bool) {
	if v, ok := f[name]; ok {
		return v, true
	}
	for k, v := range f {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// parseBlocks parses pnputil enumeration output into field maps.
//
// Grammar:
//
//	output = block *( blank-line block )
//	block  = 1*line
//	line   = field ":" value / other
//
// Line endings are normalized to LF before splitting; blocks are separated
// by one blank line. A block is kept when it contains at least one
// colon-delimited field line and, if names is non-empty, its text contains
// at least one of the names (case-insensitive). Field lines split at the
// first colon; field and value are trimmed of surrounding whitespace,
// lines without a colon are ignored. This drops the "Microsoft PnP
// Utility" banner block, which has no fields.
func parseBlocks(output string, names []string) []Fields {
	normalized := strings.ReplaceAll(output, "\r\n", "\n")

	var blocks []Fields
	for _, raw := range strings.Split(normalized, "\n\n") {
		if !matchesAny(raw, names) || !strings.Contains(raw, ":") {
			continue
		}

		fields := Fields{}
		for _, line := range strings.Split(raw, "\n") {
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		if len(fields) > 0 {
			blocks = append(blocks, fields)
		}
	}
	return blocks
}

func matchesAny(block string, names []string) bool {
	if len(names) == 0 {
		return true
	}
	lower := strings.ToLower(block)
	for _, n := range names {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
