package toolchain

import (
	"strings"

	"github.com/tidwall/gjson"
)

// TypeEntry is one "name: type" line of a Types section
type TypeEntry struct {
	Name string
	Type string
}

// ExtractJSON returns the output from the first line starting with '{' to the end
func ExtractJSON(out string) (string, bool) {
	offset := 0
	for _, line := range strings.SplitAfter(out, "\n") {
		if strings.HasPrefix(line, "{") {
			return strings.TrimSpace(out[offset:]), true
		}
		offset += len(line)
	}
	return "", false
}

// ParseTypes reads the entries of the "Types:" section up to the first blank line
func ParseTypes(out string) []TypeEntry {
	var entries []TypeEntry
	inSection := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")

		if !inSection {
			inSection = strings.TrimSpace(line) == "Types:"
			continue
		}

		if strings.TrimSpace(line) == "" {
			break
		}

		name, typ, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
		if name == "" || typ == "" {
			continue
		}
		entries = append(entries, TypeEntry{Name: name, Type: typ})
	}

	return entries
}

// parseType reads a single type from a type query. A JSON payload with a
// "type" field wins, then a "Type:" line, then the only entry of a Types section.
func parseType(out string) (string, bool) {
	if payload, ok := ExtractJSON(out); ok {
		if t := gjson.Get(payload, "type"); t.Type == gjson.String && strings.TrimSpace(t.String()) != "" {
			return strings.TrimSpace(t.String()), true
		}
	}

	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Type:"); ok && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest), true
		}
	}

	if entries := ParseTypes(out); len(entries) == 1 {
		return entries[0].Type, true
	}

	return "", false
}
