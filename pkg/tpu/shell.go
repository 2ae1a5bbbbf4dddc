package tpu

import "strings"

// Quote minimally quotes an argument for POSIX shells. It leaves common
// safe characters unquoted and uses single-quoting with the standard `'\''`
// escape for embedded single quotes. Every remote command line that embeds
// user input goes through this one routine.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			return false
		}
		if r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
