package host

import "strings"

// =============================================================================
// Shell Quoting
// =============================================================================

// quote single-quotes s for a POSIX shell, escaping embedded quotes.
// Remote commands are passed to sshd as a single string and parsed by the
// login shell, so every argument must be quoted.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\!*?[](){}<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// joinCommand builds the remote command string from a name and arguments.
func joinCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}
