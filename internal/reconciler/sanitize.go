package reconciler

import "regexp"

const redacted = "[REDACTED]"

var (
	bearerPattern     = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`)
	assignmentPattern = regexp.MustCompile(`(?i)\b(password|passwd|token|api[_-]?key|secret)(\s*[=:]\s*)[^\s,;&"']+`)
	longTokenPattern  = regexp.MustCompile(`[A-Za-z0-9+_]{40,}={0,2}`)
)

// SanitizeErrorMessage removes credentials from an error message before it
// is kept in feed status, which is printed and logged.
func SanitizeErrorMessage(msg string) string {
	msg = bearerPattern.ReplaceAllString(msg, "${1}"+redacted)
	msg = assignmentPattern.ReplaceAllString(msg, "${1}${2}"+redacted)
	return longTokenPattern.ReplaceAllString(msg, redacted)
}
