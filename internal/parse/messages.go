package parse

import "strings"

// MessageBuckets groups tool messages by severity prefix.
type MessageBuckets struct {
	Errors           []string `json:"errors"`
	CriticalWarnings []string `json:"critical_warnings"`
	Warnings         []string `json:"warnings"`
	Info             []string `json:"info"`
	Raw              string   `json:"raw"`
}

// Messages buckets output lines by their severity prefix. Order of
// checks matters: "CRITICAL WARNING:" must win over "WARNING:".
func Messages(output string) MessageBuckets {
	result := MessageBuckets{Raw: output}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ERROR:"):
			result.Errors = append(result.Errors, line)
		case strings.HasPrefix(line, "CRITICAL WARNING:"):
			result.CriticalWarnings = append(result.CriticalWarnings, line)
		case strings.HasPrefix(line, "WARNING:"):
			result.Warnings = append(result.Warnings, line)
		case strings.HasPrefix(line, "INFO:"):
			result.Info = append(result.Info, line)
		}
	}
	return result
}
