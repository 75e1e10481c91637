package vivado

import (
	"regexp"
	"strings"
)

// tclErrorWindow is how many leading output lines are scanned for TCL
// interpreter errors. The interpreter reports syntax and lookup failures
// immediately, so anything past the first few lines is command output.
const tclErrorWindow = 5

// tclErrorPatterns match errors raised by the TCL interpreter itself.
// Anchored at line start and matched case-insensitively against the
// stripped line.
var tclErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^invalid command name`),
	regexp.MustCompile(`(?i)^wrong # args:`),
	regexp.MustCompile(`(?i)^can't read ".*": no such variable`),
	regexp.MustCompile(`(?i)^expected .* but got`),
	regexp.MustCompile(`(?i)^couldn't open`),
	regexp.MustCompile(`(?i)^no files matched`),
}

// vivadoErrorPattern matches tool errors, which always carry a bracketed
// message code: "ERROR: [Synth 8-87] ...". Table cells like
// "| Timing ERROR | 0 |" or counters like "error: 0" do not match.
var vivadoErrorPattern = regexp.MustCompile(`^ERROR:\s*\[`)

// reportIndicators are substrings that mark output as report content.
// Timing and utilization tables routinely contain the word "error" in
// headers and cells without anything having failed.
var reportIndicators = []string{
	"WNS(ns)",
	"TNS(ns)",
	"WHS(ns)",
	"+---------",
	"|------",
	"| Site Type",
	"| Resource",
	"Utilization",
	"Design Timing Summary",
	"Clock Summary",
}

// Classification is the result of scanning command output for failures.
type Classification struct {
	// TCLError is set when the TCL interpreter rejected the command.
	TCLError bool
	// VivadoError is set when the tool emitted a bracketed ERROR line.
	VivadoError bool
	// ReportContent is set when the output looks like a report table or
	// summary. Informational only; it never suppresses the error flags.
	ReportContent bool
	// ErrorMessages holds the stripped lines that triggered the flags,
	// in the order they appear in the output.
	ErrorMessages []string
}

// ActualFailure reports whether the command genuinely failed.
func (c Classification) ActualFailure() bool {
	return c.TCLError || c.VivadoError
}

// Classify scans command output and distinguishes real failures from
// error-shaped text inside reports. Empty output classifies clean.
func Classify(output string) Classification {
	var c Classification
	if strings.TrimSpace(output) == "" {
		return c
	}

	lines := strings.Split(output, "\n")

	window := lines
	if len(window) > tclErrorWindow {
		window = window[:tclErrorWindow]
	}
	for _, line := range window {
		stripped := strings.TrimSpace(line)
		for _, pat := range tclErrorPatterns {
			if pat.MatchString(stripped) {
				c.TCLError = true
				c.ErrorMessages = append(c.ErrorMessages, stripped)
			}
		}
	}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if vivadoErrorPattern.MatchString(stripped) {
			c.VivadoError = true
			c.ErrorMessages = append(c.ErrorMessages, stripped)
		}
	}

	for _, ind := range reportIndicators {
		if strings.Contains(output, ind) {
			c.ReportContent = true
			break
		}
	}

	return c
}
