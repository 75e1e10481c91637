// Package parse extracts structured data from the tool's plain-text
// reports. Every parser is a pure function over the raw report text;
// fields that the report did not contain stay nil or zero.
package parse

import (
	"regexp"
	"strconv"
)

var (
	wnsRe  = regexp.MustCompile(`WNS\(ns\)\s*:\s*([-\d.]+)`)
	tnsRe  = regexp.MustCompile(`TNS\(ns\)\s*:\s*([-\d.]+)`)
	whsRe  = regexp.MustCompile(`WHS\(ns\)\s*:\s*([-\d.]+)`)
	thsRe  = regexp.MustCompile(`THS\(ns\)\s*:\s*([-\d.]+)`)
	failRe = regexp.MustCompile(`(?i)(\d+)\s+failing\s+endpoint`)
)

// TimingSummary holds the headline metrics of a timing summary report.
// WNS/TNS cover setup timing, WHS/THS hold timing. Nil means the metric
// was absent from the report.
type TimingSummary struct {
	WNS              *float64 `json:"wns"`
	TNS              *float64 `json:"tns"`
	WHS              *float64 `json:"whs"`
	THS              *float64 `json:"ths"`
	FailingEndpoints int      `json:"failing_endpoints"`
	// Met is true when both setup and hold slack are non-negative. It
	// stays false when either metric is missing.
	Met bool   `json:"met"`
	Raw string `json:"raw"`
}

// Timing parses report_timing_summary output.
func Timing(output string) TimingSummary {
	result := TimingSummary{Raw: output}

	result.WNS = matchFloat(wnsRe, output)
	result.TNS = matchFloat(tnsRe, output)
	result.WHS = matchFloat(whsRe, output)
	result.THS = matchFloat(thsRe, output)

	if m := failRe.FindStringSubmatch(output); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			result.FailingEndpoints = n
		}
	}

	if result.WNS != nil && result.WHS != nil {
		result.Met = *result.WNS >= 0 && *result.WHS >= 0
	}
	return result
}

func matchFloat(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}
