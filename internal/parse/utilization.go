package parse

import (
	"regexp"
	"strconv"
)

// Resource names differ between device families (7-series says "Slice
// LUTs", UltraScale says "CLB LUTs"), so each pattern accepts both.
// Table rows look like "Resource | Used | Fixed | Available | Util%".
var utilizationPatterns = map[string]*regexp.Regexp{
	"lut":  regexp.MustCompile(`(?i)(?:Slice LUTs|CLB LUTs)\s*\|\s*(\d+)\s*\|\s*\d+\s*\|\s*(\d+)\s*\|\s*([\d.]+)`),
	"ff":   regexp.MustCompile(`(?i)(?:Slice Registers|CLB Registers)\s*\|\s*(\d+)\s*\|\s*\d+\s*\|\s*(\d+)\s*\|\s*([\d.]+)`),
	"bram": regexp.MustCompile(`(?i)Block RAM Tile\s*\|\s*(\d+\.?\d*)\s*\|\s*\d+\s*\|\s*(\d+\.?\d*)\s*\|\s*([\d.]+)`),
	"dsp":  regexp.MustCompile(`(?i)DSPs?\s*\|\s*(\d+)\s*\|\s*\d+\s*\|\s*(\d+)\s*\|\s*([\d.]+)`),
	"io":   regexp.MustCompile(`(?i)(?:Bonded IOB|Bonded User I/O)\s*\|\s*(\d+)\s*\|\s*\d+\s*\|\s*(\d+)\s*\|\s*([\d.]+)`),
}

// ResourceUsage is one row of a utilization table. BRAM rows can carry
// fractional tile counts, hence float fields throughout.
type ResourceUsage struct {
	Used      float64 `json:"used"`
	Available float64 `json:"available"`
	Percent   float64 `json:"percent"`
}

// UtilizationSummary maps resource class to usage. Classes whose row is
// missing from the report stay zero.
type UtilizationSummary struct {
	LUT  ResourceUsage `json:"lut"`
	FF   ResourceUsage `json:"ff"`
	BRAM ResourceUsage `json:"bram"`
	DSP  ResourceUsage `json:"dsp"`
	IO   ResourceUsage `json:"io"`
	Raw  string        `json:"raw"`
}

// Utilization parses report_utilization output.
func Utilization(output string) UtilizationSummary {
	result := UtilizationSummary{Raw: output}
	for resource, re := range utilizationPatterns {
		m := re.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		usage := ResourceUsage{
			Used:      parseFloatOrZero(m[1]),
			Available: parseFloatOrZero(m[2]),
			Percent:   parseFloatOrZero(m[3]),
		}
		switch resource {
		case "lut":
			result.LUT = usage
		case "ff":
			result.FF = usage
		case "bram":
			result.BRAM = usage
		case "dsp":
			result.DSP = usage
		case "io":
			result.IO = usage
		}
	}
	return result
}

// ByClass returns the usage rows keyed by class name, for callers that
// iterate rather than pick fields.
func (u UtilizationSummary) ByClass() map[string]ResourceUsage {
	return map[string]ResourceUsage{
		"lut":  u.LUT,
		"ff":   u.FF,
		"bram": u.BRAM,
		"dsp":  u.DSP,
		"io":   u.IO,
	}
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
