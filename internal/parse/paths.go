package parse

import (
	"regexp"
	"strconv"
)

var (
	pathStartRe = regexp.MustCompile(`(?m)^Slack\s*(?:\([A-Z]+\))?\s*:`)
	slackRe     = regexp.MustCompile(`Slack\s*(?:\([A-Z]+\))?\s*:\s*([-\d.]+)\s*ns`)
	sourceRe    = regexp.MustCompile(`Source:\s*(\S+)`)
	destRe      = regexp.MustCompile(`Destination:\s*(\S+)`)
	srcClockRe  = regexp.MustCompile(`Source Clock:\s*(\S+)`)
	dstClockRe  = regexp.MustCompile(`Destination Clock:\s*(\S+)`)
	requireRe   = regexp.MustCompile(`Requirement:\s*([-\d.]+)\s*ns`)
	dataDelayRe = regexp.MustCompile(`Data Path Delay:\s*([-\d.]+)\s*ns`)
	levelsRe    = regexp.MustCompile(`Logic Levels:\s*(\d+)`)
)

// TimingPath is the headline data of one path in a report_timing block,
// without the verbose cell-by-cell breakdown.
type TimingPath struct {
	Slack         float64  `json:"slack"`
	Source        string   `json:"source,omitempty"`
	Destination   string   `json:"destination,omitempty"`
	SourceClock   string   `json:"source_clock,omitempty"`
	DestClock     string   `json:"dest_clock,omitempty"`
	Requirement   *float64 `json:"requirement,omitempty"`
	DataPathDelay *float64 `json:"data_path_delay,omitempty"`
	LogicLevels   *int     `json:"logic_levels,omitempty"`
}

// TimingPaths extracts up to maxPaths path summaries from report_timing
// output. Each path block starts with a "Slack ... :" line; blocks
// without a parseable slack are skipped.
func TimingPaths(output string, maxPaths int) []TimingPath {
	if maxPaths <= 0 {
		maxPaths = 5
	}

	starts := pathStartRe.FindAllStringIndex(output, -1)
	var paths []TimingPath
	for i, loc := range starts {
		end := len(output)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := output[loc[0]:end]

		sm := slackRe.FindStringSubmatch(block)
		if sm == nil {
			continue
		}
		slack, err := strconv.ParseFloat(sm[1], 64)
		if err != nil {
			continue
		}

		p := TimingPath{Slack: slack}
		if m := sourceRe.FindStringSubmatch(block); m != nil {
			p.Source = m[1]
		}
		if m := destRe.FindStringSubmatch(block); m != nil {
			p.Destination = m[1]
		}
		if m := srcClockRe.FindStringSubmatch(block); m != nil {
			p.SourceClock = m[1]
		}
		if m := dstClockRe.FindStringSubmatch(block); m != nil {
			p.DestClock = m[1]
		}
		if m := requireRe.FindStringSubmatch(block); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.Requirement = &f
			}
		}
		if m := dataDelayRe.FindStringSubmatch(block); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.DataPathDelay = &f
			}
		}
		if m := levelsRe.FindStringSubmatch(block); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				p.LogicLevels = &n
			}
		}

		paths = append(paths, p)
		if len(paths) >= maxPaths {
			break
		}
	}
	return paths
}
