package reports

import (
	"os"
	"regexp"
	"strings"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
)

// SectionOptions select which part of a report file to read. StartLine
// is 1-indexed. When SearchPattern is set it overrides StartLine: the
// window is positioned so roughly a quarter of NumLines precedes the
// first match.
type SectionOptions struct {
	StartLine     int
	NumLines      int
	SearchPattern string
}

// Section is a window into a report file.
type Section struct {
	FilePath      string `json:"file_path"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
	TotalLines    int    `json:"total_lines"`
	ReturnedLines int    `json:"returned_lines"`
	Content       string `json:"content"`
	// PatternMissing is set when a search pattern was given but never
	// matched; Content is empty in that case.
	PatternMissing bool `json:"-"`
}

// ReadSection reads a line window from a report file.
func ReadSection(path string, opts SectionOptions) (Section, error) {
	if opts.StartLine < 1 {
		opts.StartLine = 1
	}
	if opts.NumLines <= 0 {
		opts.NumLines = 100
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Section{}, domain.NewSubSystemError("reports", "reports.ReadSection",
				domain.ErrNotFound, "file not found: "+path)
		}
		return Section{}, domain.WrapOp("reports.ReadSection", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	startLine := opts.StartLine
	if opts.SearchPattern != "" {
		re, err := regexp.Compile("(?i)" + opts.SearchPattern)
		if err != nil {
			return Section{}, domain.NewDomainError("reports.ReadSection",
				domain.ErrInvalidInput, "bad search pattern: "+err.Error())
		}
		found := false
		for i, line := range lines {
			if re.MatchString(line) {
				contextBefore := opts.NumLines / 4
				startLine = max(1, i+1-contextBefore)
				found = true
				break
			}
		}
		if !found {
			return Section{
				FilePath:       path,
				TotalLines:     total,
				PatternMissing: true,
			}, nil
		}
	}

	startIdx := startLine - 1
	if startIdx > total {
		startIdx = total
	}
	endIdx := min(total, startIdx+opts.NumLines)
	selected := lines[startIdx:endIdx]

	content := strings.Join(selected, "\n")
	if len(selected) > 0 {
		content += "\n"
	}

	return Section{
		FilePath:      path,
		StartLine:     startIdx + 1,
		EndLine:       endIdx,
		TotalLines:    total,
		ReturnedLines: len(selected),
		Content:       content,
	}, nil
}
