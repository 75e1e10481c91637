package reports

import (
	"fmt"
	"strings"
)

// DefaultMaxInlineChars caps text returned inline in a tool response.
// Full reports can run to tens of thousands of lines; anything larger
// belongs in a file plus section reads.
const DefaultMaxInlineChars = 8000

// Truncated is content that may have been cut to fit inline limits,
// with enough metadata for the caller to know what was lost.
type Truncated struct {
	Content           string `json:"content"`
	IsTruncated       bool   `json:"truncated"`
	TotalChars        int    `json:"total_chars"`
	TotalLines        int    `json:"total_lines"`
	ReturnedChars     int    `json:"returned_chars,omitempty"`
	ReturnedLines     int    `json:"returned_lines,omitempty"`
	TruncationMessage string `json:"truncation_message,omitempty"`
}

// Truncate cuts content to maxChars, preferring a line boundary when
// that keeps more than 80% of the allowed budget. maxChars <= 0 uses
// the default.
func Truncate(content string, maxChars int) Truncated {
	if maxChars <= 0 {
		maxChars = DefaultMaxInlineChars
	}

	totalChars := len(content)
	totalLines := strings.Count(content, "\n") + 1

	if totalChars <= maxChars {
		return Truncated{
			Content:    content,
			TotalChars: totalChars,
			TotalLines: totalLines,
		}
	}

	cut := content[:maxChars]
	if idx := strings.LastIndex(cut, "\n"); idx > maxChars*8/10 {
		cut = cut[:idx]
	}

	return Truncated{
		Content:       cut,
		IsTruncated:   true,
		TotalChars:    totalChars,
		TotalLines:    totalLines,
		ReturnedChars: len(cut),
		ReturnedLines: strings.Count(cut, "\n") + 1,
		TruncationMessage: fmt.Sprintf(
			"Output truncated (%d chars -> %d chars). Use generate_full_report for complete output.",
			totalChars, len(cut)),
	}
}
