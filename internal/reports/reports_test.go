package reports

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
)

func testStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	cfg := config.ReportsConfig{Dir: t.TempDir(), CacheTTL: ttl, MaxInlineChars: 8000}
	return NewStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTruncate_Short(t *testing.T) {
	tr := Truncate("short content", 100)
	assert.False(t, tr.IsTruncated)
	assert.Equal(t, "short content", tr.Content)
	assert.Equal(t, 13, tr.TotalChars)
	assert.Equal(t, 1, tr.TotalLines)
	assert.Empty(t, tr.TruncationMessage)
}

func TestTruncate_CutsAtLineBoundary(t *testing.T) {
	// 10 lines of 10 chars each (including newline); a 95-char budget
	// lands mid-line and the last newline sits past 80% of the budget.
	content := strings.Repeat("123456789\n", 10)
	tr := Truncate(content, 95)
	require.True(t, tr.IsTruncated)
	assert.Equal(t, 90, tr.ReturnedChars)
	assert.True(t, strings.HasSuffix(tr.Content, "123456789"))
	assert.Equal(t, 100, tr.TotalChars)
	assert.Contains(t, tr.TruncationMessage, "generate_full_report")
}

func TestTruncate_HardCutWhenBoundaryTooEarly(t *testing.T) {
	// One newline near the start, then a long run. The line boundary
	// would discard most of the budget, so the cut is mid-line.
	content := "ab\n" + strings.Repeat("x", 500)
	tr := Truncate(content, 100)
	require.True(t, tr.IsTruncated)
	assert.Equal(t, 100, tr.ReturnedChars)
}

func TestTruncate_DefaultBudget(t *testing.T) {
	tr := Truncate(strings.Repeat("y", DefaultMaxInlineChars+1), 0)
	assert.True(t, tr.IsTruncated)
	assert.LessOrEqual(t, tr.ReturnedChars, DefaultMaxInlineChars)
}

func TestStore_RecordAndResolve(t *testing.T) {
	s := testStore(t, time.Hour)
	require.NoError(t, s.Prepare())

	id := s.NewID()
	assert.Len(t, id, 8)

	path := s.DefaultPath("timing", id)
	require.NoError(t, os.WriteFile(path, []byte("line 1\nline 2\nline 3\n"), 0o644))

	md, err := s.Record(id, path, "timing")
	require.NoError(t, err)
	assert.Equal(t, 3, md.LineCount)
	assert.Equal(t, int64(21), md.SizeBytes)
	assert.Equal(t, "timing", md.ReportType)

	resolved, err := s.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestStore_ResolveFallsBackToDirectoryScan(t *testing.T) {
	s := testStore(t, time.Hour)
	require.NoError(t, s.Prepare())

	// File exists on disk but was never recorded, as after a restart.
	path := s.DefaultPath("utilization", "deadbeef")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	resolved, err := s.Resolve("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestStore_ResolveUnknown(t *testing.T) {
	s := testStore(t, time.Hour)
	require.NoError(t, s.Prepare())

	_, err := s.Resolve("missing1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeReportNotFound, domain.ErrorCodeOf(err))
}

func TestStore_PrepareExpiresOldReports(t *testing.T) {
	s := testStore(t, time.Hour)
	require.NoError(t, s.Prepare())

	id := s.NewID()
	path := s.DefaultPath("timing", id)
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	_, err := s.Record(id, path, "timing")
	require.NoError(t, err)

	// Age the file past the TTL.
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	fresh := s.DefaultPath("clocks", "11112222")
	require.NoError(t, os.WriteFile(fresh, []byte("new\n"), 0o644))

	require.NoError(t, s.Prepare())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expired file should be removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh file should survive")

	_, err = s.Resolve(id)
	assert.Error(t, err, "expired report must leave the index")
}

func writeReportFile(t *testing.T, lines int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestReadSection_LineRange(t *testing.T) {
	path := writeReportFile(t, 50)

	sec, err := ReadSection(path, SectionOptions{StartLine: 10, NumLines: 5})
	require.NoError(t, err)
	assert.Equal(t, 10, sec.StartLine)
	assert.Equal(t, 14, sec.EndLine)
	assert.Equal(t, 50, sec.TotalLines)
	assert.Equal(t, 5, sec.ReturnedLines)
	assert.Equal(t, "line 10\nline 11\nline 12\nline 13\nline 14\n", sec.Content)
}

func TestReadSection_Defaults(t *testing.T) {
	path := writeReportFile(t, 250)

	sec, err := ReadSection(path, SectionOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, sec.StartLine)
	assert.Equal(t, 100, sec.ReturnedLines)
}

func TestReadSection_RangePastEnd(t *testing.T) {
	path := writeReportFile(t, 10)

	sec, err := ReadSection(path, SectionOptions{StartLine: 8, NumLines: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, sec.ReturnedLines)
	assert.Equal(t, 10, sec.EndLine)
}

func TestReadSection_SearchPattern(t *testing.T) {
	path := writeReportFile(t, 100)

	// A quarter of the window lands before the match.
	sec, err := ReadSection(path, SectionOptions{NumLines: 20, SearchPattern: "LINE 50"})
	require.NoError(t, err)
	assert.Equal(t, 45, sec.StartLine, "window starts numLines/4 before the match")
	assert.Contains(t, sec.Content, "line 50")
	assert.False(t, sec.PatternMissing)
}

func TestReadSection_SearchPatternMissing(t *testing.T) {
	path := writeReportFile(t, 20)

	sec, err := ReadSection(path, SectionOptions{SearchPattern: "no such text"})
	require.NoError(t, err)
	assert.True(t, sec.PatternMissing)
	assert.Empty(t, sec.Content)
	assert.Equal(t, 20, sec.TotalLines)
}

func TestReadSection_MissingFile(t *testing.T) {
	_, err := ReadSection(filepath.Join(t.TempDir(), "absent.txt"), SectionOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadSection_BadPattern(t *testing.T) {
	path := writeReportFile(t, 5)
	_, err := ReadSection(path, SectionOptions{SearchPattern: "("})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
