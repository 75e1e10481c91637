package vivado

import "testing"

func TestFrameOutput_StripsEchoAndPrompt(t *testing.T) {
	raw := "leftover from before\r\n" +
		"puts $foo\r\n" +
		"bar\r\n" +
		"Vivado% \r\n"
	got := FrameOutput(raw, "puts $foo")
	if got != "bar" {
		t.Errorf("FrameOutput = %q, want %q", got, "bar")
	}
}

func TestFrameOutput_DiscardsTextBeforeEcho(t *testing.T) {
	raw := "stale output line 1\n" +
		"stale output line 2\n" +
		"report_clocks -return_string\n" +
		"Clock Summary\n" +
		"clk  10.000  100.000\n"
	got := FrameOutput(raw, "report_clocks -return_string")
	want := "Clock Summary\nclk  10.000  100.000"
	if got != want {
		t.Errorf("FrameOutput = %q, want %q", got, want)
	}
}

func TestFrameOutput_DropsBlankLines(t *testing.T) {
	raw := "version\n\n\n2023.2\n\nVivado%\n"
	got := FrameOutput(raw, "version")
	if got != "2023.2" {
		t.Errorf("FrameOutput = %q, want %q", got, "2023.2")
	}
}

func TestFrameOutput_EchoNeverSeen(t *testing.T) {
	// If the echo is missing everything is leftover text and nothing
	// should be attributed to this command.
	raw := "some unrelated output\nVivado%\n"
	got := FrameOutput(raw, "puts hello")
	if got != "" {
		t.Errorf("FrameOutput = %q, want empty", got)
	}
}

func TestFrameOutput_CommandWithSurroundingWhitespace(t *testing.T) {
	raw := "open_project /a/b.xpr\nINFO: opened\n"
	got := FrameOutput(raw, "  open_project /a/b.xpr  ")
	if got != "INFO: opened" {
		t.Errorf("FrameOutput = %q, want %q", got, "INFO: opened")
	}
}

func TestFrameOutput_MultilineResult(t *testing.T) {
	raw := "report_timing_summary -return_string\n" +
		"Design Timing Summary\n" +
		"WNS(ns): 0.123\n" +
		"Vivado% trailing\n"
	got := FrameOutput(raw, "report_timing_summary -return_string")
	want := "Design Timing Summary\nWNS(ns): 0.123"
	if got != want {
		t.Errorf("FrameOutput = %q, want %q", got, want)
	}
}
