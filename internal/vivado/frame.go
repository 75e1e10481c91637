package vivado

import "strings"

// promptToken is the interactive TCL prompt the tool prints between
// commands. It doubles as the completion marker when executing.
const promptToken = "Vivado%"

// FrameOutput extracts the meaningful output of a command from the raw
// text captured between sending the command and seeing the next prompt.
//
// Raw captures carry leftover text from earlier operations, the echoed
// command itself, prompt fragments, and blank padding. Everything before
// the echo line is discarded; prompt lines and blank lines after it are
// dropped; remaining lines are stripped and rejoined.
func FrameOutput(raw, command string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
	cmdNormalized := strings.TrimSpace(command)

	var clean []string
	foundEcho := false
	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if !foundEcho {
			if strings.Contains(stripped, cmdNormalized) {
				foundEcho = true
			}
			continue
		}

		if strings.HasPrefix(stripped, promptToken) {
			continue
		}
		if stripped == "" {
			continue
		}
		clean = append(clean, stripped)
	}

	return strings.TrimSpace(strings.Join(clean, "\n"))
}
