package pipeline

import (
	"strings"

	"iams2rf/internal"
)

type DetectResult struct {
	Found  bool
	Lines  []string
	Reason string
}

// DetectCodedParameters finds the parameter block of a request message.
// Without a start marker every line is a candidate parameter.
func DetectCodedParameters(lines []string) DetectResult {
	start := -1
	for i, line := range lines {
		if strings.Contains(cleanRequestLine(line), internal.CodedParametersStart) {
			start = i
			break
		}
	}
	if start < 0 {
		return DetectResult{Lines: lines, Reason: "no_markers"}
	}

	block := lines[start+1:]
	for i, line := range block {
		if strings.Contains(cleanRequestLine(line), internal.CodedParametersEnd) {
			return DetectResult{Found: true, Lines: block[:i], Reason: "markers"}
		}
	}
	return DetectResult{Found: true, Lines: block, Reason: "unterminated"}
}
