package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var splitterRe = regexp.MustCompile(`(?i)^(\d+)\s*[x×:/]\s*(\d+)$`)

// Splitter is the fan-out ratio of an optical splitter, e.g. 1x8.
type Splitter struct {
	Inputs  int
	Outputs int
}

func (s Splitter) String() string {
	return fmt.Sprintf("%dx%d", s.Inputs, s.Outputs)
}

// ParseSplitter extracts the ratio from a splitter label such as "1x8",
// "1X16", "1:32" or "2 x 64". The label is informational only.
func ParseSplitter(raw string) (Splitter, error) {
	s := strings.TrimSpace(raw)
	m := splitterRe.FindStringSubmatch(s)
	if m == nil {
		return Splitter{}, fmt.Errorf("unable to parse splitter type: %q", raw)
	}

	in, err := strconv.Atoi(m[1])
	if err != nil {
		return Splitter{}, fmt.Errorf("unable to parse splitter inputs: %q", raw)
	}
	out, err := strconv.Atoi(m[2])
	if err != nil {
		return Splitter{}, fmt.Errorf("unable to parse splitter outputs: %q", raw)
	}
	if in <= 0 || out <= 0 {
		return Splitter{}, fmt.Errorf("splitter ratio must be positive: %q", raw)
	}
	return Splitter{Inputs: in, Outputs: out}, nil
}

// SplitterOutputs returns the output count of a label, or 0 when the label
// cannot be parsed.
func SplitterOutputs(raw string) int {
	s, err := ParseSplitter(raw)
	if err != nil {
		return 0
	}
	return s.Outputs
}
