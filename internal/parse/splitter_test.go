package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSplitter(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  Splitter
		expectErr bool
	}{
		{name: "Standard", raw: "1x8", expected: Splitter{Inputs: 1, Outputs: 8}},
		{name: "Upper case", raw: "1X16", expected: Splitter{Inputs: 1, Outputs: 16}},
		{name: "Colon", raw: "1:32", expected: Splitter{Inputs: 1, Outputs: 32}},
		{name: "Spaces", raw: "  2 x 64 ", expected: Splitter{Inputs: 2, Outputs: 64}},
		{name: "Multiplication sign", raw: "1×4", expected: Splitter{Inputs: 1, Outputs: 4}},
		{name: "Zero outputs", raw: "1x0", expectErr: true},
		{name: "Free text", raw: "balanced", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSplitter(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSplitterOutputs(t *testing.T) {
	assert.Equal(t, 8, SplitterOutputs("1x8"))
	assert.Equal(t, 0, SplitterOutputs("n/a"))
	assert.Equal(t, "1x16", Splitter{Inputs: 1, Outputs: 16}.String())
}
