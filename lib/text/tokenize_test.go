package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Tokenize(t *testing.T) {
	for _, test := range []struct {
		name            string
		input           string
		expectedText    []string
		expectedOffsets []int
	}{
		{
			name:            "plain words",
			input:           "patient has hypertension",
			expectedText:    []string{"patient", "has", "hypertension"},
			expectedOffsets: []int{0, 8, 12},
		},
		{
			name:            "punctuation produces no tokens but advances offsets",
			input:           "SpO2: 88%",
			expectedText:    []string{"SpO2", "88"},
			expectedOffsets: []int{0, 6},
		},
		{
			name:            "hyphenated words split",
			input:           "beta-blocker",
			expectedText:    []string{"beta", "blocker"},
			expectedOffsets: []int{0, 5},
		},
		{
			name:         "empty string",
			input:        "",
			expectedText: nil,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			tokens := Tokenize(test.input)

			var gotText []string
			var gotOffsets []int
			for _, tok := range tokens {
				gotText = append(gotText, tok.Text)
				gotOffsets = append(gotOffsets, tok.Start)
			}

			assert.Equal(t, test.expectedText, gotText)
			if test.expectedOffsets != nil {
				assert.Equal(t, test.expectedOffsets, gotOffsets)
			}
		})
	}
}

func Test_TokenCount(t *testing.T) {
	assert.Equal(t, 0, TokenCount(""))
	assert.Equal(t, 3, TokenCount("shortness of breath"))
	assert.Equal(t, 7, TokenCount("a long winded phrase that keeps going"))
}
