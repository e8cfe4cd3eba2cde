package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NormalizePunctuation(t *testing.T) {
	for _, test := range []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "curly quotes become straight quotes",
			input:    "the patient’s “condition”",
			expected: `the patient's "condition"`,
		},
		{
			name:     "en and em dashes become hyphens",
			input:    "dose – 150mg — daily",
			expected: "dose - 150mg - daily",
		},
		{
			name:     "ascii text is unchanged",
			input:    "SECTION 1: HISTORY",
			expected: "SECTION 1: HISTORY",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, NormalizePunctuation(test.input))
		})
	}
}

func Test_CollapseBlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", CollapseBlankLines("a\n\n\n\n\nb"))
	assert.Equal(t, "a\n\nb", CollapseBlankLines("a\n \n\t\nb"))
	assert.Equal(t, "a\nb", CollapseBlankLines("a\nb"))
	assert.Equal(t, "a\n\nb", CollapseBlankLines("a\n\nb"))
}

func Test_NormalizeTerm(t *testing.T) {
	for _, test := range []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and trims",
			input:    "  Chronic Kidney Disease ",
			expected: "chronic kidney disease",
		},
		{
			name:     "collapses inner whitespace",
			input:    "blood\t pressure",
			expected: "blood pressure",
		},
		{
			name:     "applies nfkc to fullwidth characters",
			input:    "ＨｂＡ１ｃ",
			expected: "hba1c",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, NormalizeTerm(test.input))
		})
	}
}
