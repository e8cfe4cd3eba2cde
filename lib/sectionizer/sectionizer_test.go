package sectionizer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinformatics/clindoc/lib"
)

func newSectionizer(t *testing.T) *Sectionizer {
	s, err := New()
	require.NoError(t, err)
	return s
}

func Test_Split(t *testing.T) {
	for _, test := range []struct {
		name     string
		input    string
		expected []Section
	}{
		{
			name:  "numbered headings",
			input: "SECTION 1: HISTORY\nPatient has hypertension.\nSECTION 2: LABS\nSpO2 88%.",
			expected: []Section{
				{Name: "HISTORY", Text: "Patient has hypertension."},
				{Name: "LABS", Text: "SpO2 88%."},
			},
		},
		{
			name:  "heading after sentence on the same line",
			input: "SECTION 1: HISTORY\nPatient on ibuprofen 400mg. SECTION 2: LABS\nSpO2 88%.",
			expected: []Section{
				{Name: "HISTORY", Text: "Patient on ibuprofen 400mg"},
				{Name: "LABS", Text: "SpO2 88%."},
			},
		},
		{
			name:  "roman numerals and dash separator",
			input: "SECTION II - EXAMINATION\nUnremarkable.",
			expected: []Section{
				{Name: "EXAMINATION", Text: "Unremarkable."},
			},
		},
		{
			name:  "text before first heading becomes introduction",
			input: "Referral letter for Mr Smith.\nSECTION 1: HISTORY\nDiabetic.",
			expected: []Section{
				{Name: "INTRODUCTION", Text: "Referral letter for Mr Smith."},
				{Name: "HISTORY", Text: "Diabetic."},
			},
		},
		{
			name:  "no headings falls back to full text",
			input: "Just a narrative paragraph without structure.",
			expected: []Section{
				{Name: "FULL_TEXT", Text: "Just a narrative paragraph without structure."},
			},
		},
		{
			name:  "empty sections are dropped",
			input: "SECTION 1: HISTORY\n\nSECTION 2: LABS\nGlucose 10.",
			expected: []Section{
				{Name: "LABS", Text: "Glucose 10."},
			},
		},
		{
			name:  "duplicate heading names fold together",
			input: "SECTION 1: LABS\nGlucose 10.\nSECTION 2: LABS\nCreatinine 90.",
			expected: []Section{
				{Name: "LABS", Text: "Glucose 10.\nCreatinine 90."},
			},
		},
		{
			name:  "case insensitive headings with unicode punctuation",
			input: "Section 1 – History\nPatient’s records attached.",
			expected: []Section{
				{Name: "HISTORY", Text: "Patient's records attached."},
			},
		},
		{
			name:     "blank document yields nothing",
			input:    "  \n\n ",
			expected: nil,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, newSectionizer(t).Split(test.input))
		})
	}
}

func Test_SplitFile_MissingInputIsNotFound(t *testing.T) {
	_, err := newSectionizer(t).SplitFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.True(t, errors.Is(err, lib.ErrNotFound))
}

func Test_SplitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("SECTION 1: HISTORY\nAsthma."), 0600))

	sections, err := newSectionizer(t).SplitFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Section{{Name: "HISTORY", Text: "Asthma."}}, sections)
}

func Test_AsMap(t *testing.T) {
	m := AsMap([]Section{{Name: "HISTORY", Text: "Asthma."}})
	assert.Equal(t, map[string]string{"HISTORY": "Asthma."}, m)
}
