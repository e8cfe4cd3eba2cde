package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinformatics/clindoc/lib"
)

func Test_Recognise(t *testing.T) {
	r := New(nil)

	entities, err := r.Recognise("Patient has Hypertension and is on ibuprofen 400mg.")
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Equal(t, lib.Entity{
		Text:      "Hypertension",
		Label:     lib.LabelDisease,
		StartChar: 12,
		EndChar:   24,
	}, entities[0])
	assert.Equal(t, lib.Entity{
		Text:      "ibuprofen",
		Label:     lib.LabelMedication,
		StartChar: 35,
		EndChar:   44,
	}, entities[1])
}

func Test_Recognise_WholeWordOnly(t *testing.T) {
	r := New(nil)

	// "ckd" must not match inside another word
	entities, err := r.Recognise("blocked drain, no CKD noted")
	require.NoError(t, err)

	require.Len(t, entities, 1)
	assert.Equal(t, "CKD", entities[0].Text)
	assert.Equal(t, lib.LabelDisease, entities[0].Label)
}

func Test_Recognise_MultiWordTerms(t *testing.T) {
	r := New(nil)

	entities, err := r.Recognise("Blood pressure recorded as 185/90.")
	require.NoError(t, err)

	require.NotEmpty(t, entities)
	assert.Equal(t, "Blood pressure", entities[0].Text)
	assert.Equal(t, lib.LabelObservation, entities[0].Label)
}

func Test_Recognise_ExtraTerms(t *testing.T) {
	r := New(map[string][]string{
		lib.LabelDisease: {"widget fever"},
	})

	entities, err := r.Recognise("presented with widget fever")
	require.NoError(t, err)

	require.Len(t, entities, 1)
	assert.Equal(t, "widget fever", entities[0].Text)
}

func Test_Recognise_DeterministicOrder(t *testing.T) {
	r := New(nil)
	input := "aspirin hypertension glucose aspirin stroke"

	first, err := r.Recognise(input)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := r.Recognise(input)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
