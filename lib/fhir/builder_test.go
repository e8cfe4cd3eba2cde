/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fhir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/sectionizer"
)

func linkedEntity(entityText, label string) lib.LinkedEntity {
	return lib.LinkedEntity{Text: entityText, Label: label}
}

func resourceKinds(bundle *Bundle) []string {
	kinds := make([]string, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		switch resource := entry.Resource.(type) {
		case Patient:
			kinds = append(kinds, resource.ResourceType)
		case Practitioner:
			kinds = append(kinds, resource.ResourceType)
		case Organization:
			kinds = append(kinds, resource.ResourceType)
		case Condition:
			kinds = append(kinds, resource.ResourceType)
		case MedicationStatement:
			kinds = append(kinds, resource.ResourceType)
		case Observation:
			kinds = append(kinds, resource.ResourceType)
		case Procedure:
			kinds = append(kinds, resource.ResourceType)
		case Encounter:
			kinds = append(kinds, resource.ResourceType)
		}
	}
	return kinds
}

func TestBuild(t *testing.T) {
	sections := []sectionizer.Section{
		{
			Name: "HISTORY",
			Text: "Mr John Smith attended City General Hospital with hypertension. Seen by Dr Jones. Blood pressure was 185/90. SpO2 88% on air.",
		},
		{
			Name: "MEDICATIONS",
			Text: "Currently prescribed aspirin 75 mg daily and ibuprofen 400 mg as required.",
		},
	}
	linked := map[string][]lib.LinkedEntity{
		"HISTORY": {
			linkedEntity("Mr John Smith", lib.LabelContext),
			linkedEntity("City General Hospital", lib.LabelContext),
			{Text: "hypertension", Label: lib.LabelDisease, LinkedCode: "I10", Vocabulary: "conditions", Display: "essential hypertension", Score: 0.91},
			linkedEntity("Dr Jones", lib.LabelContext),
			linkedEntity("blood pressure", lib.LabelObservation),
			linkedEntity("SpO2", lib.LabelObservation),
		},
		"MEDICATIONS": {
			linkedEntity("aspirin", lib.LabelMedication),
			linkedEntity("ibuprofen", lib.LabelMedication),
		},
	}

	bundle := NewBuilder().Build(sections, linked)

	assert.Equal(t, "Bundle", bundle.ResourceType)
	assert.Equal(t, "collection", bundle.Type)
	assert.NotEmpty(t, bundle.ID)
	assert.NotEmpty(t, bundle.Timestamp)

	assert.Equal(t, []string{
		"Condition",
		"MedicationStatement", "MedicationStatement",
		"Observation", "Observation",
		"Organization",
		"Patient",
		"Practitioner",
		"Encounter",
	}, resourceKinds(bundle))

	var patient Patient
	var conditions []Condition
	var medications []MedicationStatement
	var observations []Observation
	for _, entry := range bundle.Entry {
		switch resource := entry.Resource.(type) {
		case Patient:
			patient = resource
		case Condition:
			conditions = append(conditions, resource)
		case MedicationStatement:
			medications = append(medications, resource)
		case Observation:
			observations = append(observations, resource)
		}
	}

	assert.Equal(t, "Mr John Smith", patient.Name[0].Text)
	assert.Equal(t, "male", patient.Gender)
	assert.Equal(t, "Practitioner/practitioner-1", patient.GeneralPractitioner[0].Reference)
	assert.Equal(t, "Organization/organization-1", patient.ManagingOrganization.Reference)

	assert.Len(t, conditions, 1)
	assert.Equal(t, "essential hypertension", conditions[0].Code.Text)
	assert.Equal(t, "I10", conditions[0].Code.Coding[0].Code)
	assert.Equal(t, "Patient/patient-1", conditions[0].Subject.Reference)

	assert.Len(t, medications, 2)
	assert.Equal(t, []Dosage{{Text: "75 mg"}}, medications[0].Dosage)
	assert.Equal(t, []Dosage{{Text: "400 mg"}}, medications[1].Dosage)

	assert.Len(t, observations, 2)
	assert.Equal(t, "blood pressure", observations[0].Code.Text)
	assert.Len(t, observations[0].Component, 2)
	assert.Equal(t, 185.0, observations[0].Component[0].ValueQuantity.Value)
	assert.Equal(t, 90.0, observations[0].Component[1].ValueQuantity.Value)
	assert.Equal(t, "SpO2", observations[1].Code.Text)
	assert.Equal(t, 88.0, observations[1].ValueQuantity.Value)
	assert.Equal(t, "%", observations[1].ValueQuantity.Unit)
}

func TestBuildDeterministicEntries(t *testing.T) {
	sections := []sectionizer.Section{
		{Name: "FULL_TEXT", Text: "Asthma and CKD. On metformin 500 mg."},
	}
	linked := map[string][]lib.LinkedEntity{
		"FULL_TEXT": {
			linkedEntity("asthma", lib.LabelDisease),
			linkedEntity("CKD", lib.LabelDisease),
			linkedEntity("metformin", lib.LabelMedication),
		},
	}

	first := NewBuilder().Build(sections, linked)
	second := NewBuilder().Build(sections, linked)

	// bundle identifier and timestamp are per-run; the entry list is not
	assert.Equal(t, first.Entry, second.Entry)
}

func TestBuildDuplicatesSuppressed(t *testing.T) {
	sections := []sectionizer.Section{
		{Name: "HISTORY", Text: "Hypertension noted. Hypertension again."},
		{Name: "SUMMARY", Text: "Hypertension."},
	}
	linked := map[string][]lib.LinkedEntity{
		"HISTORY": {
			linkedEntity("hypertension", lib.LabelDisease),
			linkedEntity("Hypertension", lib.LabelDisease),
		},
		"SUMMARY": {
			linkedEntity("hypertension", lib.LabelDisease),
		},
	}

	bundle := NewBuilder().Build(sections, linked)

	conditionCount := 0
	for _, entry := range bundle.Entry {
		if _, ok := entry.Resource.(Condition); ok {
			conditionCount++
		}
	}
	assert.Equal(t, 1, conditionCount)
}

func TestBuildObservationIDsConsecutiveAcrossDuplicates(t *testing.T) {
	sections := []sectionizer.Section{
		{Name: "LABS", Text: "SpO2 88%. Repeat SpO2 88%. Potassium 5.0 mmol/L."},
	}
	linked := map[string][]lib.LinkedEntity{
		"LABS": {
			linkedEntity("SpO2", lib.LabelObservation),
			linkedEntity("SpO2", lib.LabelObservation),
			linkedEntity("Potassium", lib.LabelObservation),
		},
	}

	bundle := NewBuilder().Build(sections, linked)

	var ids []string
	for _, entry := range bundle.Entry {
		if observation, ok := entry.Resource.(Observation); ok {
			ids = append(ids, observation.ID)
		}
	}
	assert.Equal(t, []string{"observation-1", "observation-2"}, ids)
}

func TestBuildGenericMedicationSuppressed(t *testing.T) {
	sections := []sectionizer.Section{
		{Name: "FULL_TEXT", Text: "Takes his medication and a tablet of aspirin 75 mg."},
	}
	linked := map[string][]lib.LinkedEntity{
		"FULL_TEXT": {
			linkedEntity("medication", lib.LabelMedication),
			linkedEntity("tablet", lib.LabelMedication),
			linkedEntity("aspirin", lib.LabelMedication),
		},
	}

	bundle := NewBuilder().Build(sections, linked)

	var medications []MedicationStatement
	for _, entry := range bundle.Entry {
		if resource, ok := entry.Resource.(MedicationStatement); ok {
			medications = append(medications, resource)
		}
	}
	assert.Len(t, medications, 1)
	assert.Equal(t, "aspirin", medications[0].MedicationCodeableConcept.Text)
}

func TestBuildUnknownNames(t *testing.T) {
	sections := []sectionizer.Section{
		{Name: "FULL_TEXT", Text: "hypertension."},
	}
	linked := map[string][]lib.LinkedEntity{
		"FULL_TEXT": {linkedEntity("hypertension", lib.LabelDisease)},
	}

	bundle := NewBuilder().Build(sections, linked)

	var patient Patient
	var practitioner Practitioner
	for _, entry := range bundle.Entry {
		switch resource := entry.Resource.(type) {
		case Patient:
			patient = resource
		case Practitioner:
			practitioner = resource
		}
	}
	assert.Equal(t, UnknownPatient, patient.Name[0].Text)
	assert.Empty(t, patient.Gender)
	assert.Equal(t, UnknownPractitioner, practitioner.Name[0].Text)
	assert.Nil(t, patient.ManagingOrganization)
}

func TestBuildObservationValidity(t *testing.T) {
	for _, test := range []struct {
		name     string
		text     string
		entity   string
		expected bool
	}{
		{
			name:     "valued single word observation kept",
			text:     "SpO2 88% on room air",
			entity:   "SpO2",
			expected: true,
		},
		{
			name:     "bare single word observation dropped",
			text:     "glucose trending",
			entity:   "glucose",
			expected: false,
		},
		{
			name:     "multi word observation kept without value",
			text:     "blood pressure stable",
			entity:   "blood pressure",
			expected: true,
		},
		{
			name:     "section furniture dropped",
			text:     "blood history reviewed",
			entity:   "blood history",
			expected: false,
		},
		{
			name:     "no observation keyword dropped",
			text:     "general condition 5",
			entity:   "general condition",
			expected: false,
		},
		{
			name:     "slash in term dropped",
			text:     "A/B pressure 5",
			entity:   "A/B pressure",
			expected: false,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			counter := 0
			nextID := func(string) string {
				counter++
				return "observation-1"
			}
			entity := lib.LinkedEntity{Text: test.entity, Label: lib.LabelObservation}
			_, ok := buildObservation(test.text, entity, test.entity, Reference{}, nextID)
			assert.Equal(t, test.expected, ok)
		})
	}
}

func TestDecodeLinkedDocument(t *testing.T) {
	doc := map[string]interface{}{
		"_meta": map[string]interface{}{"model": "local"},
		"HISTORY": []interface{}{
			map[string]interface{}{
				"text":        "hypertension",
				"label":       "DISEASE",
				"start_char":  10.0,
				"end_char":    22.0,
				"linked_code": "I10",
				"vocabulary":  "conditions",
				"display":     "essential hypertension",
				"confidence":  0.91,
			},
			"not an object",
			map[string]interface{}{"label": "DISEASE"},
		},
		"BROKEN": "not a list",
	}

	decoded := DecodeLinkedDocument(doc)

	assert.NotContains(t, decoded, "_meta")
	assert.NotContains(t, decoded, "BROKEN")
	assert.Equal(t, []lib.LinkedEntity{{
		Text:       "hypertension",
		Label:      "DISEASE",
		StartChar:  10,
		EndChar:    22,
		LinkedCode: "I10",
		Vocabulary: "conditions",
		Display:    "essential hypertension",
		Score:      0.91,
	}}, decoded["HISTORY"])
}
