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

package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinformatics/clindoc/lib/fhir"
)

func condition(name string) fhir.BundleEntry {
	return fhir.BundleEntry{Resource: fhir.Condition{
		ResourceType: "Condition",
		Code:         fhir.CodeableConcept{Text: name},
	}}
}

func medication(name, dose string) fhir.BundleEntry {
	statement := fhir.MedicationStatement{
		ResourceType:              "MedicationStatement",
		MedicationCodeableConcept: fhir.CodeableConcept{Text: name},
	}
	if dose != "" {
		statement.Dosage = []fhir.Dosage{{Text: dose}}
	}
	return fhir.BundleEntry{Resource: statement}
}

func observation(name string, value float64, unit string) fhir.BundleEntry {
	return fhir.BundleEntry{Resource: fhir.Observation{
		ResourceType:  "Observation",
		Code:          fhir.CodeableConcept{Text: name},
		ValueQuantity: &fhir.Quantity{Value: value, Unit: unit},
	}}
}

func bundleOf(entries ...fhir.BundleEntry) *fhir.Bundle {
	return &fhir.Bundle{ResourceType: "Bundle", Type: "collection", Entry: entries}
}

func messages(findings []Finding) []string {
	res := make([]string, 0, len(findings))
	for _, finding := range findings {
		res = append(res, finding.Message)
	}
	return res
}

func TestUnitNormalization(t *testing.T) {
	value, unit := NormalizeGlucose(180, "mg/dL")
	assert.Equal(t, 10.0, value)
	assert.Equal(t, "mmol/L", unit)

	value, unit = NormalizeGlucose(6.2, "mmol/L")
	assert.Equal(t, 6.2, value)
	assert.Equal(t, "mmol/L", unit)

	value, unit = NormalizeCreatinine(1.0, "mg/dL")
	assert.Equal(t, 88.4, value)
	assert.Equal(t, "µmol/L", unit)

	value, unit = NormalizeCreatinine(90, "µmol/L")
	assert.Equal(t, 90.0, value)
	assert.Equal(t, "µmol/L", unit)
}

func TestEvaluateComorbidity(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(
		condition("previous stroke"),
		condition("essential hypertension"),
	), nil)

	assert.Equal(t, []string{"Stroke history with hypertension"}, messages(report.HighRisk))
	assert.Equal(t, []string{"essential hypertension", "previous stroke"}, report.HighRisk[0].Conditions)
	assert.Empty(t, report.ModerateRisk)
	assert.Equal(t, "1 high risk, 0 moderate risk, 0 abnormal vitals", report.Summary)
}

func TestEvaluateDrugCondition(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(
		condition("chronic kidney disease stage 3"),
		medication("ibuprofen", "400 mg"),
	), nil)

	assert.Equal(t, []string{"NSAID use with chronic kidney disease"}, messages(report.HighRisk))
	assert.Equal(t, []string{"ibuprofen"}, report.HighRisk[0].Medications)
}

func TestEvaluateAspirinException(t *testing.T) {
	for _, test := range []struct {
		name     string
		entries  []fhir.BundleEntry
		expected bool
	}{
		{
			name: "low dose aspirin alone suppresses the rule",
			entries: []fhir.BundleEntry{
				condition("CKD"),
				medication("aspirin", "75 mg"),
			},
			expected: false,
		},
		{
			name: "high dose aspirin fires the rule",
			entries: []fhir.BundleEntry{
				condition("CKD"),
				medication("aspirin", "325 mg"),
			},
			expected: true,
		},
		{
			name: "aspirin with no recorded dose fires the rule",
			entries: []fhir.BundleEntry{
				condition("CKD"),
				medication("aspirin", ""),
			},
			expected: true,
		},
		{
			name: "another NSAID disables the exception regardless of dose",
			entries: []fhir.BundleEntry{
				condition("CKD"),
				medication("aspirin", "75 mg"),
				medication("ibuprofen", "200 mg"),
			},
			expected: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			report := NewEngine().Evaluate(bundleOf(test.entries...), nil)
			assert.Equal(t, test.expected,
				len(report.HighRisk) > 0 && report.HighRisk[0].Message == "NSAID use with chronic kidney disease")
		})
	}
}

func TestEvaluateDrugDrug(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(
		medication("sertraline", ""),
		medication("phenelzine", ""),
	), nil)

	assert.Equal(t, []string{"SSRI combined with MAOI"}, messages(report.HighRisk))
	assert.Equal(t, []string{"phenelzine", "sertraline"}, report.HighRisk[0].Medications)
}

func TestEvaluateDrugLab(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(
		medication("ramipril", "5 mg"),
		observation("potassium", 5.9, "mmol/L"),
	), nil)

	assert.Equal(t, []string{"ACE inhibitor or ARB with hyperkalemia"}, messages(report.HighRisk))
	assert.Equal(t, []string{"Hyperkalemia potassium 5.9 mmol/L"}, report.HighRisk[0].Observations)
	assert.Equal(t, []string{"Hyperkalemia potassium 5.9 mmol/L"}, report.AbnormalVitals)
}

func TestEvaluateMetforminCreatinineMgPerDl(t *testing.T) {
	// 2.0 mg/dL creatinine is 176.8 µmol/L, above the renal threshold
	report := NewEngine().Evaluate(bundleOf(
		medication("metformin", "500 mg"),
		observation("creatinine", 2.0, "mg/dL"),
	), nil)

	assert.Equal(t, []string{"Metformin with renal impairment"}, messages(report.ModerateRisk))
	assert.Equal(t, []string{"Elevated creatinine 176.8 µmol/L"}, report.AbnormalVitals)
}

func TestEvaluateVitalThresholds(t *testing.T) {
	bloodPressure := fhir.BundleEntry{Resource: fhir.Observation{
		ResourceType: "Observation",
		Code:         fhir.CodeableConcept{Text: "blood pressure"},
		Component: []fhir.ObservationComponent{
			{Code: fhir.CodeableConcept{Text: "systolic blood pressure"}, ValueQuantity: &fhir.Quantity{Value: 185, Unit: "mmHg"}},
			{Code: fhir.CodeableConcept{Text: "diastolic blood pressure"}, ValueQuantity: &fhir.Quantity{Value: 90, Unit: "mmHg"}},
		},
	}}

	report := NewEngine().Evaluate(bundleOf(
		bloodPressure,
		observation("SpO2", 88, "%"),
	), nil)

	assert.Equal(t, []string{
		"Hypertensive crisis systolic blood pressure 185",
		"Hypoxemia oxygen saturation 88%",
	}, report.AbnormalVitals)
	assert.Equal(t, "0 high risk, 0 moderate risk, 2 abnormal vitals", report.Summary)
}

func TestEvaluateNormalVitalsQuiet(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(
		observation("SpO2", 97, "%"),
		observation("potassium", 4.2, "mmol/L"),
	), nil)

	assert.Empty(t, report.AbnormalVitals)
	assert.Equal(t, "No red flags detected", report.Summary)
}

func TestEvaluatePreFlaggedIssues(t *testing.T) {
	report := NewEngine().Evaluate(bundleOf(), []PreFlaggedIssue{
		{Severity: "high", Message: "penicillin allergy recorded"},
		{Message: "document truncated"},
	})

	assert.Equal(t, []string{
		"[high] penicillin allergy recorded",
		"[note] document truncated",
	}, report.Notes)
	assert.Equal(t, "No red flags detected", report.Summary)
}

func TestEvaluateNilBundle(t *testing.T) {
	report := NewEngine().Evaluate(nil, nil)

	assert.Empty(t, report.HighRisk)
	assert.Empty(t, report.ModerateRisk)
	assert.Empty(t, report.AbnormalVitals)
	assert.Equal(t, []string{"No FHIR data"}, report.Notes)
	assert.Equal(t, "No red flags detected", report.Summary)
}

func TestEvaluateDeterminism(t *testing.T) {
	bundle := bundleOf(
		condition("stroke"),
		condition("hypertension"),
		condition("heart failure"),
		condition("chronic kidney disease"),
		medication("ibuprofen", "400 mg"),
		medication("warfarin", ""),
		observation("SpO2", 85, "%"),
	)

	first := NewEngine().Evaluate(bundle, nil)
	second := NewEngine().Evaluate(bundle, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Render(), second.Render())
}

func TestEvaluateMapResources(t *testing.T) {
	bundle := &fhir.Bundle{Entry: []fhir.BundleEntry{
		{Resource: map[string]interface{}{
			"resourceType": "Condition",
			"code":         map[string]interface{}{"text": "asthma"},
		}},
		{Resource: map[string]interface{}{
			"resourceType":              "MedicationStatement",
			"medicationCodeableConcept": map[string]interface{}{"text": "propranolol"},
			"dosage":                    []interface{}{map[string]interface{}{"text": "40 mg"}},
		}},
		{Resource: map[string]interface{}{
			"resourceType":  "Observation",
			"code":          map[string]interface{}{"text": "glucose"},
			"valueQuantity": map[string]interface{}{"value": 250.0, "unit": "mg/dL"},
		}},
		{Resource: map[string]interface{}{"resourceType": "Unknown"}},
		{Resource: "garbage"},
	}}

	report := NewEngine().Evaluate(bundle, nil)

	assert.Equal(t, []string{"Beta-blocker prescribed with asthma"}, messages(report.HighRisk))
	assert.Equal(t, []string{"Hyperglycaemia glucose 13.89 mmol/L"}, report.AbnormalVitals)
}

func TestRender(t *testing.T) {
	report := NewEngine().Evaluate(nil, nil)
	rendered := report.Render()

	assert.Contains(t, rendered, "SAFETY REPORT")
	assert.Contains(t, rendered, "High risk:\n  none")
	assert.Contains(t, rendered, "Notes:\n  - No FHIR data")
	assert.Contains(t, rendered, "Summary: No red flags detected")
}
