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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/clinformatics/clindoc/lib/fhir"
	"github.com/clinformatics/clindoc/lib/text"
)

// Vital thresholds, evaluated after unit normalisation.
const (
	systolicCrisisThreshold  = 180.0
	hypoxemiaThreshold       = 90.0
	hyperkalemiaThreshold    = 5.5
	highCreatinineThreshold  = 150.0
	hyperglycaemiaThreshold  = 11.0
	lowDoseAspirinUpperBound = 150.0
)

// Finding is a single triggered rule with its provenance: the condition
// names, medication names and observation messages that caused it.
type Finding struct {
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Conditions   []string `json:"conditions,omitempty"`
	Medications  []string `json:"medications,omitempty"`
	Observations []string `json:"observations,omitempty"`
}

type Report struct {
	HighRisk       []Finding `json:"high_risk"`
	ModerateRisk   []Finding `json:"moderate_risk"`
	AbnormalVitals []string  `json:"abnormal_vitals"`
	Notes          []string  `json:"notes"`
	Summary        string    `json:"summary"`
}

// PreFlaggedIssue is an externally supplied annotation folded into the
// report's notes.
type PreFlaggedIssue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type medicationFact struct {
	name   string
	doseMg float64
}

type observationFact struct {
	name     string
	value    float64
	unit     string
	hasValue bool
}

type clinicalFacts struct {
	conditions   []string
	medications  []medicationFact
	observations []observationFact
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate walks the rule table against the bundle's conditions, medications
// and observations. A nil bundle is not an error: it yields the explicit
// "No FHIR data" report so callers downstream always receive a well-formed
// document.
func (engine *Engine) Evaluate(bundle *fhir.Bundle, preFlagged []PreFlaggedIssue) *Report {
	report := &Report{
		HighRisk:       []Finding{},
		ModerateRisk:   []Finding{},
		AbnormalVitals: []string{},
		Notes:          []string{},
	}

	if bundle == nil {
		report.Notes = append(report.Notes, "No FHIR data")
		report.Summary = "No red flags detected"
		return report
	}

	facts := collectFacts(bundle)
	facts.observations = normalizeObservations(facts.observations)

	conditionHits := matchCategories(facts.conditions, conditionCategories)
	medicationHits := matchCategories(medicationNames(facts.medications), medicationClasses)
	vitals, labFlags := evaluateVitals(facts.observations)
	report.AbnormalVitals = vitals

	addFinding := func(finding Finding) {
		switch finding.Severity {
		case SeverityHigh:
			report.HighRisk = append(report.HighRisk, finding)
		default:
			report.ModerateRisk = append(report.ModerateRisk, finding)
		}
	}

	for _, rule := range comorbidityRules {
		first, second := conditionHits[rule.first], conditionHits[rule.second]
		if len(first) == 0 || len(second) == 0 {
			continue
		}
		addFinding(Finding{
			Severity:   rule.severity,
			Message:    rule.message,
			Conditions: mergeSorted(first, second),
		})
	}

	for _, rule := range drugConditionRules {
		drugs, conditions := medicationHits[rule.class], conditionHits[rule.condition]
		if len(drugs) == 0 || len(conditions) == 0 {
			continue
		}
		if rule.lowDoseAspirinExempt && lowDoseAspirinOnly(facts.medications) {
			continue
		}
		addFinding(Finding{
			Severity:    rule.severity,
			Message:     rule.message,
			Conditions:  conditions,
			Medications: drugs,
		})
	}

	for _, rule := range drugDrugRules {
		first, second := medicationHits[rule.first], medicationHits[rule.second]
		if len(first) == 0 || len(second) == 0 {
			continue
		}
		addFinding(Finding{
			Severity:    rule.severity,
			Message:     rule.message,
			Medications: mergeSorted(first, second),
		})
	}

	for _, rule := range drugLabRules {
		var drugs []string
		for _, class := range rule.classes {
			drugs = append(drugs, medicationHits[class]...)
		}
		if len(drugs) == 0 || labFlags[rule.lab] == "" {
			continue
		}
		sort.Strings(drugs)
		addFinding(Finding{
			Severity:     rule.severity,
			Message:      rule.message,
			Medications:  drugs,
			Observations: []string{labFlags[rule.lab]},
		})
	}

	for _, issue := range preFlagged {
		severity := issue.Severity
		if severity == "" {
			severity = "note"
		}
		report.Notes = append(report.Notes, fmt.Sprintf("[%s] %s", severity, issue.Message))
	}

	sortFindings(report.HighRisk)
	sortFindings(report.ModerateRisk)
	sortByNormalized(report.AbnormalVitals)
	sortByNormalized(report.Notes)

	if len(report.HighRisk) == 0 && len(report.ModerateRisk) == 0 && len(report.AbnormalVitals) == 0 {
		report.Summary = "No red flags detected"
	} else {
		report.Summary = fmt.Sprintf("%d high risk, %d moderate risk, %d abnormal vitals",
			len(report.HighRisk), len(report.ModerateRisk), len(report.AbnormalVitals))
	}
	return report
}

// lowDoseAspirinOnly reports whether aspirin at or below 150 mg is the only
// NSAID-class medication on the record. An aspirin entry with no recorded
// dose does not qualify, and any non-aspirin NSAID disqualifies the whole
// record regardless of aspirin dose.
func lowDoseAspirinOnly(medications []medicationFact) bool {
	aspirinSeen := false
	for _, medication := range medications {
		normalized := text.NormalizeTerm(medication.name)
		isNSAID := false
		for _, keyword := range medicationClasses[ClassNSAID] {
			if strings.Contains(normalized, keyword) {
				isNSAID = true
				break
			}
		}
		if !isNSAID {
			continue
		}
		if !strings.Contains(normalized, "aspirin") {
			return false
		}
		if medication.doseMg <= 0 || medication.doseMg > lowDoseAspirinUpperBound {
			return false
		}
		aspirinSeen = true
	}
	return aspirinSeen
}

// evaluateVitals converts abnormal observation values into vital messages and
// lab flags for the drug-lab rules.
func evaluateVitals(observations []observationFact) ([]string, map[string]string) {
	vitals := []string{}
	labFlags := map[string]string{}

	record := func(message string, lab string) {
		vitals = append(vitals, message)
		if lab != "" {
			labFlags[lab] = message
		}
	}

	for _, observation := range observations {
		if !observation.hasValue {
			continue
		}
		name := text.NormalizeTerm(observation.name)
		value := formatValue(observation.value)

		switch {
		case strings.Contains(name, "systolic") && observation.value >= systolicCrisisThreshold:
			record("Hypertensive crisis systolic blood pressure "+value, "")
		case strings.Contains(name, "spo2") || strings.Contains(name, "oxygen saturation") || strings.Contains(name, "saturation"):
			if observation.value < hypoxemiaThreshold {
				record("Hypoxemia oxygen saturation "+value+"%", "")
			}
		case strings.Contains(name, "potassium") && observation.value > hyperkalemiaThreshold:
			record("Hyperkalemia potassium "+value+" mmol/L", labHyperkalemia)
		case strings.Contains(name, "creatinine") && observation.value > highCreatinineThreshold:
			record("Elevated creatinine "+value+" µmol/L", labRenalImpairment)
		case strings.Contains(name, "glucose") && observation.value > hyperglycaemiaThreshold:
			record("Hyperglycaemia glucose "+value+" mmol/L", "")
		}
	}
	return vitals, labFlags
}

// normalizeObservations rewrites lab values into SI units before thresholds
// are applied.
func normalizeObservations(observations []observationFact) []observationFact {
	res := make([]observationFact, 0, len(observations))
	for _, observation := range observations {
		if observation.hasValue {
			name := text.NormalizeTerm(observation.name)
			if strings.Contains(name, "glucose") {
				observation.value, observation.unit = NormalizeGlucose(observation.value, observation.unit)
			} else if strings.Contains(name, "creatinine") {
				observation.value, observation.unit = NormalizeCreatinine(observation.value, observation.unit)
			}
		}
		res = append(res, observation)
	}
	return res
}

var doseMgPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*mg\b`)

// collectFacts extracts conditions, medications and observations from the
// bundle. Resources arrive typed when the bundle was built in process and as
// generic maps when it was decoded from JSON; anything unrecognised is
// skipped.
func collectFacts(bundle *fhir.Bundle) clinicalFacts {
	var facts clinicalFacts
	for _, entry := range bundle.Entry {
		switch resource := entry.Resource.(type) {
		case fhir.Condition:
			facts.conditions = append(facts.conditions, conceptText(resource.Code))
		case fhir.MedicationStatement:
			facts.medications = append(facts.medications, medicationFact{
				name:   conceptText(resource.MedicationCodeableConcept),
				doseMg: doseFromDosage(resource.Dosage),
			})
		case fhir.Observation:
			facts.observations = append(facts.observations, typedObservationFacts(resource)...)
		case map[string]interface{}:
			facts = absorbMapResource(facts, resource)
		}
	}
	return facts
}

func typedObservationFacts(observation fhir.Observation) []observationFact {
	name := conceptText(observation.Code)
	if len(observation.Component) > 0 {
		facts := make([]observationFact, 0, len(observation.Component))
		for _, component := range observation.Component {
			if component.ValueQuantity == nil {
				continue
			}
			facts = append(facts, observationFact{
				name:     conceptText(component.Code),
				value:    component.ValueQuantity.Value,
				unit:     component.ValueQuantity.Unit,
				hasValue: true,
			})
		}
		return facts
	}
	if observation.ValueQuantity != nil {
		return []observationFact{{name: name, value: observation.ValueQuantity.Value, unit: observation.ValueQuantity.Unit, hasValue: true}}
	}
	return []observationFact{{name: name}}
}

// absorbMapResource handles JSON-decoded bundle entries.
func absorbMapResource(facts clinicalFacts, resource map[string]interface{}) clinicalFacts {
	resourceType, _ := resource["resourceType"].(string)
	switch resourceType {
	case "Condition":
		if name := mapConceptText(resource["code"]); name != "" {
			facts.conditions = append(facts.conditions, name)
		}
	case "MedicationStatement":
		name := mapConceptText(resource["medicationCodeableConcept"])
		if name == "" {
			return facts
		}
		fact := medicationFact{name: name}
		if dosages, ok := resource["dosage"].([]interface{}); ok {
			for _, raw := range dosages {
				if dosage, ok := raw.(map[string]interface{}); ok {
					if dosageText, ok := dosage["text"].(string); ok {
						if m := doseMgPattern.FindStringSubmatch(dosageText); m != nil {
							fact.doseMg, _ = strconv.ParseFloat(m[1], 64)
							break
						}
					}
				}
			}
		}
		facts.medications = append(facts.medications, fact)
	case "Observation":
		name := mapConceptText(resource["code"])
		if components, ok := resource["component"].([]interface{}); ok && len(components) > 0 {
			for _, raw := range components {
				component, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				if fact, ok := mapQuantityFact(mapConceptText(component["code"]), component["valueQuantity"]); ok {
					facts.observations = append(facts.observations, fact)
				}
			}
			return facts
		}
		if name == "" {
			return facts
		}
		if fact, ok := mapQuantityFact(name, resource["valueQuantity"]); ok {
			facts.observations = append(facts.observations, fact)
		} else {
			facts.observations = append(facts.observations, observationFact{name: name})
		}
	}
	return facts
}

func mapQuantityFact(name string, raw interface{}) (observationFact, bool) {
	quantity, ok := raw.(map[string]interface{})
	if !ok || name == "" {
		return observationFact{}, false
	}
	value, ok := quantity["value"].(float64)
	if !ok {
		return observationFact{}, false
	}
	unit, _ := quantity["unit"].(string)
	return observationFact{name: name, value: value, unit: unit, hasValue: true}, true
}

func mapConceptText(raw interface{}) string {
	concept, ok := raw.(map[string]interface{})
	if !ok {
		return ""
	}
	if conceptText, ok := concept["text"].(string); ok {
		return conceptText
	}
	return ""
}

func conceptText(concept fhir.CodeableConcept) string {
	if concept.Text != "" {
		return concept.Text
	}
	if len(concept.Coding) > 0 {
		return concept.Coding[0].Display
	}
	return ""
}

func doseFromDosage(dosages []fhir.Dosage) float64 {
	for _, dosage := range dosages {
		if m := doseMgPattern.FindStringSubmatch(dosage.Text); m != nil {
			dose, _ := strconv.ParseFloat(m[1], 64)
			return dose
		}
	}
	return 0
}

func medicationNames(medications []medicationFact) []string {
	names := make([]string, 0, len(medications))
	for _, medication := range medications {
		names = append(names, medication.name)
	}
	return names
}

func mergeSorted(first, second []string) []string {
	merged := append(append([]string{}, first...), second...)
	sort.Strings(merged)
	return merged
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return text.NormalizeTerm(findings[i].Message) < text.NormalizeTerm(findings[j].Message)
	})
}

func sortByNormalized(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		return text.NormalizeTerm(values[i]) < text.NormalizeTerm(values[j])
	})
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
