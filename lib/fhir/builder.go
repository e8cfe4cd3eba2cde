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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/sectionizer"
	"github.com/clinformatics/clindoc/lib/text"
)

// medicationExclusions suppresses placeholder words that name no actual drug.
var medicationExclusions = blocklist.New(
	"medication", "medications", "tablet", "tablets", "drug", "drugs",
	"pill", "pills", "dose", "doses", "injection", "capsule", "capsules",
)

// observationKeywords is the allow list a candidate observation must hit.
var observationKeywords = []string{
	"scan", "pressure", "blood", "vital", "rate", "saturation", "glucose",
	"creatinine", "temperature", "oxygen", "pulse", "spo2", "potassium",
	"sugar", "hba1c", "egfr", "sodium", "haemoglobin", "hemoglobin",
}

// observationExcludedKeywords rejects section furniture masquerading as
// observations.
var observationExcludedKeywords = []string{
	"history", "summary", "section", "report", "plan", "impression",
}

// procedureKeywords promote a general span to a Procedure resource.
var procedureKeywords = []string{
	"surgery", "operation", "biopsy", "angioplasty", "appendectomy",
	"endoscopy", "dialysis", "transplant", "bypass", "stent",
}

var (
	bpValuePattern      = regexp.MustCompile(`(\d{2,3})\s*/\s*(\d{2,3})`)
	numericValuePattern = regexp.MustCompile(`^\s*[:\-]?\s*(?:of|was|is|at)?\s*(\d+(?:\.\d+)?)\s*(%|mmhg|mmHg|mg/dl|mg/dL|mmol/l|mmol/L|µmol/l|µmol/L|umol/l|umol/L|bpm|mg|kg|cm)?`)
	dosePattern         = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*mg\b`)
)

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces one canonical bundle from the document's sections and their
// linked entities. Sections are walked in document order, entities in their
// cleaned order, so identical input yields identical output.
func (b *Builder) Build(sections []sectionizer.Section, linked map[string][]lib.LinkedEntity) *Bundle {
	var entityTexts []string
	for _, section := range sections {
		for _, entity := range linked[section.Name] {
			entityTexts = append(entityTexts, entity.Text)
		}
	}

	person := inferPatient(entityTexts)
	practitionerName := inferPractitioner(entityTexts)

	patient := Patient{
		ResourceType: "Patient",
		ID:           "patient-1",
		Name:         []HumanName{splitName(person.name)},
		Gender:       person.gender,
	}
	practitioner := Practitioner{
		ResourceType: "Practitioner",
		ID:           "practitioner-1",
		Name:         []HumanName{splitName(practitionerName)},
	}

	patientRef := Reference{Reference: "Patient/" + patient.ID, Display: person.name}
	practitionerRef := Reference{Reference: "Practitioner/" + practitioner.ID, Display: practitionerName}
	patient.GeneralPractitioner = []Reference{practitionerRef}

	type taggedEntry struct {
		kind     string
		resource interface{}
	}
	var entries []taggedEntry

	var organization *Organization
	if orgName := inferOrganization(entityTexts); orgName != "" {
		organization = &Organization{ResourceType: "Organization", ID: "organization-1", Name: orgName}
		patient.ManagingOrganization = &Reference{Reference: "Organization/" + organization.ID, Display: orgName}
	}

	seen := map[string]bool{}
	counters := map[string]int{}
	nextID := func(kind string) string {
		counters[kind]++
		return fmt.Sprintf("%s-%d", strings.ToLower(kind), counters[kind])
	}

	for _, section := range sections {
		for _, entity := range linked[section.Name] {
			display := entity.Display
			if display == "" {
				display = entity.Text
			}

			switch entity.Label {
			case lib.LabelDisease:
				key := "condition|" + text.NormalizeTerm(display)
				if seen[key] {
					continue
				}
				seen[key] = true
				entries = append(entries, taggedEntry{kind: "Condition", resource: Condition{
					ResourceType: "Condition",
					ID:           nextID("Condition"),
					Code:         codeableConcept(entity, display),
					Subject:      patientRef,
					Asserter:     &practitionerRef,
				}})

			case lib.LabelMedication, lib.LabelChemical:
				if !medicationExclusions.Allowed(text.NormalizeTerm(display)) {
					// placeholder word, not a drug
					continue
				}
				key := "medication|" + text.NormalizeTerm(display)
				if seen[key] {
					continue
				}
				seen[key] = true
				entries = append(entries, taggedEntry{kind: "MedicationStatement", resource: MedicationStatement{
					ResourceType:              "MedicationStatement",
					ID:                        nextID("MedicationStatement"),
					Status:                    "active",
					MedicationCodeableConcept: codeableConcept(entity, display),
					Subject:                   patientRef,
					Dosage:                    extractDosage(section.Text, entity.Text),
				}})

			case lib.LabelObservation:
				// duplicate check comes first so suppressed repeats never
				// consume an observation id
				key := "observation|" + text.NormalizeTerm(display)
				if seen[key] {
					continue
				}
				observation, ok := buildObservation(section.Text, entity, display, patientRef, nextID)
				if !ok {
					continue
				}
				seen[key] = true
				entries = append(entries, taggedEntry{kind: "Observation", resource: observation})

			case lib.LabelGeneral:
				if !containsKeyword(display, procedureKeywords) {
					continue
				}
				key := "procedure|" + text.NormalizeTerm(display)
				if seen[key] {
					continue
				}
				seen[key] = true
				entries = append(entries, taggedEntry{kind: "Procedure", resource: Procedure{
					ResourceType: "Procedure",
					ID:           nextID("Procedure"),
					Status:       "completed",
					Code:         codeableConcept(entity, display),
					Subject:      patientRef,
					Performer:    []Reference{practitionerRef},
				}})
			}
		}
	}

	entries = append([]taggedEntry{
		{kind: "Patient", resource: patient},
		{kind: "Practitioner", resource: practitioner},
	}, entries...)
	if organization != nil {
		entries = append(entries, taggedEntry{kind: "Organization", resource: *organization})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].kind < entries[j].kind })

	bundle := &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.New().String(),
		Type:         "collection",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	for _, entry := range entries {
		bundle.Entry = append(bundle.Entry, BundleEntry{Resource: entry.resource})
	}

	// the encounter is always the final clinical context record, after the
	// type-sorted entries
	bundle.Entry = append(bundle.Entry, BundleEntry{Resource: Encounter{
		ResourceType: "Encounter",
		ID:           "encounter-1",
		Status:       "finished",
		Subject:      patientRef,
		Participant:  []Reference{practitionerRef},
	}})

	return bundle
}

// buildObservation applies the validity filter and captures any numeric value
// following the term in the section text. Blood-pressure style paired values
// become a two-component observation.
func buildObservation(sectionText string, entity lib.LinkedEntity, display string, patientRef Reference, nextID func(string) string) (Observation, bool) {
	if strings.Contains(display, "/") {
		return Observation{}, false
	}
	if containsKeyword(display, observationExcludedKeywords) {
		return Observation{}, false
	}
	if !containsKeyword(display, observationKeywords) {
		return Observation{}, false
	}

	observation := Observation{
		ResourceType: "Observation",
		Status:       "final",
		Code:         codeableConcept(entity, display),
		Subject:      patientRef,
	}

	trailing := textAfterTerm(sectionText, entity.Text)
	hasValue := false

	if m := bpValuePattern.FindStringSubmatch(trailing); m != nil && isBloodPressure(display) {
		systolic, _ := strconv.ParseFloat(m[1], 64)
		diastolic, _ := strconv.ParseFloat(m[2], 64)
		observation.Component = []ObservationComponent{
			{
				Code:          CodeableConcept{Text: "systolic blood pressure"},
				ValueQuantity: &Quantity{Value: systolic, Unit: "mmHg"},
			},
			{
				Code:          CodeableConcept{Text: "diastolic blood pressure"},
				ValueQuantity: &Quantity{Value: diastolic, Unit: "mmHg"},
			},
		}
		hasValue = true
	} else if m := numericValuePattern.FindStringSubmatch(trailing); m != nil && m[1] != "" {
		value, _ := strconv.ParseFloat(m[1], 64)
		observation.ValueQuantity = &Quantity{Value: value, Unit: m[2]}
		hasValue = true
	}

	// single bare words are spurious; a trailing value counts as a token
	tokens := text.TokenCount(display)
	if hasValue {
		tokens++
	}
	if tokens < 2 {
		return Observation{}, false
	}

	observation.ID = nextID("Observation")
	return observation, true
}

func isBloodPressure(display string) bool {
	lower := strings.ToLower(display)
	return strings.Contains(lower, "pressure") || strings.Contains(lower, "bp")
}

// textAfterTerm returns the slice of sectionText immediately after the first
// case-insensitive occurrence of term, bounded to a short window.
func textAfterTerm(sectionText, term string) string {
	lower := strings.ToLower(sectionText)
	i := strings.Index(lower, strings.ToLower(term))
	if i < 0 {
		return ""
	}
	rest := sectionText[i+len(term):]
	if len(rest) > 40 {
		rest = rest[:40]
	}
	return rest
}

func extractDosage(sectionText, term string) []Dosage {
	trailing := textAfterTerm(sectionText, term)
	if m := dosePattern.FindStringSubmatch(trailing); m != nil {
		return []Dosage{{Text: m[1] + " mg"}}
	}
	return nil
}

func codeableConcept(entity lib.LinkedEntity, display string) CodeableConcept {
	concept := CodeableConcept{Text: display}
	if entity.Linked() {
		concept.Coding = []Coding{{
			System:  entity.Vocabulary,
			Code:    entity.LinkedCode,
			Display: entity.Display,
		}}
	}
	return concept
}

func containsKeyword(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// DecodeLinkedDocument converts the external linked-entity JSON shape into
// per-section entities. The _meta key is run provenance, not a section, and
// malformed or non-object entries are skipped silently.
func DecodeLinkedDocument(doc map[string]interface{}) map[string][]lib.LinkedEntity {
	res := make(map[string][]lib.LinkedEntity, len(doc))
	for sectionName, raw := range doc {
		if sectionName == "_meta" {
			continue
		}
		list, ok := raw.([]interface{})
		if !ok {
			continue
		}

		entities := make([]lib.LinkedEntity, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			entityText, ok := m["text"].(string)
			if !ok || entityText == "" {
				continue
			}

			entity := lib.LinkedEntity{Text: entityText}
			entity.Label, _ = m["label"].(string)
			entity.LinkedCode, _ = m["linked_code"].(string)
			entity.Vocabulary, _ = m["vocabulary"].(string)
			entity.Display, _ = m["display"].(string)
			if v, ok := m["start_char"].(float64); ok {
				entity.StartChar = int(v)
			}
			if v, ok := m["end_char"].(float64); ok {
				entity.EndChar = int(v)
			}
			if v, ok := m["confidence"].(float64); ok {
				entity.Score = v
			}
			entities = append(entities, entity)
		}
		res[sectionName] = entities
	}
	return res
}
