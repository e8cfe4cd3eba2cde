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

// Package lexicon is the domain-specific recognition pass: a dictionary of
// clinical terms per label, matched case-insensitively with character offsets.
// It is fully deterministic and carries no model state.
package lexicon

import (
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/text"
)

// defaultTerms is the built-in mini dictionary used when no lexicon file is
// configured. Terms are stored in normalized form.
var defaultTerms = map[string][]string{
	lib.LabelDisease: {
		"hypertension", "asthma", "stroke", "diabetes", "type 2 diabetes",
		"chronic kidney disease", "ckd", "renal impairment", "heart failure",
		"atrial fibrillation", "hyperkalemia", "hyperkalaemia", "pneumonia",
		"copd", "depression", "angina", "myocardial infarction", "anaemia",
	},
	lib.LabelMedication: {
		"aspirin", "ibuprofen", "naproxen", "diclofenac", "metformin",
		"lisinopril", "ramipril", "enalapril", "losartan", "candesartan",
		"valsartan", "atenolol", "bisoprolol", "propranolol", "metoprolol",
		"warfarin", "apixaban", "rivaroxaban", "heparin", "sertraline",
		"fluoxetine", "phenelzine", "amlodipine", "atorvastatin", "insulin",
		"paracetamol", "furosemide", "spironolactone",
	},
	lib.LabelObservation: {
		"blood pressure", "systolic blood pressure", "diastolic blood pressure",
		"spo2", "oxygen saturation", "glucose", "blood glucose", "creatinine",
		"serum creatinine", "heart rate", "pulse", "temperature",
		"respiratory rate", "potassium", "hba1c", "egfr",
	},
}

type Recogniser struct {
	// terms maps a normalized term to its label. Longer terms win when
	// spans collide.
	terms map[string]string
}

func (r *Recogniser) Name() string {
	return "lexicon"
}

// New builds a lexicon recogniser from the built-in dictionary plus any extra
// label -> terms entries.
func New(extra map[string][]string) *Recogniser {
	terms := map[string]string{}
	for label, list := range defaultTerms {
		for _, term := range list {
			terms[text.NormalizeTerm(term)] = label
		}
	}
	for label, list := range extra {
		for _, term := range list {
			terms[text.NormalizeTerm(term)] = label
		}
	}
	return &Recogniser{terms: terms}
}

// Load reads a yaml file of label -> term list entries and merges it over the
// built-in dictionary.
func Load(path string) (*Recogniser, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var extra map[string][]string
	if err := yaml.Unmarshal(b, &extra); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("lexicon terms loaded")

	return New(extra), nil
}

// Recognise scans section for every dictionary term and emits an entity per
// occurrence with character offsets. Matches are whole-word: a term inside a
// longer alphanumeric run does not count.
func (r *Recogniser) Recognise(section string) ([]lib.Entity, error) {
	// byte offsets found in the lowered copy index the original section;
	// ToLower preserves byte positions for the ASCII text the dictionary
	// terms target
	lower := strings.ToLower(section)

	var entities []lib.Entity
	for term, label := range r.terms {
		for _, byteStart := range wholeWordOccurrences(lower, term) {
			charStart := utf8.RuneCountInString(section[:byteStart])
			entities = append(entities, lib.Entity{
				Text:      section[byteStart : byteStart+len(term)],
				Label:     label,
				StartChar: charStart,
				EndChar:   charStart + utf8.RuneCountInString(term),
			})
		}
	}

	// map iteration order must not leak into the output
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].StartChar != entities[j].StartChar {
			return entities[i].StartChar < entities[j].StartChar
		}
		if entities[i].EndChar != entities[j].EndChar {
			return entities[i].EndChar > entities[j].EndChar
		}
		return entities[i].Label < entities[j].Label
	})

	return entities, nil
}

func wholeWordOccurrences(haystack, needle string) []int {
	var offsets []int
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return offsets
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			offsets = append(offsets, start)
		}
		from = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
