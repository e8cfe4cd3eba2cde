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

package cleaner

import (
	"strings"
	"unicode/utf8"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/text"
)

// triggerWindow is how far either side of a candidate's first occurrence we
// look for prescribing language, in characters.
const triggerWindow = 100

const maxCandidateTokens = 3

// drugSuffixes and drugTerms are the lexical evidence that a phrase names a
// medication.
var drugSuffixes = []string{
	"pril", "sartan", "olol", "statin", "azole", "cillin", "mycin",
	"cycline", "oxacin", "dipine", "formin", "parin", "zepam", "profen",
	"caine", "tide", "gliptin", "prazole", "semide", "oxetine", "traline",
}

var drugTerms = map[string]bool{
	"aspirin": true, "insulin": true, "warfarin": true, "paracetamol": true,
	"ibuprofen": true, "naproxen": true, "metformin": true, "digoxin": true,
	"prednisolone": true, "salbutamol": true, "levothyroxine": true,
	"codeine": true, "morphine": true, "tramadol": true, "heparin": true,
}

// triggerPhrases are prescribing language that marks the surrounding text as
// medication context.
var triggerPhrases = []string{
	"prescribed", "started on", "dose of", "commenced on", "switched to",
	"takes", "taking", "administered", "continue on", "mg of",
	"is on", "remains on",
}

// candidateExclusions are phrases that are never medication candidates no
// matter the surrounding text.
var candidateExclusions = blocklist.New(
	"patient", "doctor", "hospital", "clinic", "history", "examination",
	"review", "blood", "pressure", "daily", "tablet", "medication",
)

// SetCandidateExclusions replaces the medication-candidate exclusion list,
// typically from a configured blocklist file. Call before processing starts.
func SetCandidateExclusions(exclusions *blocklist.Blocklist) {
	candidateExclusions = exclusions
}

// detectMedication looks for lexical and contextual medication evidence for a
// candidate phrase within its section. It reports the assigned confidence and
// whether the entity should be relabelled MEDICATION at all.
func detectMedication(section string, entity lib.Entity) (lib.Confidence, bool) {
	if !isMedicationCandidate(entity.Text) {
		return "", false
	}

	lexical := hasLexicalEvidence(entity.Text)
	contextual := hasContextualEvidence(section, entity.Text)

	switch {
	case lexical && contextual:
		return lib.ConfidenceHigh, true
	case contextual:
		return lib.ConfidenceMedium, true
	case lexical:
		return lib.ConfidenceLow, true
	default:
		return "", false
	}
}

func isMedicationCandidate(span string) bool {
	if strings.ContainsAny(span, `/-"'`) {
		return false
	}
	if text.TokenCount(span) > maxCandidateTokens {
		return false
	}
	return candidateExclusions.Allowed(text.NormalizeTerm(span))
}

func hasLexicalEvidence(span string) bool {
	for _, tok := range text.Tokenize(strings.ToLower(span)) {
		if drugTerms[tok.Text] {
			return true
		}
		for _, suffix := range drugSuffixes {
			if strings.HasSuffix(tok.Text, suffix) && len(tok.Text) > len(suffix) {
				return true
			}
		}
	}
	return false
}

func hasContextualEvidence(section, span string) bool {
	// the window arithmetic is byte-based and assumes ToLower preserves byte
	// positions, which holds for ASCII input; the rune clamps below keep the
	// slice valid utf8 regardless
	lowerSection := strings.ToLower(section)
	first := strings.Index(lowerSection, strings.ToLower(span))
	if first < 0 {
		return false
	}

	start := first - triggerWindow
	if start < 0 {
		start = 0
	}
	end := first + len(span) + triggerWindow
	if end > len(lowerSection) {
		end = len(lowerSection)
	}
	// clamp to rune boundaries so the slice stays valid utf8
	for start > 0 && !utf8.RuneStart(lowerSection[start]) {
		start--
	}
	for end < len(lowerSection) && !utf8.RuneStart(lowerSection[end]) {
		end++
	}

	window := lowerSection[start:end]
	for _, phrase := range triggerPhrases {
		if strings.Contains(window, phrase) {
			return true
		}
	}
	return false
}
