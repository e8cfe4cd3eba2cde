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
	"regexp"
	"strings"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/text"
)

const maxEntityTokens = 6

// chemicalSuffixes are word endings that make a CHEMICAL span clinically
// plausible.
var chemicalSuffixes = []string{
	"ine", "ol", "ide", "ate", "one", "in", "an", "cin", "mab", "pril",
	"sartan", "statin", "azole", "mycin", "illin", "oxacin", "profen",
	"formin", "dipine", "parin",
}

// genericWords are everyday words a NER model sometimes tags as chemicals.
var genericWords = map[string]bool{
	"the": true, "and": true, "with": true, "was": true, "has": true,
	"normal": true, "left": true, "right": true, "blood": true, "test": true,
	"tests": true, "taken": true, "given": true, "noted": true, "stable": true,
	"patient": true, "report": true, "results": true, "history": true,
	"daily": true, "review": true, "plan": true, "scan": true,
}

// contextKeywords reroute generic ENTITY spans to CONTEXT.
var contextKeywords = []string{
	"hospital", "clinic", "date", "name", "address", "ward", "department",
	"street", "city", "dob", "phone", "gp", "surgery", "practice",
}

var (
	properNounPattern     = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+)+$`)
	alphabeticPattern     = regexp.MustCompile(`^[A-Za-z]+$`)
	possessiveBodyPattern = regexp.MustCompile(
		`(?i)\b(?:his|her|their|my)\s+(?:mind|head|heart|body|arm|leg|chest|back|eye|eyes|hand|hands|foot|feet|stomach)\b`)
)

// keepChemical is the false-positive filter for CHEMICAL spans. A span
// survives only when it is long enough, is not just generic words, ends in a
// clinically plausible suffix, and does not look like a capitalized person
// name.
func keepChemical(entity lib.Entity) bool {
	span := strings.TrimSpace(entity.Text)
	if len(span) <= 3 {
		return false
	}

	if properNounPattern.MatchString(span) {
		// a name, not a chemical
		return false
	}

	tokens := text.Tokenize(span)
	if len(tokens) <= 2 {
		allGeneric := true
		for _, tok := range tokens {
			if !alphabeticPattern.MatchString(tok.Text) || !genericWords[strings.ToLower(tok.Text)] {
				allGeneric = false
				break
			}
		}
		if allGeneric {
			return false
		}
	}

	lower := strings.ToLower(span)
	for _, suffix := range chemicalSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// remapGenericLabel reroutes a bare ENTITY to CONTEXT when the text smells
// organizational or demographic, GENERAL otherwise.
func remapGenericLabel(entity lib.Entity) lib.Entity {
	if entity.Label != lib.LabelEntity {
		return entity
	}

	lower := strings.ToLower(entity.Text)
	for _, keyword := range contextKeywords {
		if strings.Contains(lower, keyword) {
			entity.Label = lib.LabelContext
			return entity
		}
	}
	entity.Label = lib.LabelGeneral
	return entity
}

// isSentenceFragment rejects DISEASE/MEDICATION spans that are really chunks
// of prose: too many tokens, or a possessive-plus-body-part phrase.
func isSentenceFragment(entity lib.Entity) bool {
	if entity.Label != lib.LabelDisease && entity.Label != lib.LabelMedication {
		return false
	}
	if text.TokenCount(entity.Text) > maxEntityTokens {
		return true
	}
	return possessiveBodyPattern.MatchString(entity.Text)
}
