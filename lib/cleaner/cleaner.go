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

// Package cleaner merges recognition passes, filters false positives, and
// assigns confidence. Cleaning the output of a clean is a no-op: every rule
// is a deterministic function of the section text and the entity itself.
package cleaner

import (
	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/recogniser"
	"github.com/clinformatics/clindoc/lib/sectionizer"
	"github.com/clinformatics/clindoc/lib/text"
)

// entityExclusions drops bare function words that statistical recognisers
// occasionally emit as standalone spans.
var entityExclusions = blocklist.New(
	"the", "a", "an", "and", "or", "of", "with", "on", "in", "is", "was", "has",
)

type Cleaner struct {
	recognisers []recogniser.Client
}

func New(recognisers ...recogniser.Client) *Cleaner {
	return &Cleaner{recognisers: recognisers}
}

// CleanSections runs every recogniser over every section and cleans the
// combined output. A recogniser failure contributes nothing for that section
// but never aborts the others; the section still appears in the result, with
// an empty list if everything failed.
func (c *Cleaner) CleanSections(sections []sectionizer.Section) map[string][]lib.Entity {
	res := make(map[string][]lib.Entity, len(sections))
	for _, section := range sections {
		var raw []lib.Entity
		for _, r := range c.recognisers {
			entities, err := r.Recognise(section.Text)
			if err != nil {
				log.Warn().Err(err).
					Str("section", section.Name).
					Str("recogniser", r.Name()).
					Msg("recogniser failed, section continues without it")
				continue
			}
			raw = append(raw, entities...)
		}
		res[section.Name] = c.Clean(section.Text, raw)
	}
	return res
}

// Clean takes the raw entities recognised in one section and returns the
// deduplicated, labelled, confidence-scored list.
func (c *Cleaner) Clean(section string, entities []lib.Entity) []lib.Entity {
	merged := merge(entityExclusions.FilterEntities(entities))

	cleaned := make([]lib.Entity, 0, len(merged))
	for _, entity := range merged {
		if entity.Label == lib.LabelChemical && !keepChemical(entity) {
			// policy rejection, not a failure
			continue
		}

		entity = remapGenericLabel(entity)

		if isSentenceFragment(entity) {
			continue
		}

		// disease/observation labels already won the merge on priority,
		// and context spans are organizational by definition; medication
		// evidence cannot overturn any of them
		if entity.Label != lib.LabelDisease && entity.Label != lib.LabelObservation &&
			entity.Label != lib.LabelContext {
			if confidence, ok := detectMedication(section, entity); ok {
				entity.Label = lib.LabelMedication
				entity.Confidence = confidence
			}
		}
		if entity.Confidence == "" {
			entity.Confidence = lib.ConfidenceMedium
		}

		cleaned = append(cleaned, entity)
	}

	return dedupe(cleaned)
}

// dedupe drops repeated (normalized text, label) pairs, preserving first
// occurrence order.
func dedupe(entities []lib.Entity) []lib.Entity {
	type key struct {
		text  string
		label string
	}

	seen := map[key]bool{}
	res := make([]lib.Entity, 0, len(entities))
	for _, entity := range entities {
		k := key{text: text.NormalizeTerm(entity.Text), label: entity.Label}
		if seen[k] {
			continue
		}
		seen[k] = true
		res = append(res, entity)
	}
	return res
}
