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
	"sort"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/text"
)

// labelPriority ranks labels for merge and overlap resolution. Unlisted
// labels rank lowest.
var labelPriority = map[string]int{
	lib.LabelDisease:     3,
	lib.LabelMedication:  3,
	lib.LabelObservation: 3,
	lib.LabelContext:     2,
	lib.LabelChemical:    2,
	lib.LabelGeneral:     1,
	lib.LabelEntity:      1,
}

func priority(label string) int {
	return labelPriority[label]
}

// merge combines the outputs of all recognition passes. Entities sharing the
// same case-insensitive text collapse to the highest-priority label (ties to
// the first seen). A second pass drops any survivor whose character span
// overlaps an already-kept entity of equal or higher priority, unless the two
// texts are identical: same-text entities never suppress each other.
func merge(entities []lib.Entity) []lib.Entity {
	type indexed struct {
		entity lib.Entity
		order  int
	}

	// group by normalized text, highest priority wins
	groupIndex := map[string]int{}
	var groups []indexed
	for i, entity := range entities {
		key := text.NormalizeTerm(entity.Text)
		gi, ok := groupIndex[key]
		if !ok {
			groupIndex[key] = len(groups)
			groups = append(groups, indexed{entity: entity, order: i})
			continue
		}
		if priority(entity.Label) > priority(groups[gi].entity.Label) {
			order := groups[gi].order
			groups[gi] = indexed{entity: entity, order: order}
		}
	}

	// overlap resolution walks in priority order so the lower-priority side
	// of any distinct-text overlap is the one dropped. Quadratic over the
	// survivors of the text merge, which is fine at document scale.
	byPriority := make([]indexed, len(groups))
	copy(byPriority, groups)
	sort.SliceStable(byPriority, func(i, j int) bool {
		pi, pj := priority(byPriority[i].entity.Label), priority(byPriority[j].entity.Label)
		if pi != pj {
			return pi > pj
		}
		return byPriority[i].order < byPriority[j].order
	})

	var kept []indexed
	for _, candidate := range byPriority {
		suppressed := false
		for _, k := range kept {
			if !candidate.entity.Overlaps(k.entity) {
				continue
			}
			if text.NormalizeTerm(candidate.entity.Text) == text.NormalizeTerm(k.entity.Text) {
				continue
			}
			if priority(k.entity.Label) >= priority(candidate.entity.Label) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}

	// restore first-seen order
	sort.Slice(kept, func(i, j int) bool { return kept[i].order < kept[j].order })

	res := make([]lib.Entity, len(kept))
	for i, k := range kept {
		res[i] = k.entity
	}
	return res
}
