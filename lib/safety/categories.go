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
	"sort"
	"strings"

	"github.com/clinformatics/clindoc/lib/text"
)

// Condition categories.
const (
	CategoryHypertension = "hypertension"
	CategoryStroke       = "stroke"
	CategoryCKD          = "ckd"
	CategoryAsthma       = "asthma"
	CategoryHeartFailure = "heart failure"
)

// Medication classes.
const (
	ClassNSAID         = "nsaid"
	ClassACEInhibitor  = "ace inhibitor"
	ClassARB           = "arb"
	ClassBetaBlocker   = "beta blocker"
	ClassAnticoagulant = "anticoagulant"
	ClassSSRI          = "ssri"
	ClassMAOI          = "maoi"
	ClassMetformin     = "metformin"
)

var conditionCategories = map[string][]string{
	CategoryHypertension: {"hypertension", "high blood pressure", "htn"},
	CategoryStroke:       {"stroke", "cerebrovascular", "tia", "transient ischaemic", "transient ischemic"},
	CategoryCKD:          {"ckd", "chronic kidney", "kidney disease", "renal failure", "renal impairment", "renal insufficiency"},
	CategoryAsthma:       {"asthma"},
	CategoryHeartFailure: {"heart failure", "cardiac failure", "chf", "lvsd"},
}

var medicationClasses = map[string][]string{
	ClassNSAID:         {"nsaid", "ibuprofen", "naproxen", "diclofenac", "aspirin", "celecoxib", "ketorolac", "indomethacin"},
	ClassACEInhibitor:  {"ace inhibitor", "ramipril", "lisinopril", "enalapril", "perindopril", "captopril"},
	ClassARB:           {"arb", "losartan", "candesartan", "valsartan", "irbesartan", "telmisartan"},
	ClassBetaBlocker:   {"beta blocker", "beta-blocker", "atenolol", "bisoprolol", "metoprolol", "propranolol", "carvedilol"},
	ClassAnticoagulant: {"anticoagulant", "warfarin", "apixaban", "rivaroxaban", "dabigatran", "edoxaban", "heparin"},
	ClassSSRI:          {"ssri", "sertraline", "fluoxetine", "citalopram", "escitalopram", "paroxetine"},
	ClassMAOI:          {"maoi", "phenelzine", "tranylcypromine", "selegiline", "moclobemide"},
	ClassMetformin:     {"metformin"},
}

// matchCategories assigns each name to every category whose keyword set it
// hits, returning category -> sorted distinct source names. Matching is on
// normalised substrings so "Chronic Kidney Disease stage 3" lands in ckd.
func matchCategories(names []string, categories map[string][]string) map[string][]string {
	res := map[string][]string{}
	for category, keywords := range categories {
		seen := map[string]bool{}
		for _, name := range names {
			normalized := text.NormalizeTerm(name)
			for _, keyword := range keywords {
				if strings.Contains(normalized, keyword) && !seen[name] {
					seen[name] = true
					res[category] = append(res[category], name)
					break
				}
			}
		}
		sort.Strings(res[category])
	}
	return res
}
