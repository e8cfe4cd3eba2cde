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

type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
)

// Lab flags derived from normalised observation values.
const (
	labHyperkalemia    = "hyperkalemia"
	labRenalImpairment = "renal impairment"
)

type comorbidityRule struct {
	first    string
	second   string
	severity Severity
	message  string
}

type drugConditionRule struct {
	class     string
	condition string
	severity  Severity
	message   string
	// lowDoseAspirinExempt suppresses the rule when aspirin at or below
	// 150 mg is the only NSAID on the record.
	lowDoseAspirinExempt bool
}

type drugDrugRule struct {
	first    string
	second   string
	severity Severity
	message  string
}

type drugLabRule struct {
	classes  []string
	lab      string
	severity Severity
	message  string
}

var comorbidityRules = []comorbidityRule{
	{first: CategoryStroke, second: CategoryHypertension, severity: SeverityHigh, message: "Stroke history with hypertension"},
	{first: CategoryHeartFailure, second: CategoryCKD, severity: SeverityModerate, message: "Heart failure with chronic kidney disease"},
	{first: CategoryHypertension, second: CategoryCKD, severity: SeverityModerate, message: "Hypertension with chronic kidney disease"},
}

var drugConditionRules = []drugConditionRule{
	{class: ClassNSAID, condition: CategoryCKD, severity: SeverityHigh, message: "NSAID use with chronic kidney disease", lowDoseAspirinExempt: true},
	{class: ClassBetaBlocker, condition: CategoryAsthma, severity: SeverityHigh, message: "Beta-blocker prescribed with asthma"},
	{class: ClassNSAID, condition: CategoryHeartFailure, severity: SeverityModerate, message: "NSAID use with heart failure"},
	{class: ClassNSAID, condition: CategoryHypertension, severity: SeverityModerate, message: "NSAID use with hypertension"},
}

var drugDrugRules = []drugDrugRule{
	{first: ClassSSRI, second: ClassMAOI, severity: SeverityHigh, message: "SSRI combined with MAOI"},
	{first: ClassNSAID, second: ClassAnticoagulant, severity: SeverityHigh, message: "NSAID combined with anticoagulant"},
}

var drugLabRules = []drugLabRule{
	{classes: []string{ClassACEInhibitor, ClassARB}, lab: labHyperkalemia, severity: SeverityHigh, message: "ACE inhibitor or ARB with hyperkalemia"},
	{classes: []string{ClassMetformin}, lab: labRenalImpairment, severity: SeverityModerate, message: "Metformin with renal impairment"},
}
