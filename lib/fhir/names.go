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
	"regexp"
	"strings"

	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/text"
)

// Sentinels used when no name can be inferred from the document.
const (
	UnknownPatient      = "Unknown Patient"
	UnknownPractitioner = "Unknown Practitioner"
)

var (
	patientPrefixPattern      = regexp.MustCompile(`\b(Mr|Ms|Mrs|Miss)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	practitionerPrefixPattern = regexp.MustCompile(`\b(Dr|Doctor)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	properNounRunPattern      = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+$`)
)

// organizationExclusions rejects generic or irrelevant phrases that contain an
// organization keyword but name nothing.
var organizationExclusions = blocklist.New(
	"hospital", "clinic", "the hospital", "the clinic", "a hospital",
	"local hospital", "local clinic", "general hospital", "this hospital",
	"hospital admission", "clinic visit", "hospital stay",
)

type inferredPerson struct {
	name   string
	gender string
}

// inferPatient scans entity texts in order for an honorific-prefixed proper
// noun, inferring gender from the honorific, then falls back to any bare
// proper-noun token run, then to the Unknown Patient sentinel.
func inferPatient(entityTexts []string) inferredPerson {
	for _, candidate := range entityTexts {
		if m := patientPrefixPattern.FindStringSubmatch(candidate); m != nil {
			gender := "female"
			if m[1] == "Mr" {
				gender = "male"
			}
			return inferredPerson{name: m[1] + " " + m[2], gender: gender}
		}
	}

	for _, candidate := range entityTexts {
		candidate = strings.TrimSpace(candidate)
		if practitionerPrefixPattern.MatchString(candidate) {
			continue
		}
		if properNounRunPattern.MatchString(candidate) {
			return inferredPerson{name: candidate}
		}
	}

	return inferredPerson{name: UnknownPatient}
}

// inferPractitioner looks for a Dr/Doctor-prefixed proper noun, falling back
// to the Unknown Practitioner sentinel.
func inferPractitioner(entityTexts []string) string {
	for _, candidate := range entityTexts {
		if m := practitionerPrefixPattern.FindStringSubmatch(candidate); m != nil {
			return "Dr " + m[2]
		}
	}
	return UnknownPractitioner
}

// inferOrganization returns the first entity text that names a plausible
// organization: it must carry an organization keyword, be more than one word,
// and clear the exclusion list.
func inferOrganization(entityTexts []string) string {
	for _, candidate := range entityTexts {
		candidate = strings.TrimSpace(candidate)
		lower := strings.ToLower(candidate)
		if !strings.Contains(lower, "hospital") && !strings.Contains(lower, "clinic") {
			continue
		}
		if text.TokenCount(candidate) < 2 {
			continue
		}
		if !organizationExclusions.Allowed(lower) {
			continue
		}
		return candidate
	}
	return ""
}

// splitName breaks a display name into given and family parts for the
// HumanName shape. The last token is the family name.
func splitName(full string) HumanName {
	fields := strings.Fields(full)
	name := HumanName{Text: full}

	if len(fields) == 0 {
		return name
	}

	if fields[0] == "Mr" || fields[0] == "Ms" || fields[0] == "Mrs" || fields[0] == "Miss" ||
		fields[0] == "Dr" || fields[0] == "Doctor" {
		name.Prefix = []string{fields[0]}
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return name
	}

	name.Family = fields[len(fields)-1]
	if len(fields) > 1 {
		name.Given = fields[:len(fields)-1]
	}
	return name
}
