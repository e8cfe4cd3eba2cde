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
	"strings"
)

// Render produces the human-readable form of a report. The output is a pure
// function of the report, so two identical reports render identically.
func (report *Report) Render() string {
	var b strings.Builder
	b.WriteString("SAFETY REPORT\n")

	writeFindings := func(heading string, findings []Finding) {
		b.WriteString(heading + ":\n")
		if len(findings) == 0 {
			b.WriteString("  none\n")
			return
		}
		for _, finding := range findings {
			b.WriteString("  - " + finding.Message)
			var provenance []string
			if len(finding.Conditions) > 0 {
				provenance = append(provenance, "conditions: "+strings.Join(finding.Conditions, ", "))
			}
			if len(finding.Medications) > 0 {
				provenance = append(provenance, "medications: "+strings.Join(finding.Medications, ", "))
			}
			if len(finding.Observations) > 0 {
				provenance = append(provenance, "observations: "+strings.Join(finding.Observations, ", "))
			}
			if len(provenance) > 0 {
				b.WriteString(" (" + strings.Join(provenance, "; ") + ")")
			}
			b.WriteString("\n")
		}
	}

	writeList := func(heading string, values []string) {
		b.WriteString(heading + ":\n")
		if len(values) == 0 {
			b.WriteString("  none\n")
			return
		}
		for _, value := range values {
			b.WriteString("  - " + value + "\n")
		}
	}

	writeFindings("High risk", report.HighRisk)
	writeFindings("Moderate risk", report.ModerateRisk)
	writeList("Abnormal vitals", report.AbnormalVitals)
	writeList("Notes", report.Notes)
	b.WriteString(fmt.Sprintf("Summary: %s\n", report.Summary))
	return b.String()
}
