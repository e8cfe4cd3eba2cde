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

// Package fhir builds the canonical clinical resource bundle from linked
// entities. Resources reference each other by identifier only; the bundle
// owns every resource it contains.
package fhir

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type HumanName struct {
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type Dosage struct {
	Text string `json:"text,omitempty"`
}

type Patient struct {
	ResourceType          string      `json:"resourceType"`
	ID                    string      `json:"id"`
	Name                  []HumanName `json:"name,omitempty"`
	Gender                string      `json:"gender,omitempty"`
	ManagingOrganization  *Reference  `json:"managingOrganization,omitempty"`
	GeneralPractitioner   []Reference `json:"generalPractitioner,omitempty"`
}

type Practitioner struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Name         []HumanName `json:"name,omitempty"`
}

type Organization struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
}

type Condition struct {
	ResourceType string          `json:"resourceType"`
	ID           string          `json:"id"`
	Code         CodeableConcept `json:"code"`
	Subject      Reference       `json:"subject"`
	Asserter     *Reference      `json:"asserter,omitempty"`
}

type MedicationStatement struct {
	ResourceType              string          `json:"resourceType"`
	ID                        string          `json:"id"`
	Status                    string          `json:"status,omitempty"`
	MedicationCodeableConcept CodeableConcept `json:"medicationCodeableConcept"`
	Subject                   Reference       `json:"subject"`
	Dosage                    []Dosage        `json:"dosage,omitempty"`
}

type ObservationComponent struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

type Observation struct {
	ResourceType  string                 `json:"resourceType"`
	ID            string                 `json:"id"`
	Status        string                 `json:"status,omitempty"`
	Code          CodeableConcept        `json:"code"`
	Subject       Reference              `json:"subject"`
	ValueQuantity *Quantity              `json:"valueQuantity,omitempty"`
	ValueString   string                 `json:"valueString,omitempty"`
	Component     []ObservationComponent `json:"component,omitempty"`
}

type Procedure struct {
	ResourceType string          `json:"resourceType"`
	ID           string          `json:"id"`
	Status       string          `json:"status,omitempty"`
	Code         CodeableConcept `json:"code"`
	Subject      Reference       `json:"subject"`
	Performer    []Reference     `json:"performer,omitempty"`
}

type Encounter struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Status       string      `json:"status,omitempty"`
	Subject      Reference   `json:"subject"`
	Participant  []Reference `json:"participant,omitempty"`
}

type BundleEntry struct {
	Resource interface{} `json:"resource"`
}

type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp"`
	Entry        []BundleEntry `json:"entry"`
}
