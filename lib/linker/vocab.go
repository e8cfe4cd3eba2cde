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

package linker

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// The three disjoint ontology namespaces.
const (
	NamespaceConditions   = "conditions"
	NamespaceMedications  = "medications"
	NamespaceObservations = "observations"
)

// DefaultThresholds are the per-namespace similarity cutoffs below which no
// code is attached.
var DefaultThresholds = map[string]float64{
	NamespaceConditions:   0.45,
	NamespaceMedications:  0.55,
	NamespaceObservations: 0.50,
}

// Term is one reference vocabulary entry.
type Term struct {
	Term string `yaml:"term"`
	Code string `yaml:"code"`
}

// Vocabulary holds the reference terms for each namespace.
type Vocabulary struct {
	namespaces map[string][]Term
}

// Terms returns the reference terms of one namespace, nil when the namespace
// is unknown.
func (v *Vocabulary) Terms(namespace string) []Term {
	return v.namespaces[namespace]
}

// BuiltinVocabulary is the mini reference vocabulary used when no vocabulary
// file is configured.
func BuiltinVocabulary() *Vocabulary {
	return &Vocabulary{namespaces: map[string][]Term{
		NamespaceConditions: {
			{Term: "hypertension", Code: "I10"},
			{Term: "asthma", Code: "J45"},
			{Term: "stroke", Code: "I63"},
			{Term: "type 2 diabetes mellitus", Code: "E11"},
			{Term: "chronic kidney disease", Code: "N18"},
			{Term: "heart failure", Code: "I50"},
			{Term: "atrial fibrillation", Code: "I48"},
			{Term: "hyperkalemia", Code: "E87.5"},
			{Term: "pneumonia", Code: "J18"},
			{Term: "depression", Code: "F32"},
			{Term: "myocardial infarction", Code: "I21"},
			{Term: "chronic obstructive pulmonary disease", Code: "J44"},
		},
		NamespaceMedications: {
			{Term: "aspirin", Code: "1191"},
			{Term: "ibuprofen", Code: "5640"},
			{Term: "naproxen", Code: "7258"},
			{Term: "metformin", Code: "6809"},
			{Term: "lisinopril", Code: "29046"},
			{Term: "ramipril", Code: "35296"},
			{Term: "losartan", Code: "52175"},
			{Term: "atenolol", Code: "1202"},
			{Term: "bisoprolol", Code: "19484"},
			{Term: "warfarin", Code: "11289"},
			{Term: "apixaban", Code: "1364430"},
			{Term: "sertraline", Code: "36437"},
			{Term: "atorvastatin", Code: "83367"},
			{Term: "amlodipine", Code: "17767"},
			{Term: "insulin", Code: "5856"},
		},
		NamespaceObservations: {
			{Term: "blood pressure", Code: "85354-9"},
			{Term: "systolic blood pressure", Code: "8480-6"},
			{Term: "diastolic blood pressure", Code: "8462-4"},
			{Term: "oxygen saturation", Code: "59408-5"},
			{Term: "blood glucose", Code: "2339-0"},
			{Term: "serum creatinine", Code: "2160-0"},
			{Term: "serum potassium", Code: "2823-3"},
			{Term: "heart rate", Code: "8867-4"},
			{Term: "body temperature", Code: "8310-5"},
			{Term: "respiratory rate", Code: "9279-1"},
		},
	}}
}

// LoadVocabulary reads a yaml file of namespace -> term list entries. Only
// the three known namespaces are accepted.
func LoadVocabulary(path string) (*Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string][]Term
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	for namespace := range raw {
		switch namespace {
		case NamespaceConditions, NamespaceMedications, NamespaceObservations:
		default:
			return nil, fmt.Errorf("unknown vocabulary namespace %q", namespace)
		}
	}

	log.Info().Str("path", path).Msg("reference vocabulary loaded")

	return &Vocabulary{namespaces: raw}, nil
}
