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

// Package linker attaches ontology codes to cleaned entities by embedding
// similarity against a per-namespace reference vocabulary.
package linker

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/text"
)

type Linker struct {
	embed      EmbedFunc
	vocab      *Vocabulary
	thresholds map[string]float64
	vectors    *vectorStore
	modelID    string
}

type Option func(*Linker)

// WithThresholds overrides the per-namespace similarity cutoffs. Namespaces
// missing from the map keep their default.
func WithThresholds(thresholds map[string]float64) Option {
	return func(l *Linker) {
		for namespace, threshold := range thresholds {
			l.thresholds[namespace] = threshold
		}
	}
}

// WithModelID records the embedding model id for run provenance.
func WithModelID(modelID string) Option {
	return func(l *Linker) {
		l.modelID = modelID
	}
}

// New builds a linker around an embedder and a vocabulary. The vocabulary
// vectors are embedded lazily, once per namespace, and cached for the
// lifetime of this linker only.
func New(embed EmbedFunc, vocab *Vocabulary, opts ...Option) *Linker {
	l := &Linker{
		embed:      embed,
		vocab:      vocab,
		thresholds: map[string]float64{},
		vectors:    newVectorStore(),
	}
	for namespace, threshold := range DefaultThresholds {
		l.thresholds[namespace] = threshold
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Meta reports run provenance for the _meta key of the linked output.
func (l *Linker) Meta() map[string]interface{} {
	return map[string]interface{}{
		"model":      l.modelID,
		"device":     "cpu",
		"thresholds": l.thresholds,
	}
}

// LinkSections links every section's entities. Section failures are already
// isolated upstream; here isolation is per entity.
func (l *Linker) LinkSections(sections map[string][]lib.Entity) map[string][]lib.LinkedEntity {
	res := make(map[string][]lib.LinkedEntity, len(sections))
	for name, entities := range sections {
		res[name] = l.Link(entities)
	}
	return res
}

// Link routes each entity to a namespace and attaches the best-scoring
// vocabulary code when it clears the namespace threshold. Unroutable entities
// pass through untouched; routed entities that miss the threshold keep the
// namespace and score with no code, which is distinguishable from not being
// routed at all. An embedding failure passes the entity through unlinked and
// is logged, never fatal.
func (l *Linker) Link(entities []lib.Entity) []lib.LinkedEntity {
	linked := make([]lib.LinkedEntity, len(entities))
	for i, entity := range entities {
		linked[i] = lib.LinkedEntity{
			Text:      entity.Text,
			Label:     entity.Label,
			StartChar: entity.StartChar,
			EndChar:   entity.EndChar,
		}
	}

	// batch-encode all routable entity texts up front; fall back to
	// per-entity encoding on failure with identical results
	routable := make([]int, 0, len(entities))
	texts := make([]string, 0, len(entities))
	for i, entity := range entities {
		if namespace := routeNamespace(entity); namespace != "" {
			routable = append(routable, i)
			texts = append(texts, text.NormalizeTerm(entity.Text))
		}
	}
	if len(routable) == 0 {
		return linked
	}

	vectors, err := l.embed(texts)
	if err != nil {
		log.Warn().Err(err).Msg("batch embedding failed, retrying per entity")
		vectors = make([][]float32, len(texts))
		for j, t := range texts {
			single, err := l.embed([]string{t})
			if err != nil || len(single) != 1 {
				log.Warn().Err(err).Str("text", t).Msg("entity embedding failed, passing through unlinked")
				continue
			}
			vectors[j] = single[0]
		}
	}

	for j, i := range routable {
		if vectors[j] == nil {
			continue
		}
		namespace := routeNamespace(entities[i])
		code, display, score, err := l.bestMatch(namespace, vectors[j])
		if err != nil {
			log.Warn().Err(err).Str("text", entities[i].Text).Msg("vocabulary lookup failed, passing through unlinked")
			continue
		}

		linked[i].Vocabulary = namespace
		linked[i].Score = score
		if score > l.thresholds[namespace] {
			linked[i].LinkedCode = code
			linked[i].Display = display
		}
	}

	return linked
}

// bestMatch compares one embedding against the namespace's vocabulary
// vectors, computing and caching those vectors on first use.
func (l *Linker) bestMatch(namespace string, vector []float32) (code, display string, score float64, err error) {
	terms := l.vocab.Terms(namespace)
	if len(terms) == 0 {
		return "", "", 0, nil
	}

	vocabVectors, ok := l.vectors.Get(namespace)
	if !ok {
		texts := make([]string, len(terms))
		for i, term := range terms {
			texts[i] = text.NormalizeTerm(term.Term)
		}
		vocabVectors, err = l.embed(texts)
		if err != nil {
			return "", "", 0, err
		}
		l.vectors.Set(namespace, vocabVectors)
	}

	best := -1
	bestScore := -1.0
	for i, vocabVector := range vocabVectors {
		if s := cosine(vector, vocabVector); s > bestScore {
			best = i
			bestScore = s
		}
	}
	if best < 0 {
		return "", "", 0, nil
	}
	return terms[best].Code, terms[best].Term, bestScore, nil
}

// routeNamespace picks an ontology namespace by label first, then by keyword
// heuristics on the text. The empty string means unroutable.
func routeNamespace(entity lib.Entity) string {
	switch entity.Label {
	case lib.LabelDisease:
		return NamespaceConditions
	case lib.LabelMedication, lib.LabelChemical:
		return NamespaceMedications
	case lib.LabelObservation:
		return NamespaceObservations
	}

	lower := strings.ToLower(entity.Text)
	switch {
	case containsAny(lower, "pressure", "saturation", "rate", "glucose", "creatinine", "scan", "level", "test"):
		return NamespaceObservations
	case containsAny(lower, "disease", "syndrome", "itis", "failure", "pain"):
		return NamespaceConditions
	case containsAny(lower, "tablet", "dose", "mg"):
		return NamespaceMedications
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
