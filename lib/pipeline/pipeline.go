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

// Package pipeline runs the document stages in dependency order: sectionize,
// extract and clean, link, build the bundle, evaluate safety rules. One
// Pipeline holds all per-run state (recognisers, embedder, vocabulary cache),
// so concurrent documents need separate Pipeline values only when their
// vocabularies differ.
package pipeline

import (
	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/cleaner"
	"github.com/clinformatics/clindoc/lib/fhir"
	"github.com/clinformatics/clindoc/lib/linker"
	"github.com/clinformatics/clindoc/lib/safety"
	"github.com/clinformatics/clindoc/lib/sectionizer"
)

type Pipeline struct {
	sectionizer *sectionizer.Sectionizer
	cleaner     *cleaner.Cleaner
	linker      *linker.Linker
	builder     *fhir.Builder
	engine      *safety.Engine
}

// Result carries the four external artifacts of one run. Linked is the wire
// shape: per-section entity lists plus the trailing "_meta" provenance key.
type Result struct {
	Sections map[string]string       `json:"sections"`
	Entities map[string][]lib.Entity `json:"entities"`
	Linked   map[string]interface{}  `json:"linked"`
	Bundle   *fhir.Bundle            `json:"bundle"`
	Report   *safety.Report          `json:"safety"`
}

func New(splitter *sectionizer.Sectionizer, entityCleaner *cleaner.Cleaner, entityLinker *linker.Linker) *Pipeline {
	return &Pipeline{
		sectionizer: splitter,
		cleaner:     entityCleaner,
		linker:      entityLinker,
		builder:     fhir.NewBuilder(),
		engine:      safety.NewEngine(),
	}
}

// Run executes every stage on one document. A document with no sections
// produces no bundle, and the safety engine then reports the explicit
// "No FHIR data" sentinel rather than an error.
func (p *Pipeline) Run(raw string) *Result {
	sections := p.sectionizer.Split(raw)
	entities := p.cleaner.CleanSections(sections)
	linked := p.linker.LinkSections(entities)

	var bundle *fhir.Bundle
	if len(sections) > 0 {
		bundle = p.builder.Build(sections, linked)
	}
	report := p.engine.Evaluate(bundle, nil)

	linkedDoc := make(map[string]interface{}, len(linked)+1)
	for name, list := range linked {
		linkedDoc[name] = list
	}
	linkedDoc["_meta"] = p.linker.Meta()

	return &Result{
		Sections: sectionizer.AsMap(sections),
		Entities: entities,
		Linked:   linkedDoc,
		Bundle:   bundle,
		Report:   report,
	}
}
