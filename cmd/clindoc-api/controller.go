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

package main

import (
	"sort"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/cleaner"
	"github.com/clinformatics/clindoc/lib/fhir"
	"github.com/clinformatics/clindoc/lib/linker"
	"github.com/clinformatics/clindoc/lib/pipeline"
	"github.com/clinformatics/clindoc/lib/safety"
	"github.com/clinformatics/clindoc/lib/sectionizer"
)

type controller struct {
	splitter *sectionizer.Sectionizer
	cleaner  *cleaner.Cleaner
	linker   *linker.Linker
	builder  *fhir.Builder
	engine   *safety.Engine
	pipeline *pipeline.Pipeline
}

func (c controller) Sections(raw string) map[string]string {
	return sectionizer.AsMap(c.splitter.Split(raw))
}

func (c controller) Entities(sections map[string]string) map[string][]lib.Entity {
	return c.cleaner.CleanSections(orderedSections(sections))
}

// Linked runs extraction and linking and returns the wire document: linked
// entities per section plus the trailing _meta provenance key.
func (c controller) Linked(sections map[string]string) map[string]interface{} {
	linked := c.linker.LinkSections(c.Entities(sections))

	doc := make(map[string]interface{}, len(linked)+1)
	for name, entities := range linked {
		doc[name] = entities
	}
	doc["_meta"] = c.linker.Meta()
	return doc
}

func (c controller) Bundle(sections map[string]string, linked map[string]interface{}) *fhir.Bundle {
	return c.builder.Build(orderedSections(sections), fhir.DecodeLinkedDocument(linked))
}

func (c controller) Safety(bundle *fhir.Bundle, preFlagged []safety.PreFlaggedIssue) *safety.Report {
	return c.engine.Evaluate(bundle, preFlagged)
}

func (c controller) Process(raw string) *pipeline.Result {
	return c.pipeline.Run(raw)
}

// orderedSections rebuilds the slice form of a section map in sorted name
// order, so map iteration never changes the output.
func orderedSections(sections map[string]string) []sectionizer.Section {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	res := make([]sectionizer.Section, 0, len(names))
	for _, name := range names {
		res = append(res, sectionizer.Section{Name: name, Text: sections[name]})
	}
	return res
}
