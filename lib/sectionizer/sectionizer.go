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

package sectionizer

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/text"
)

// Names assigned when the document gives us nothing better.
const (
	IntroductionSection = "INTRODUCTION"
	FullTextSection     = "FULL_TEXT"
)

// DefaultHeadingPatterns matches headings of the form
// "SECTION <number-or-roman>[:-]? <TITLE>", case-insensitively, with the title
// as the first capture group. A heading may start a line or follow
// sentence-ending punctuation mid-line, as OCR output often runs a heading
// onto the previous sentence.
var DefaultHeadingPatterns = []string{
	`(?im)(?:^|[.!?])[ \t]*SECTION[ \t]+(?:\d+|[IVXLCDM]+)[ \t]*[:\-]?[ \t]*(\S[^\n]*)$`,
}

// Section is a named, ordered slice of the document.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type Sectionizer struct {
	patterns []*regexp.Regexp
}

// New compiles the given heading patterns, falling back to
// DefaultHeadingPatterns when none are supplied. Each pattern must expose the
// section title as capture group 1.
func New(patterns ...string) (*Sectionizer, error) {
	if len(patterns) == 0 {
		patterns = DefaultHeadingPatterns
	}

	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid heading pattern %q: %w", pattern, err)
		}
		compiled[i] = re
	}
	return &Sectionizer{patterns: compiled}, nil
}

type heading struct {
	name       string
	start, end int
}

// Split breaks raw text into named sections. Text before the first heading
// becomes INTRODUCTION; a document with no headings becomes a single FULL_TEXT
// section. Sections whose trimmed content is empty are dropped, so the only
// zero-output case is an entirely blank document.
func (s *Sectionizer) Split(raw string) []Section {
	raw = text.NormalizePunctuation(raw)
	raw = text.CollapseBlankLines(raw)

	var headings []heading
	for _, re := range s.patterns {
		for _, m := range re.FindAllStringSubmatchIndex(raw, -1) {
			headings = append(headings, heading{
				name:  normalizeName(raw[m[2]:m[3]]),
				start: m[0],
				end:   m[1],
			})
		}
	}
	sort.Slice(headings, func(i, j int) bool { return headings[i].start < headings[j].start })

	if len(headings) == 0 {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		return []Section{{Name: FullTextSection, Text: strings.TrimSpace(raw)}}
	}

	var sections []Section
	seen := map[string]int{}

	appendSection := func(name, content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		if i, ok := seen[name]; ok {
			// heading names are unique per document: fold repeats into
			// the first occurrence
			sections[i].Text += "\n" + content
			return
		}
		seen[name] = len(sections)
		sections = append(sections, Section{Name: name, Text: content})
	}

	if headings[0].start > 0 {
		appendSection(IntroductionSection, raw[:headings[0].start])
	}

	for i, h := range headings {
		end := len(raw)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		appendSection(h.name, raw[h.end:end])
	}

	log.Debug().Int("sections", len(sections)).Msg("document sectionized")

	return sections
}

// SplitFile reads the document at path and splits it. A missing file is a
// fatal lib.ErrNotFound; everything else degrades to the Split fallbacks.
func (s *Sectionizer) SplitFile(path string) ([]Section, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input %s: %w", path, lib.ErrNotFound)
		}
		return nil, err
	}
	return s.Split(string(b)), nil
}

// AsMap renders sections in the external JSON shape, name to content.
func AsMap(sections []Section) map[string]string {
	res := make(map[string]string, len(sections))
	for _, section := range sections {
		res[section.Name] = section.Text
	}
	return res
}

func normalizeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.TrimRight(name, ":-. \t")
	return strings.Join(strings.Fields(name), " ")
}
