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

package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctReplacer maps the unicode punctuation OCR tends to emit onto the ascii
// forms the heading patterns and keyword tables expect.
var punctReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // non-breaking space
)

var excessBlankLines = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)

// NormalizePunctuation replaces curly quotes, long dashes and friends with
// their ascii equivalents.
func NormalizePunctuation(in string) string {
	return punctReplacer.Replace(in)
}

// CollapseBlankLines reduces runs of three or more newlines to a single blank
// line so paragraph structure survives without padding.
func CollapseBlankLines(in string) string {
	return excessBlankLines.ReplaceAllString(in, "\n\n")
}

// NormalizeTerm puts a term into its canonical comparison form: NFKC encoded,
// lowercased, whitespace-trimmed, inner whitespace collapsed to single spaces.
func NormalizeTerm(in string) string {
	in = norm.NFKC.String(in)
	in = strings.ToLower(strings.TrimSpace(in))
	return strings.Join(strings.Fields(in), " ")
}
