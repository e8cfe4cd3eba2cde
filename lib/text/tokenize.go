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
	"unicode/utf8"

	"github.com/blevesearch/segment"
)

const nonAlphaNumericSegment = 0

// Token is a word token with its character offsets in the source string.
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokenize splits in into word tokens (alphanumeric segments) and reports each
// token's character offsets. Punctuation and whitespace segments advance the
// position but produce no token.
func Tokenize(in string) []Token {
	segmenter := segment.NewWordSegmenterDirect([]byte(in))

	var tokens []Token
	position := 0
	for segmenter.Segment() {
		segmentBytes := segmenter.Bytes()
		numChars := utf8.RuneCount(segmentBytes)

		if segmenter.Type() != nonAlphaNumericSegment {
			tokens = append(tokens, Token{
				Text:  string(segmentBytes),
				Start: position,
				End:   position + numChars,
			})
		}
		position += numChars
	}

	return tokens
}

// TokenCount returns the number of word tokens in in.
func TokenCount(in string) int {
	return len(Tokenize(in))
}
