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
	"math"

	"github.com/knights-analytics/hugot"
	"github.com/rs/zerolog/log"
)

// EmbedFunc turns a batch of texts into one embedding per text. Implementations
// must be deterministic within a run: encoding texts one at a time must produce
// the same vectors as encoding them together.
type EmbedFunc func(texts []string) ([][]float32, error)

// NewHugotEmbedder walks the candidate model paths in order and returns an
// EmbedFunc backed by the first feature-extraction model that loads, along
// with the winning model id. It fails only when every candidate fails; the
// caller treats that as fatal.
func NewHugotEmbedder(modelPaths ...string) (EmbedFunc, string, error) {
	if len(modelPaths) == 0 {
		return nil, "", fmt.Errorf("no embedding model candidates configured")
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create hugot session: %w", err)
	}

	var lastErr error
	for _, modelPath := range modelPaths {
		config := hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "embedder-pipeline",
		}

		pipeline, err := hugot.NewPipeline(session, config)
		if err != nil {
			log.Warn().Err(err).Str("model", modelPath).Msg("embedding model candidate failed to load")
			lastErr = err
			continue
		}

		log.Info().Str("model", modelPath).Msg("embedding model loaded")

		embed := func(texts []string) ([][]float32, error) {
			if len(texts) == 0 {
				return nil, nil
			}
			result, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(result.Embeddings) != len(texts) {
				return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
			}
			return result.Embeddings, nil
		}
		return embed, modelPath, nil
	}

	if destroyErr := session.Destroy(); destroyErr != nil {
		log.Warn().Err(destroyErr).Msg("failed to destroy hugot session")
	}
	return nil, "", fmt.Errorf("all embedding model candidates failed: %w", lastErr)
}

// cosine is the similarity between two embeddings, 0 when either is empty or
// zero-length.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
