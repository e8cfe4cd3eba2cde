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

// Package ner is the general-purpose recognition pass: an ONNX token
// classification model run through hugot. Model loading walks an ordered
// candidate list and the first model that loads is used for the whole run.
package ner

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
)

type Recogniser struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
	modelID  string
}

func (r *Recogniser) Name() string {
	return "ner"
}

// ModelID reports which candidate model was loaded, for run provenance.
func (r *Recogniser) ModelID() string {
	return r.modelID
}

// New tries each candidate model path in order and keeps the first that
// loads. It returns an error only when every candidate fails.
func New(modelPaths ...string) (*Recogniser, error) {
	if len(modelPaths) == 0 {
		return nil, fmt.Errorf("no ner model candidates configured")
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	var lastErr error
	for _, modelPath := range modelPaths {
		config := hugot.TokenClassificationConfig{
			ModelPath: modelPath,
			Name:      "ner-pipeline",
			Options: []hugot.TokenClassificationOption{
				pipelines.WithSimpleAggregation(),
				pipelines.WithIgnoreLabels([]string{"O"}),
			},
		}

		pipeline, err := hugot.NewPipeline(session, config)
		if err != nil {
			log.Warn().Err(err).Str("model", modelPath).Msg("ner model candidate failed to load")
			lastErr = err
			continue
		}

		log.Info().Str("model", modelPath).Msg("ner model loaded")
		return &Recogniser{session: session, pipeline: pipeline, modelID: modelPath}, nil
	}

	if destroyErr := session.Destroy(); destroyErr != nil {
		log.Warn().Err(destroyErr).Msg("failed to destroy hugot session")
	}
	return nil, fmt.Errorf("all ner model candidates failed: %w", lastErr)
}

// Recognise runs token classification over the section. Model labels are
// mapped onto the pipeline's label set: MISC-like spans are treated as
// CHEMICAL candidates for the cleaner's false-positive filter, everything
// else becomes a generic ENTITY for the cleaner to remap.
func (r *Recogniser) Recognise(section string) ([]lib.Entity, error) {
	result, err := r.pipeline.RunPipeline([]string{section})
	if err != nil {
		return nil, fmt.Errorf("ner failed: %w", err)
	}

	if len(result.Entities) == 0 {
		return nil, nil
	}

	var entities []lib.Entity
	for _, entity := range result.Entities[0] {
		word := strings.TrimSpace(entity.Word)
		if word == "" {
			continue
		}
		entities = append(entities, lib.Entity{
			Text:      word,
			Label:     mapLabel(entity.Entity),
			StartChar: int(entity.Start),
			EndChar:   int(entity.End),
		})
	}

	return entities, nil
}

func (r *Recogniser) Close() error {
	return r.session.Destroy()
}

// mapLabel strips BIO prefixes and maps model label names onto ours.
func mapLabel(label string) string {
	label = strings.TrimPrefix(label, "B-")
	label = strings.TrimPrefix(label, "I-")

	switch strings.ToUpper(label) {
	case "MISC", "CHEMICAL", "CHEM":
		return lib.LabelChemical
	case "DISEASE":
		return lib.LabelDisease
	case "DRUG", "MEDICATION":
		return lib.LabelMedication
	default:
		return lib.LabelEntity
	}
}
