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

// clindoc runs the full document pipeline as a batch process: one input
// document in, the four JSON artifacts plus the rendered safety report out.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/cleaner"
	"github.com/clinformatics/clindoc/lib/linker"
	"github.com/clinformatics/clindoc/lib/pipeline"
	"github.com/clinformatics/clindoc/lib/recogniser"
	"github.com/clinformatics/clindoc/lib/recogniser/lexicon"
	"github.com/clinformatics/clindoc/lib/recogniser/ner"
	"github.com/clinformatics/clindoc/lib/sectionizer"
)

// config structure
type clinDocConfig struct {
	LogLevel string `mapstructure:"log_level"`
	Input    string
	Output   string
	Models   struct {
		Ner      []string
		Embedder []string
	}
	Lexicon         string
	Vocabulary      string
	Blocklist       string
	Thresholds      map[string]float64
	HeadingPatterns []string `mapstructure:"heading_patterns"`
}

var config clinDocConfig

func initConfig() {
	err := lib.InitializeConfig("./config/clindoc.yml", map[string]interface{}{
		"log_level": "info",
		"input":     "./document.txt",
		"output":    "./out",
	}, &config)
	if err != nil {
		panic(err)
	}
}

func main() {
	initConfig()

	splitter, err := sectionizer.New(config.HeadingPatterns...)
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	if config.Blocklist != "" {
		exclusions, err := blocklist.Load(config.Blocklist)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
		cleaner.SetCandidateExclusions(exclusions)
	}

	var recognisers []recogniser.Client
	if config.Lexicon != "" {
		lexiconRecogniser, err := lexicon.Load(config.Lexicon)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
		recognisers = append(recognisers, lexiconRecogniser)
	} else {
		recognisers = append(recognisers, lexicon.New(nil))
	}

	var nerRecogniser *ner.Recogniser
	if len(config.Models.Ner) > 0 {
		nerRecogniser, err = ner.New(config.Models.Ner...)
		if err != nil {
			log.Warn().Err(err).Msg("no NER model available, continuing with lexicon only")
		} else {
			recognisers = append(recognisers, nerRecogniser)
		}
	}

	var embed linker.EmbedFunc
	modelID := "none"
	if len(config.Models.Embedder) > 0 {
		embed, modelID, err = linker.NewHugotEmbedder(config.Models.Embedder...)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
	} else {
		log.Warn().Msg("no embedding model configured, entities will not be linked")
		embed = func(texts []string) ([][]float32, error) {
			return make([][]float32, len(texts)), nil
		}
	}

	vocab := linker.BuiltinVocabulary()
	if config.Vocabulary != "" {
		vocab, err = linker.LoadVocabulary(config.Vocabulary)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
	}

	opts := []linker.Option{linker.WithModelID(modelID)}
	if len(config.Thresholds) > 0 {
		opts = append(opts, linker.WithThresholds(config.Thresholds))
	}

	p := pipeline.New(splitter, cleaner.New(recognisers...), linker.New(embed, vocab, opts...))

	raw, err := os.ReadFile(config.Input)
	if err != nil {
		log.Fatal().Err(err).Str("input", config.Input).Send()
	}

	result := p.Run(string(raw))

	if err := os.MkdirAll(config.Output, 0o755); err != nil {
		log.Fatal().Err(err).Send()
	}
	writeJSON("sections.json", result.Sections)
	writeJSON("entities.json", result.Entities)
	writeJSON("linked.json", result.Linked)
	writeJSON("bundle.json", result.Bundle)
	writeJSON("safety.json", result.Report)
	if err := os.WriteFile(filepath.Join(config.Output, "safety.txt"), []byte(result.Report.Render()), 0o644); err != nil {
		log.Fatal().Err(err).Send()
	}

	if nerRecogniser != nil {
		if err := nerRecogniser.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close NER model")
		}
	}

	log.Info().Str("output", config.Output).Msg("document processed")
}

func writeJSON(name string, value interface{}) {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Str("file", name).Send()
	}
	if err := os.WriteFile(filepath.Join(config.Output, name), b, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", name).Send()
	}
}
