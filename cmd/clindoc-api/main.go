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
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/clinformatics/clindoc/lib"
	"github.com/clinformatics/clindoc/lib/blocklist"
	"github.com/clinformatics/clindoc/lib/cleaner"
	"github.com/clinformatics/clindoc/lib/fhir"
	"github.com/clinformatics/clindoc/lib/linker"
	"github.com/clinformatics/clindoc/lib/pipeline"
	"github.com/clinformatics/clindoc/lib/recogniser"
	"github.com/clinformatics/clindoc/lib/recogniser/lexicon"
	"github.com/clinformatics/clindoc/lib/recogniser/ner"
	"github.com/clinformatics/clindoc/lib/safety"
	"github.com/clinformatics/clindoc/lib/sectionizer"
)

// config structure
type clinDocAPIConfig struct {
	LogLevel string `mapstructure:"log_level"`
	Server   struct {
		HttpPort int `mapstructure:"http_port"`
	}
	Models struct {
		Ner      []string
		Embedder []string
	}
	Lexicon         string
	Vocabulary      string
	Blocklist       string
	Thresholds      map[string]float64
	HeadingPatterns []string `mapstructure:"heading_patterns"`
}

var config clinDocAPIConfig

func initConfig() {
	err := lib.InitializeConfig("./config/clindoc-api.yml", map[string]interface{}{
		"log_level": "info",
		"server": map[string]interface{}{
			"http_port": 8080,
		},
	}, &config)
	if err != nil {
		panic(err)
	}
}

func main() {
	initConfig()

	c, err := assembleController()
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	go lib.HandleInterrupt()

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(lib.JsonLogFormatter), gin.Recovery(), cors.Default())
	s := server{controller: c}
	s.RegisterRoutes(r)
	if err := r.Run(fmt.Sprintf(":%d", config.Server.HttpPort)); err != nil {
		log.Fatal().Err(err).Send()
	}
}

// assembleController wires every pipeline stage from config. A missing NER
// model degrades gracefully to the lexicon recogniser; a configured embedder
// that fails to load is fatal, because linking was explicitly requested.
func assembleController() (controller, error) {
	splitter, err := sectionizer.New(config.HeadingPatterns...)
	if err != nil {
		return controller{}, err
	}

	if config.Blocklist != "" {
		exclusions, err := blocklist.Load(config.Blocklist)
		if err != nil {
			return controller{}, err
		}
		cleaner.SetCandidateExclusions(exclusions)
	}

	var recognisers []recogniser.Client
	if config.Lexicon != "" {
		lexiconRecogniser, err := lexicon.Load(config.Lexicon)
		if err != nil {
			return controller{}, err
		}
		recognisers = append(recognisers, lexiconRecogniser)
	} else {
		recognisers = append(recognisers, lexicon.New(nil))
	}
	if len(config.Models.Ner) > 0 {
		nerRecogniser, err := ner.New(config.Models.Ner...)
		if err != nil {
			log.Warn().Err(err).Msg("no NER model available, continuing with lexicon only")
		} else {
			recognisers = append(recognisers, nerRecogniser)
		}
	}

	embed, modelID, err := buildEmbedder(config.Models.Embedder)
	if err != nil {
		return controller{}, err
	}

	vocab := linker.BuiltinVocabulary()
	if config.Vocabulary != "" {
		vocab, err = linker.LoadVocabulary(config.Vocabulary)
		if err != nil {
			return controller{}, err
		}
	}

	opts := []linker.Option{linker.WithModelID(modelID)}
	if len(config.Thresholds) > 0 {
		opts = append(opts, linker.WithThresholds(config.Thresholds))
	}

	entityCleaner := cleaner.New(recognisers...)
	entityLinker := linker.New(embed, vocab, opts...)

	return controller{
		splitter: splitter,
		cleaner:  entityCleaner,
		linker:   entityLinker,
		builder:  fhir.NewBuilder(),
		engine:   safety.NewEngine(),
		pipeline: pipeline.New(splitter, entityCleaner, entityLinker),
	}, nil
}

// buildEmbedder loads the first usable embedding model from candidates. With
// no candidates the service runs unlinked via offlineEmbedder; with candidates
// that all fail to load the error propagates, since the operator asked for
// linking and silent degradation would hide a broken deployment.
func buildEmbedder(candidates []string) (linker.EmbedFunc, string, error) {
	if len(candidates) == 0 {
		log.Warn().Msg("no embedding model configured, entities will not be linked")
		embed, modelID := offlineEmbedder()
		return embed, modelID, nil
	}
	return linker.NewHugotEmbedder(candidates...)
}

// offlineEmbedder is the stand-in when no embedding model is configured. The
// linker treats the error as a per-entity pass-through, so documents still
// flow end to end unlinked.
func offlineEmbedder() (linker.EmbedFunc, string) {
	return func(texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("no embedding model configured")
	}, "none"
}
