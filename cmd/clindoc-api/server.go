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
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/clinformatics/clindoc/lib/fhir"
	"github.com/clinformatics/clindoc/lib/safety"
)

type HttpError struct {
	code int
	error
}

func (e HttpError) Error() string {
	return e.error.Error()
}

func NewHttpError(code int, err error) HttpError {
	return HttpError{
		code:  code,
		error: err,
	}
}

type server struct {
	controller controller
}

func (s server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Health)
	r.POST("/sections", validateBody, s.Sections)
	r.POST("/entities", validateBody, s.Entities)
	r.POST("/linked", validateBody, s.Linked)
	r.POST("/bundle", validateBody, s.Bundle)
	r.POST("/safety", validateBody, s.Safety)
	r.POST("/process", validateBody, s.Process)
}

func (s server) Health(c *gin.Context) {
	c.JSON(200, map[string]string{"status": "ok"})
}

// Sections accepts the raw document as a plain-text body and returns the
// section map.
func (s server) Sections(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, s.controller.Sections(string(raw)))
}

func (s server) Entities(c *gin.Context) {
	var sections map[string]string
	if err := c.BindJSON(&sections); err != nil {
		handleError(c, NewHttpError(400, errors.New("request body must be a json object of section name to text")))
		return
	}
	c.JSON(200, s.controller.Entities(sections))
}

func (s server) Linked(c *gin.Context) {
	var sections map[string]string
	if err := c.BindJSON(&sections); err != nil {
		handleError(c, NewHttpError(400, errors.New("request body must be a json object of section name to text")))
		return
	}
	c.JSON(200, s.controller.Linked(sections))
}

type bundleRequest struct {
	Sections map[string]string      `json:"sections"`
	Linked   map[string]interface{} `json:"linked"`
}

func (s server) Bundle(c *gin.Context) {
	var req bundleRequest
	if err := c.BindJSON(&req); err != nil {
		handleError(c, NewHttpError(400, errors.New("request body must contain sections and linked entities")))
		return
	}
	c.JSON(200, s.controller.Bundle(req.Sections, req.Linked))
}

type safetyRequest struct {
	Bundle     *fhir.Bundle             `json:"bundle"`
	PreFlagged []safety.PreFlaggedIssue `json:"pre_flagged"`
}

func (s server) Safety(c *gin.Context) {
	var req safetyRequest
	if err := c.BindJSON(&req); err != nil {
		handleError(c, NewHttpError(400, errors.New("request body must contain a bundle")))
		return
	}
	c.JSON(200, s.controller.Safety(req.Bundle, req.PreFlagged))
}

// Process runs the whole pipeline on a plain-text document and returns all
// four artifacts.
func (s server) Process(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, s.controller.Process(string(raw)))
}

func validateBody(c *gin.Context) {
	if c.Request.Body == nil {
		handleError(c, NewHttpError(400, errors.New("request body missing")))
	} else if _, err := c.Request.Body.Read(nil); err == io.EOF {
		handleError(c, NewHttpError(400, errors.New("request body missing")))
	} else {
		c.Next()
	}
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		abort(c, 500, errors.New("abort called on nil error"))
	}
	switch e := err.(type) {
	case HttpError:
		abort(c, e.code, e.error)
	default:
		abort(c, 500, e)
	}
}

func abort(c *gin.Context, code int, err error) {
	switch {
	case code <= 500:
		c.JSON(code, map[string]interface{}{
			"status":  code,
			"message": err.Error(),
		})
		c.Abort()
	default:
		_ = c.AbortWithError(code, err)
	}
}
