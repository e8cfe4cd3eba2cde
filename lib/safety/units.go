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

// Package safety evaluates a clinical resource bundle against a fixed rule
// table and emits a deterministically ordered risk report.
package safety

import (
	"math"
	"strings"
)

// Lab units are normalised to SI before any threshold comparison, so the rule
// table never needs to know which unit a value was reported in.

// NormalizeGlucose converts mg/dL glucose readings to mmol/L, rounded to two
// decimals. Values already in mmol/L (or any other unit) pass through.
func NormalizeGlucose(value float64, unit string) (float64, string) {
	if strings.EqualFold(unit, "mg/dl") {
		return math.Round(value/18*100) / 100, "mmol/L"
	}
	return value, unit
}

// NormalizeCreatinine converts mg/dL creatinine readings to µmol/L, rounded
// to one decimal.
func NormalizeCreatinine(value float64, unit string) (float64, string) {
	if strings.EqualFold(unit, "mg/dl") {
		return math.Round(value*88.4*10) / 10, "µmol/L"
	}
	return value, unit
}
