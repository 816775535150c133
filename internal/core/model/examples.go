// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the data structures for the application. This file
// provides the hardcoded few-shot examples embedded into prompts so the model
// returns extractions in a consistent shape.
package model

// GetExampleSegment returns a short transcript excerpt paired with
// GetExampleExtraction in the extraction prompt.
func GetExampleSegment() string {
	return `so the first thing we did was move the nightly batch to a streaming job and that cut
our reporting delay from about six hours to under ten minutes. it wasn't free though, the
compute bill went up roughly thirty percent in the first month`
}

// GetExampleExtraction is the grounded extraction expected for GetExampleSegment.
// Every bullet restates something the excerpt says; nothing is inferred.
func GetExampleExtraction() string {
	return `- The team moved a nightly batch job to a streaming job.
- Reporting delay went from about six hours to under ten minutes.
- Compute cost rose roughly 30% in the first month after the change.`
}
