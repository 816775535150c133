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

package cloud

// NotFoundMarker is the exact answer the Q&A prompt asks for when the
// transcript does not contain the answer.
const NotFoundMarker = "Not found in the video transcript."

// NotMentionedMarker is what synthesized reports say for requested sections
// the video does not cover.
const NotMentionedMarker = "Not explicitly mentioned"

// Built-in prompt templates. Each is parsed with text/template.
const (
	DefaultExtractPrompt = `You are extracting facts from part {{.Number}} of {{.Total}} of a video transcript.

Rules:
- Only restate what the transcript segment actually says.
- Do not generalize, infer, or add outside knowledge.
- Keep names, numbers, and claims exactly as spoken.
- Return concise bullet insights, one fact per bullet.

Example segment:
{{.ExampleSegment}}

Example extraction:
{{.ExampleExtraction}}

Transcript segment:
{{.Segment}}`

	DefaultSynthesizePrompt = `You are writing a report about the video "{{.Title}}" from the grounded extractions below.
Each block between --- markers was extracted from consecutive parts of the transcript.

Rules:
- Use only information present in the extractions. Do not invent facts.
- If a section asks for something the extractions do not contain, write "` + NotMentionedMarker + `".
- Write the entire response in {{.Language}}.

Extractions:
{{.Extractions}}

Format:
{{.Instruction}}`

	DefaultLanguagePrompt = `Identify the language of the following transcript excerpt.
Reply with the English name of the language only, as a single word, with no punctuation.

{{.Sample}}`

	DefaultTonePrompt = `Classify the overall tone of the following text.
Reply with exactly one word from this list: {{.Labels}}.

{{.Text}}`

	DefaultTranscribePrompt = `Transcribe the speech in this audio verbatim. Return only the transcript text with no commentary or timestamps.`

	DefaultQuestionPrompt = `Answer the question using only the video transcript below.
If the transcript does not contain the answer, reply exactly: ` + NotFoundMarker + `
Answer in {{.Language}}.

Transcript:
{{.Transcript}}

Question: {{.Question}}`

	DefaultNarrationPrompt = `Read the following in a {{.Tone}} tone:

{{.Text}}`
)
