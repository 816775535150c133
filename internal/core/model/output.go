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

package model

import (
	"fmt"
	"sort"
	"strings"
)

// Language is one of the fixed output languages a summary can be written in.
type Language string

const (
	LanguageEnglish    Language = "English"
	LanguageHindi      Language = "Hindi"
	LanguageSpanish    Language = "Spanish"
	LanguageFrench     Language = "French"
	LanguageGerman     Language = "German"
	LanguagePortuguese Language = "Portuguese"
	LanguageJapanese   Language = "Japanese"
)

// Languages lists the supported output languages in display order.
var Languages = []Language{
	LanguageEnglish,
	LanguageHindi,
	LanguageSpanish,
	LanguageFrench,
	LanguageGerman,
	LanguagePortuguese,
	LanguageJapanese,
}

var languageCodes = map[string]Language{
	"en": LanguageEnglish,
	"hi": LanguageHindi,
	"es": LanguageSpanish,
	"fr": LanguageFrench,
	"de": LanguageGerman,
	"pt": LanguagePortuguese,
	"ja": LanguageJapanese,
}

// ParseLanguage accepts a language name ("spanish") or ISO 639-1 code ("es").
// An empty value selects English.
func ParseLanguage(in string) (Language, error) {
	v := strings.TrimSpace(in)
	if v == "" {
		return LanguageEnglish, nil
	}
	if l, ok := languageCodes[strings.ToLower(v)]; ok {
		return l, nil
	}
	for _, l := range Languages {
		if strings.EqualFold(string(l), v) {
			return l, nil
		}
	}
	return "", NewPipelineError(KindInvalidInput, "language", fmt.Errorf("unsupported language %q", in))
}

// OutputMode selects the shape of the synthesized artifact.
type OutputMode string

const (
	OutputExecutiveReport OutputMode = "executive_report"
	OutputDeepAnalysis    OutputMode = "deep_analysis"
	OutputNarrationScript OutputMode = "narration_script"
	OutputLinkedInPost    OutputMode = "linkedin_post"
	OutputTwitterThread   OutputMode = "twitter_thread"
	OutputBlogDraft       OutputMode = "blog_draft"
)

// outputInstructions maps every mode to the instruction block appended to the
// synthesis prompt. Adding a mode is adding an entry here.
var outputInstructions = map[OutputMode]string{
	OutputExecutiveReport: `Produce an intelligence report with these sections:
1. Executive Summary: one short paragraph.
2. Key Insights: bullet points.
3. Actionable Steps: a numbered list of steps the viewer can take, only if the content states them.
4. LinkedIn Post Version: a short professional post.`,
	OutputDeepAnalysis: `Produce a deep analysis with these sections:
1. Core Thesis.
2. Arguments and Evidence: each argument with the explanations, examples and figures given for it.
3. Open Questions: points the speaker raises but does not resolve.
4. Conclusion.`,
	OutputNarrationScript: `Write a narration script meant to be read aloud. Use plain sentences without markdown,
headings, bullet characters or emoji. Keep it between 150 and 300 words.`,
	OutputLinkedInPost: `Write a LinkedIn post: a strong opening line, three to five short paragraphs or bullets
with the key takeaways, and a closing question for the audience. At most three hashtags.`,
	OutputTwitterThread: `Write a thread of 5 to 8 numbered posts, each under 280 characters. The first post
states the main idea; the last post summarizes.`,
	OutputBlogDraft: `Write a blog draft in markdown with a title, an introduction, three to five sections with
headings, and a conclusion.`,
}

// OutputModes returns the supported modes sorted by name.
func OutputModes() []OutputMode {
	out := make([]OutputMode, 0, len(outputInstructions))
	for m := range outputInstructions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Instruction returns the fixed instruction block for the mode.
func (m OutputMode) Instruction() (string, bool) {
	s, ok := outputInstructions[m]
	return s, ok
}

// ParseOutputMode validates a mode name. An empty value selects the executive report.
func ParseOutputMode(in string) (OutputMode, error) {
	v := OutputMode(strings.ToLower(strings.TrimSpace(in)))
	if v == "" {
		return OutputExecutiveReport, nil
	}
	if _, ok := outputInstructions[v]; !ok {
		return "", NewPipelineError(KindInvalidInput, "output-mode", fmt.Errorf("unsupported output mode %q", in))
	}
	return v, nil
}

// SummaryMode selects between a text result and a narrated audio result.
type SummaryMode string

const (
	SummaryText  SummaryMode = "text"
	SummaryAudio SummaryMode = "audio"
)

// ParseSummaryMode validates a summary mode. An empty value selects text.
func ParseSummaryMode(in string) (SummaryMode, error) {
	switch SummaryMode(strings.ToLower(strings.TrimSpace(in))) {
	case "", SummaryText:
		return SummaryText, nil
	case SummaryAudio:
		return SummaryAudio, nil
	}
	return "", NewPipelineError(KindInvalidInput, "summary-mode", fmt.Errorf("unsupported summary mode %q", in))
}

// SynthesizedOutput is the terminal text product of a run.
type SynthesizedOutput struct {
	Text     string     `json:"text"`
	Language Language   `json:"language"`
	Mode     OutputMode `json:"mode"`
}

// NarrationAudio is the optional audio rendition of a SynthesizedOutput.
type NarrationAudio struct {
	Data     []byte    `json:"-"`
	MIMEType string    `json:"mime_type"`
	Voice    string    `json:"voice"`
	Tone     ToneLabel `json:"tone"`
}
