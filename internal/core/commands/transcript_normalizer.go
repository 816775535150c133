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

package commands

import (
	"log/slog"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

var markupPattern = regexp.MustCompile(`<.*?>`)

// NormalizeText removes every <...> tag and cuts the result to maxRunes
// characters. Applying it to its own output changes nothing.
func NormalizeText(raw string, maxRunes int) string {
	text := markupPattern.ReplaceAllString(raw, "")
	if maxRunes > 0 {
		text = truncateRunes(text, maxRunes)
	}
	return text
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TranscriptNormalizer turns a raw transcript into the normalized transcript
// every later step reads, and resolves the working language: the platform's
// language hint, then the caption track's language, then a model
// classification of the opening of the text, then English.
type TranscriptNormalizer struct {
	cor.BaseCommand
	maxChars    int
	sampleChars int
	model       cloud.ContentGenerator
	template    *template.Template
	counters    cloud.TokenCounters
}

func NewTranscriptNormalizer(name string, maxChars, sampleChars int, model cloud.ContentGenerator, template *template.Template) *TranscriptNormalizer {
	out := &TranscriptNormalizer{
		BaseCommand: *cor.NewBaseCommand(name),
		maxChars:    maxChars,
		sampleChars: sampleChars,
		model:       model,
		template:    template,
	}
	out.counters = cloud.NewTokenCounters(out.GetMeter(), out.GetName())
	return out
}

func (c *TranscriptNormalizer) Execute(context cor.Context) {
	raw := context.Get(c.GetInputParam()).(*model.RawTranscript)

	text := NormalizeText(raw.Text, c.maxChars)
	if strings.TrimSpace(text) == "" {
		c.Fail(context, model.NewPipelineError(model.KindTranscriptUnavailable, c.GetName(), errTranscriptEmpty))
		return
	}

	out := &model.NormalizedTranscript{Text: text, Language: c.resolveLanguage(context, raw, text)}

	c.Succeed(context)
	context.Add(ParamTranscript, out)
	context.Add(c.GetOutputParam(), out)
}

func (c *TranscriptNormalizer) resolveLanguage(context cor.Context, raw *model.RawTranscript, text string) string {
	if meta := Metadata(context); meta != nil {
		if name, ok := video.LanguageName(meta.LanguageHint); ok {
			return name
		}
	}
	if name, ok := video.LanguageName(raw.Language); ok {
		return name
	}
	if c.model == nil || c.template == nil {
		return string(model.LanguageEnglish)
	}

	prompt, err := renderTemplate(c.template, map[string]interface{}{"Sample": truncateRunes(text, c.sampleChars)})
	if err != nil {
		slog.WarnContext(context.GetContext(), "language prompt failed, using English", "error", err)
		return string(model.LanguageEnglish)
	}
	answer, err := cloud.GenerateText(context.GetContext(), c.counters, 0, c.model, cloud.NewTextPart(prompt))
	if err != nil {
		slog.WarnContext(context.GetContext(), "language classification failed, using English", "error", err)
		return string(model.LanguageEnglish)
	}
	name, ok := CleanLanguageName(answer)
	if !ok {
		slog.WarnContext(context.GetContext(), "unusable language classification, using English", "answer", answer)
		return string(model.LanguageEnglish)
	}
	return name
}

// CleanLanguageName reduces a classifier answer to a single capitalized
// language name. Answers that are not a single word are rejected.
func CleanLanguageName(answer string) (string, bool) {
	word := strings.TrimFunc(answer, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '`'
	})
	if word == "" || strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		return "", false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), true
}
