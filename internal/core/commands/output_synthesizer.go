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
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// ExtractionDelimiter separates per-segment extractions in the synthesis prompt.
const ExtractionDelimiter = "\n\n---\n\n"

// JoinExtractions concatenates extractions in segment order.
func JoinExtractions(extractions []model.Extraction) string {
	parts := make([]string, len(extractions))
	for i, e := range extractions {
		parts[i] = strings.TrimSpace(e.Text)
	}
	return strings.Join(parts, ExtractionDelimiter)
}

// OutputSynthesizer writes the final artifact from all extractions in the
// requested language and output mode.
type OutputSynthesizer struct {
	cor.BaseCommand
	generativeAIModel cloud.ContentGenerator
	template          *template.Template
	maxRetries        int
	counters          cloud.TokenCounters
}

func NewOutputSynthesizer(name string, model cloud.ContentGenerator, template *template.Template, maxRetries int) *OutputSynthesizer {
	out := &OutputSynthesizer{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: model,
		template:          template,
		maxRetries:        maxRetries,
	}
	out.counters = cloud.NewTokenCounters(out.GetMeter(), out.GetName())
	return out
}

func (c *OutputSynthesizer) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && RunOptions(context) != nil
}

func (c *OutputSynthesizer) Execute(context cor.Context) {
	extractions := context.Get(c.GetInputParam()).([]model.Extraction)
	options := RunOptions(context)

	instruction, ok := options.OutputMode.Instruction()
	if !ok {
		c.Fail(context, model.NewPipelineError(model.KindInvalidInput, c.GetName(),
			fmt.Errorf("unknown output mode %q", options.OutputMode)))
		return
	}
	title := ""
	if meta := Metadata(context); meta != nil {
		title = meta.Title
	}

	prompt, err := renderTemplate(c.template, map[string]interface{}{
		"Title":       title,
		"Language":    string(options.Language),
		"Extractions": JoinExtractions(extractions),
		"Instruction": instruction,
	})
	if err != nil {
		c.Fail(context, model.NewPipelineError(model.KindSynthesisFailed, c.GetName(),
			fmt.Errorf("failed to execute prompt template: %w", err)))
		return
	}

	text, err := cloud.GenerateText(context.GetContext(), c.counters, c.maxRetries, c.generativeAIModel, cloud.NewTextPart(prompt))
	if err != nil {
		if cerr := stageContextErr(context, c.GetName()); cerr != nil {
			c.Fail(context, cerr)
			return
		}
		c.Fail(context, model.NewPipelineError(model.KindSynthesisFailed, c.GetName(), err))
		return
	}

	out := &model.SynthesizedOutput{Text: text, Language: options.Language, Mode: options.OutputMode}
	c.Succeed(context)
	context.Add(ParamOutput, out)
	context.Add(c.GetOutputParam(), out)
}
