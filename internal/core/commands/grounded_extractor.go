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

// Package commands contains the concrete steps of the summarization pipeline.
// This file defines GroundedExtractor, which runs one model call per
// transcript segment on a bounded pool of workers.
//
// Logic flow:
//  1. One job per segment is queued; each job renders the extraction prompt
//     and owns a child span.
//  2. A fixed number of workers drain the queue. The first failure cancels
//     the jobs that have not started yet.
//  3. Results are placed back by segment index, so the output order never
//     depends on completion order.
//  4. If any job failed the run fails with ExtractionFailed naming the lowest
//     failing segment, and no extraction is passed on.
package commands

import (
	goctx "context"
	"errors"
	"fmt"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

type GroundedExtractor struct {
	cor.BaseCommand
	generativeAIModel cloud.ContentGenerator
	promptTemplate    *template.Template
	numberOfWorkers   int
	maxRetries        int
	counters          cloud.TokenCounters
}

func NewGroundedExtractor(
	name string,
	model cloud.ContentGenerator,
	prompt *template.Template,
	numberOfWorkers int,
	maxRetries int) *GroundedExtractor {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &GroundedExtractor{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: model,
		promptTemplate:    prompt,
		numberOfWorkers:   numberOfWorkers,
		maxRetries:        maxRetries,
	}
	out.counters = cloud.NewTokenCounters(out.GetMeter(), out.GetName())
	return out
}

type extractionJob struct {
	ctx     goctx.Context
	span    trace.Span
	segment model.Segment
	prompt  string
	err     error
}

type extractionResult struct {
	index int
	value string
	err   error
}

func (e *GroundedExtractor) createJob(ctx goctx.Context, segment model.Segment, total int) *extractionJob {
	jobCtx, span := e.Tracer.Start(ctx, fmt.Sprintf("%s_segment_%d", e.GetName(), segment.Index))
	span.SetAttributes(
		attribute.Int("segment.index", segment.Index),
		attribute.Int("segment.start", segment.Start),
	)

	prompt, err := renderTemplate(e.promptTemplate, map[string]interface{}{
		"Number":            segment.Index + 1,
		"Total":             total,
		"Segment":           segment.Text,
		"ExampleSegment":    model.GetExampleSegment(),
		"ExampleExtraction": model.GetExampleExtraction(),
	})
	return &extractionJob{ctx: jobCtx, span: span, segment: segment, prompt: prompt, err: err}
}

func (e *GroundedExtractor) worker(jobs <-chan *extractionJob, results chan<- *extractionResult, cancel goctx.CancelFunc, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		err := j.err
		var out string
		if err == nil {
			out, err = cloud.GenerateText(j.ctx, e.counters, e.maxRetries, e.generativeAIModel, cloud.NewTextPart(j.prompt))
		}
		if err != nil {
			cancel()
			j.span.SetStatus(codes.Error, "segment extraction failed")
			j.span.RecordError(err)
		} else {
			j.span.SetStatus(codes.Ok, "")
		}
		j.span.End()
		results <- &extractionResult{index: j.segment.Index, value: out, err: err}
	}
}

func (e *GroundedExtractor) Execute(context cor.Context) {
	segments := context.Get(e.GetInputParam()).([]model.Segment)
	parent := context.GetContext()
	poolCtx, cancel := goctx.WithCancel(parent)
	defer cancel()

	var wg sync.WaitGroup
	jobs := make(chan *extractionJob, len(segments))
	results := make(chan *extractionResult, len(segments))

	workers := e.numberOfWorkers
	if workers > len(segments) {
		workers = len(segments)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go e.worker(jobs, results, cancel, &wg)
	}
	for _, s := range segments {
		jobs <- e.createJob(poolCtx, s, len(segments))
	}
	close(jobs)
	wg.Wait()
	close(results)

	values := make([]string, len(segments))
	failedIndex := -1
	var failure error
	for r := range results {
		if r.err == nil {
			values[r.index] = r.value
			continue
		}
		// Jobs stopped by our own cancel are not the cause of the failure.
		if errors.Is(r.err, goctx.Canceled) && parent.Err() == nil {
			continue
		}
		if failedIndex == -1 || r.index < failedIndex {
			failedIndex, failure = r.index, r.err
		}
	}

	if cerr := stageContextErr(context, e.GetName()); cerr != nil {
		e.Fail(context, cerr)
		return
	}
	if failedIndex >= 0 {
		e.Fail(context, model.NewExtractionError(e.GetName(), failedIndex, failure))
		return
	}

	extractions := make([]model.Extraction, len(segments))
	for i, v := range values {
		extractions[i] = model.Extraction{Index: i, Text: v}
	}

	e.Succeed(context)
	context.Add(e.GetOutputParam(), extractions)
}
