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

// Package workflow assembles the pipeline commands into the chains the
// server and the queue listener run. This file implements the summary
// workflow: from a request to grounded text and, optionally, narration.
package workflow

import (
	"text/template"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

// Models are the model roles the summary workflow calls.
type Models struct {
	Extract    cloud.ContentGenerator
	Synthesize cloud.ContentGenerator
	Classify   cloud.ContentGenerator
	Transcribe cloud.ContentGenerator
	Speech     cloud.SpeechSynthesizer
}

// NewModels picks the configured agent models out of clients.
func NewModels(clients *cloud.ServiceClients) (Models, error) {
	var out Models
	for name, dst := range map[string]*cloud.ContentGenerator{
		cloud.ModelExtract:    &out.Extract,
		cloud.ModelSynthesize: &out.Synthesize,
		cloud.ModelClassify:   &out.Classify,
		cloud.ModelTranscribe: &out.Transcribe,
	} {
		m, err := clients.AgentModel(name)
		if err != nil {
			return Models{}, err
		}
		*dst = m
	}
	if clients.SpeechModel != nil {
		out.Speech = clients.SpeechModel
	}
	return out, nil
}

// VideoSummaryWorkflow is the summary chain:
//
//	request -> source -> transcode -> speech-to-text -> normalize
//	        -> retain transcript -> segment -> extract -> synthesize -> narrate
//
// Transcoding and speech-to-text run only when no caption track was usable
// (transcoding only for audio the model cannot take inline), retention only
// when the request names a session, narration only for audio requests.
type VideoSummaryWorkflow struct {
	cor.BaseCommand
	config    *cloud.Config
	platform  video.Platform
	models    Models
	sink      commands.TranscriptSink
	executor  video.Executor
	templates map[string]*template.Template
	chain     cor.Chain
}

func (w *VideoSummaryWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

func (w *VideoSummaryWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Chain exposes the underlying chain, mostly for inspection in tests.
func (w *VideoSummaryWorkflow) Chain() cor.Chain {
	return w.chain
}

func (w *VideoSummaryWorkflow) initializeChain() {
	limits := w.config.Pipeline
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewSummaryRequestReader("summary-request-reader"))
	out.AddCommand(commands.NewVideoSourceResolver("video-source-resolver", w.platform, limits.MaxDurationSeconds, limits.AudioFallback))
	out.AddCommand(commands.NewAudioTranscoder("audio-transcoder", w.executor, limits.FfmpegPath, limits.InlineAudioLimitBytes))
	out.AddCommand(commands.NewSpeechToText("speech-to-text", w.models.Transcribe, w.config.Prompts().TranscribePrompt))
	out.AddCommand(commands.NewTranscriptNormalizer("transcript-normalizer",
		limits.MaxTranscriptChars, limits.LanguageSampleChars, w.models.Classify, w.templates["language"]))
	out.AddCommand(commands.NewTranscriptRetainer("transcript-retainer", w.sink))
	out.AddCommand(commands.NewTranscriptSegmenter("transcript-segmenter", limits.SegmentSize, limits.SegmentOverlap))
	out.AddCommand(commands.NewGroundedExtractor("grounded-extractor",
		w.models.Extract, w.templates["extract"], limits.ExtractionWorkers, limits.ExtractionRetries))
	out.AddCommand(commands.NewOutputSynthesizer("output-synthesizer",
		w.models.Synthesize, w.templates["synthesize"], limits.SynthesisRetries))
	out.AddCommand(commands.NewToneNarrator("tone-narrator",
		w.models.Classify, w.models.Speech, w.templates["tone"], w.templates["narration"],
		model.NewVoiceTable(w.config.Voices), w.config.Speech.SampleRate))

	w.chain = out
}

// NewVideoSummaryWorkflow builds the summary chain. sink may be nil when
// transcripts need not be retained, as for queued runs.
func NewVideoSummaryWorkflow(
	config *cloud.Config,
	platform video.Platform,
	models Models,
	sink commands.TranscriptSink) *VideoSummaryWorkflow {

	prompts := config.Prompts()
	templates := make(map[string]*template.Template)
	for name, text := range map[string]string{
		"extract":    prompts.ExtractPrompt,
		"synthesize": prompts.SynthesizePrompt,
		"language":   prompts.LanguagePrompt,
		"tone":       prompts.TonePrompt,
		"narration":  prompts.NarrationPrompt,
	} {
		t, err := template.New(name + "-template").Parse(text)
		if err != nil {
			panic(err) // The pipeline cannot run without its prompts.
		}
		templates[name] = t
	}

	w := &VideoSummaryWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-summary-workflow"),
		config:      config,
		platform:    platform,
		models:      models,
		sink:        sink,
		executor:    video.NewExecutor(),
		templates:   templates,
	}
	w.initializeChain()
	return w
}
