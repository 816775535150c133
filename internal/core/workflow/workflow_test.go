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

package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
)

const (
	extractPrompt    = "extracting facts from part"
	synthesizePrompt = "grounded extractions below"
	languagePrompt   = "Identify the language"
	transcribePrompt = "Transcribe the speech"
)

func scriptedGenerator() *test.FakeGenerator {
	return test.NewFakeGenerator().
		On(languagePrompt, "English").
		On(transcribePrompt, "we will hire twelve engineers in march").
		On(extractPrompt, "- Twelve engineers will be hired in March.").
		On(synthesizePrompt, "## Executive Summary\nTwelve engineers will be hired in March.")
}

func models(gen *test.FakeGenerator) workflow.Models {
	return workflow.Models{Extract: gen, Synthesize: gen, Classify: gen, Transcribe: gen, Speech: gen}
}

func run(t *testing.T, w cor.Command, request *model.SummaryRequest) cor.Context {
	t.Helper()
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, request)
	t.Cleanup(func() { chCtx.Close() })
	require.True(t, w.IsExecutable(chCtx))
	w.Execute(chCtx)
	return chCtx
}

func TestChainOrder(t *testing.T) {
	w := workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), &test.FakePlatform{}, models(test.NewFakeGenerator()), nil)

	names := make([]string, 0)
	for _, c := range w.Chain().Commands() {
		names = append(names, c.GetName())
	}
	assert.Equal(t, []string{
		"summary-request-reader",
		"video-source-resolver",
		"audio-transcoder",
		"speech-to-text",
		"transcript-normalizer",
		"transcript-retainer",
		"transcript-segmenter",
		"grounded-extractor",
		"output-synthesizer",
		"tone-narrator",
	}, names)
}

func TestCaptionPathSkipsAudio(t *testing.T) {
	gen := scriptedGenerator()
	platform := &test.FakePlatform{
		Metadata: test.NewTestMetadata(nil, []model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierAuto)}),
		Captions: map[string]string{"en": "we will hire twelve engineers in march"},
	}
	w := workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(gen), nil)

	chCtx := run(t, w, test.NewTestRequest(""))
	require.NoError(t, commands.RunError(chCtx))

	result := commands.RunResult(chCtx)
	assert.Equal(t, model.OriginAutoCaption, result.Origin)
	assert.Equal(t, 1, result.SegmentCount)
	require.NotNil(t, result.Output)
	assert.Contains(t, result.Output.Text, "Twelve engineers")
	assert.Equal(t, model.LanguageEnglish, result.Output.Language)

	assert.Equal(t, 0, platform.AudioCalls())
	assert.Equal(t, 0, gen.CallsContaining(transcribePrompt))
	assert.Equal(t, 1, gen.CallsContaining(synthesizePrompt))
	assert.Empty(t, gen.Voices())
}

func TestAudioFallbackPath(t *testing.T) {
	gen := scriptedGenerator()
	platform := &test.FakePlatform{
		Metadata:  test.NewTestMetadata(nil, nil),
		AudioData: append([]byte("ID3"), make([]byte, 64)...),
	}
	w := workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(gen), nil)

	chCtx := run(t, w, test.NewTestRequest(""))
	require.NoError(t, commands.RunError(chCtx))

	result := commands.RunResult(chCtx)
	assert.Equal(t, model.OriginSpeechToText, result.Origin)
	assert.Equal(t, 1, platform.AudioCalls())
	assert.Equal(t, 1, gen.CallsContaining(transcribePrompt))
	assert.Contains(t, gen.InlineMIMETypes(), "audio/mpeg")
	assert.Equal(t, 1, gen.CallsContaining(languagePrompt))
	require.NotNil(t, result.Output)
}

func TestAudioModeNarrates(t *testing.T) {
	gen := scriptedGenerator().On("Classify the overall tone", "Calm")
	platform := &test.FakePlatform{
		Metadata: test.NewTestMetadata([]model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierHuman)}, nil),
		Captions: map[string]string{"en": "we will hire twelve engineers in march"},
	}
	w := workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(gen), nil)

	request := test.NewTestRequest("")
	request.SummaryMode = string(model.SummaryAudio)
	chCtx := run(t, w, request)
	require.NoError(t, commands.RunError(chCtx))

	result := commands.RunResult(chCtx)
	require.NotNil(t, result.Narration)
	assert.Equal(t, "audio/wav", result.Narration.MIMEType)
	assert.Len(t, gen.Voices(), 1)
}

func TestExtractionFailureHaltsBeforeSynthesis(t *testing.T) {
	config := cloud.NewConfig()
	config.Pipeline.SegmentSize = 40
	config.Pipeline.SegmentOverlap = 5
	config.Pipeline.ExtractionWorkers = 1

	gen := test.NewFakeGenerator().
		OnError("part 3 of", errors.New("blocked by safety filter")).
		On(extractPrompt, "- a fact")
	platform := &test.FakePlatform{
		Metadata: test.NewTestMetadata([]model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierHuman)}, nil),
		Captions: map[string]string{"en": strings.Repeat("the team reviewed the budget again ", 12)},
	}
	w := workflow.NewVideoSummaryWorkflow(config, platform, models(gen), nil)

	chCtx := run(t, w, test.NewTestRequest(""))
	err := commands.RunError(chCtx)
	require.Error(t, err)

	var pe *model.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.KindExtractionFailed, pe.Kind)
	assert.Equal(t, 2, pe.SegmentIndex)

	assert.Equal(t, 0, gen.CallsContaining("part 4 of"))
	assert.Equal(t, 0, gen.CallsContaining(synthesizePrompt))
	assert.Nil(t, commands.RunResult(chCtx).Output)
}

func TestPublishingAfterSuccess(t *testing.T) {
	gen := scriptedGenerator()
	platform := &test.FakePlatform{
		Metadata: test.NewTestMetadata([]model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierHuman)}, nil),
		Captions: map[string]string{"en": "we will hire twelve engineers in march"},
	}
	objects := test.NewFakeObjectWriter()
	ledger := &test.FakeInserter{}
	notifier := &test.FakePublisher{}
	w := workflow.NewSummaryPublishingWorkflow(
		workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(gen), nil),
		workflow.Outputs{Objects: objects, Bucket: "artifacts", Prefix: "summaries/", Ledger: ledger, Notifier: notifier})

	chCtx := run(t, w, test.NewTestRequest("session-9"))
	require.NoError(t, commands.RunError(chCtx))
	assert.True(t, workflow.AckUnlessRetryable(chCtx))

	assert.Len(t, objects.Objects, 1)
	result := commands.RunResult(chCtx)
	assert.True(t, strings.HasPrefix(result.TextURI, "gs://artifacts/summaries/"))

	require.Len(t, ledger.Rows, 1)
	record := ledger.Rows[0].(*model.RunRecord)
	assert.Equal(t, commands.StatusSucceeded, record.Status)

	require.Len(t, notifier.Messages, 1)
	var note model.RunNotification
	require.NoError(t, json.Unmarshal(notifier.Messages[0], &note))
	assert.Equal(t, commands.StatusSucceeded, note.Status)
	assert.Equal(t, result.TextURI, note.TextURI)
}

func TestPublishingAfterFailure(t *testing.T) {
	platform := &test.FakePlatform{Metadata: test.NewTestMetadata(nil, nil)}
	platform.Metadata.DurationSeconds = 7200
	objects := test.NewFakeObjectWriter()
	ledger := &test.FakeInserter{}
	notifier := &test.FakePublisher{}
	w := workflow.NewSummaryPublishingWorkflow(
		workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(test.NewFakeGenerator()), nil),
		workflow.Outputs{Objects: objects, Bucket: "artifacts", Ledger: ledger, Notifier: notifier})

	chCtx := run(t, w, test.NewTestRequest(""))
	assert.True(t, errors.Is(commands.RunError(chCtx), model.ErrDurationExceeded))
	// Permanent failures are acknowledged.
	assert.True(t, workflow.AckUnlessRetryable(chCtx))
	assert.Equal(t, 0, platform.FetchCalls())

	assert.Empty(t, objects.Objects)
	require.Len(t, ledger.Rows, 1)
	assert.Equal(t, commands.StatusFailed, ledger.Rows[0].(*model.RunRecord).Status)
	assert.Equal(t, string(model.KindDurationExceeded), ledger.Rows[0].(*model.RunRecord).ErrorKind)
	require.Len(t, notifier.Messages, 1)
}

func TestRetryableFailureIsNotAcked(t *testing.T) {
	gen := test.NewFakeGenerator().
		On(extractPrompt, "- a fact").
		OnError(synthesizePrompt, errors.New("model unavailable"))
	platform := &test.FakePlatform{
		Metadata: test.NewTestMetadata([]model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierHuman)}, nil),
		Captions: map[string]string{"en": "we will hire twelve engineers in march"},
	}
	w := workflow.NewSummaryPublishingWorkflow(
		workflow.NewVideoSummaryWorkflow(cloud.NewConfig(), platform, models(gen), nil), workflow.Outputs{})

	chCtx := run(t, w, test.NewTestRequest(""))
	assert.True(t, errors.Is(commands.RunError(chCtx), model.ErrSynthesisFailed))
	assert.False(t, workflow.AckUnlessRetryable(chCtx))
}
