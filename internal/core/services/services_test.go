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

package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
)

func TestSessionLifecycle(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	s := store.Create()
	require.NotEmpty(t, s.ID)

	require.NoError(t, store.BeginRun(s.ID))
	store.Retain(s.ID, &model.NormalizedTranscript{Text: "words", Language: "English"})
	store.EndRun(s.ID, &model.RunResult{RequestID: "r1"})

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.True(t, got.HasTranscript())
	assert.Equal(t, 1, got.Runs)

	// A new run invalidates the previous transcript.
	require.NoError(t, store.BeginRun(s.ID))
	got, _ = store.Get(s.ID)
	assert.False(t, got.HasTranscript())
	assert.Nil(t, got.LastRun)

	stats := store.Stats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, int64(2), stats.TotalRuns)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
	assert.ErrorIs(t, store.BeginRun("missing"), services.ErrSessionNotFound)
}

func TestSessionEviction(t *testing.T) {
	store := services.NewSessionStore(time.Minute)
	s := store.Create()

	assert.Equal(t, 0, store.Evict(time.Now()))
	assert.Equal(t, 1, store.Evict(time.Now().Add(2*time.Minute)))
	_, err := store.Get(s.ID)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestSessionJanitorStopsWithContext(t *testing.T) {
	store := services.NewSessionStore(time.Nanosecond)
	store.Create()
	ctx, cancel := context.WithCancel(context.Background())
	store.StartJanitor(ctx, time.Millisecond)

	assert.Eventually(t, func() bool { return store.Stats().ActiveSessions == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

type harness struct {
	store    *services.SessionStore
	gen      *test.FakeGenerator
	platform *test.FakePlatform
	summary  *services.SummaryService
	qa       *services.QuestionAnswerService
}

func newHarness(t *testing.T, platform *test.FakePlatform) *harness {
	config := cloud.NewConfig()
	store := services.NewSessionStore(time.Hour)
	gen := test.NewFakeGenerator().
		On("Identify the language", "English").
		On("extracting facts from part", "- The speaker plans three launches.").
		On("grounded extractions below", "## Executive Summary\nThree launches are planned.").
		On("Answer the question", "Three launches.")
	models := workflow.Models{Extract: gen, Synthesize: gen, Classify: gen, Transcribe: gen, Speech: gen}
	summary := workflow.NewSummaryPublishingWorkflow(
		workflow.NewVideoSummaryWorkflow(config, platform, models, store), workflow.Outputs{})

	return &harness{
		store:    store,
		gen:      gen,
		platform: platform,
		summary:  &services.SummaryService{Workflow: summary, Sessions: store, RunTimeout: time.Minute},
		qa:       services.NewQuestionAnswerService(gen, cloud.DefaultQuestionPrompt, store, 18000),
	}
}

func captionPlatform() *test.FakePlatform {
	return &test.FakePlatform{
		Metadata: test.NewTestMetadata([]model.CaptionTrack{test.NewTestTrack("en", model.CaptionTierHuman)}, nil),
		Captions: map[string]string{"en": "We plan three launches this year."},
	}
}

func TestQuestionBeforeRunIsInvalidInput(t *testing.T) {
	h := newHarness(t, captionPlatform())
	s := h.store.Create()

	_, err := h.qa.Ask(context.Background(), s.ID, "How many launches?", "")
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
	assert.Equal(t, 0, h.gen.Calls())
}

func TestQuestionAfterRunIsGrounded(t *testing.T) {
	h := newHarness(t, captionPlatform())
	s := h.store.Create()

	_, err := h.summary.Summarize(context.Background(), test.NewTestRequest(s.ID))
	require.NoError(t, err)

	answer, err := h.qa.Ask(context.Background(), s.ID, "How many launches?", "")
	require.NoError(t, err)
	assert.Equal(t, "Three launches.", answer.Text)
	assert.False(t, answer.NotFound)

	prompts := h.gen.Prompts()
	last := prompts[len(prompts)-1]
	assert.Contains(t, last, "We plan three launches this year.")
	assert.Contains(t, last, cloud.NotFoundMarker)

	got, _ := h.store.Get(s.ID)
	assert.Equal(t, 1, got.Questions)
}

func TestQuestionAfterFailedRunIsInvalidInput(t *testing.T) {
	platform := captionPlatform()
	h := newHarness(t, platform)
	s := h.store.Create()

	_, err := h.summary.Summarize(context.Background(), test.NewTestRequest(s.ID))
	require.NoError(t, err)

	platform.Metadata.DurationSeconds = 4000
	_, err = h.summary.Summarize(context.Background(), test.NewTestRequest(s.ID))
	require.True(t, errors.Is(err, model.ErrDurationExceeded))

	calls := h.gen.Calls()
	_, err = h.qa.Ask(context.Background(), s.ID, "How many launches?", "")
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
	assert.Equal(t, calls, h.gen.Calls())
}

func TestRejectedRequestKeepsRetainedTranscript(t *testing.T) {
	h := newHarness(t, captionPlatform())
	s := h.store.Create()

	_, err := h.summary.Summarize(context.Background(), test.NewTestRequest(s.ID))
	require.NoError(t, err)

	bad := test.NewTestRequest(s.ID)
	bad.VideoURL = "   "
	_, err = h.summary.Summarize(context.Background(), bad)
	require.True(t, errors.Is(err, model.ErrInvalidInput))

	session, err := h.store.Get(s.ID)
	require.NoError(t, err)
	assert.True(t, session.HasTranscript())

	answer, err := h.qa.Ask(context.Background(), s.ID, "How many launches?", "")
	require.NoError(t, err)
	assert.Equal(t, "Three launches.", answer.Text)
}

func TestEmptyQuestionMakesNoModelCall(t *testing.T) {
	h := newHarness(t, captionPlatform())
	_, err := h.qa.AnswerTranscript(context.Background(), "   ",
		&model.NormalizedTranscript{Text: "words", Language: "English"}, model.LanguageEnglish)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
	assert.Equal(t, 0, h.gen.Calls())
}

func TestAnswerTranscriptCapsTranscript(t *testing.T) {
	h := newHarness(t, captionPlatform())
	h.qa.MaxTranscriptChars = 10
	transcript := &model.NormalizedTranscript{Text: "0123456789TAIL", Language: "English"}

	_, err := h.qa.AnswerTranscript(context.Background(), "What?", transcript, model.LanguageSpanish)
	require.NoError(t, err)
	prompt := h.gen.Prompts()[0]
	assert.Contains(t, prompt, "0123456789")
	assert.False(t, strings.Contains(prompt, "TAIL"))
	assert.Contains(t, prompt, "Answer in Spanish.")
}

func TestSummarizeUnknownSession(t *testing.T) {
	h := newHarness(t, captionPlatform())
	result, err := h.summary.Summarize(context.Background(), test.NewTestRequest("missing"))

	require.NotNil(t, result)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
	assert.Equal(t, 0, h.platform.MetadataCalls())
}

func TestSummarizeCanceled(t *testing.T) {
	h := newHarness(t, captionPlatform())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.summary.Summarize(ctx, test.NewTestRequest(""))
	assert.True(t, errors.Is(err, model.ErrCanceled))
	assert.Equal(t, 0, h.gen.Calls())
}
