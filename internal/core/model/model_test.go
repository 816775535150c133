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

package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineErrorMatching(t *testing.T) {
	err := fmt.Errorf("run failed: %w", model.NewExtractionError("extract-segments", 3, errors.New("boom")))

	assert.True(t, errors.Is(err, model.ErrExtractionFailed))
	assert.True(t, errors.Is(err, &model.PipelineError{Kind: model.KindExtractionFailed, SegmentIndex: 3}))
	assert.False(t, errors.Is(err, &model.PipelineError{Kind: model.KindExtractionFailed, SegmentIndex: 2}))
	assert.False(t, errors.Is(err, model.ErrSynthesisFailed))
	assert.Equal(t, model.KindExtractionFailed, model.KindOf(err))
	assert.Contains(t, err.Error(), "segment=3")

	var pe *model.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.SegmentIndex)
	assert.Equal(t, "extract-segments", pe.Stage)
}

func TestEveryKindHasAMessage(t *testing.T) {
	kinds := []model.ErrorKind{
		model.KindDurationExceeded,
		model.KindTranscriptUnavailable,
		model.KindTranscriptionFailed,
		model.KindExtractionFailed,
		model.KindSynthesisFailed,
		model.KindNarrationFailed,
		model.KindInvalidInput,
		model.KindCanceled,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		msg := k.Message()
		assert.NotEqual(t, "The request failed.", msg, k)
		assert.False(t, seen[msg], "duplicate message for %s", k)
		seen[msg] = true
	}
}

func TestSummaryRequestValidate(t *testing.T) {
	opts, err := (&model.SummaryRequest{VideoURL: "  https://youtu.be/abc  "}).Validate()
	require.NoError(t, err)
	assert.Equal(t, model.VideoReference("https://youtu.be/abc"), opts.Video)
	assert.Equal(t, model.LanguageEnglish, opts.Language)
	assert.Equal(t, model.OutputExecutiveReport, opts.OutputMode)
	assert.Equal(t, model.SummaryText, opts.SummaryMode)

	opts, err = (&model.SummaryRequest{VideoURL: "u", Language: "es", OutputMode: "Blog_Draft", SummaryMode: "AUDIO"}).Validate()
	require.NoError(t, err)
	assert.Equal(t, model.LanguageSpanish, opts.Language)
	assert.Equal(t, model.OutputBlogDraft, opts.OutputMode)
	assert.Equal(t, model.SummaryAudio, opts.SummaryMode)

	_, err = (&model.SummaryRequest{VideoURL: "   "}).Validate()
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = (&model.SummaryRequest{VideoURL: "u", Language: "klingon"}).Validate()
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = (&model.SummaryRequest{VideoURL: "u", OutputMode: "haiku"}).Validate()
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestFixedSelections(t *testing.T) {
	assert.Len(t, model.Languages, 7)
	modes := model.OutputModes()
	assert.Len(t, modes, 6)
	for _, m := range modes {
		instruction, ok := m.Instruction()
		assert.True(t, ok)
		assert.NotEmpty(t, instruction)
	}
	_, ok := model.OutputMode("nope").Instruction()
	assert.False(t, ok)
}

func TestParseToneLabel(t *testing.T) {
	cases := map[string]struct {
		want model.ToneLabel
		ok   bool
	}{
		"serious":          {model.ToneSerious, true},
		"  Urgent.\n":      {model.ToneUrgent, true},
		"\"exciting\"":     {model.ToneExciting, true},
		"very serious":     {model.DefaultTone, false},
		"serious, urgent":  {model.DefaultTone, false},
		"melancholic":      {model.DefaultTone, false},
		"":                 {model.DefaultTone, false},
		"**analytical**":   {model.ToneAnalytical, true},
		"Inspirational!":   {model.ToneInspirational, true},
		"calm and serious": {model.DefaultTone, false},
	}
	for in, tc := range cases {
		got, ok := model.ParseToneLabel(in)
		assert.Equal(t, tc.want, got, in)
		assert.Equal(t, tc.ok, ok, in)
	}
}

func TestVoiceTableIsPure(t *testing.T) {
	table := model.NewVoiceTable(nil)
	first := table.Select(model.ToneSerious)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, table.Select(model.ToneSerious))
	}

	// Every label maps to a distinct voice.
	seen := map[string]bool{}
	for _, l := range model.ToneLabels {
		v := table.Select(l)
		assert.NotEmpty(t, v)
		assert.False(t, seen[v], "voice %s reused", v)
		seen[v] = true
	}

	assert.Equal(t, table.Select(model.DefaultTone), table.Select(model.ToneLabel("melancholic")))
}

func TestVoiceTableOverrides(t *testing.T) {
	table := model.NewVoiceTable(map[string]string{"Urgent": "Puck", "unknown": "Leda", "calm": "  "})
	assert.Equal(t, "Puck", table.Select(model.ToneUrgent))
	assert.Equal(t, "Aoede", table.Select(model.ToneCalm))
}
