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
	goctx "context"
	"errors"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunError returns the failure of a run as a PipelineError. Errors recorded
// without a kind (a stopped chain, for instance) are classified here.
func RunError(context cor.Context) error {
	err := context.Err()
	if err == nil {
		return nil
	}
	var pe *model.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, goctx.Canceled) || errors.Is(err, goctx.DeadlineExceeded) {
		return model.NewPipelineError(model.KindCanceled, "chain", err)
	}
	return model.NewPipelineError(model.KindInvalidInput, "chain", err)
}

// RunResult assembles the host-facing result from a finished chain context.
func RunResult(context cor.Context) *model.RunResult {
	result := &model.RunResult{Metadata: Metadata(context)}
	if options := RunOptions(context); options != nil {
		result.RequestID = options.RequestID
	}
	if v, ok := context.Get(ParamOrigin).(model.TranscriptOrigin); ok {
		result.Origin = v
	}
	if v, ok := context.Get(ParamSegmentCount).(int); ok {
		result.SegmentCount = v
	}
	if v, ok := context.Get(ParamOutput).(*model.SynthesizedOutput); ok {
		result.Output = v
	}
	if v, ok := context.Get(ParamNarration).(*model.NarrationAudio); ok {
		result.Narration = v
	}
	if v, ok := context.Get(ParamNarrationError).(error); ok {
		result.NarrationError = v
	}
	result.TextURI, _ = context.Get(ParamTextURI).(string)
	result.AudioURI, _ = context.Get(ParamAudioURI).(string)
	return result
}

// NewRunRecord builds the ledger row of a run.
func NewRunRecord(context cor.Context, now time.Time) *model.RunRecord {
	result := RunResult(context)
	record := &model.RunRecord{
		RunID:        result.RequestID,
		Origin:       string(result.Origin),
		SegmentCount: result.SegmentCount,
		TextURI:      result.TextURI,
		AudioURI:     result.AudioURI,
		Status:       StatusSucceeded,
		CreateDate:   now.UTC(),
	}
	if options := RunOptions(context); options != nil {
		record.SessionID = options.SessionID
		record.VideoURL = options.Video.String()
		record.OutputLanguage = string(options.Language)
		record.OutputMode = string(options.OutputMode)
		record.SummaryMode = string(options.SummaryMode)
	}
	if meta := result.Metadata; meta != nil {
		record.VideoID = meta.ID
		record.Title = meta.Title
		record.DurationSeconds = meta.DurationSeconds
	}
	if t, ok := context.Get(ParamTranscript).(*model.NormalizedTranscript); ok {
		record.SpokenLanguage = t.Language
	}
	if err := RunError(context); err != nil {
		record.Status = StatusFailed
		record.ErrorKind = string(model.KindOf(err))
	} else if result.NarrationError != nil {
		record.ErrorKind = string(model.KindOf(result.NarrationError))
	}
	return record
}

// NewRunNotification builds the completion message of a queued run.
func NewRunNotification(context cor.Context) *model.RunNotification {
	record := NewRunRecord(context, time.Now())
	n := &model.RunNotification{
		RequestID: record.RunID,
		SessionID: record.SessionID,
		VideoURL:  record.VideoURL,
		Status:    record.Status,
		ErrorKind: record.ErrorKind,
		TextURI:   record.TextURI,
		AudioURI:  record.AudioURI,
	}
	if record.ErrorKind != "" {
		n.Message = model.ErrorKind(record.ErrorKind).Message()
	}
	return n
}
