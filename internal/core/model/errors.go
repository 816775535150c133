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

// Package model defines the data structures shared by the summarization
// pipeline. This file holds the closed set of failure kinds a run can end
// with. Every external-call failure is converted into a PipelineError at the
// boundary where it happens, so callers can branch on the kind instead of
// testing for empty values.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the class of a pipeline failure.
type ErrorKind string

const (
	KindDurationExceeded      ErrorKind = "DurationExceeded"
	KindTranscriptUnavailable ErrorKind = "TranscriptUnavailable"
	KindTranscriptionFailed   ErrorKind = "TranscriptionFailed"
	KindExtractionFailed      ErrorKind = "ExtractionFailed"
	KindSynthesisFailed       ErrorKind = "SynthesisFailed"
	KindNarrationFailed       ErrorKind = "NarrationFailed"
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindCanceled              ErrorKind = "Canceled"
)

// kindMessages holds the user-facing text reported for each failure kind.
var kindMessages = map[ErrorKind]string{
	KindDurationExceeded:      "The video is longer than the supported maximum duration.",
	KindTranscriptUnavailable: "Transcript not available for this video.",
	KindTranscriptionFailed:   "The audio track could not be transcribed.",
	KindExtractionFailed:      "A section of the transcript could not be analyzed.",
	KindSynthesisFailed:       "The final summary could not be generated.",
	KindNarrationFailed:       "The audio narration could not be generated. The text summary is still available.",
	KindInvalidInput:          "The request is missing required input.",
	KindCanceled:              "The request was canceled before it completed.",
}

// Message returns the human-readable description of the kind.
func (k ErrorKind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return "The request failed."
}

// PipelineError is the single error type returned by every pipeline stage.
// SegmentIndex is only meaningful for KindExtractionFailed and is -1 otherwise.
type PipelineError struct {
	Kind         ErrorKind
	Stage        string
	SegmentIndex int
	Err          error
}

// NewPipelineError builds a PipelineError that is not tied to a segment.
func NewPipelineError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, SegmentIndex: -1, Err: err}
}

// NewExtractionError builds the ExtractionFailed(segmentIndex) failure.
func NewExtractionError(stage string, segmentIndex int, err error) *PipelineError {
	return &PipelineError{Kind: KindExtractionFailed, Stage: stage, SegmentIndex: segmentIndex, Err: err}
}

func (e *PipelineError) Error() string {
	var head string
	if e.Kind == KindExtractionFailed && e.SegmentIndex >= 0 {
		head = fmt.Sprintf("%s(segment=%d) in %s", e.Kind, e.SegmentIndex, e.Stage)
	} else {
		head = fmt.Sprintf("%s in %s", e.Kind, e.Stage)
	}
	if e.Err != nil {
		return head + ": " + e.Err.Error()
	}
	return head
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, model.ErrSynthesisFailed).
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.SegmentIndex < 0 || t.SegmentIndex == e.SegmentIndex)
}

// Sentinels for errors.Is comparisons.
var (
	ErrDurationExceeded      = &PipelineError{Kind: KindDurationExceeded, SegmentIndex: -1}
	ErrTranscriptUnavailable = &PipelineError{Kind: KindTranscriptUnavailable, SegmentIndex: -1}
	ErrTranscriptionFailed   = &PipelineError{Kind: KindTranscriptionFailed, SegmentIndex: -1}
	ErrExtractionFailed      = &PipelineError{Kind: KindExtractionFailed, SegmentIndex: -1}
	ErrSynthesisFailed       = &PipelineError{Kind: KindSynthesisFailed, SegmentIndex: -1}
	ErrNarrationFailed       = &PipelineError{Kind: KindNarrationFailed, SegmentIndex: -1}
	ErrInvalidInput          = &PipelineError{Kind: KindInvalidInput, SegmentIndex: -1}
	ErrCanceled              = &PipelineError{Kind: KindCanceled, SegmentIndex: -1}
)

// KindOf reports the failure kind carried by err, or "" when err is not a
// PipelineError.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
