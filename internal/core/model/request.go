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
// pipeline. This file holds the request that starts a run, the result handed
// back to the host, and the ledger row written for completed runs.
package model

import "time"

// SummaryRequest is the wire form of a run request, received as JSON from the
// HTTP API or a Pub/Sub message.
type SummaryRequest struct {
	RequestID   string `json:"request_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	VideoURL    string `json:"video_url"`
	Language    string `json:"language,omitempty"`
	OutputMode  string `json:"output_mode,omitempty"`
	SummaryMode string `json:"summary_mode,omitempty"`
}

// RunOptions is a validated SummaryRequest.
type RunOptions struct {
	RequestID   string
	SessionID   string
	Video       VideoReference
	Language    Language
	OutputMode  OutputMode
	SummaryMode SummaryMode
}

// Validate checks the request and resolves defaults for omitted selections.
func (r *SummaryRequest) Validate() (*RunOptions, error) {
	ref := VideoReference(r.VideoURL)
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	lang, err := ParseLanguage(r.Language)
	if err != nil {
		return nil, err
	}
	mode, err := ParseOutputMode(r.OutputMode)
	if err != nil {
		return nil, err
	}
	summaryMode, err := ParseSummaryMode(r.SummaryMode)
	if err != nil {
		return nil, err
	}
	return &RunOptions{
		RequestID:   r.RequestID,
		SessionID:   r.SessionID,
		Video:       VideoReference(ref.String()),
		Language:    lang,
		OutputMode:  mode,
		SummaryMode: summaryMode,
	}, nil
}

// RunResult is what a finished run hands back to its host. Output is set
// whenever synthesis succeeded, even if narration later failed; in that case
// NarrationError carries the NarrationFailed error.
type RunResult struct {
	RequestID      string             `json:"request_id,omitempty"`
	Metadata       *VideoMetadata     `json:"metadata,omitempty"`
	Origin         TranscriptOrigin   `json:"origin,omitempty"`
	SegmentCount   int                `json:"segment_count"`
	Output         *SynthesizedOutput `json:"output,omitempty"`
	Narration      *NarrationAudio    `json:"narration,omitempty"`
	NarrationError error              `json:"-"`
	TextURI        string             `json:"text_uri,omitempty"`
	AudioURI       string             `json:"audio_uri,omitempty"`
}

// RunRecord is one row of the run ledger table.
type RunRecord struct {
	RunID           string    `json:"run_id" bigquery:"run_id"`
	SessionID       string    `json:"session_id" bigquery:"session_id"`
	VideoURL        string    `json:"video_url" bigquery:"video_url"`
	VideoID         string    `json:"video_id" bigquery:"video_id"`
	Title           string    `json:"title" bigquery:"title"`
	DurationSeconds int       `json:"duration_seconds" bigquery:"duration_seconds"`
	Origin          string    `json:"origin" bigquery:"origin"`
	SpokenLanguage  string    `json:"spoken_language" bigquery:"spoken_language"`
	OutputLanguage  string    `json:"output_language" bigquery:"output_language"`
	OutputMode      string    `json:"output_mode" bigquery:"output_mode"`
	SummaryMode     string    `json:"summary_mode" bigquery:"summary_mode"`
	SegmentCount    int       `json:"segment_count" bigquery:"segment_count"`
	TextURI         string    `json:"text_uri" bigquery:"text_uri"`
	AudioURI        string    `json:"audio_uri" bigquery:"audio_uri"`
	Status          string    `json:"status" bigquery:"status"`
	ErrorKind       string    `json:"error_kind" bigquery:"error_kind"`
	CreateDate      time.Time `json:"create_date" bigquery:"create_date"`
}

// RunNotification is published when a queued run finishes.
type RunNotification struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id,omitempty"`
	VideoURL  string `json:"video_url"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	TextURI   string `json:"text_uri,omitempty"`
	AudioURI  string `json:"audio_uri,omitempty"`
}
