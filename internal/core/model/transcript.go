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
// pipeline. This file contains the transient transcript types that flow
// between commands of a single run. None of them are persisted; the only one
// that outlives a run is the NormalizedTranscript retained by a session.
package model

// TranscriptOrigin records where a RawTranscript came from.
type TranscriptOrigin string

const (
	OriginCaptionTrack        TranscriptOrigin = "caption-track"
	OriginAutoCaption         TranscriptOrigin = "auto-caption"
	OriginSpeechToText        TranscriptOrigin = "speech-to-text"
	OriginPendingSpeechToText TranscriptOrigin = "pending-speech-to-text"
)

// RawTranscript is the unprocessed transcript of a run. When Origin is
// OriginPendingSpeechToText, Text is empty and AudioPath names the scoped
// temporary audio file waiting for transcription.
type RawTranscript struct {
	Text      string           `json:"text"`
	Origin    TranscriptOrigin `json:"origin"`
	Language  string           `json:"language,omitempty"`
	AudioPath string           `json:"-"`
}

// IsPending reports whether the transcript still needs speech-to-text.
func (r *RawTranscript) IsPending() bool {
	return r != nil && r.Origin == OriginPendingSpeechToText
}

// NormalizedTranscript is markup-free, length-capped text plus the language
// the video is spoken in.
type NormalizedTranscript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Segment is a contiguous slice of a NormalizedTranscript. Start is a rune
// offset into the normalized text.
type Segment struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	Text  string `json:"text"`
}

// Extraction is the grounded bullet text produced from exactly one Segment.
type Extraction struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
