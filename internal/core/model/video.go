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

package model

import "strings"

// VideoReference is the caller supplied URL of a video on the source platform.
type VideoReference string

// Validate only checks that the reference is not blank.
func (r VideoReference) Validate() error {
	if strings.TrimSpace(string(r)) == "" {
		return NewPipelineError(KindInvalidInput, "video-reference", nil)
	}
	return nil
}

func (r VideoReference) String() string {
	return strings.TrimSpace(string(r))
}

// CaptionTier separates human-authored subtitles from platform generated ones.
type CaptionTier int

const (
	CaptionTierHuman CaptionTier = iota
	CaptionTierAuto
)

func (t CaptionTier) String() string {
	if t == CaptionTierHuman {
		return "human"
	}
	return "auto"
}

// CaptionFormat is one downloadable rendition of a caption track.
type CaptionFormat struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// CaptionTrack is a subtitle stream in one language.
type CaptionTrack struct {
	Language string          `json:"language"`
	Tier     CaptionTier     `json:"tier"`
	Formats  []CaptionFormat `json:"formats"`
}

// VideoMetadata is what the resolver learns about a video before fetching any
// transcript. DurationSeconds drives the cost ceiling check.
type VideoMetadata struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	URL             string         `json:"url"`
	DurationSeconds int            `json:"duration_seconds"`
	LanguageHint    string         `json:"language_hint,omitempty"`
	HumanCaptions   []CaptionTrack `json:"human_captions,omitempty"`
	AutoCaptions    []CaptionTrack `json:"auto_captions,omitempty"`
}

// HasCaptions reports whether any caption track exists in either tier.
func (m *VideoMetadata) HasCaptions() bool {
	return len(m.HumanCaptions) > 0 || len(m.AutoCaptions) > 0
}
