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

// ToneLabel is the dominant emotional tone of a synthesized text.
type ToneLabel string

const (
	ToneSerious       ToneLabel = "serious"
	ToneInspirational ToneLabel = "inspirational"
	ToneUrgent        ToneLabel = "urgent"
	ToneAnalytical    ToneLabel = "analytical"
	ToneCalm          ToneLabel = "calm"
	ToneExciting      ToneLabel = "exciting"

	// DefaultTone is used whenever the classifier answers outside the label set.
	DefaultTone = ToneCalm
)

// ToneLabels is the closed label set offered to the classifier.
var ToneLabels = []ToneLabel{
	ToneSerious,
	ToneInspirational,
	ToneUrgent,
	ToneAnalytical,
	ToneCalm,
	ToneExciting,
}

// ParseToneLabel matches classifier output against the label set. Only
// surrounding whitespace, quotes, trailing punctuation and case are ignored;
// "very serious" or "serious, urgent" are not labels and yield ok=false.
func ParseToneLabel(in string) (ToneLabel, bool) {
	v := strings.ToLower(strings.Trim(strings.TrimSpace(in), "\"'`.!*"))
	for _, l := range ToneLabels {
		if v == string(l) {
			return l, true
		}
	}
	return DefaultTone, false
}

// defaultVoices maps each tone to a prebuilt Gemini TTS voice.
var defaultVoices = map[ToneLabel]string{
	ToneSerious:       "Charon",
	ToneInspirational: "Zephyr",
	ToneUrgent:        "Kore",
	ToneAnalytical:    "Orus",
	ToneCalm:          "Aoede",
	ToneExciting:      "Fenrir",
}

// VoiceTable is a deterministic tone to voice lookup.
type VoiceTable struct {
	voices map[ToneLabel]string
}

// NewVoiceTable starts from the built-in voices and applies overrides keyed by
// tone label. Overrides for unknown labels are ignored.
func NewVoiceTable(overrides map[string]string) *VoiceTable {
	voices := make(map[ToneLabel]string, len(defaultVoices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range overrides {
		if l, ok := ParseToneLabel(k); ok && strings.TrimSpace(v) != "" {
			voices[l] = strings.TrimSpace(v)
		}
	}
	return &VoiceTable{voices: voices}
}

// Select returns the voice for an exact tone label and the default tone's
// voice for anything else.
func (t *VoiceTable) Select(label ToneLabel) string {
	if v, ok := t.voices[label]; ok {
		return v
	}
	return t.voices[DefaultTone]
}
