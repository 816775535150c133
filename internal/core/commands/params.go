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

// Package commands contains the concrete steps of the summarization pipeline.
// Each command embeds cor.BaseCommand, reads its input from the chain
// context, and writes its result to its output parameter so the chain can
// pipe it to the next step. Results later steps need out of band (run
// options, metadata, the retained transcript, the final output) are also
// stored under the well-known keys below.
package commands

import (
	"bytes"
	"errors"
	"text/template"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const (
	ParamRunOptions     = "__RUN_OPTIONS__"
	ParamMetadata       = "__METADATA__"
	ParamOrigin         = "__ORIGIN__"
	ParamTranscript     = "__TRANSCRIPT__"
	ParamSegmentCount   = "__SEGMENT_COUNT__"
	ParamOutput         = "__OUTPUT__"
	ParamNarration      = "__NARRATION__"
	ParamNarrationError = "__NARRATION_ERROR__"
	ParamTextURI        = "__TEXT_URI__"
	ParamAudioURI       = "__AUDIO_URI__"
)

var errTranscriptEmpty = errors.New("transcript is empty after normalization")

// RunOptions returns the validated options of the current run, or nil.
func RunOptions(context cor.Context) *model.RunOptions {
	if v, ok := context.Get(ParamRunOptions).(*model.RunOptions); ok {
		return v
	}
	return nil
}

// Metadata returns the resolved video metadata, or nil.
func Metadata(context cor.Context) *model.VideoMetadata {
	if v, ok := context.Get(ParamMetadata).(*model.VideoMetadata); ok {
		return v
	}
	return nil
}

func renderTemplate(t *template.Template, data interface{}) (string, error) {
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, data); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// stageContextErr converts a done Go context into a Canceled pipeline error.
func stageContextErr(context cor.Context, stage string) error {
	if err := context.GetContext().Err(); err != nil {
		return model.NewPipelineError(model.KindCanceled, stage, err)
	}
	return nil
}
