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
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// TranscriptSink keeps the transcript of a successful run for follow-up
// questions in the same session.
type TranscriptSink interface {
	Retain(sessionID string, transcript *model.NormalizedTranscript)
}

// TranscriptRetainer hands the normalized transcript to a TranscriptSink as
// soon as normalization succeeds. The command passes its input through
// unchanged. Whether the transcript may be used is decided by the sink, which
// also knows whether the rest of the run succeeded.
type TranscriptRetainer struct {
	cor.BaseCommand
	sink TranscriptSink
}

func NewTranscriptRetainer(name string, sink TranscriptSink) *TranscriptRetainer {
	return &TranscriptRetainer{BaseCommand: *cor.NewBaseCommand(name), sink: sink}
}

func (c *TranscriptRetainer) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) || c.sink == nil || context.HasErrors() {
		return false
	}
	options := RunOptions(context)
	_, ok := context.Get(ParamTranscript).(*model.NormalizedTranscript)
	return ok && options != nil && options.SessionID != ""
}

func (c *TranscriptRetainer) Execute(context cor.Context) {
	transcript := context.Get(ParamTranscript).(*model.NormalizedTranscript)
	c.sink.Retain(RunOptions(context).SessionID, transcript)
	c.Succeed(context)
}
