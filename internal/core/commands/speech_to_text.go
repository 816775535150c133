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
	"errors"
	"fmt"
	"os"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// SpeechToText transcribes the downloaded audio of a caption-less video. It
// only runs when the resolver handed over a pending transcript; on the
// caption path the chain skips it and the raw transcript passes through.
type SpeechToText struct {
	cor.BaseCommand
	model    cloud.ContentGenerator
	prompt   string
	counters cloud.TokenCounters
}

func NewSpeechToText(name string, model cloud.ContentGenerator, prompt string) *SpeechToText {
	out := &SpeechToText{
		BaseCommand: *cor.NewBaseCommand(name),
		model:       model,
		prompt:      prompt,
	}
	out.counters = cloud.NewTokenCounters(out.GetMeter(), out.GetName())
	return out
}

func (c *SpeechToText) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	raw, ok := context.Get(c.GetInputParam()).(*model.RawTranscript)
	return ok && raw.IsPending()
}

func (c *SpeechToText) fail(context cor.Context, err error) {
	if cerr := stageContextErr(context, c.GetName()); cerr != nil {
		c.Fail(context, cerr)
		return
	}
	c.Fail(context, model.NewPipelineError(model.KindTranscriptionFailed, c.GetName(), err))
}

func (c *SpeechToText) Execute(context cor.Context) {
	raw := context.Get(c.GetInputParam()).(*model.RawTranscript)
	// The audio file is removed here on every path; the chain context also
	// removes its directory when the run closes.
	defer func() { _ = os.Remove(raw.AudioPath) }()

	data, err := os.ReadFile(raw.AudioPath)
	if err != nil {
		c.fail(context, fmt.Errorf("failed to read audio: %w", err))
		return
	}
	mimeType, err := AudioMIMEType(data)
	if err != nil {
		c.fail(context, err)
		return
	}

	// Single attempt: transcription is not retried.
	text, err := cloud.GenerateText(context.GetContext(), c.counters, 0, c.model,
		cloud.NewInlineContent(c.prompt, data, mimeType))
	if err != nil {
		c.fail(context, err)
		return
	}

	c.Succeed(context)
	context.Add(ParamOrigin, model.OriginSpeechToText)
	context.Add(c.GetOutputParam(), &model.RawTranscript{Text: text, Origin: model.OriginSpeechToText})
}

// AudioMIMEType sniffs the container of downloaded audio. yt-dlp's bestaudio
// is normally m4a or webm; webm is reported as video/webm by content and is
// mapped to its audio form.
func AudioMIMEType(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("failed to detect audio type: %w", err)
	}
	if kind == filetype.Unknown {
		return "", errors.New("unrecognized audio format")
	}
	switch kind.MIME.Value {
	case "video/webm":
		return "audio/webm", nil
	case "video/mp4", "audio/x-m4a":
		return "audio/mp4", nil
	}
	if !filetype.IsAudio(data) {
		return "", fmt.Errorf("downloaded media is %s, not audio", kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}
