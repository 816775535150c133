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
// This file defines ArtifactUpload, which persists the products of a
// successful run to Cloud Storage.
//
// Logic flow:
//  1. Skip runs that failed or produced no text.
//  2. Write the text as prefix/session/run.txt.
//  3. If narration audio exists, write it next to the text as run.wav.
//  4. Record the gs:// URIs under ParamTextURI and ParamAudioURI.
//
// Upload failures are logged and counted. They do not fail the run, because
// the text has already been produced and is returned to the caller.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const (
	TextArtifactMIMEType = "text/plain; charset=utf-8"
	TextArtifactExt      = ".txt"
	AudioArtifactExt     = ".wav"
)

type ArtifactUpload struct {
	cor.BaseCommand
	writer cloud.ObjectWriter
	bucket string
	prefix string
}

func NewArtifactUpload(name string, writer cloud.ObjectWriter, bucket string, prefix string) *ArtifactUpload {
	return &ArtifactUpload{BaseCommand: *cor.NewBaseCommand(name), writer: writer, bucket: bucket, prefix: prefix}
}

func (c *ArtifactUpload) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil || context.HasErrors() || c.writer == nil || c.bucket == "" {
		return false
	}
	_, ok := context.Get(ParamOutput).(*model.SynthesizedOutput)
	return ok && RunOptions(context) != nil
}

func (c *ArtifactUpload) Execute(context cor.Context) {
	ctx := context.GetContext()
	options := RunOptions(context)
	output := context.Get(ParamOutput).(*model.SynthesizedOutput)

	text := cloud.GCSObject{
		Bucket:   c.bucket,
		Name:     cloud.ArtifactObjectName(c.prefix, options.SessionID, options.RequestID, TextArtifactExt),
		MIMEType: TextArtifactMIMEType,
	}
	if err := c.writer.WriteObject(ctx, text, []byte(output.Text)); err != nil {
		c.fail(context, err)
		return
	}
	context.Add(ParamTextURI, text.URI())

	if audio, ok := context.Get(ParamNarration).(*model.NarrationAudio); ok && len(audio.Data) > 0 {
		object := cloud.GCSObject{
			Bucket:   c.bucket,
			Name:     cloud.ArtifactObjectName(c.prefix, options.SessionID, options.RequestID, AudioArtifactExt),
			MIMEType: audio.MIMEType,
		}
		if err := c.writer.WriteObject(ctx, object, audio.Data); err != nil {
			c.fail(context, err)
			return
		}
		context.Add(ParamAudioURI, object.URI())
	}

	c.Succeed(context)
	slog.InfoContext(ctx, "artifacts uploaded", "request_id", options.RequestID, "text_uri", text.URI())
}

func (c *ArtifactUpload) fail(context cor.Context, err error) {
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(context.GetContext(), 1)
	}
	slog.WarnContext(context.GetContext(), "artifact upload failed", "command", c.GetName(), "error", err)
}
