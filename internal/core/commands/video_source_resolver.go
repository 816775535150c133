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
// This file defines VideoSourceResolver, the first step after request
// validation.
//
// Logic flow:
//  1. Fetch metadata only; no media is downloaded.
//  2. Reject videos longer than the configured ceiling before anything else
//     is fetched.
//  3. Pick a caption track (human English, human any, auto English, auto
//     any) and download its text.
//  4. With no captions and audio fallback enabled, download the best audio
//     stream into a run-scoped temporary directory and hand a pending
//     transcript to the speech-to-text step.
//
// Every platform failure surfaces as TranscriptUnavailable carrying its cause.
package commands

import (
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

type VideoSourceResolver struct {
	cor.BaseCommand
	platform           video.Platform
	maxDurationSeconds int
	audioFallback      bool
}

func NewVideoSourceResolver(name string, platform video.Platform, maxDurationSeconds int, audioFallback bool) *VideoSourceResolver {
	return &VideoSourceResolver{
		BaseCommand:        *cor.NewBaseCommand(name),
		platform:           platform,
		maxDurationSeconds: maxDurationSeconds,
		audioFallback:      audioFallback,
	}
}

func (c *VideoSourceResolver) unavailable(context cor.Context, err error) {
	c.Fail(context, model.NewPipelineError(model.KindTranscriptUnavailable, c.GetName(), err))
}

func (c *VideoSourceResolver) Execute(context cor.Context) {
	options := context.Get(c.GetInputParam()).(*model.RunOptions)
	ctx := context.GetContext()
	span := trace.SpanFromContext(ctx)

	meta, err := c.platform.FetchMetadata(ctx, options.Video)
	if err != nil {
		if cerr := stageContextErr(context, c.GetName()); cerr != nil {
			c.Fail(context, cerr)
			return
		}
		c.unavailable(context, err)
		return
	}
	context.Add(ParamMetadata, meta)
	span.SetAttributes(
		attribute.String("video.id", meta.ID),
		attribute.Int("video.duration_seconds", meta.DurationSeconds),
	)

	if c.maxDurationSeconds > 0 && meta.DurationSeconds > c.maxDurationSeconds {
		c.Fail(context, model.NewPipelineError(model.KindDurationExceeded, c.GetName(),
			fmt.Errorf("duration %ds exceeds the %ds ceiling", meta.DurationSeconds, c.maxDurationSeconds)))
		return
	}

	if track, ok := video.SelectCaptionTrack(meta); ok {
		span.SetAttributes(attribute.String("caption.language", track.Language), attribute.String("caption.tier", track.Tier.String()))
		text, err := c.platform.FetchCaptions(ctx, track)
		if err != nil {
			c.unavailable(context, fmt.Errorf("caption track %s (%s): %w", track.Language, track.Tier, err))
			return
		}
		origin := model.OriginCaptionTrack
		if track.Tier == model.CaptionTierAuto {
			origin = model.OriginAutoCaption
		}
		c.succeed(context, &model.RawTranscript{Text: text, Origin: origin, Language: track.Language})
		return
	}

	if !c.audioFallback {
		c.unavailable(context, errors.New("video has no caption tracks"))
		return
	}

	dir, err := os.MkdirTemp("", "video-summarizer-*")
	if err != nil {
		c.unavailable(context, fmt.Errorf("failed to create audio directory: %w", err))
		return
	}
	context.AddTempFile(dir)

	path, err := c.platform.DownloadAudio(ctx, options.Video, dir)
	if err != nil {
		c.unavailable(context, err)
		return
	}
	c.succeed(context, &model.RawTranscript{Origin: model.OriginPendingSpeechToText, AudioPath: path})
}

func (c *VideoSourceResolver) succeed(context cor.Context, raw *model.RawTranscript) {
	c.Succeed(context)
	context.Add(ParamOrigin, raw.Origin)
	context.Add(c.GetOutputParam(), raw)
}
