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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

const (
	// Options placed before -i.
	FfmpegGlobalArgs = "-y -hide_banner -loglevel error"
	// Mono 16 kHz Opus at 32 kbit/s keeps a 30 minute talk near 7 MB.
	FfmpegAudioArgs = "-vn -ac 1 -ar 16000 -c:a libopus -b:a 32k -f ogg"
	TranscodedExt   = ".ogg"

	// sniffBytes is enough of the file header for filetype to match.
	sniffBytes = 262
)

// AudioTranscoder rewrites downloaded audio that cannot be sent inline to
// the model, either because its container is not recognized or because it is
// larger than inlineLimit, into a small Ogg/Opus file. Audio that can be sent
// as is passes through untouched.
type AudioTranscoder struct {
	cor.BaseCommand
	executor    video.Executor
	ffmpegPath  string
	inlineLimit int64
}

func NewAudioTranscoder(name string, executor video.Executor, ffmpegPath string, inlineLimit int64) *AudioTranscoder {
	return &AudioTranscoder{
		BaseCommand: *cor.NewBaseCommand(name),
		executor:    executor,
		ffmpegPath:  ffmpegPath,
		inlineLimit: inlineLimit,
	}
}

func (c *AudioTranscoder) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) || c.ffmpegPath == "" || c.executor == nil {
		return false
	}
	raw, ok := context.Get(c.GetInputParam()).(*model.RawTranscript)
	return ok && raw.IsPending()
}

// NeedsTranscoding reports whether the audio at path has to be converted
// before it is sent inline.
func NeedsTranscoding(path string, inlineLimit int64) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if inlineLimit > 0 && info.Size() > inlineLimit {
		return true, nil
	}
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	_, err = AudioMIMEType(head[:n])
	return err != nil, nil
}

func (c *AudioTranscoder) Execute(context cor.Context) {
	raw := context.Get(c.GetInputParam()).(*model.RawTranscript)
	ctx := context.GetContext()

	needed, err := NeedsTranscoding(raw.AudioPath, c.inlineLimit)
	if err != nil {
		c.Fail(context, model.NewPipelineError(model.KindTranscriptionFailed, c.GetName(), err))
		return
	}
	if !needed {
		c.Succeed(context)
		return
	}

	output := strings.TrimSuffix(raw.AudioPath, filepath.Ext(raw.AudioPath)) + TranscodedExt
	if output == raw.AudioPath {
		output = raw.AudioPath + TranscodedExt
	}
	args := strings.Fields(FfmpegGlobalArgs)
	args = append(args, "-i", raw.AudioPath)
	args = append(args, strings.Fields(FfmpegAudioArgs)...)
	args = append(args, output)

	if _, err := c.executor.Execute(ctx, c.ffmpegPath, args...); err != nil {
		if cerr := stageContextErr(context, c.GetName()); cerr != nil {
			c.Fail(context, cerr)
			return
		}
		c.Fail(context, model.NewPipelineError(model.KindTranscriptionFailed, c.GetName(),
			fmt.Errorf("error running ffmpeg: %w", err)))
		return
	}
	if _, err := os.Stat(output); err != nil {
		c.Fail(context, model.NewPipelineError(model.KindTranscriptionFailed, c.GetName(),
			fmt.Errorf("ffmpeg produced no output: %w", err)))
		return
	}
	if err := os.Remove(raw.AudioPath); err != nil {
		slog.WarnContext(ctx, "unable to remove source audio", "path", raw.AudioPath, "error", err)
	}

	c.Succeed(context)
	context.Add(c.GetOutputParam(), &model.RawTranscript{
		Origin:    model.OriginPendingSpeechToText,
		Language:  raw.Language,
		AudioPath: output,
	})
}
