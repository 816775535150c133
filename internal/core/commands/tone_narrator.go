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
// This file defines ToneNarrator, the optional audio step.
//
// Logic flow:
//  1. Classify the tone of the synthesized text against the fixed label set.
//     Anything but an exact label, including a failed call, means calm.
//  2. Look the label up in the voice table.
//  3. Ask the speech model to read the text in that voice and wrap the PCM
//     it returns in a WAV container.
//
// A narration failure is recorded under ParamNarrationError rather than on
// the chain, so the text output of the run survives it.
package commands

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strconv"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

type ToneNarrator struct {
	cor.BaseCommand
	classifier        cloud.ContentGenerator
	speech            cloud.SpeechSynthesizer
	toneTemplate      *template.Template
	narrationTemplate *template.Template
	voices            *model.VoiceTable
	sampleRate        int
	counters          cloud.TokenCounters
}

func NewToneNarrator(
	name string,
	classifier cloud.ContentGenerator,
	speech cloud.SpeechSynthesizer,
	toneTemplate *template.Template,
	narrationTemplate *template.Template,
	voices *model.VoiceTable,
	sampleRate int) *ToneNarrator {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	out := &ToneNarrator{
		BaseCommand:       *cor.NewBaseCommand(name),
		classifier:        classifier,
		speech:            speech,
		toneTemplate:      toneTemplate,
		narrationTemplate: narrationTemplate,
		voices:            voices,
		sampleRate:        sampleRate,
	}
	out.counters = cloud.NewTokenCounters(out.GetMeter(), out.GetName())
	return out
}

// IsExecutable limits narration to audio runs that produced text.
func (c *ToneNarrator) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	options := RunOptions(context)
	_, ok := context.Get(c.GetInputParam()).(*model.SynthesizedOutput)
	return ok && options != nil && options.SummaryMode == model.SummaryAudio
}

func (c *ToneNarrator) Execute(context cor.Context) {
	output := context.Get(c.GetInputParam()).(*model.SynthesizedOutput)
	ctx := context.GetContext()

	tone := c.ClassifyTone(context, output.Text)
	voice := c.voices.Select(tone)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("narration.tone", string(tone)), attribute.String("narration.voice", voice))

	audio, err := c.speak(context, output.Text, tone, voice)
	if err != nil {
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "narration failed; text output kept", "error", err)
		context.Add(ParamNarrationError, model.NewPipelineError(model.KindNarrationFailed, c.GetName(), err))
		return
	}

	c.Succeed(context)
	context.Add(ParamNarration, audio)
}

// ClassifyTone asks the classifier for a single label. Out-of-set answers
// and failed calls both yield the default tone.
func (c *ToneNarrator) ClassifyTone(context cor.Context, text string) model.ToneLabel {
	if c.classifier == nil {
		return model.DefaultTone
	}
	labels := make([]string, len(model.ToneLabels))
	for i, l := range model.ToneLabels {
		labels[i] = string(l)
	}
	prompt, err := renderTemplate(c.toneTemplate, map[string]interface{}{
		"Labels": strings.Join(labels, ", "),
		"Text":   text,
	})
	if err != nil {
		slog.WarnContext(context.GetContext(), "tone prompt failed", "error", err)
		return model.DefaultTone
	}
	answer, err := cloud.GenerateText(context.GetContext(), c.counters, 0, c.classifier, cloud.NewTextPart(prompt))
	if err != nil {
		slog.WarnContext(context.GetContext(), "tone classification failed", "error", err)
		return model.DefaultTone
	}
	label, ok := model.ParseToneLabel(answer)
	if !ok {
		slog.InfoContext(context.GetContext(), "tone outside label set", "answer", answer, "tone", string(label))
	}
	return label
}

func (c *ToneNarrator) speak(context cor.Context, text string, tone model.ToneLabel, voice string) (*model.NarrationAudio, error) {
	if c.speech == nil {
		return nil, errors.New("no speech model configured")
	}
	prompt, err := renderTemplate(c.narrationTemplate, map[string]interface{}{"Tone": string(tone), "Text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to execute narration template: %w", err)
	}
	resp, err := c.speech.SynthesizeSpeech(context.GetContext(), voice, cloud.NewTextPart(prompt))
	if err != nil {
		return nil, err
	}
	blob, ok := cloud.ResponseAudio(resp)
	if !ok {
		return nil, errors.New("speech model returned no audio")
	}
	data, mimeType := blob.Data, blob.MIMEType
	if !isWAV(mimeType, data) {
		data = EncodeWAV(data, pcmSampleRate(mimeType, c.sampleRate), 1, 16)
		mimeType = "audio/wav"
	}
	return &model.NarrationAudio{Data: data, MIMEType: mimeType, Voice: voice, Tone: tone}, nil
}

func isWAV(mimeType string, data []byte) bool {
	if strings.HasPrefix(mimeType, "audio/wav") || strings.HasPrefix(mimeType, "audio/x-wav") {
		return true
	}
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// pcmSampleRate reads the rate parameter of a type such as
// "audio/L16;codec=pcm;rate=24000".
func pcmSampleRate(mimeType string, fallback int) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return fallback
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		return rate
	}
	return fallback
}

// EncodeWAV prefixes little-endian PCM samples with a canonical 44-byte
// RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
