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

package test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// ErrNotScripted is returned by FakeGenerator for prompts no rule matches
// when no default answer is set.
var ErrNotScripted = errors.New("fake generator: no scripted response")

type fakeRule struct {
	contains string
	text     string
	err      error
	// remaining limits how often the rule may match; 0 means unlimited.
	remaining int
	limited   bool
}

// FakeGenerator is a scripted cloud.ContentGenerator and
// cloud.SpeechSynthesizer. Rules are matched in order against the text of
// the prompt; the first whose substring is present decides the answer.
type FakeGenerator struct {
	mu          sync.Mutex
	rules       []fakeRule
	Default     string
	Audio       *genai.Blob
	SpeechErr   error
	prompts     []string
	voices      []string
	inlineTypes []string
}

var _ cloud.ContentGenerator = (*FakeGenerator)(nil)
var _ cloud.SpeechSynthesizer = (*FakeGenerator)(nil)

func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{}
}

// On answers prompts containing contains with text.
func (f *FakeGenerator) On(contains string, text string) *FakeGenerator {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{contains: contains, text: text})
	return f
}

// OnError fails prompts containing contains with err.
func (f *FakeGenerator) OnError(contains string, err error) *FakeGenerator {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{contains: contains, err: err})
	return f
}

// OnErrorTimes fails the first n prompts containing contains with err.
// Later matching prompts fall through to the remaining rules.
func (f *FakeGenerator) OnErrorTimes(contains string, err error, n int) *FakeGenerator {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{contains: contains, err: err, remaining: n, limited: true})
	return f
}

func (f *FakeGenerator) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt, inline := flatten(content)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.inlineTypes = append(f.inlineTypes, inline...)
	for i := range f.rules {
		r := &f.rules[i]
		if strings.Contains(prompt, r.contains) {
			if r.limited {
				if r.remaining == 0 {
					continue
				}
				r.remaining--
			}
			if r.err != nil {
				return nil, r.err
			}
			return TextResponse(r.text), nil
		}
	}
	if f.Default != "" {
		return TextResponse(f.Default), nil
	}
	return nil, ErrNotScripted
}

func (f *FakeGenerator) SynthesizeSpeech(ctx context.Context, voice string, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, voice)
	if f.SpeechErr != nil {
		return nil, f.SpeechErr
	}
	audio := f.Audio
	if audio == nil {
		audio = &genai.Blob{Data: []byte{0, 0, 1, 0, 2, 0, 3, 0}, MIMEType: "audio/L16;codec=pcm;rate=24000"}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromParts([]*genai.Part{{InlineData: audio}}, genai.RoleModel)}},
	}, nil
}

// Calls is the number of GenerateContent calls, failed ones included.
func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// CallsContaining counts prompts that contained s.
func (f *FakeGenerator) CallsContaining(s string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.prompts {
		if strings.Contains(p, s) {
			n++
		}
	}
	return n
}

func (f *FakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Voices lists the voices SynthesizeSpeech was asked for.
func (f *FakeGenerator) Voices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.voices...)
}

// InlineMIMETypes lists the MIME types of inline data sent to the model.
func (f *FakeGenerator) InlineMIMETypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inlineTypes...)
}

func flatten(content []*genai.Content) (string, []string) {
	var b strings.Builder
	var inline []string
	for _, c := range content {
		if c == nil {
			continue
		}
		for _, p := range c.Parts {
			if p == nil {
				continue
			}
			b.WriteString(p.Text)
			if p.InlineData != nil {
				inline = append(inline, p.InlineData.MIMEType)
			}
		}
	}
	return b.String(), inline
}

// TextResponse is a single-candidate response carrying text.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: int32(len(text)),
		},
	}
}

// FakePlatform is a video.Platform that serves fixed metadata, captions and
// audio and counts every call.
type FakePlatform struct {
	mu            sync.Mutex
	Metadata      *model.VideoMetadata
	MetadataErr   error
	Captions      map[string]string
	CaptionErr    error
	AudioData     []byte
	AudioErr      error
	metadataCalls int
	captionCalls  int
	audioCalls    int
}

func (p *FakePlatform) FetchMetadata(ctx context.Context, _ model.VideoReference) (*model.VideoMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadataCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.MetadataErr != nil {
		return nil, p.MetadataErr
	}
	return p.Metadata, nil
}

func (p *FakePlatform) FetchCaptions(_ context.Context, track model.CaptionTrack) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captionCalls++
	if p.CaptionErr != nil {
		return "", p.CaptionErr
	}
	text, ok := p.Captions[track.Language]
	if !ok {
		return "", errors.New("fake platform: no caption text for " + track.Language)
	}
	return text, nil
}

func (p *FakePlatform) DownloadAudio(_ context.Context, _ model.VideoReference, dir string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audioCalls++
	if p.AudioErr != nil {
		return "", p.AudioErr
	}
	path := filepath.Join(dir, "audio.webm")
	if err := os.WriteFile(path, p.AudioData, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// FetchCalls counts caption and audio fetches together.
func (p *FakePlatform) FetchCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captionCalls + p.audioCalls
}

func (p *FakePlatform) MetadataCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metadataCalls
}

func (p *FakePlatform) AudioCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioCalls
}

// FakeObjectWriter keeps written objects in memory, keyed by gs:// URI.
type FakeObjectWriter struct {
	mu      sync.Mutex
	Err     error
	Objects map[string][]byte
	Types   map[string]string
}

func NewFakeObjectWriter() *FakeObjectWriter {
	return &FakeObjectWriter{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (w *FakeObjectWriter) WriteObject(_ context.Context, object cloud.GCSObject, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Objects[object.URI()] = append([]byte(nil), data...)
	w.Types[object.URI()] = object.MIMEType
	return nil
}

// FakeInserter records rows instead of streaming them to BigQuery.
type FakeInserter struct {
	mu   sync.Mutex
	Err  error
	Rows []interface{}
}

func (i *FakeInserter) Put(_ context.Context, src interface{}) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return i.Err
	}
	i.Rows = append(i.Rows, src)
	return nil
}

// FakePublisher records published messages.
type FakePublisher struct {
	mu       sync.Mutex
	Err      error
	Messages [][]byte
}

func (p *FakePublisher) Publish(_ context.Context, data []byte, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, data)
	return nil
}

// FakeExecutor records the programs it is asked to run. When Output is set,
// the last argument is treated as an output path and Output is written there,
// which is how ffmpeg is invoked.
type FakeExecutor struct {
	mu     sync.Mutex
	Err    error
	Output []byte
	Calls  [][]string
}

func (e *FakeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return e.ExecuteInDir(ctx, "", name, args...)
}

func (e *FakeExecutor) ExecuteInDir(_ context.Context, _ string, name string, args ...string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, append([]string{name}, args...))
	if e.Err != nil {
		return "", e.Err
	}
	if e.Output != nil && len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], e.Output, 0o600); err != nil {
			return "", err
		}
	}
	return "", nil
}
