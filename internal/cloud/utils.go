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

// Package cloud holds the configuration structures and client wrappers for the
// Google Cloud services the summarizer talks to. This file contains the
// layered configuration loader and the generation helper every model-backed
// command goes through.
//
// Configuration is read from two TOML files decoded into the same struct:
// a base file (.env.toml) and a runtime override (.env.<GCP_RUNTIME>.toml),
// both located under GCP_CONFIG_PREFIX. Values in the override win.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX"
	EnvConfigRuntime    = "GCP_RUNTIME"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime-specific configuration paths in
// load order.
func ConfigFiles() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	return base, runtime
}

// LoadConfig decodes the base file and then the runtime override into
// baseConfig. Missing files are skipped; malformed files are an error.
func LoadConfig(baseConfig interface{}) error {
	base, runtime := ConfigFiles()
	for _, name := range []string{base, runtime} {
		if !fileExists(name) {
			slog.Debug("configuration file not found", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}

// TokenCounters are the per-command model usage instruments.
type TokenCounters struct {
	Input  metric.Int64Counter
	Output metric.Int64Counter
	Retry  metric.Int64Counter
}

// NewTokenCounters creates <name>.gemini.token.input, .output and .retry on
// meter. Instrument errors leave the counter nil, which the helpers tolerate.
func NewTokenCounters(meter metric.Meter, name string) TokenCounters {
	in, _ := meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	out, _ := meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	retry, _ := meter.Int64Counter(fmt.Sprintf("%s.gemini.retry", name))
	return TokenCounters{Input: in, Output: out, Retry: retry}
}

func (t TokenCounters) record(ctx context.Context, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	if t.Input != nil {
		t.Input.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
	}
	if t.Output != nil {
		t.Output.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}
}

// GenerateResponse calls model, retrying transient failures up to maxRetries
// times, and records token usage.
func GenerateResponse(
	ctx context.Context,
	counters TokenCounters,
	maxRetries int,
	model ContentGenerator,
	content []*genai.Content) (*genai.GenerateContentResponse, error) {

	onRetry := func(int, error) {
		if counters.Retry != nil {
			counters.Retry.Add(ctx, 1)
		}
	}
	resp, err := RetryDo(ctx, DefaultRetryConfig.WithRetries(maxRetries), onRetry, func() (*genai.GenerateContentResponse, error) {
		return model.GenerateContent(ctx, content)
	})
	if err != nil {
		return nil, err
	}
	counters.record(ctx, resp)
	return resp, nil
}

// GenerateText is GenerateResponse reduced to the concatenated text of the
// first candidate, with any markdown code fence removed. An empty answer is
// an error.
func GenerateText(
	ctx context.Context,
	counters TokenCounters,
	maxRetries int,
	model ContentGenerator,
	content []*genai.Content) (string, error) {

	resp, err := GenerateResponse(ctx, counters, maxRetries, model, content)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(ResponseText(resp))
	value = strings.TrimPrefix(value, "```markdown")
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("model returned an empty response")
	}
	return value, nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// ResponseAudio returns the first inline data part of the first candidate.
func ResponseAudio(resp *genai.GenerateContentResponse) (*genai.Blob, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, true
		}
	}
	return nil, false
}

func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}

// NewInlineContent builds a user turn of a text instruction followed by
// inline bytes, as used for audio transcription.
func NewInlineContent(prompt string, data []byte, mimeType string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}
}
