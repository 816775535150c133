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
// Google Cloud services the summarizer talks to. This file defines the
// configuration model loaded from the layered TOML files in configs/.
package cloud

import "google.golang.org/genai"

// Logical names of the agent models a configuration is expected to define.
const (
	ModelExtract    = "extract"
	ModelSynthesize = "synthesize"
	ModelClassify   = "classify"
	ModelTranscribe = "transcribe"
	ModelAnswer     = "answer"
)

// Logical name of the subscription carrying asynchronous summary requests.
const SummaryRequestSubscription = "SummaryRequests"

// DefaultSafetySettings disables blocking on the harm categories; transcripts
// of news or documentary content would otherwise be refused.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

type Telemetry struct {
	ExportEnabled bool   `toml:"export_enabled"` // Send traces and metrics to Cloud Trace / Monitoring.
	LogFile       string `toml:"log_file"`       // Optional file mirrored with stdout; empty disables it.
	LogLevel      string `toml:"log_level"`      // debug, info, warn or error.
}

// Pipeline holds the limits of a summarization run.
type Pipeline struct {
	MaxDurationSeconds      int    `toml:"max_duration_seconds"`
	MaxTranscriptChars      int    `toml:"max_transcript_chars"`
	SegmentSize             int    `toml:"segment_size"`
	SegmentOverlap          int    `toml:"segment_overlap"`
	LanguageSampleChars     int    `toml:"language_sample_chars"`
	QuestionTranscriptChars int    `toml:"question_transcript_chars"`
	ExtractionWorkers       int    `toml:"extraction_workers"`
	ExtractionRetries       int    `toml:"extraction_retries"`
	SynthesisRetries        int    `toml:"synthesis_retries"`
	AudioFallback           bool   `toml:"audio_fallback"`
	YtDlpPath               string `toml:"yt_dlp_path"`
	FfmpegPath              string `toml:"ffmpeg_path"`              // Empty disables audio transcoding.
	InlineAudioLimitBytes   int64  `toml:"inline_audio_limit_bytes"` // Larger downloads are transcoded first.
	CaptionFetchRetries     int    `toml:"caption_fetch_retries"`
	SessionIdleMinutes      int    `toml:"session_idle_minutes"`
	RunTimeoutSeconds       int    `toml:"run_timeout_seconds"`
}

type Storage struct {
	ArtifactBucket   string `toml:"artifact_bucket"`    // Bucket receiving summary text and narration audio.
	ArtifactPrefix   string `toml:"artifact_prefix"`    // Object name prefix, e.g. "summaries/".
	SignedURLMinutes int    `toml:"signed_url_minutes"` // Lifetime of V4 signed download URLs.
}

type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`
	RunTable    string `toml:"run_table"` // Ledger of completed runs; empty disables persistence.
}

// PromptTemplates are text/template sources. Blank entries fall back to the
// built-in defaults.
type PromptTemplates struct {
	ExtractPrompt    string `toml:"extract"`
	SynthesizePrompt string `toml:"synthesize"`
	LanguagePrompt   string `toml:"language"`
	TonePrompt       string `toml:"tone"`
	TranscribePrompt string `toml:"transcribe"`
	QuestionPrompt   string `toml:"question"`
	NarrationPrompt  string `toml:"narration"`
}

type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// Speech configures the text-to-speech model used for narration.
type Speech struct {
	Model      string `toml:"model"`
	RateLimit  int    `toml:"rate_limit"`
	SampleRate int    `toml:"sample_rate"` // PCM sample rate returned by the model.
}

type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	ResultTopic      string `toml:"result_topic"` // Topic receiving a RunNotification per processed message.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Config is the root of the application configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		Port                      string `toml:"port"`
	} `toml:"application"`
	Telemetry          Telemetry                    `toml:"telemetry"`
	Pipeline           Pipeline                     `toml:"pipeline"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	Speech             Speech                       `toml:"speech"`
	Voices             map[string]string            `toml:"voices"` // Tone label -> prebuilt voice name overrides.
}

// NewConfig returns a Config populated with defaults that the TOML files may
// override.
func NewConfig() *Config {
	c := &Config{
		Pipeline: Pipeline{
			MaxDurationSeconds:      1800,
			MaxTranscriptChars:      20000,
			SegmentSize:             4000,
			SegmentOverlap:          500,
			LanguageSampleChars:     2000,
			QuestionTranscriptChars: 18000,
			ExtractionWorkers:       4,
			ExtractionRetries:       2,
			SynthesisRetries:        1,
			AudioFallback:           true,
			YtDlpPath:               "yt-dlp",
			FfmpegPath:              "ffmpeg",
			InlineAudioLimitBytes:   18 << 20,
			CaptionFetchRetries:     3,
			SessionIdleMinutes:      60,
			RunTimeoutSeconds:       600,
		},
		Storage:            Storage{ArtifactPrefix: "summaries/", SignedURLMinutes: 15},
		Speech:             Speech{Model: "gemini-2.5-flash-preview-tts", RateLimit: 1, SampleRate: 24000},
		Telemetry:          Telemetry{LogLevel: "info"},
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Voices:             make(map[string]string),
	}
	c.Application.Port = "8080"
	c.Application.ThreadPoolSize = 4
	return c
}

// Prompts returns the prompt templates with blanks filled from the defaults.
func (c *Config) Prompts() PromptTemplates {
	p := c.PromptTemplates
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.ExtractPrompt, DefaultExtractPrompt)
	fill(&p.SynthesizePrompt, DefaultSynthesizePrompt)
	fill(&p.LanguagePrompt, DefaultLanguagePrompt)
	fill(&p.TonePrompt, DefaultTonePrompt)
	fill(&p.TranscribePrompt, DefaultTranscribePrompt)
	fill(&p.QuestionPrompt, DefaultQuestionPrompt)
	fill(&p.NarrationPrompt, DefaultNarrationPrompt)
	return p
}
