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

// Package test provides helpers shared by the test suites: the test
// configuration, sample requests and scripted fakes for the model and the
// video platform.
package test

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// StateManager caches the configuration so it is loaded once per test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
	err    error
}

var state = &StateManager{}

// HandleErr fails the test on a non-nil error.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ConfigDir is the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/ with the test runtime.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the test configuration, loading it on first use.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	state.once.Do(func() {
		if state.err = SetupOS(); state.err != nil {
			return
		}
		config := cloud.NewConfig()
		state.err = cloud.LoadConfig(config)
		state.config = config
	})
	HandleErr(state.err, t)
	return state.config
}

// LiveCloud skips t unless GOOGLE_CLOUD_PROJECT is set, mirroring how the
// integration suites guard calls to real services.
func LiveCloud(t *testing.T) {
	t.Helper()
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		t.Skip("GOOGLE_CLOUD_PROJECT not set; skipping live cloud test")
	}
}

const TestVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// GetTestSummaryMessageText is a queued summary request as it arrives on the
// SummaryRequests subscription.
func GetTestSummaryMessageText() string {
	return `{
  "request_id": "run-0001",
  "session_id": "session-0001",
  "video_url": "` + TestVideoURL + `",
  "language": "English",
  "output_mode": "executive_report",
  "summary_mode": "text"
}`
}

// NewTestRequest returns a text-mode request for TestVideoURL.
func NewTestRequest(sessionID string) *model.SummaryRequest {
	return &model.SummaryRequest{
		SessionID:   sessionID,
		VideoURL:    TestVideoURL,
		Language:    string(model.LanguageEnglish),
		OutputMode:  string(model.OutputExecutiveReport),
		SummaryMode: string(model.SummaryText),
	}
}

// NewTestMetadata describes a 10 minute video with the given caption tracks.
func NewTestMetadata(human []model.CaptionTrack, auto []model.CaptionTrack) *model.VideoMetadata {
	return &model.VideoMetadata{
		ID:              "dQw4w9WgXcQ",
		Title:           "Quarterly planning walkthrough",
		URL:             TestVideoURL,
		DurationSeconds: 600,
		HumanCaptions:   human,
		AutoCaptions:    auto,
	}
}

// NewTestTrack is a caption track with a single vtt format.
func NewTestTrack(language string, tier model.CaptionTier) model.CaptionTrack {
	return model.CaptionTrack{
		Language: language,
		Tier:     tier,
		Formats:  []model.CaptionFormat{{Ext: "vtt", URL: "https://captions.example.com/" + language + ".vtt"}},
	}
}
