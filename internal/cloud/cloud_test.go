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

package cloud_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
)

var fastRetry = cloud.RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}

func TestRetryDoRetriesTransientErrors(t *testing.T) {
	calls, retries := 0, 0
	_, err := cloud.RetryDo(context.Background(), fastRetry, func(int, error) { retries++ }, func() (string, error) {
		calls++
		return "", &cloud.HTTPStatusError{StatusCode: http.StatusServiceUnavailable}
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetryDoStopsOnPermanentErrors(t *testing.T) {
	calls := 0
	_, err := cloud.RetryDo(context.Background(), fastRetry, nil, func() (int, error) {
		calls++
		return 0, &cloud.HTTPStatusError{StatusCode: http.StatusBadRequest}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := cloud.RetryDo(ctx, fastRetry, nil, func() (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, cloud.IsTransient(&cloud.HTTPStatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, cloud.IsTransient(fmt.Errorf("wrapped: %w", &cloud.HTTPStatusError{StatusCode: 502})))
	assert.False(t, cloud.IsTransient(&cloud.HTTPStatusError{StatusCode: http.StatusNotFound}))
	assert.False(t, cloud.IsTransient(context.DeadlineExceeded))
	assert.False(t, cloud.IsTransient(errors.New("blocked")))
	assert.False(t, cloud.IsTransient(nil))
}

func TestRetryHTTP(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("WEBVTT"))
	}))
	defer srv.Close()

	resp, err := cloud.RetryHTTP(context.Background(), fastRetry, func() (*http.Response, error) {
		return http.Get(srv.URL)
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, hits)
}

func TestGCSURI(t *testing.T) {
	object, err := cloud.ParseGCSURI("gs://artifacts/summaries/s1/r1.txt")
	require.NoError(t, err)
	assert.Equal(t, "artifacts", object.Bucket)
	assert.Equal(t, "summaries/s1/r1.txt", object.Name)
	assert.Equal(t, "gs://artifacts/summaries/s1/r1.txt", object.URI())

	for _, bad := range []string{"https://x/y", "gs://bucket", "gs:///name", ""} {
		_, err := cloud.ParseGCSURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestArtifactObjectName(t *testing.T) {
	assert.Equal(t, "summaries/s1/r1.wav", cloud.ArtifactObjectName("summaries/", "s1", "r1", ".wav"))
	assert.Equal(t, "anonymous/r1.txt", cloud.ArtifactObjectName("", "", "r1", ".txt"))
}

func TestLoadConfig(t *testing.T) {
	config := test.GetConfig(t)

	assert.Equal(t, "video-summarizer", config.Application.Name)
	assert.False(t, config.Telemetry.ExportEnabled)
	assert.Equal(t, 900, config.Pipeline.RunTimeoutSeconds)
	assert.Equal(t, 4000, config.Pipeline.SegmentSize)

	for _, name := range []string{cloud.ModelExtract, cloud.ModelSynthesize, cloud.ModelClassify, cloud.ModelTranscribe, cloud.ModelAnswer} {
		m, ok := config.AgentModels[name]
		require.True(t, ok, name)
		assert.NotEmpty(t, m.Model)
	}
	assert.InDelta(t, 0.3, config.AgentModels[cloud.ModelSynthesize].Temperature, 0.001)

	sub, ok := config.TopicSubscriptions[cloud.SummaryRequestSubscription]
	require.True(t, ok)
	assert.Equal(t, "summary-results", sub.ResultTopic)
}

func TestPromptsFallBackToDefaults(t *testing.T) {
	config := cloud.NewConfig()
	config.PromptTemplates.ExtractPrompt = "custom {{.Segment}}"

	prompts := config.Prompts()
	assert.Equal(t, "custom {{.Segment}}", prompts.ExtractPrompt)
	assert.Equal(t, cloud.DefaultQuestionPrompt, prompts.QuestionPrompt)
}
