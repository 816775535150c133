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

package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/zeebo/assert"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

const tName = "cloud.google.com/video-summarizer/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

// TestLiveSummary runs the whole pipeline against yt-dlp and Vertex AI.
func TestLiveSummary(t *testing.T) {
	test.LiveCloud(t)
	config := test.GetConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx, span := tracer.Start(ctx, "live-summary")
	defer span.End()

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	test.HandleErr(err, t)
	defer clients.Close()

	models, err := workflow.NewModels(clients)
	test.HandleErr(err, t)
	platform := video.NewYtDlp(config.Pipeline.YtDlpPath, video.NewExecutor(), config.Pipeline.CaptionFetchRetries)
	summary := workflow.NewVideoSummaryWorkflow(config, platform, models, nil)
	w := workflow.NewSummaryPublishingWorkflow(summary, workflow.NewOutputs(config, clients))

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, test.GetTestSummaryMessageText())
	defer chCtx.Close()

	w.Execute(chCtx)
	for name, e := range chCtx.GetErrors() {
		logger.ErrorContext(ctx, "command failed", "command", name, "error", e)
	}
	assert.NoError(t, commands.RunError(chCtx))

	result := commands.RunResult(chCtx)
	assert.NotNil(t, result.Output)
	assert.That(t, len(result.Output.Text) > 0)
	logger.InfoContext(ctx, "live summary", "origin", result.Origin, "segments", result.SegmentCount)
}
