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

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

// SetupListeners attaches the summary workflow to the summary request
// subscription, if one is configured, and starts it. Queued runs do not
// belong to an HTTP session, so their transcripts are not retained.
func SetupListeners(
	ctx context.Context,
	config *cloud.Config,
	cloudClients *cloud.ServiceClients,
	platform video.Platform,
	models workflow.Models) error {

	listener, ok := cloudClients.PubSubListeners[cloud.SummaryRequestSubscription]
	if !ok {
		slog.InfoContext(ctx, "no summary request subscription configured")
		return nil
	}

	outputs := workflow.NewOutputs(config, cloudClients)
	if topic, ok := cloudClients.ResultTopics[cloud.SummaryRequestSubscription]; ok {
		outputs.Notifier = topic
	}

	summary := workflow.NewVideoSummaryWorkflow(config, platform, models, nil)
	listener.SetCommand(workflow.NewSummaryPublishingWorkflow(summary, outputs))
	listener.SetAckPolicy(workflow.AckUnlessRetryable)
	listener.Listen(ctx)
	return nil
}
