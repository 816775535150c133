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

// This file builds the application state: configuration, cloud clients, the
// session store and the services behind the HTTP routes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/api"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
)

// StateManager holds the shared dependencies of the server.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	platform video.Platform
	handlers *api.Handlers
}

var state = &StateManager{}

// SetupOS points the configuration loader at configs/. The runtime defaults to
// local unless GCP_RUNTIME is already set.
func SetupOS() (err error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the configuration on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState connects to the cloud services, builds the workflows and
// services, and starts the session janitor and the queue listeners. The
// background work stops when ctx is canceled.
func InitState(ctx context.Context) error {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	models, err := workflow.NewModels(cloudClients)
	if err != nil {
		return err
	}
	answerModel, err := cloudClients.AgentModel(cloud.ModelAnswer)
	if err != nil {
		return err
	}

	limits := config.Pipeline
	state.platform = video.NewYtDlp(limits.YtDlpPath, video.NewExecutor(), limits.CaptionFetchRetries)

	sessions := services.NewSessionStore(time.Duration(limits.SessionIdleMinutes) * time.Minute)
	sessions.StartJanitor(ctx, time.Minute)

	outputs := workflow.NewOutputs(config, cloudClients)
	summaries := &services.SummaryService{
		Workflow: workflow.NewSummaryPublishingWorkflow(
			workflow.NewVideoSummaryWorkflow(config, state.platform, models, sessions), outputs),
		Sessions:   sessions,
		RunTimeout: time.Duration(limits.RunTimeoutSeconds) * time.Second,
	}

	handlers := &api.Handlers{
		Sessions:  sessions,
		Summaries: summaries,
		Questions: services.NewQuestionAnswerService(answerModel, config.Prompts().QuestionPrompt,
			sessions, limits.QuestionTranscriptChars),
	}
	if config.Storage.ArtifactBucket != "" {
		handlers.Artifacts = &services.ArtifactService{
			StorageClient: cloudClients.StorageClient,
			IAMClient:     cloudClients.IAMClient,
			SignerEmail:   config.Application.SignerServiceAccountEmail,
			Bucket:        config.Storage.ArtifactBucket,
			Prefix:        config.Storage.ArtifactPrefix,
			Expiry:        time.Duration(config.Storage.SignedURLMinutes) * time.Minute,
		}
	}
	if cloudClients.BiqQueryClient != nil {
		handlers.Ledger = &services.RunLedgerService{
			BigqueryClient: cloudClients.BiqQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			RunTable:       config.BigQueryDataSource.RunTable,
		}
	}
	state.handlers = handlers

	if err := SetupListeners(ctx, config, cloudClients, state.platform, models); err != nil {
		return fmt.Errorf("listeners: %w", err)
	}
	return nil
}
