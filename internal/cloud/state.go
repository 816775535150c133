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
// Google Cloud services the summarizer talks to. This file defines
// ServiceClients, the container every workflow and service receives its
// clients from, and the function that builds it from a Config.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	PubSubListeners map[string]*PubSubListener
	ResultTopics    map[string]*TopicPublisher      // Keyed like PubSubListeners.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
	SpeechModel     *QuotaAwareGenerativeAIModel
}

// Close releases every client. Safe on a partially built container.
func (c *ServiceClients) Close() {
	for _, t := range c.ResultTopics {
		t.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// AgentModel returns the named model or an error naming the missing
// configuration entry.
func (c *ServiceClients) AgentModel(name string) (*QuotaAwareGenerativeAIModel, error) {
	m, ok := c.AgentModels[name]
	if !ok {
		return nil, fmt.Errorf("agent model %q is not configured", name)
	}
	return m, nil
}

// NewCloudServiceClients connects to every service named in config.
func NewCloudServiceClients(ctx context.Context, config *Config) (_ *ServiceClients, err error) {
	cloud := &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		ResultTopics:    make(map[string]*TopicPublisher),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
		}
	}()

	if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
		return nil, fmt.Errorf("iam credentials client: %w", err)
	}

	slog.InfoContext(ctx, "creating genai client",
		"project", config.Application.GoogleProjectId, "location", config.Application.GoogleLocation)
	cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	if config.BigQueryDataSource.RunTable != "" {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return nil, fmt.Errorf("bigquery client: %w", err)
		}
	}

	for subKey, values := range config.TopicSubscriptions {
		listener, lerr := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
		if lerr != nil {
			return nil, lerr
		}
		if values.TimeoutInSeconds > 0 {
			listener.SetTimeout(time.Duration(values.TimeoutInSeconds) * time.Second)
		}
		cloud.PubSubListeners[subKey] = listener
		if values.ResultTopic != "" {
			cloud.ResultTopics[subKey] = NewTopicPublisher(cloud.PubsubClient, values.ResultTopic)
		}
	}

	for amKey, values := range config.AgentModels {
		slog.DebugContext(ctx, "configuring agent model", "key", amKey, "model", values.Model)
		cloud.AgentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, cloud.GenAIClient.Models, values.RateLimit)
	}

	if config.Speech.Model != "" {
		cloud.SpeechModel = NewQuotaAwareModel(NewSpeechConfig(""), config.Speech.Model, cloud.GenAIClient.Models, config.Speech.RateLimit)
	}

	return cloud, nil
}
