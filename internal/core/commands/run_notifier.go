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

package commands

import (
	goctx "context"
	"encoding/json"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
)

// RunNotifier publishes a model.RunNotification for every run started from
// the queue, whatever its outcome.
type RunNotifier struct {
	cor.BaseCommand
	publisher cloud.Publisher
}

func NewRunNotifier(name string, publisher cloud.Publisher) *RunNotifier {
	return &RunNotifier{BaseCommand: *cor.NewBaseCommand(name), publisher: publisher}
}

func (c *RunNotifier) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && c.publisher != nil && RunOptions(context) != nil
}

func (c *RunNotifier) Execute(context cor.Context) {
	ctx := goctx.WithoutCancel(context.GetContext())
	notification := NewRunNotification(context)

	data, err := json.Marshal(notification)
	if err == nil {
		err = c.publisher.Publish(ctx, data, map[string]string{
			"status":     notification.Status,
			"request_id": notification.RequestID,
		})
	}
	if err != nil {
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(ctx, 1)
		}
		slog.ErrorContext(ctx, "failed to publish run notification", "request_id", notification.RequestID, "error", err)
		return
	}
	c.Succeed(context)
}
