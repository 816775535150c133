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

package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// SummaryService runs the summary workflow for a synchronous caller and
// keeps the session state around the run.
type SummaryService struct {
	Workflow   cor.Command
	Sessions   *SessionStore
	RunTimeout time.Duration
}

// Summarize runs one request to completion. The returned result is never
// nil; on failure it holds whatever the run produced before stopping and the
// error is a *model.PipelineError.
func (s *SummaryService) Summarize(ctx context.Context, request *model.SummaryRequest) (*model.RunResult, error) {
	ctx, span := otel.Tracer("summary-service").Start(ctx, "summarize")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", request.SessionID))

	// A request the reader will reject is not a run and leaves the session's
	// last transcript in place.
	_, invalid := request.Validate()
	if request.SessionID != "" && s.Sessions != nil && invalid == nil {
		if err := s.Sessions.BeginRun(request.SessionID); err != nil {
			return &model.RunResult{}, model.NewPipelineError(model.KindInvalidInput, "summary-service", err)
		}
	}

	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, request)
	defer chainCtx.Close()

	if s.Workflow.IsExecutable(chainCtx) {
		s.Workflow.Execute(chainCtx)
	}

	result := commands.RunResult(chainCtx)
	err := commands.RunError(chainCtx)
	if err != nil {
		span.SetStatus(codes.Error, string(model.KindOf(err)))
		return result, err
	}
	if request.SessionID != "" && s.Sessions != nil {
		s.Sessions.EndRun(request.SessionID, result)
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}
