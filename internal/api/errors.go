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

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

// ErrorBody is the JSON returned for every failed request.
type ErrorBody struct {
	Kind         model.ErrorKind `json:"error_kind"`
	Message      string          `json:"message"`
	Stage        string          `json:"stage,omitempty"`
	SegmentIndex *int            `json:"segment_index,omitempty"`
}

// StatusFor maps a pipeline failure to an HTTP status code.
func StatusFor(err error) int {
	if errors.Is(err, services.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	switch model.KindOf(err) {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindDurationExceeded, model.KindTranscriptUnavailable:
		return http.StatusUnprocessableEntity
	case model.KindTranscriptionFailed, model.KindExtractionFailed,
		model.KindSynthesisFailed, model.KindNarrationFailed:
		return http.StatusBadGateway
	case model.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorBody describes err for a client. Causes are logged, never returned.
func NewErrorBody(err error) ErrorBody {
	kind := model.KindOf(err)
	body := ErrorBody{Kind: kind, Message: kind.Message()}
	var pe *model.PipelineError
	if errors.As(err, &pe) {
		body.Stage = pe.Stage
		if pe.Kind == model.KindExtractionFailed && pe.SegmentIndex >= 0 {
			idx := pe.SegmentIndex
			body.SegmentIndex = &idx
		}
	}
	if errors.Is(err, services.ErrSessionNotFound) {
		body.Message = services.ErrSessionNotFound.Error()
	}
	return body
}

func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	} else {
		slog.InfoContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, NewErrorBody(err))
}
