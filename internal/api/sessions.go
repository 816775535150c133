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

// Package api contains the HTTP routes of the summarizer. Handlers translate
// between JSON and the services package and map pipeline failures to status
// codes; they hold no state of their own.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

type Summarizer interface {
	Summarize(ctx context.Context, request *model.SummaryRequest) (*model.RunResult, error)
}

type QuestionAnswerer interface {
	Ask(ctx context.Context, sessionID string, question string, language string) (*services.Answer, error)
}

type ArtifactStore interface {
	List(ctx context.Context, sessionID string) ([]services.ArtifactInfo, error)
	SignedURL(ctx context.Context, uri string) (string, error)
}

// Handlers are the dependencies of the routes. Artifacts and Ledger are
// optional; their routes answer 404 when they are not configured.
type Handlers struct {
	Sessions  *services.SessionStore
	Summaries Summarizer
	Questions QuestionAnswerer
	Artifacts ArtifactStore
	Ledger    OutcomeReader
}

// Register adds every route to r.
func (h *Handlers) Register(r *gin.RouterGroup) {
	h.SessionRouter(r)
	h.Dashboard(r)
}

// QuestionRequest is the body of POST /sessions/:id/questions.
type QuestionRequest struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
}

// SummaryResponse is a RunResult plus the failure of an optional step.
type SummaryResponse struct {
	*model.RunResult
	Warning *ErrorBody `json:"warning,omitempty"`
}

// SessionRouter sets up the session, summary and question routes.
func (h *Handlers) SessionRouter(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", func(c *gin.Context) {
			c.JSON(http.StatusCreated, h.Sessions.Create())
		})

		sessions.GET("/:id", func(c *gin.Context) {
			s, err := h.Sessions.Get(c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, s)
		})

		sessions.DELETE("/:id", func(c *gin.Context) {
			h.Sessions.Delete(c.Param("id"))
			c.Status(http.StatusNoContent)
		})

		sessions.POST("/:id/summaries", func(c *gin.Context) {
			var request model.SummaryRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				abortWithError(c, model.NewPipelineError(model.KindInvalidInput, "http", err))
				return
			}
			request.SessionID = c.Param("id")

			result, err := h.Summaries.Summarize(c.Request.Context(), &request)
			if err != nil {
				abortWithError(c, err)
				return
			}
			out := SummaryResponse{RunResult: result}
			if result.NarrationError != nil {
				body := NewErrorBody(result.NarrationError)
				out.Warning = &body
			}
			c.JSON(http.StatusOK, out)
		})

		sessions.GET("/:id/summary/text", func(c *gin.Context) {
			run, ok := h.lastRun(c)
			if !ok {
				return
			}
			if run.Output == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no summary text for this session"})
				return
			}
			c.Header("Content-Disposition", attachment(run, "txt"))
			c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(run.Output.Text))
		})

		sessions.GET("/:id/summary/audio", func(c *gin.Context) {
			run, ok := h.lastRun(c)
			if !ok {
				return
			}
			if run.Narration == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no narration for this session"})
				return
			}
			c.Header("Content-Disposition", attachment(run, "wav"))
			c.Data(http.StatusOK, run.Narration.MIMEType, run.Narration.Data)
		})

		sessions.POST("/:id/questions", func(c *gin.Context) {
			var request QuestionRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				abortWithError(c, model.NewPipelineError(model.KindInvalidInput, "http", err))
				return
			}
			answer, err := h.Questions.Ask(c.Request.Context(), c.Param("id"), request.Question, request.Language)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, answer)
		})

		// Without a uri query parameter the session's artifacts are listed;
		// with one, a signed download URL for that artifact is returned.
		sessions.GET("/:id/artifact", func(c *gin.Context) {
			if h.Artifacts == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "artifact storage is not configured"})
				return
			}
			if _, err := h.Sessions.Get(c.Param("id")); err != nil {
				abortWithError(c, err)
				return
			}
			uri := c.Query("uri")
			if uri == "" {
				list, err := h.Artifacts.List(c.Request.Context(), c.Param("id"))
				if err != nil {
					abortWithError(c, err)
					return
				}
				c.JSON(http.StatusOK, list)
				return
			}
			signed, err := h.Artifacts.SignedURL(c.Request.Context(), uri)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signed})
		})
	}
}

func (h *Handlers) lastRun(c *gin.Context) (*model.RunResult, bool) {
	s, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if s.LastRun == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run in this session"})
		return nil, false
	}
	return s.LastRun, true
}

func attachment(run *model.RunResult, ext string) string {
	name := "summary"
	if run.Metadata != nil && run.Metadata.ID != "" {
		name = run.Metadata.ID
	}
	return fmt.Sprintf("attachment; filename=%q", name+"."+ext)
}
