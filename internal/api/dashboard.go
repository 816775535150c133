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
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

// OutcomeReader is the read side of the run ledger.
type OutcomeReader interface {
	Outcomes(ctx context.Context) ([]services.RunOutcome, error)
	RecentRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Stats is the body of GET /stats. Outcomes is omitted when no ledger is
// configured or it could not be read.
type Stats struct {
	Sessions services.SessionStats `json:"sessions"`
	Outcomes []services.RunOutcome `json:"outcomes,omitempty"`
}

// Dashboard sets up the statistics routes.
func (h *Handlers) Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			out := Stats{Sessions: h.Sessions.Stats()}
			if h.Ledger != nil {
				outcomes, err := h.Ledger.Outcomes(c.Request.Context())
				if err != nil {
					// Session counters are still worth returning.
					slog.WarnContext(c.Request.Context(), "unable to read run outcomes", "error", err)
				} else {
					out.Outcomes = outcomes
				}
			}
			c.JSON(http.StatusOK, out)
		})

		stats.GET("/runs", func(c *gin.Context) {
			if h.Ledger == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "run ledger is not configured"})
				return
			}
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
			if err != nil || limit <= 0 || limit > 500 {
				limit = 20
			}
			runs, err := h.Ledger.RecentRuns(c.Request.Context(), limit)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, runs)
		})
	}
}
