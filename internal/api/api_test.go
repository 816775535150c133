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

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/api"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
)

type stubSummarizer struct {
	result *model.RunResult
	err    error
	got    *model.SummaryRequest
}

func (s *stubSummarizer) Summarize(_ context.Context, request *model.SummaryRequest) (*model.RunResult, error) {
	s.got = request
	return s.result, s.err
}

type stubLedger struct {
	err error
}

func (l *stubLedger) Outcomes(context.Context) ([]services.RunOutcome, error) {
	if l.err != nil {
		return nil, l.err
	}
	return []services.RunOutcome{{Status: "succeeded", Origin: "caption-track", Runs: 3}}, nil
}

func (l *stubLedger) RecentRuns(context.Context, int) ([]model.RunRecord, error) {
	return []model.RunRecord{{RunID: "r1"}}, nil
}

func newRouter(h *api.Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, api.StatusFor(model.NewPipelineError(model.KindInvalidInput, "x", nil)))
	assert.Equal(t, http.StatusNotFound, api.StatusFor(
		model.NewPipelineError(model.KindInvalidInput, "x", services.ErrSessionNotFound)))
	assert.Equal(t, http.StatusUnprocessableEntity, api.StatusFor(model.ErrDurationExceeded))
	assert.Equal(t, http.StatusBadGateway, api.StatusFor(model.NewExtractionError("x", 4, errors.New("boom"))))
	assert.Equal(t, http.StatusGatewayTimeout, api.StatusFor(model.ErrCanceled))
	assert.Equal(t, http.StatusInternalServerError, api.StatusFor(errors.New("plain")))
}

func TestErrorBodyNamesSegment(t *testing.T) {
	body := api.NewErrorBody(model.NewExtractionError("grounded-extractor", 4, errors.New("boom")))
	require.NotNil(t, body.SegmentIndex)
	assert.Equal(t, 4, *body.SegmentIndex)
	assert.Equal(t, model.KindExtractionFailed.Message(), body.Message)
}

func TestCreateSessionAndSummarize(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	summarizer := &stubSummarizer{result: &model.RunResult{
		RequestID:      "r1",
		Output:         &model.SynthesizedOutput{Text: "## Summary", Language: model.LanguageEnglish},
		NarrationError: model.NewPipelineError(model.KindNarrationFailed, "tone-narrator", errors.New("tts down")),
	}}
	r := newRouter(&api.Handlers{Sessions: store, Summaries: summarizer})

	w := do(r, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var s services.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))

	w = do(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/summaries", `{"video_url":"`+test.TestVideoURL+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, s.ID, summarizer.got.SessionID)

	var out struct {
		Output  model.SynthesizedOutput `json:"output"`
		Warning api.ErrorBody           `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "## Summary", out.Output.Text)
	assert.Equal(t, model.KindNarrationFailed, out.Warning.Kind)
}

func TestSummarizeFailureStatus(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	s := store.Create()
	summarizer := &stubSummarizer{result: &model.RunResult{}, err: model.NewPipelineError(model.KindDurationExceeded, "video-source-resolver", nil)}
	r := newRouter(&api.Handlers{Sessions: store, Summaries: summarizer})

	w := do(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/summaries", `{"video_url":"`+test.TestVideoURL+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(model.KindDurationExceeded))

	w = do(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/summaries", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionBeforeRun(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	s := store.Create()
	gen := test.NewFakeGenerator()
	qa := services.NewQuestionAnswerService(gen, cloud.DefaultQuestionPrompt, store, 1000)
	r := newRouter(&api.Handlers{Sessions: store, Questions: qa})

	w := do(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/questions", `{"question":"What launches?"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, gen.Calls())

	w = do(r, http.MethodPost, "/api/v1/sessions/unknown/questions", `{"question":"What launches?"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummaryDownloads(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	s := store.Create()
	require.NoError(t, store.BeginRun(s.ID))
	store.EndRun(s.ID, &model.RunResult{
		Metadata: test.NewTestMetadata(nil, nil),
		Output:   &model.SynthesizedOutput{Text: "# Report"},
	})
	r := newRouter(&api.Handlers{Sessions: store})

	w := do(r, http.MethodGet, "/api/v1/sessions/"+s.ID+"/summary/text", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Report", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dQw4w9WgXcQ.txt")
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	w = do(r, http.MethodGet, "/api/v1/sessions/"+s.ID+"/summary/audio", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArtifactRouteWithoutStorage(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	s := store.Create()
	r := newRouter(&api.Handlers{Sessions: store})

	w := do(r, http.MethodGet, "/api/v1/sessions/"+s.ID+"/artifact", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	store := services.NewSessionStore(time.Hour)
	store.Create()

	r := newRouter(&api.Handlers{Sessions: store, Ledger: &stubLedger{}})
	w := do(r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats api.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Sessions.ActiveSessions)
	require.Len(t, stats.Outcomes, 1)
	assert.Equal(t, int64(3), stats.Outcomes[0].Runs)

	// A ledger failure still returns the session counters.
	r = newRouter(&api.Handlers{Sessions: store, Ledger: &stubLedger{err: errors.New("bq down")}})
	w = do(r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "outcomes")

	w = do(r, http.MethodGet, "/api/v1/stats/runs?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"r1"`)
}
