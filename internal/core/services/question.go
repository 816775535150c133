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
	"bytes"
	"context"
	"errors"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const questionStage = "question-answer"

var (
	errNoQuestion   = errors.New("question is empty")
	errNoTranscript = errors.New("no transcript from a successful run in this session")
)

// Answer is a grounded reply. NotFound is set when the model used the
// not-found marker.
type Answer struct {
	Text     string `json:"text"`
	NotFound bool   `json:"not_found"`
}

// QuestionAnswerService answers questions from a retained transcript only.
type QuestionAnswerService struct {
	Model              cloud.ContentGenerator
	Template           *template.Template
	Sessions           *SessionStore
	MaxTranscriptChars int
	MaxRetries         int
	counters           cloud.TokenCounters
}

func NewQuestionAnswerService(model cloud.ContentGenerator, prompt string, sessions *SessionStore, maxTranscriptChars int) *QuestionAnswerService {
	t := template.Must(template.New("question-template").Parse(prompt))
	return &QuestionAnswerService{
		Model:              model,
		Template:           t,
		Sessions:           sessions,
		MaxTranscriptChars: maxTranscriptChars,
		MaxRetries:         1,
		counters:           cloud.NewTokenCounters(otel.Meter(cor.MeterName), questionStage),
	}
}

// Ask answers in the language of the session's last successful run unless
// language names another one.
func (s *QuestionAnswerService) Ask(ctx context.Context, sessionID string, question string, language string) (*Answer, error) {
	session, err := s.Sessions.Get(sessionID)
	if err != nil {
		return nil, model.NewPipelineError(model.KindInvalidInput, questionStage, err)
	}
	if !session.HasTranscript() || session.LastRun == nil {
		return nil, model.NewPipelineError(model.KindInvalidInput, questionStage, errNoTranscript)
	}

	lang := model.LanguageEnglish
	if session.LastRun.Output != nil {
		lang = session.LastRun.Output.Language
	}
	if strings.TrimSpace(language) != "" {
		if lang, err = model.ParseLanguage(language); err != nil {
			return nil, err
		}
	}

	answer, err := s.AnswerTranscript(ctx, question, session.Transcript, lang)
	if err == nil {
		s.Sessions.RecordQuestion(sessionID)
	}
	return answer, err
}

// AnswerTranscript is the stateless question step. An empty question or a
// missing transcript fails with InvalidInput before any model call.
func (s *QuestionAnswerService) AnswerTranscript(
	ctx context.Context,
	question string,
	transcript *model.NormalizedTranscript,
	language model.Language) (*Answer, error) {

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, model.NewPipelineError(model.KindInvalidInput, questionStage, errNoQuestion)
	}
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, model.NewPipelineError(model.KindInvalidInput, questionStage, errNoTranscript)
	}

	var prompt bytes.Buffer
	if err := s.Template.Execute(&prompt, map[string]interface{}{
		"Language":   string(language),
		"Transcript": capRunes(transcript.Text, s.MaxTranscriptChars),
		"Question":   question,
	}); err != nil {
		return nil, model.NewPipelineError(model.KindInvalidInput, questionStage, err)
	}

	text, err := cloud.GenerateText(ctx, s.counters, s.MaxRetries, s.Model, cloud.NewTextPart(prompt.String()))
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.NewPipelineError(model.KindCanceled, questionStage, err)
		}
		return nil, model.NewPipelineError(model.KindSynthesisFailed, questionStage, err)
	}
	return &Answer{Text: text, NotFound: strings.Contains(text, cloud.NotFoundMarker)}, nil
}

func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
