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

// Package services contains the operations the HTTP layer exposes. This file
// defines the in-memory session store.
//
// A session is the explicit state of one user's conversation with the
// summarizer: the transcript of its last successful run, the result of that
// run and a usage count. Each session is written by one request at a time;
// the store's mutex only protects the map and the counters.
package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID         string                      `json:"id"`
	CreatedAt  time.Time                   `json:"created_at"`
	LastUsed   time.Time                   `json:"last_used"`
	Runs       int                         `json:"runs"`
	Questions  int                         `json:"questions"`
	Transcript *model.NormalizedTranscript `json:"-"`
	LastRun    *model.RunResult            `json:"last_run,omitempty"`
}

// HasTranscript reports whether questions can be answered in this session.
func (s Session) HasTranscript() bool {
	return s.Transcript != nil && s.Transcript.Text != ""
}

// SessionStats is the usage summary shown on the stats page.
type SessionStats struct {
	ActiveSessions int   `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
	TotalRuns      int64 `json:"total_runs"`
	TotalQuestions int64 `json:"total_questions"`
}

type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	idle      time.Duration
	now       func() time.Time
	created   int64
	runs      int64
	questions int64
}

// NewSessionStore evicts sessions unused for longer than idle. Zero keeps
// sessions until they are deleted.
func NewSessionStore(idle time.Duration) *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session), idle: idle, now: time.Now}
}

func (s *SessionStore) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session := &Session{ID: uuid.NewString(), CreatedAt: now, LastUsed: now}
	s.sessions[session.ID] = session
	s.created++
	return *session
}

// Get returns a copy of the session and marks it used.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	session.LastUsed = s.now()
	return *session, nil
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Retain stores the transcript of a successful run. Unknown sessions are
// ignored; they may have been evicted while the run was in flight.
func (s *SessionStore) Retain(sessionID string, transcript *model.NormalizedTranscript) {
	s.update(sessionID, func(session *Session) {
		session.Transcript = transcript
	})
}

// BeginRun drops the transcript of the previous run so questions cannot be
// answered from it while, or after, a new run fails.
func (s *SessionStore) BeginRun(sessionID string) error {
	ok := s.update(sessionID, func(session *Session) {
		session.Transcript = nil
		session.LastRun = nil
		session.Runs++
	})
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	return nil
}

// EndRun records the result of the session's latest run.
func (s *SessionStore) EndRun(sessionID string, result *model.RunResult) {
	s.update(sessionID, func(session *Session) {
		session.LastRun = result
	})
}

func (s *SessionStore) RecordQuestion(sessionID string) {
	if s.update(sessionID, func(session *Session) { session.Questions++ }) {
		s.mu.Lock()
		s.questions++
		s.mu.Unlock()
	}
}

func (s *SessionStore) update(id string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(session)
	session.LastUsed = s.now()
	return true
}

func (s *SessionStore) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		ActiveSessions: len(s.sessions),
		TotalSessions:  s.created,
		TotalRuns:      s.runs,
		TotalQuestions: s.questions,
	}
}

// Evict removes sessions idle since before now-idle and returns how many.
func (s *SessionStore) Evict(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.sessions {
		if now.Sub(session.LastUsed) > s.idle {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartJanitor evicts idle sessions every interval until ctx is done.
func (s *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := s.Evict(now); n > 0 {
					slog.InfoContext(ctx, "evicted idle sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
