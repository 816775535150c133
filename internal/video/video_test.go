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

package video_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(lang string, tier model.CaptionTier) model.CaptionTrack {
	return model.CaptionTrack{Language: lang, Tier: tier, Formats: []model.CaptionFormat{{Ext: "vtt", URL: "https://example.test/" + lang}}}
}

func TestSelectCaptionTrackPriority(t *testing.T) {
	cases := []struct {
		name  string
		human []string
		auto  []string
		want  string
		tier  model.CaptionTier
	}{
		{"human english first", []string{"de", "en"}, []string{"en"}, "en", model.CaptionTierHuman},
		{"human non-english beats english auto", []string{"fr"}, []string{"en"}, "fr", model.CaptionTierHuman},
		{"exact en beats regional", []string{"en-GB", "en", "en-US"}, nil, "en", model.CaptionTierHuman},
		{"regional english beats other languages", []string{"es", "en-US"}, nil, "en-US", model.CaptionTierHuman},
		{"lexicographic tiebreak", []string{"pt", "de", "ja"}, nil, "de", model.CaptionTierHuman},
		{"auto english", nil, []string{"hi", "en"}, "en", model.CaptionTierAuto},
		{"auto any", nil, []string{"ja", "hi"}, "hi", model.CaptionTierAuto},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := &model.VideoMetadata{}
			for _, l := range tc.human {
				meta.HumanCaptions = append(meta.HumanCaptions, track(l, model.CaptionTierHuman))
			}
			for _, l := range tc.auto {
				meta.AutoCaptions = append(meta.AutoCaptions, track(l, model.CaptionTierAuto))
			}
			got, ok := video.SelectCaptionTrack(meta)
			require.True(t, ok)
			assert.Equal(t, tc.want, got.Language)
			assert.Equal(t, tc.tier, got.Tier)
		})
	}
}

func TestSelectCaptionTrackNone(t *testing.T) {
	meta := &model.VideoMetadata{HumanCaptions: []model.CaptionTrack{{Language: "en", Tier: model.CaptionTierHuman}}}
	_, ok := video.SelectCaptionTrack(meta)
	assert.False(t, ok, "tracks without formats are unusable")
}

func TestPickFormatPreference(t *testing.T) {
	tr := model.CaptionTrack{Language: "en", Formats: []model.CaptionFormat{
		{Ext: "json3", URL: "a"}, {Ext: "vtt", URL: "b"}, {Ext: "srv3", URL: "c"},
	}}
	f, err := video.PickFormat(tr)
	require.NoError(t, err)
	assert.Equal(t, "srv3", f.Ext)

	f, err = video.PickFormat(model.CaptionTrack{Formats: []model.CaptionFormat{{Ext: "json3", URL: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, "json3", f.Ext)

	_, err = video.PickFormat(model.CaptionTrack{})
	assert.Error(t, err)
}

func TestParseCaptionsTimedText(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0" dur="2">it&amp;#39;s a <font color="#fff">test</font></text>
<text start="2" dur="2">second   line</text></transcript>`)
	text, err := video.ParseCaptions("srv1", body)
	require.NoError(t, err)
	assert.Equal(t, "it's a test\nsecond line", text)
}

func TestParseCaptionsTTML(t *testing.T) {
	body := []byte(`<tt xmlns="http://www.w3.org/ns/ttml"><body><div>
<p begin="0s" end="1s">hello<br/>world</p><p begin="1s" end="2s"><span>Q&amp;A</span></p></div></body></tt>`)
	text, err := video.ParseCaptions("ttml", body)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nQ&A", text)
}

func TestParseCaptionsVTT(t *testing.T) {
	body := []byte("WEBVTT\nKind: captions\nLanguage: en\n\nNOTE a comment\nspanning lines\n\n1\n00:00:00.000 --> 00:00:01.000\nfirst &amp; foremost\n\n2\n00:00:01.000 --> 00:00:02.000\nfirst &amp; foremost\nnext line\n")
	text, err := video.ParseCaptions("vtt", body)
	require.NoError(t, err)
	assert.Equal(t, "first & foremost\nnext line", text)
}

func TestParseCaptionsEmpty(t *testing.T) {
	_, err := video.ParseCaptions("vtt", []byte("WEBVTT\n\n"))
	assert.Error(t, err)
}

func TestLanguageName(t *testing.T) {
	for code, want := range map[string]string{"en": "English", "en-US": "English", "pt_BR": "Portuguese", "ja": "Japanese", "hi": "Hindi"} {
		got, ok := video.LanguageName(code)
		assert.True(t, ok, code)
		assert.Equal(t, want, got, code)
	}
	for _, code := range []string{"", "und", "not a tag"} {
		_, ok := video.LanguageName(code)
		assert.False(t, ok, code)
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := video.ParseMetadata([]byte(`{
		"id": "abc123", "title": "A talk", "webpage_url": "https://www.youtube.com/watch?v=abc123",
		"duration": 61.2, "language": "en",
		"subtitles": {"live_chat": [{"ext": "json", "url": "x"}], "fr": [{"ext": "vtt", "url": "https://c/fr.vtt"}]},
		"automatic_captions": {"en": [{"ext": "srv1", "url": "https://c/en.srv1"}], "de": []}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", meta.ID)
	assert.Equal(t, 62, meta.DurationSeconds)
	require.Len(t, meta.HumanCaptions, 1)
	assert.Equal(t, "fr", meta.HumanCaptions[0].Language)
	require.Len(t, meta.AutoCaptions, 1)
	assert.Equal(t, model.CaptionTierAuto, meta.AutoCaptions[0].Tier)

	_, err = video.ParseMetadata([]byte(`{"title": "no id"}`))
	assert.Error(t, err)
}

type scriptedExecutor struct {
	stdout string
	files  map[string]string
	calls  [][]string
}

func (s *scriptedExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return s.ExecuteInDir(ctx, "", name, args...)
}

func (s *scriptedExecutor) ExecuteInDir(_ context.Context, dir string, name string, args ...string) (string, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	for f, content := range s.files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(content), 0o600); err != nil {
			return "", err
		}
	}
	return s.stdout, nil
}

func TestFetchMetadataUsesSkipDownload(t *testing.T) {
	exec := &scriptedExecutor{stdout: `{"id": "v1", "duration": 10}`}
	y := video.NewYtDlp("", exec, 0)
	meta, err := y.FetchMetadata(context.Background(), " https://youtu.be/v1 ")
	require.NoError(t, err)
	assert.Equal(t, "v1", meta.ID)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "yt-dlp", exec.calls[0][0])
	assert.Contains(t, exec.calls[0], "--skip-download")
	assert.Equal(t, "https://youtu.be/v1", exec.calls[0][len(exec.calls[0])-1])
}

func TestDownloadAudio(t *testing.T) {
	dir := t.TempDir()
	exec := &scriptedExecutor{files: map[string]string{"audio.m4a.part": "x", "audio.m4a": "data"}}
	y := video.NewYtDlp("yt-dlp", exec, 0)
	path, err := y.DownloadAudio(context.Background(), "https://youtu.be/v1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audio.m4a"), path)
	assert.Contains(t, exec.calls[0], "bestaudio")
}

func TestFetchCaptionsRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<transcript><text start="0">hello there</text></transcript>`))
	}))
	defer srv.Close()

	y := video.NewYtDlp("yt-dlp", &scriptedExecutor{}, 2)
	y.Retry.InitialWait = time.Millisecond
	text, err := y.FetchCaptions(context.Background(), model.CaptionTrack{
		Language: "en", Formats: []model.CaptionFormat{{Ext: "srv1", URL: srv.URL}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchCaptionsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	y := video.NewYtDlp("yt-dlp", &scriptedExecutor{}, 2)
	_, err := y.FetchCaptions(context.Background(), model.CaptionTrack{
		Language: "en", Formats: []model.CaptionFormat{{Ext: "vtt", URL: srv.URL}},
	})
	assert.Error(t, err)
}
