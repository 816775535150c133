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

// Package video talks to the video platform. Metadata and audio come from the
// yt-dlp command-line tool, run through an Executor so tests can script it;
// caption documents are downloaded over HTTP from the URLs yt-dlp reports.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// Platform is what the source resolver needs from a video site.
type Platform interface {
	// FetchMetadata describes the video without downloading any media.
	FetchMetadata(ctx context.Context, ref model.VideoReference) (*model.VideoMetadata, error)

	// FetchCaptions downloads a caption track and returns its plain text.
	FetchCaptions(ctx context.Context, track model.CaptionTrack) (string, error)

	// DownloadAudio stores the best audio stream in dir and returns the file path.
	DownloadAudio(ctx context.Context, ref model.VideoReference, dir string) (string, error)
}

const maxCaptionBytes = 8 * 1024 * 1024

// YtDlp implements Platform with the yt-dlp binary.
type YtDlp struct {
	Binary     string
	Executor   Executor
	HTTPClient *http.Client
	Retry      cloud.RetryConfig
}

// NewYtDlp returns a Platform using binary (normally "yt-dlp") through executor.
func NewYtDlp(binary string, executor Executor, captionRetries int) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{
		Binary:     binary,
		Executor:   executor,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Retry:      cloud.DefaultRetryConfig.WithRetries(captionRetries),
	}
}

// ytDlpInfo is the subset of `yt-dlp -J` output the resolver uses.
type ytDlpInfo struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	WebpageURL        string                    `json:"webpage_url"`
	Duration          float64                   `json:"duration"`
	Language          string                    `json:"language"`
	Subtitles         map[string][]ytDlpCaption `json:"subtitles"`
	AutomaticCaptions map[string][]ytDlpCaption `json:"automatic_captions"`
}

type ytDlpCaption struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (y *YtDlp) FetchMetadata(ctx context.Context, ref model.VideoReference) (*model.VideoMetadata, error) {
	out, err := y.Executor.Execute(ctx, y.Binary, "-J", "--skip-download", "--no-playlist", "--no-warnings", ref.String())
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	return ParseMetadata([]byte(out))
}

// ParseMetadata maps `yt-dlp -J` output onto VideoMetadata.
func ParseMetadata(data []byte) (*model.VideoMetadata, error) {
	var info ytDlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp metadata: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("yt-dlp metadata has no video id")
	}
	return &model.VideoMetadata{
		ID:              info.ID,
		Title:           info.Title,
		URL:             info.WebpageURL,
		DurationSeconds: int(math.Ceil(info.Duration)),
		LanguageHint:    info.Language,
		HumanCaptions:   toTracks(info.Subtitles, model.CaptionTierHuman),
		AutoCaptions:    toTracks(info.AutomaticCaptions, model.CaptionTierAuto),
	}, nil
}

// toTracks converts a language-keyed caption map into tracks sorted by
// language. Live chat replays are listed as subtitles but are not captions.
func toTracks(in map[string][]ytDlpCaption, tier model.CaptionTier) []model.CaptionTrack {
	tracks := make([]model.CaptionTrack, 0, len(in))
	for lang, formats := range in {
		if lang == "live_chat" || len(formats) == 0 {
			continue
		}
		t := model.CaptionTrack{Language: lang, Tier: tier}
		for _, f := range formats {
			t.Formats = append(t.Formats, model.CaptionFormat{Ext: f.Ext, URL: f.URL})
		}
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Language < tracks[j].Language })
	return tracks
}

func (y *YtDlp) FetchCaptions(ctx context.Context, track model.CaptionTrack) (string, error) {
	format, err := PickFormat(track)
	if err != nil {
		return "", err
	}

	resp, err := cloud.RetryHTTP(ctx, y.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, format.URL, nil)
		if err != nil {
			return nil, err
		}
		return y.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s captions (%s): %w", track.Language, format.Ext, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &cloud.HTTPStatusError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return "", fmt.Errorf("read captions: %w", err)
	}
	slog.DebugContext(ctx, "downloaded captions", "language", track.Language, "tier", track.Tier.String(), "format", format.Ext, "bytes", len(body))
	return ParseCaptions(format.Ext, body)
}

func (y *YtDlp) DownloadAudio(ctx context.Context, ref model.VideoReference, dir string) (string, error) {
	template := filepath.Join(dir, "audio.%(ext)s")
	_, err := y.Executor.ExecuteInDir(ctx, dir, y.Binary,
		"-f", "bestaudio", "--no-playlist", "--no-warnings", "--no-progress", "-o", template, ref.String())
	if err != nil {
		return "", fmt.Errorf("yt-dlp audio download: %w", err)
	}
	return findAudioFile(dir)
}

// findAudioFile returns the single audio file yt-dlp left in dir.
func findAudioFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "audio.") || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", errors.New("yt-dlp produced no audio file")
}
