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

package video

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// Caption formats in order of preference. The XML formats carry one cue per
// element and need no timestamp stripping.
var preferredFormats = []string{"srv1", "srv3", "ttml", "vtt"}

// IsEnglish reports whether code is "en" or an English regional variant.
func IsEnglish(code string) bool {
	code = strings.ToLower(code)
	return code == "en" || strings.HasPrefix(code, "en-") || strings.HasPrefix(code, "en_")
}

// SelectCaptionTrack picks the caption track to summarize from:
//
//  1. a human track in English
//  2. a human track in any language
//  3. an automatic track in English
//  4. an automatic track in any language
//
// Exact "en" beats regional English. Among other languages the lowest code
// wins, so the choice does not depend on the order the platform lists them.
func SelectCaptionTrack(meta *model.VideoMetadata) (model.CaptionTrack, bool) {
	for _, tier := range [][]model.CaptionTrack{meta.HumanCaptions, meta.AutoCaptions} {
		usable := make([]model.CaptionTrack, 0, len(tier))
		for _, t := range tier {
			if len(t.Formats) > 0 {
				usable = append(usable, t)
			}
		}
		if len(usable) == 0 {
			continue
		}
		if t, ok := pickEnglish(usable); ok {
			return t, true
		}
		sort.SliceStable(usable, func(i, j int) bool { return usable[i].Language < usable[j].Language })
		return usable[0], true
	}
	return model.CaptionTrack{}, false
}

func pickEnglish(tracks []model.CaptionTrack) (model.CaptionTrack, bool) {
	var regional []model.CaptionTrack
	for _, t := range tracks {
		if strings.EqualFold(t.Language, "en") {
			return t, true
		}
		if IsEnglish(t.Language) {
			regional = append(regional, t)
		}
	}
	if len(regional) == 0 {
		return model.CaptionTrack{}, false
	}
	sort.SliceStable(regional, func(i, j int) bool { return regional[i].Language < regional[j].Language })
	return regional[0], true
}

// PickFormat returns the most parseable format a track offers.
func PickFormat(track model.CaptionTrack) (model.CaptionFormat, error) {
	if len(track.Formats) == 0 {
		return model.CaptionFormat{}, fmt.Errorf("caption track %q has no formats", track.Language)
	}
	for _, ext := range preferredFormats {
		for _, f := range track.Formats {
			if f.Ext == ext && f.URL != "" {
				return f, nil
			}
		}
	}
	for _, f := range track.Formats {
		if f.URL != "" {
			return f, nil
		}
	}
	return model.CaptionFormat{}, fmt.Errorf("caption track %q has no downloadable format", track.Language)
}

// ParseCaptions turns a caption document into plain text, one cue per line.
// Entities are decoded, including the double-escaped ones some feeds emit.
func ParseCaptions(ext string, body []byte) (string, error) {
	var lines []string
	var err error
	switch ext {
	case "vtt":
		lines = parseVTT(body)
	case "srv1", "srv2", "srv3", "ttml", "xml":
		lines, err = parseXMLCues(body)
	default:
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("WEBVTT")) {
			lines = parseVTT(body)
		} else {
			lines, err = parseXMLCues(body)
		}
	}
	if err != nil {
		return "", err
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(html.UnescapeString(l))
		if l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return "", errors.New("caption document contains no text")
	}
	return strings.Join(out, "\n"), nil
}

// cueElements are the elements that hold one caption cue in the timedtext
// (srv1 <text>, srv3 <p>) and TTML (<p>) dialects.
var cueElements = map[string]bool{"text": true, "p": true}

func parseXMLCues(body []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var lines []string
	var cue strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse caption xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if cueElements[t.Name.Local] {
				depth++
			} else if depth > 0 && t.Name.Local == "br" {
				cue.WriteByte(' ')
			}
		case xml.EndElement:
			if cueElements[t.Name.Local] && depth > 0 {
				depth--
				if depth == 0 {
					lines = append(lines, strings.Join(strings.Fields(cue.String()), " "))
					cue.Reset()
				}
			}
		case xml.CharData:
			if depth > 0 {
				cue.Write(t)
			}
		}
	}
	return lines, nil
}

func parseVTT(body []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	skipBlock := false
	var last string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			skipBlock = false
			continue
		case skipBlock:
			continue
		case strings.HasPrefix(line, "WEBVTT"), strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"), strings.HasPrefix(line, "REGION"):
			skipBlock = true
			continue
		case strings.Contains(line, "-->"):
			continue
		case isCueNumber(line):
			continue
		}
		// Rolling auto-captions repeat the previous line in the next cue.
		if line == last {
			continue
		}
		lines = append(lines, line)
		last = line
	}
	return lines
}

func isCueNumber(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
