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

package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// SegmentText splits text into windows of at most size characters, each
// starting size-overlap characters after the previous one. The last window
// ends exactly at the end of the text, so every pair of neighbours shares
// exactly overlap characters and seg[0] followed by seg[i][overlap:] for
// i >= 1 rebuilds the input. Offsets count runes, not bytes.
func SegmentText(text string, size, overlap int) ([]model.Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("segment size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("segment overlap must be in [0, %d), got %d", size, overlap)
	}

	runes := []rune(text)
	n := len(runes)
	segments := make([]model.Segment, 0, n/(size-overlap)+1)
	for start := 0; start < n; start += size - overlap {
		end := start + size
		if end > n {
			end = n
		}
		segments = append(segments, model.Segment{Index: len(segments), Start: start, Text: string(runes[start:end])})
		if end == n {
			break
		}
	}
	return segments, nil
}

// TranscriptSegmenter splits the normalized transcript into overlapping
// segments for extraction.
type TranscriptSegmenter struct {
	cor.BaseCommand
	size    int
	overlap int
}

func NewTranscriptSegmenter(name string, size, overlap int) *TranscriptSegmenter {
	return &TranscriptSegmenter{BaseCommand: *cor.NewBaseCommand(name), size: size, overlap: overlap}
}

func (c *TranscriptSegmenter) Execute(context cor.Context) {
	transcript := context.Get(c.GetInputParam()).(*model.NormalizedTranscript)

	segments, err := SegmentText(transcript.Text, c.size, c.overlap)
	if err != nil {
		c.Fail(context, model.NewPipelineError(model.KindInvalidInput, c.GetName(), err))
		return
	}
	if len(segments) == 0 {
		c.Fail(context, model.NewPipelineError(model.KindTranscriptUnavailable, c.GetName(), errTranscriptEmpty))
		return
	}

	c.Succeed(context)
	context.Add(ParamSegmentCount, len(segments))
	context.Add(c.GetOutputParam(), segments)
}
