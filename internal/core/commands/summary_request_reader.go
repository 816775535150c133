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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// SummaryRequestReader validates the request that starts a run. Its input is
// either a *model.SummaryRequest (HTTP path) or the JSON text of one (Pub/Sub
// path); its output is the *model.RunOptions the rest of the chain reads.
type SummaryRequestReader struct {
	cor.BaseCommand
}

func NewSummaryRequestReader(name string) *SummaryRequestReader {
	return &SummaryRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *SummaryRequestReader) Execute(context cor.Context) {
	var request *model.SummaryRequest

	switch in := context.Get(c.GetInputParam()).(type) {
	case *model.SummaryRequest:
		request = in
	case string:
		request = &model.SummaryRequest{}
		if err := json.Unmarshal([]byte(in), request); err != nil {
			c.Fail(context, model.NewPipelineError(model.KindInvalidInput, c.GetName(),
				fmt.Errorf("failed to unmarshal summary request: %w", err)))
			return
		}
	default:
		c.Fail(context, model.NewPipelineError(model.KindInvalidInput, c.GetName(),
			fmt.Errorf("unsupported request type %T", in)))
		return
	}

	options, err := request.Validate()
	if err != nil {
		c.Fail(context, err)
		return
	}
	if options.RequestID == "" {
		options.RequestID = uuid.NewString()
	}

	c.Succeed(context)
	context.Add(ParamRunOptions, options)
	context.Add(c.GetOutputParam(), options)
}
