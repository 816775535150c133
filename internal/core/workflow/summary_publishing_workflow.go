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

package workflow

import (
	goctx "context"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// Outputs are the optional destinations of a finished run. Nil members are
// skipped.
type Outputs struct {
	Objects  cloud.ObjectWriter
	Bucket   string
	Prefix   string
	Ledger   commands.RowInserter
	Notifier cloud.Publisher
}

// NewOutputs wires the artifact bucket and run ledger from clients. The
// notifier is per subscription and is set by the caller.
func NewOutputs(config *cloud.Config, clients *cloud.ServiceClients) Outputs {
	out := Outputs{Bucket: config.Storage.ArtifactBucket, Prefix: config.Storage.ArtifactPrefix}
	if clients.StorageClient != nil && out.Bucket != "" {
		out.Objects = cloud.NewStorageObjectWriter(clients.StorageClient)
	}
	if clients.BiqQueryClient != nil && config.BigQueryDataSource.RunTable != "" {
		out.Ledger = commands.NewBigQueryInserter(clients.BiqQueryClient,
			config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.RunTable)
	}
	return out
}

// SummaryPublishingWorkflow runs the summary workflow and then publishes what
// it produced: artifacts to Cloud Storage, a row in the run ledger and a
// completion message. The publishing steps run after failures and
// cancellations too, each deciding for itself whether it applies.
type SummaryPublishingWorkflow struct {
	cor.BaseCommand
	summary *VideoSummaryWorkflow
	publish cor.Chain
}

func NewSummaryPublishingWorkflow(summary *VideoSummaryWorkflow, outputs Outputs) *SummaryPublishingWorkflow {
	publish := cor.NewBaseChain("summary-publishing").ContinueOnFailure(true)
	if outputs.Objects != nil {
		publish.AddCommand(commands.NewArtifactUpload("artifact-upload", outputs.Objects, outputs.Bucket, outputs.Prefix))
	}
	if outputs.Ledger != nil {
		publish.AddCommand(commands.NewRunLedgerWriter("run-ledger", outputs.Ledger))
	}
	if outputs.Notifier != nil {
		publish.AddCommand(commands.NewRunNotifier("run-notifier", outputs.Notifier))
	}
	return &SummaryPublishingWorkflow{
		BaseCommand: *cor.NewBaseCommand("summary-publishing-workflow"),
		summary:     summary,
		publish:     publish,
	}
}

func (w *SummaryPublishingWorkflow) IsExecutable(context cor.Context) bool {
	return w.summary.IsExecutable(context)
}

func (w *SummaryPublishingWorkflow) Execute(context cor.Context) {
	w.summary.Execute(context)

	parent := context.GetContext()
	context.SetContext(goctx.WithoutCancel(parent))
	defer context.SetContext(parent)
	w.publish.Execute(context)
}

// retryableKinds are failures a redelivery may fix.
var retryableKinds = map[model.ErrorKind]bool{
	model.KindTranscriptionFailed: true,
	model.KindExtractionFailed:    true,
	model.KindSynthesisFailed:     true,
	model.KindCanceled:            true,
}

// AckUnlessRetryable acknowledges successful runs and runs that failed for a
// reason redelivery cannot change, such as an overlong video.
func AckUnlessRetryable(context cor.Context) bool {
	err := commands.RunError(context)
	if err == nil {
		return true
	}
	return !retryableKinds[model.KindOf(err)]
}
