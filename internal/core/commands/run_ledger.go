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
	goctx "context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
)

// RowInserter streams rows into a table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx goctx.Context, src interface{}) error
}

// NewBigQueryInserter returns the streaming inserter of dataset.table.
func NewBigQueryInserter(client *bigquery.Client, dataset string, table string) RowInserter {
	return client.Dataset(dataset).Table(table).Inserter()
}

// RunLedgerWriter appends one model.RunRecord per finished run, failed runs
// included. It runs whether or not the pipeline failed, and its own failures
// never change the outcome of the run.
type RunLedgerWriter struct {
	cor.BaseCommand
	inserter RowInserter
	now      func() time.Time
}

func NewRunLedgerWriter(name string, inserter RowInserter) *RunLedgerWriter {
	return &RunLedgerWriter{BaseCommand: *cor.NewBaseCommand(name), inserter: inserter, now: time.Now}
}

func (c *RunLedgerWriter) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && c.inserter != nil && RunOptions(context) != nil
}

func (c *RunLedgerWriter) Execute(context cor.Context) {
	record := NewRunRecord(context, c.now())

	// The run may have been canceled; the row still belongs in the ledger.
	ctx := goctx.WithoutCancel(context.GetContext())
	if err := c.inserter.Put(ctx, record); err != nil {
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(ctx, 1)
		}
		slog.ErrorContext(ctx, "failed to write run record", "run_id", record.RunID, "error", err)
		return
	}
	c.Succeed(context)
	slog.InfoContext(ctx, "run record written", "run_id", record.RunID, "status", record.Status)
}
