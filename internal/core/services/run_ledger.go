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
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// RunOutcome is one row of QryRunOutcomes.
type RunOutcome struct {
	Status             string               `json:"status" bigquery:"status"`
	Origin             string               `json:"origin" bigquery:"origin"`
	ErrorKind          string               `json:"error_kind" bigquery:"error_kind"`
	Runs               int64                `json:"runs" bigquery:"runs"`
	AvgDurationSeconds bigquery.NullFloat64 `json:"avg_duration_seconds" bigquery:"avg_duration_seconds"`
}

// RunLedgerService reads the run ledger written by the publishing workflow.
type RunLedgerService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	RunTable       string
}

// GetFQN returns the run table as project.dataset.table.
func (s *RunLedgerService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

func (s *RunLedgerService) Outcomes(ctx context.Context) ([]RunOutcome, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryRunOutcomes, s.GetFQN()))
	return readAll[RunOutcome](ctx, q)
}

func (s *RunLedgerService) RecentRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryRecentRuns, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	return readAll[model.RunRecord](ctx, q)
}

func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for {
		var row T
		err := itr.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
