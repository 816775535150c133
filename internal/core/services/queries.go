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

const (
	// QryRunOutcomes counts ledger rows per status, origin and error kind.
	// Placeholder: the fully qualified run table.
	QryRunOutcomes = "SELECT status, origin, error_kind, COUNT(*) AS runs, AVG(duration_seconds) AS avg_duration_seconds " +
		"FROM `%s` GROUP BY status, origin, error_kind ORDER BY runs DESC"

	// QryRecentRuns returns the newest ledger rows. The limit is a named
	// parameter.
	QryRecentRuns = "SELECT * FROM `%s` ORDER BY create_date DESC LIMIT @limit"
)
