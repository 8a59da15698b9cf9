package db

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/app",
		convertToPgx5URL("postgres://u:p@localhost:5432/app"))
	assert.Equal(t, "pgx5://u:p@localhost:5432/app",
		convertToPgx5URL("postgresql://u:p@localhost:5432/app"))
	assert.Equal(t, "pgx5://u:p@localhost:5432/app",
		convertToPgx5URL("pgx5://u:p@localhost:5432/app"))
}

// tableColumns extracts the column names defined by a CREATE TABLE statement
// in the embedded migration SQL.
func tableColumns(t *testing.T, sql, table string) map[string]bool {
	t.Helper()

	re := regexp.MustCompile(`(?s)CREATE TABLE ` + table + ` \((.*?)\);`)
	match := re.FindStringSubmatch(sql)
	require.NotNil(t, match, "migration does not create table %s", table)

	cols := make(map[string]bool)
	for _, line := range strings.Split(match[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

// The store queries reference columns by name; every referenced column must
// exist in the initial migration or the query fails at runtime.
func TestInitMigrationCoversStoreColumns(t *testing.T) {
	data, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(data)

	tests := []struct {
		table   string
		columns []string
	}{
		{
			table: "customers",
			columns: []string{
				"id", "owner_id", "name", "email", "company", "phone",
				"address", "created_at", "updated_at", "deleted_at",
			},
		},
		{
			table: "projects",
			columns: []string{
				"id", "owner_id", "customer_id", "name", "description",
				"start_date", "end_date", "created_at", "updated_at",
				"deleted_at",
			},
		},
		{
			table: "tasks",
			columns: []string{
				"id", "owner_id", "project_id", "name", "description",
				"hours", "rate", "position", "created_at", "updated_at",
			},
		},
		{
			table: "invoices",
			columns: []string{
				"id", "owner_id", "customer_id", "project_id",
				"document_type", "subtotal", "tax_rate", "total",
				"currency", "ai_generated", "created_at", "updated_at",
			},
		},
		{
			table: "invoice_line_items",
			columns: []string{
				"id", "invoice_id", "description", "hours", "rate",
				"amount", "position",
			},
		},
		{
			table: "previews",
			columns: []string{
				"id", "document_id", "owner_id", "status", "document_type",
				"customer_data", "customer_action", "project_data",
				"project_action", "tasks_data", "task_qualities",
				"invoice_estimate_data", "extraction_snapshot",
				"matched_customer", "matched_project", "customer_candidates",
				"project_candidates", "warnings", "conflicts",
				"customer_match_confidence", "project_match_confidence",
				"overall_confidence", "overall_task_quality_score",
				"auto_approve_eligible", "clarification_skipped",
				"had_edits", "created_at", "updated_at",
			},
		},
		{
			table: "approval_feedback",
			columns: []string{
				"id", "preview_id", "document_id", "outcome", "had_edits",
				"diff", "user_rating", "clarification_skipped",
				"occurred_at", "created_at",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.table, func(t *testing.T) {
			cols := tableColumns(t, sql, tc.table)
			for _, col := range tc.columns {
				assert.True(t, cols[col], "table %s is missing column %s", tc.table, col)
			}
		})
	}
}
