package tables

import (
	"testing"
	"time"
)

func validRows() []PlayRow {
	return []PlayRow{
		{
			Name:     "Lazarus",
			UserName: "Dan",
			PlayedAt: time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC),
			Date:     "2026-08-24",
		},
		{
			Name:     "Kiss",
			UserName: "Dan",
			PlayedAt: time.Date(2026, 8, 23, 23, 5, 0, 0, time.UTC),
			Date:     "2026-08-23",
		},
	}
}

func TestValidateRowsPasses(t *testing.T) {
	result := ValidateRows(validRows(), "Dan", 2)
	if !result.Passed {
		t.Fatalf("validation should pass, errors: %v", result.Errors)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateRowsCountMismatch(t *testing.T) {
	result := ValidateRows(validRows(), "Dan", 3)
	if result.Passed {
		t.Fatal("validation should fail on count mismatch")
	}
}

func TestValidateRowsWrongPrincipal(t *testing.T) {
	rows := validRows()
	rows[1].UserName = "Fred"

	result := ValidateRows(rows, "Dan", 2)
	if result.Passed {
		t.Fatal("validation should fail when a row belongs to another principal")
	}
}

func TestValidateRowsEmpty(t *testing.T) {
	result := ValidateRows(nil, "Dan", 0)
	if result.Passed {
		t.Fatal("validation should fail for empty row set")
	}
}

func TestValidateRowsMissingTemporalFields(t *testing.T) {
	rows := validRows()
	rows[0].PlayedAt = time.Time{}
	rows[1].Date = ""

	result := ValidateRows(rows, "Dan", 2)
	if result.Passed {
		t.Fatal("validation should fail on missing temporal fields")
	}
	if len(result.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(result.Errors), result.Errors)
	}
}

func TestValidateRowsWarnsOnEmptyName(t *testing.T) {
	rows := validRows()
	rows[0].Name = ""

	result := ValidateRows(rows, "Dan", 2)
	if !result.Passed {
		t.Fatalf("empty name is a warning, not an error: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(result.Warnings))
	}
}
