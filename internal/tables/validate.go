package tables

import (
	"fmt"
)

// ValidationResult contains the outcome of pre-append validation.
type ValidationResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
	RowCount int64
}

// ValidateRows performs quality checks on extracted rows before they are
// appended to the plays table:
// - every row belongs to the expected principal
// - row count matches the landing batch's item count
// - temporal fields are populated
// - display fields carry empty strings rather than placeholders
func ValidateRows(rows []PlayRow, principal string, itemCount int) ValidationResult {
	result := ValidationResult{
		Passed: true,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "no rows extracted")
		result.Passed = false
	}

	if len(rows) != itemCount {
		result.Errors = append(result.Errors,
			fmt.Sprintf("row count mismatch: have %d, landing batch had %d items",
				len(rows), itemCount))
		result.Passed = false
	}

	for i, row := range rows {
		if row.UserName != principal {
			result.Errors = append(result.Errors,
				fmt.Sprintf("row %d belongs to %q, expected %q", i, row.UserName, principal))
			result.Passed = false
		}
		if row.PlayedAt.IsZero() {
			result.Errors = append(result.Errors,
				fmt.Sprintf("row %d has zero played_at", i))
			result.Passed = false
		}
		if row.Date == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("row %d has empty date", i))
			result.Passed = false
		}
		if row.Name == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d has empty track name", i))
		}
	}

	result.RowCount = int64(len(rows))
	return result
}
