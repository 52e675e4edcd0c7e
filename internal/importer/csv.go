// Package importer loads tasks in bulk from CSV exports. Owners named in the
// file that do not exist yet are provisioned with a placeholder account.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phrazzld/tasklog/internal/domain"
)

// CreatedAtLayout is the date format of the created_at column.
const CreatedAtLayout = "01/02/2006"

// RequiredColumns are the header names every import file must carry.
var RequiredColumns = []string{"task_name", "description", "status", "priority", "created_at", "assigned_user"}

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = fmt.Errorf("%w: missing columns", domain.ErrValidation)

// Record is one task row of an import file.
type Record struct {
	Name              string
	Description       string
	Status            bool
	Priority          string
	AssignedOwnerName string
	// CreatedAt is nil when the column is empty or unparseable.
	CreatedAt *time.Time
}

// ReadCSV parses an import file. Columns are matched by header name, so
// their order does not matter and extra columns are ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(RequiredColumns, ", "))
		}
		return nil, fmt.Errorf("%w: invalid csv header: %w", domain.ErrValidation, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	records := make([]Record, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid csv row: %w", domain.ErrValidation, err)
		}

		field := func(name string) string {
			return strings.TrimSpace(row[index[name]])
		}

		records = append(records, Record{
			Name:              field("task_name"),
			Description:       field("description"),
			Status:            ParseStatus(field("status")),
			Priority:          field("priority"),
			AssignedOwnerName: field("assigned_user"),
			CreatedAt:         parseCreatedAt(field("created_at")),
		})
	}

	return records, nil
}

// ParseStatus reports whether s spells an active status: true, yes, y or 1
// in any case. Anything else is inactive.
func ParseStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func parseCreatedAt(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(CreatedAtLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
