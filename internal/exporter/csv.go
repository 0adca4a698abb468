// Package exporter renders attendance snapshots as downloadable CSV and
// Excel roster reports.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"rollcall/internal/attendance"
	"rollcall/pkg/contracts/domain"
)

// subjectColumns returns the snapshot's subject names in sorted order so
// every row lays out its per-subject cells identically.
func subjectColumns(snap *domain.Snapshot) []string {
	seen := make(map[string]bool)
	for _, st := range snap.Students {
		for subject := range st.Subjects {
			seen[subject] = true
		}
	}
	subjects := make([]string, 0, len(seen))
	for subject := range seen {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// rosterHeader builds the CSV/Excel header row: identity columns, one column
// per subject, then the aggregate columns.
func rosterHeader(subjects []string) []string {
	header := []string{"Roll", "Name"}
	for _, subject := range subjects {
		header = append(header, subject)
	}
	return append(header, "Classes Held", "Present", "Absent", "Percent", "Status")
}

// rosterRow renders one student. Per-subject cells read "present/held"; a
// subject the student has no record for reads "-".
func rosterRow(st *domain.Student, subjects []string) []string {
	row := []string{st.Roll, st.Name}
	for _, subject := range subjects {
		rec, ok := st.Subjects[subject]
		if !ok {
			row = append(row, "-")
			continue
		}
		row = append(row, fmt.Sprintf("%d/%d", rec.Present, rec.ClassesHeld))
	}
	return append(row,
		fmt.Sprintf("%d", st.Totals.ClassesHeld),
		fmt.Sprintf("%d", st.Totals.Present),
		fmt.Sprintf("%d", st.Totals.Absent),
		attendance.FormatPercent(st.Totals.Percent),
		string(st.Totals.Status),
	)
}

// WriteCSV writes the snapshot's roster as CSV.
func WriteCSV(w io.Writer, snap *domain.Snapshot) error {
	subjects := subjectColumns(snap)

	cw := csv.NewWriter(w)
	if err := cw.Write(rosterHeader(subjects)); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, st := range snap.Students {
		if err := cw.Write(rosterRow(st, subjects)); err != nil {
			return fmt.Errorf("write CSV row for %s: %w", st.Roll, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}
