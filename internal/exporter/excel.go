package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"rollcall/internal/attendance"
	"rollcall/pkg/contracts/domain"
)

const (
	summarySheet = "Summary"
	rosterSheet  = "Roster"
)

// BuildWorkbook renders the snapshot as an Excel workbook with a summary
// sheet and a roster sheet. The caller owns closing the returned file.
func BuildWorkbook(snap *domain.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, snap); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(rosterSheet); err != nil {
		return nil, fmt.Errorf("create roster sheet: %w", err)
	}
	if err := writeRosterSheet(f, snap); err != nil {
		return nil, err
	}

	return f, nil
}

// WriteExcel streams the snapshot workbook to w.
func WriteExcel(w io.Writer, snap *domain.Snapshot) error {
	f, err := BuildWorkbook(snap)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, snap *domain.Snapshot) error {
	rows := [][]interface{}{
		{"Generated At", snap.GeneratedAt.Format(time.RFC3339)},
		{"Total Students", snap.Summary.TotalStudents},
		{"Total Classes Held", snap.Summary.TotalClassesHeld},
		{"Average Attendance", attendance.FormatPercent(snap.Summary.AverageAttendance)},
		{"Present Today", snap.Summary.Today.Present},
		{"Absent Today", snap.Summary.Today.Absent},
		{"Unknown Today", snap.Summary.Today.Unknown},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell name: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeRosterSheet(f *excelize.File, snap *domain.Snapshot) error {
	subjects := subjectColumns(snap)

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return fmt.Errorf("roster cell name: %w", err)
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return fmt.Errorf("write roster row %d: %w", rowIdx, err)
		}
		return nil
	}

	if err := writeRow(1, rosterHeader(subjects)); err != nil {
		return err
	}
	for i, st := range snap.Students {
		if err := writeRow(i+2, rosterRow(st, subjects)); err != nil {
			return err
		}
	}
	return nil
}
