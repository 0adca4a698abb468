package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
	"rollcall/pkg/contracts/domain"
)

func testSnapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	agg := attendance.NewAggregator(slog.Default(), attendance.AggregatorConfig{})
	return agg.BuildSnapshot(context.Background(), []domain.Sheet{
		{Subject: "Maths", RawText: "No,Name,Roll,01-02,02-02\n1,Alice,R001,p,p\n2,Bob,R002,a,p\n"},
		{Subject: "Physics", RawText: "No,Name,Roll,01-02\n1,Alice,R001,a\n"},
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSnapshot(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two students")

	assert.Equal(t, []string{
		"Roll", "Name", "Maths", "Physics",
		"Classes Held", "Present", "Absent", "Percent", "Status",
	}, records[0])

	// Alice: 2/2 in Maths, 0/1 in Physics.
	assert.Equal(t, []string{
		"R001", "Alice", "2/2", "0/1", "3", "2", "1", "66.67%", "Needs Improvement",
	}, records[1])

	// Bob has no Physics record.
	assert.Equal(t, []string{
		"R002", "Bob", "1/2", "-", "2", "1", "1", "50.00%", "Needs Improvement",
	}, records[2])
}

func TestWriteCSV_EmptySnapshot(t *testing.T) {
	agg := attendance.NewAggregator(slog.Default(), attendance.AggregatorConfig{})
	snap := agg.BuildSnapshot(context.Background(), nil)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Roll", "Name", "Classes Held", "Present", "Absent", "Percent", "Status"}, records[0])
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, testSnapshot(t)))
	// XLSX is a zip archive; check the magic bytes rather than re-parsing.
	require.Greater(t, buf.Len(), 4)
	assert.Equal(t, []byte{'P', 'K'}, buf.Bytes()[:2])
}

func TestBuildWorkbook_Sheets(t *testing.T) {
	f, err := BuildWorkbook(testSnapshot(t))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Roster"}, f.GetSheetList())

	got, err := f.GetCellValue("Roster", "A2")
	require.NoError(t, err)
	assert.Equal(t, "R001", got)

	label, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Total Students", label)
	count, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}
