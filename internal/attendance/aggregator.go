package attendance

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/pkg/contracts/domain"
)

// Fixed column layout of a subject sheet. This is a schema contract with the
// external sheet format, not something inferred from header labels.
const (
	colName      = 1
	colRoll      = 2
	colFirstDate = 3
)

// Aggregator folds subject sheets into a per-cycle attendance snapshot.
type Aggregator struct {
	logger    *slog.Logger
	threshold float64
}

// AggregatorConfig holds the policy knobs for the aggregator.
type AggregatorConfig struct {
	// Threshold is the attendance fraction at or above which a student is
	// classified Good. Zero means use domain.GoodAttendanceThreshold.
	Threshold float64
}

// NewAggregator creates an aggregator with the given configuration.
func NewAggregator(logger *slog.Logger, cfg AggregatorConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = domain.GoodAttendanceThreshold
	}
	return &Aggregator{
		logger:    logger,
		threshold: cfg.Threshold,
	}
}

// BuildSnapshot runs one complete parse-and-aggregate pass over the cycle's
// sheets and returns an immutable snapshot. Sheets are processed strictly in
// the order given, so the result is deterministic for a given input.
func (a *Aggregator) BuildSnapshot(ctx context.Context, sheets []domain.Sheet) *domain.Snapshot {
	students := make(domain.StudentsMap)

	for _, sheet := range sheets {
		rows := Parse(sheet.RawText)
		a.foldSheet(sheet.Subject, rows, students)
	}

	a.finalize(students)

	snap := &domain.Snapshot{
		CycleID:     uuid.New().String(),
		GeneratedAt: time.Now(),
		Students:    sortedByRoll(students),
	}
	snap.Summary = summarize(students)

	a.logger.InfoContext(ctx, "snapshot built",
		slog.String("cycle_id", snap.CycleID),
		slog.Int("sheet_count", len(sheets)),
		slog.Int("student_count", len(snap.Students)),
		slog.Int("total_classes_held", snap.Summary.TotalClassesHeld))

	return snap
}

// foldSheet interprets one subject's parsed rows and merges the per-student
// records into the running map. Row 0 is the header; classesHeld is derived
// from it once and applied uniformly to every data row, short rows reading as
// absent for their missing trailing cells.
func (a *Aggregator) foldSheet(subject string, rows [][]string, students domain.StudentsMap) {
	if len(rows) == 0 {
		return
	}
	header := rows[0]
	held := len(header) - colFirstDate
	if held < 0 {
		held = 0
	}

	for _, row := range rows[1:] {
		roll := strings.TrimSpace(cell(row, colRoll))
		if roll == "" {
			// Rows without a roll number are dropped, not an error.
			continue
		}
		name := strings.TrimSpace(cell(row, colName))

		st, ok := students[roll]
		if !ok {
			st = &domain.Student{
				Roll:     roll,
				Name:     name,
				Subjects: make(map[string]domain.SubjectAttendance),
			}
			students[roll] = st
		} else if st.Name == "" && name != "" {
			// First non-empty name wins per roll.
			st.Name = name
		}

		presentByDate := make([]int, held)
		present := 0
		for j := 0; j < held; j++ {
			v := strings.ToLower(strings.TrimSpace(cell(row, colFirstDate+j)))
			if v == "p" {
				presentByDate[j] = 1
				present++
			}
		}

		// Duplicate rows for the same roll overwrite the subject record;
		// totals are recomputed as a fold over the final Subjects map in
		// finalize, so duplicates never double-count.
		if _, seen := st.Subjects[subject]; !seen {
			st.SubjectOrder = append(st.SubjectOrder, subject)
		}
		st.Subjects[subject] = domain.SubjectAttendance{
			ClassesHeld:   held,
			Present:       present,
			Absent:        held - present,
			PresentByDate: presentByDate,
		}
	}
}

// finalize recomputes every student's totals from their final Subjects map
// and classifies them against the threshold.
func (a *Aggregator) finalize(students domain.StudentsMap) {
	for _, st := range students {
		if st.Name == "" {
			st.Name = "Unknown"
		}

		var totals domain.Totals
		for _, subject := range st.SubjectOrder {
			rec := st.Subjects[subject]
			totals.ClassesHeld += rec.ClassesHeld
			totals.Present += rec.Present
			totals.Absent += rec.Absent
		}
		if totals.ClassesHeld > 0 {
			totals.Percent = float64(totals.Present) / float64(totals.ClassesHeld)
		}
		if totals.Percent >= a.threshold {
			totals.Status = domain.StatusGood
		} else {
			totals.Status = domain.StatusNeedsImprovement
		}
		st.Totals = totals
	}
}

// Today derives today's present/absent/unknown counts from the last dated
// column of each subject. A student counts present if any subject's most
// recent session is a presence, absent if dated subjects exist but none is,
// and unknown when no subject has a date column at all.
func Today(students domain.StudentsMap) domain.TodayCounts {
	var counts domain.TodayCounts
	for _, st := range students {
		present := false
		hasDates := false
		for _, subject := range st.SubjectOrder {
			rec := st.Subjects[subject]
			if len(rec.PresentByDate) == 0 {
				continue
			}
			hasDates = true
			if rec.PresentByDate[len(rec.PresentByDate)-1] == 1 {
				present = true
				break
			}
		}
		switch {
		case present:
			counts.Present++
		case hasDates:
			counts.Absent++
		default:
			counts.Unknown++
		}
	}
	return counts
}

// summarize computes the aggregate block for the presentation layer.
// TotalClassesHeld sums each subject's session count once; every student in
// a subject carries the same ClassesHeld (it comes from the header), so any
// student's record can speak for the subject.
func summarize(students domain.StudentsMap) domain.Summary {
	heldBySubject := make(map[string]int)
	var percentSum float64
	for _, st := range students {
		for subject, rec := range st.Subjects {
			heldBySubject[subject] = rec.ClassesHeld
		}
		percentSum += st.Totals.Percent
	}

	summary := domain.Summary{
		TotalStudents: len(students),
		Today:         Today(students),
	}
	for _, held := range heldBySubject {
		summary.TotalClassesHeld += held
	}
	if len(students) > 0 {
		summary.AverageAttendance = percentSum / float64(len(students))
	}
	return summary
}

// sortedByRoll returns the students ordered lexicographically by roll for
// stable tabular display.
func sortedByRoll(students domain.StudentsMap) []*domain.Student {
	out := make([]*domain.Student, 0, len(students))
	for _, st := range students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Roll < out[j].Roll
	})
	return out
}

// cell reads a row's field at idx, returning "" when the row is short.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
