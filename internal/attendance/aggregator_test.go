package attendance

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/pkg/contracts/domain"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(slog.Default(), AggregatorConfig{})
}

func buildOne(t *testing.T, sheets ...domain.Sheet) *domain.Snapshot {
	t.Helper()
	return newTestAggregator().BuildSnapshot(context.Background(), sheets)
}

func TestBuildSnapshot_SingleSheet(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "No,Name,Roll,01-02,02-02,03-02\n" +
			"1,Alice,R001,p,a,P\n" +
			"2,Bob,R002,,p,x\n",
	})

	require.Len(t, snap.Students, 2)

	alice := snap.Lookup("R001")
	require.NotNil(t, alice)
	assert.Equal(t, "Alice", alice.Name)
	rec := alice.Subjects["Maths"]
	assert.Equal(t, 3, rec.ClassesHeld)
	assert.Equal(t, 2, rec.Present, "p and P both count as present")
	assert.Equal(t, 1, rec.Absent)
	assert.Equal(t, []int{1, 0, 1}, rec.PresentByDate)

	bob := snap.Lookup("R002")
	require.NotNil(t, bob)
	assert.Equal(t, []int{0, 1, 0}, bob.Subjects["Maths"].PresentByDate,
		"blank and non-p cells count as absent")
}

func TestBuildSnapshot_ShortRowsPadAbsent(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Physics",
		RawText: "No,Name,Roll,01-02,02-02,03-02\n1,Alice,R001,p\n",
	})

	rec := snap.Lookup("R001").Subjects["Physics"]
	assert.Equal(t, 3, rec.ClassesHeld, "classesHeld comes from the header, not the row")
	assert.Equal(t, []int{1, 0, 0}, rec.PresentByDate)
	assert.Equal(t, 1, rec.Present)
	assert.Equal(t, 2, rec.Absent)
}

func TestBuildSnapshot_EmptyRollSkipped(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "No,Name,Roll,01-02\n1,Ghost,,p\n2,Alice,R001,p\n",
	})

	require.Len(t, snap.Students, 1)
	assert.Equal(t, "R001", snap.Students[0].Roll)
	assert.Equal(t, 1, snap.Students[0].Totals.Present,
		"dropped row must not leak into anyone's totals")
}

func TestBuildSnapshot_NameResolution(t *testing.T) {
	tests := []struct {
		name   string
		sheets []domain.Sheet
		want   string
	}{
		{
			name: "empty name defaults to Unknown",
			sheets: []domain.Sheet{
				{Subject: "Maths", RawText: "h,h,h,d\n1,,R001,p\n"},
			},
			want: "Unknown",
		},
		{
			name: "first non-empty name wins",
			sheets: []domain.Sheet{
				{Subject: "Maths", RawText: "h,h,h,d\n1,,R001,p\n"},
				{Subject: "Physics", RawText: "h,h,h,d\n1,Alice,R001,p\n"},
				{Subject: "Chemistry", RawText: "h,h,h,d\n1,Alicia,R001,p\n"},
			},
			want: "Alice",
		},
		{
			name: "later empty name does not overwrite",
			sheets: []domain.Sheet{
				{Subject: "Maths", RawText: "h,h,h,d\n1,Alice,R001,p\n"},
				{Subject: "Physics", RawText: "h,h,h,d\n1,,R001,p\n"},
			},
			want: "Alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := buildOne(t, tt.sheets...)
			require.Len(t, snap.Students, 1)
			assert.Equal(t, tt.want, snap.Students[0].Name)
		})
	}
}

func TestBuildSnapshot_HeaderlessSheet(t *testing.T) {
	snap := buildOne(t, domain.Sheet{Subject: "Maths", RawText: ""})
	assert.Empty(t, snap.Students)
	assert.Equal(t, 0, snap.Summary.TotalClassesHeld)
}

func TestBuildSnapshot_HeaderWithoutDates(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "No,Name,Roll\n1,Alice,R001\n",
	})

	rec := snap.Lookup("R001").Subjects["Maths"]
	assert.Equal(t, 0, rec.ClassesHeld)
	assert.Empty(t, rec.PresentByDate)
	assert.Equal(t, 1, snap.Summary.Today.Unknown)
}

func TestBuildSnapshot_DuplicateRowsLastWriteWins(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "No,Name,Roll,01-02,02-02\n" +
			"1,Alice,R001,p,p\n" +
			"1,Alice,R001,a,p\n",
	})

	alice := snap.Lookup("R001")
	require.NotNil(t, alice)
	assert.Equal(t, []int{0, 1}, alice.Subjects["Maths"].PresentByDate,
		"later duplicate row overwrites the subject record")
	assert.Equal(t, 2, alice.Totals.ClassesHeld,
		"totals fold over the final record, so duplicates never double-count")
	assert.Equal(t, 1, alice.Totals.Present)
}

func TestBuildSnapshot_TotalsInvariant(t *testing.T) {
	snap := buildOne(t,
		domain.Sheet{Subject: "Maths", RawText: "h,h,h,a,b,c\n1,Alice,R001,p,a,p\n2,Bob,R002,p\n"},
		domain.Sheet{Subject: "Physics", RawText: "h,h,h,a,b\n1,Alice,R001,p,p\n3,Cara,R003,a,a\n"},
	)

	require.Len(t, snap.Students, 3)
	for _, st := range snap.Students {
		assert.Equal(t, st.Totals.ClassesHeld, st.Totals.Present+st.Totals.Absent,
			"student %s", st.Roll)
	}
}

func TestBuildSnapshot_ThresholdBoundaryIsGood(t *testing.T) {
	// 3 of 4 sessions is exactly 0.75 and must classify Good.
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "h,h,h,a,b,c,d\n1,Alice,R001,p,p,p,a\n",
	})

	totals := snap.Lookup("R001").Totals
	assert.InDelta(t, 0.75, totals.Percent, 1e-9)
	assert.Equal(t, domain.StatusGood, totals.Status)
}

func TestBuildSnapshot_Idempotent(t *testing.T) {
	sheets := []domain.Sheet{
		{Subject: "Maths", RawText: "h,h,h,a,b,c\n1,Alice,R001,p,a,p\n2,Bob,R002,a,a,a\n"},
		{Subject: "Physics", RawText: "h,h,h,a\n1,Alice,R001,p\n"},
	}

	first := buildOne(t, sheets...)
	second := buildOne(t, sheets...)

	require.Len(t, second.Students, len(first.Students))
	for i, st := range first.Students {
		assert.Equal(t, st.Roll, second.Students[i].Roll)
		assert.Equal(t, st.Totals, second.Students[i].Totals)
		assert.Equal(t, st.Subjects, second.Students[i].Subjects)
	}
	assert.Equal(t, first.Summary, second.Summary)
}

func TestBuildSnapshot_StudentsSortedByRoll(t *testing.T) {
	snap := buildOne(t, domain.Sheet{
		Subject: "Maths",
		RawText: "h,h,h,a\n1,Cara,R010,p\n2,Alice,R002,p\n3,Bob,R001,a\n",
	})

	rolls := make([]string, 0, len(snap.Students))
	for _, st := range snap.Students {
		rolls = append(rolls, st.Roll)
	}
	assert.Equal(t, []string{"R001", "R002", "R010"}, rolls)
}

func TestToday(t *testing.T) {
	subject := func(last int) domain.SubjectAttendance {
		return domain.SubjectAttendance{
			ClassesHeld:   2,
			PresentByDate: []int{0, last},
		}
	}

	tests := []struct {
		name     string
		subjects map[string]domain.SubjectAttendance
		want     domain.TodayCounts
	}{
		{
			name: "present in any subject counts present",
			subjects: map[string]domain.SubjectAttendance{
				"A": subject(1),
				"B": subject(0),
			},
			want: domain.TodayCounts{Present: 1},
		},
		{
			name: "absent everywhere counts absent",
			subjects: map[string]domain.SubjectAttendance{
				"A": subject(0),
				"B": subject(0),
			},
			want: domain.TodayCounts{Absent: 1},
		},
		{
			name: "no dated subjects counts unknown",
			subjects: map[string]domain.SubjectAttendance{
				"A": {ClassesHeld: 0},
				"B": {ClassesHeld: 0},
			},
			want: domain.TodayCounts{Unknown: 1},
		},
		{
			name:     "no subjects at all counts unknown",
			subjects: map[string]domain.SubjectAttendance{},
			want:     domain.TodayCounts{Unknown: 1},
		},
		{
			name: "undated subject ignored when a dated one is present",
			subjects: map[string]domain.SubjectAttendance{
				"A": {ClassesHeld: 0},
				"B": subject(1),
			},
			want: domain.TodayCounts{Present: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &domain.Student{Roll: "R001", Subjects: tt.subjects}
			for name := range tt.subjects {
				st.SubjectOrder = append(st.SubjectOrder, name)
			}
			got := Today(domain.StudentsMap{"R001": st})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSnapshot_EndToEnd(t *testing.T) {
	// Two subjects with three date columns each; Alice attends 4 of 6.
	snap := buildOne(t,
		domain.Sheet{Subject: "Maths", RawText: "No,Name,Roll,01-02,02-02,03-02\n1,Alice,R001,p,p,a\n"},
		domain.Sheet{Subject: "Physics", RawText: "No,Name,Roll,01-02,02-02,03-02\n1,Alice,R001,p,a,p\n"},
	)

	require.Len(t, snap.Students, 1)
	alice := snap.Students[0]

	assert.Equal(t, 6, alice.Totals.ClassesHeld)
	assert.Equal(t, 4, alice.Totals.Present)
	assert.InDelta(t, 0.6667, alice.Totals.Percent, 1e-4)
	assert.Equal(t, "66.67%", FormatPercent(alice.Totals.Percent))
	assert.Equal(t, domain.StatusNeedsImprovement, alice.Totals.Status)

	assert.Equal(t, 1, snap.Summary.TotalStudents)
	assert.Equal(t, 6, snap.Summary.TotalClassesHeld)
	assert.InDelta(t, alice.Totals.Percent, snap.Summary.AverageAttendance, 1e-9)
	assert.Equal(t, domain.TodayCounts{Present: 1}, snap.Summary.Today)
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{0, "0.00%"},
		{0.75, "75.00%"},
		{1, "100.00%"},
		{2.0 / 3.0, "66.67%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.fraction))
	}
}
