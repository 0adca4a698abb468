package domain

import (
	"time"
)

// AttendanceStatus classifies a student's aggregate attendance against the
// policy threshold.
type AttendanceStatus string

const (
	StatusGood             AttendanceStatus = "Good"
	StatusNeedsImprovement AttendanceStatus = "Needs Improvement"
)

// GoodAttendanceThreshold is the fraction of attended sessions at or above
// which a student is classified StatusGood. The boundary is inclusive.
const GoodAttendanceThreshold = 0.75

// Sheet is one subject's raw attendance export, fetched fresh each refresh
// cycle and discarded after processing.
type Sheet struct {
	Subject string `json:"subject"`
	RawText string `json:"-"`
}

// SubjectAttendance holds one student's record for a single subject.
//
// Invariants: Present + Absent == ClassesHeld and len(PresentByDate) ==
// ClassesHeld. PresentByDate is aligned with the sheet header's date columns
// in source order; each entry is 1 (present) or 0 (absent).
type SubjectAttendance struct {
	ClassesHeld   int   `json:"classes_held" validate:"min=0"`
	Present       int   `json:"present" validate:"min=0"`
	Absent        int   `json:"absent" validate:"min=0"`
	PresentByDate []int `json:"present_by_date"`
}

// Totals is the cross-subject attendance summary for one student. Percent is
// a fraction in [0,1], not a percentage; formatting happens at presentation
// time only.
type Totals struct {
	ClassesHeld int              `json:"classes_held"`
	Present     int              `json:"present"`
	Absent      int              `json:"absent"`
	Percent     float64          `json:"percent"`
	Status      AttendanceStatus `json:"status"`
}

// Student is the unified per-student model keyed by roll number. Subjects
// maps subject name to that subject's record; SubjectOrder preserves the
// order in which subjects were folded in, which drives the short-circuit in
// today detection.
type Student struct {
	Roll         string                       `json:"roll" validate:"required"`
	Name         string                       `json:"name"`
	Subjects     map[string]SubjectAttendance `json:"subjects"`
	SubjectOrder []string                     `json:"-"`
	Totals       Totals                       `json:"totals"`
}

// StudentsMap maps roll number to Student. It is rebuilt wholesale every
// refresh cycle; nothing survives from the previous cycle.
type StudentsMap map[string]*Student

// TodayCounts classifies every student by the most recent session of each of
// their subjects: present in at least one, absent in all, or unknown when no
// subject has any date column.
type TodayCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Unknown int `json:"unknown"`
}

// Summary is the aggregate block handed to the presentation layer.
type Summary struct {
	TotalStudents     int         `json:"total_students"`
	TotalClassesHeld  int         `json:"total_classes_held"`
	AverageAttendance float64     `json:"average_attendance"`
	Today             TodayCounts `json:"today"`
}

// Snapshot is one refresh cycle's complete, immutable result. Each cycle
// produces a fresh Snapshot that fully replaces the previous one; consumers
// hold a reference and never mutate it.
type Snapshot struct {
	CycleID     string     `json:"cycle_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Summary     Summary    `json:"summary"`
	Students    []*Student `json:"students"`
}

// Lookup returns the student with the given roll, or nil. Students is sorted
// by roll so handlers could binary search, but snapshots are small enough
// that a linear scan is fine.
func (s *Snapshot) Lookup(roll string) *Student {
	for _, st := range s.Students {
		if st.Roll == roll {
			return st
		}
	}
	return nil
}
