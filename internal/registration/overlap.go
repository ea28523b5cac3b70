package registration

import (
	"context"
	"time"

	"wildenergy/internal/course"
)

// Detector finds a member's active registrations that overlap a
// candidate course in time. Intervals are half-open [start, end), so
// back-to-back classes never conflict.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FindOverlaps returns every other active registration of memberID on
// the candidate's date whose interval intersects the candidate's.
// The candidate course itself is excluded; double registration on the
// same course is the uniqueness constraint's job, not the detector's.
func (d *Detector) FindOverlaps(ctx context.Context, memberID int, candidate *course.Instance) ([]Overlap, error) {
	same, err := d.repo.ListActiveOnDate(ctx, memberID, candidate.CourseDate)
	if err != nil {
		return nil, err
	}

	var conflicts []Overlap
	for _, reg := range same {
		if reg.CourseID == candidate.ID {
			continue
		}
		if overlaps(candidate.StartAt, candidate.EndAt, reg.StartAt, reg.EndAt) {
			conflicts = append(conflicts, reg)
		}
	}
	return conflicts, nil
}
