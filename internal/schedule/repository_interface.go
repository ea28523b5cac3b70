package schedule

import (
	"context"

	"wildenergy/internal/course"
)

type Repository interface {
	Create(ctx context.Context, s *Schedule) (*Schedule, error)
	GetByID(ctx context.Context, id int) (*Schedule, error)
	// UpdateAndReplace rewrites the schedule row and its instances in
	// one transaction; a rejected replace rolls the definition back too.
	UpdateAndReplace(ctx context.Context, s *Schedule, instances []course.Instance) (*Schedule, []course.Instance, error)
	List(ctx context.Context) ([]Schedule, error)
	SetActive(ctx context.Context, id int, active bool) error
}
