package catalog

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	query := `
		INSERT INTO classes (name, description, category_id, difficulty, duration_min, max_capacity, equipment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, description, category_id, difficulty, duration_min, max_capacity, equipment, is_active, created_at
	`

	var cls Class
	err := r.db.GetContext(ctx, &cls, query,
		req.Name, req.Description, req.CategoryID, req.Difficulty,
		req.DurationMin, req.MaxCapacity, req.Equipment)
	if err != nil {
		return nil, err
	}

	return &cls, nil
}

func (r *repository) GetClassByID(ctx context.Context, id int) (*Class, error) {
	query := `
		SELECT id, name, description, category_id, difficulty, duration_min, max_capacity, equipment, is_active, created_at
		FROM classes
		WHERE id = $1
	`

	var cls Class
	err := r.db.GetContext(ctx, &cls, query, id)
	if err != nil {
		return nil, err
	}

	return &cls, nil
}

func (r *repository) ListClasses(ctx context.Context, onlyActive bool) ([]Class, error) {
	query := `
		SELECT id, name, description, category_id, difficulty, duration_min, max_capacity, equipment, is_active, created_at
		FROM classes
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	var classes []Class
	err := r.db.SelectContext(ctx, &classes, query)
	if err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := r.db.SelectContext(ctx, &categories, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := r.db.SelectContext(ctx, &groups, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) GroupIndex(ctx context.Context) (GroupIndex, error) {
	rows := []struct {
		GroupID    int `db:"group_id"`
		CategoryID int `db:"category_id"`
	}{}

	err := r.db.SelectContext(ctx, &rows, `SELECT group_id, category_id FROM group_categories`)
	if err != nil {
		return nil, err
	}

	ix := make(GroupIndex)
	for _, row := range rows {
		ix.add(row.CategoryID, row.GroupID)
	}

	return ix, nil
}
