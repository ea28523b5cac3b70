package catalog

import "time"

// Category classifies a class (e.g. "Pole", "Flexibility"). Each class
// has exactly one category.
type Category struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Group is a named bundle of categories. Subscriptions allocate
// sessions per group, not per category.
type Group struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Class struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CategoryID  int       `db:"category_id" json:"category_id"`
	Difficulty  string    `db:"difficulty" json:"difficulty"`
	DurationMin int       `db:"duration_min" json:"duration_min"`
	MaxCapacity *int      `db:"max_capacity" json:"max_capacity,omitempty"`
	Equipment   string    `db:"equipment" json:"equipment"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type CreateClassRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description"`
	CategoryID  int    `json:"category_id" binding:"required"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	DurationMin int    `json:"duration_min" binding:"required,min=10,max=480"`
	MaxCapacity *int   `json:"max_capacity" binding:"omitempty,min=1"`
	Equipment   string `json:"equipment"`
}

// GroupIndex maps a category id to the set of group ids containing it.
// Built once per lookup batch instead of walking the many-to-many
// relation per allocation.
type GroupIndex map[int]map[int]struct{}

func (ix GroupIndex) Contains(categoryID, groupID int) bool {
	groups, ok := ix[categoryID]
	if !ok {
		return false
	}
	_, ok = groups[groupID]
	return ok
}

func (ix GroupIndex) add(categoryID, groupID int) {
	groups, ok := ix[categoryID]
	if !ok {
		groups = make(map[int]struct{})
		ix[categoryID] = groups
	}
	groups[groupID] = struct{}{}
}
