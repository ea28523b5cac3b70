package catalog

import "context"

type Repository interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	ListClasses(ctx context.Context, onlyActive bool) ([]Class, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListGroups(ctx context.Context) ([]Group, error)
	GroupIndex(ctx context.Context) (GroupIndex, error)
}
