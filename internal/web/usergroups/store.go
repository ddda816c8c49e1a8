package usergroups

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists usergroups
type Store interface {
	GetGroup(ctx context.Context, id primitive.ObjectID) (*UserGroup, error)
	FindByShortName(ctx context.Context, shortName string) (*UserGroup, error)
	FindByShortNames(ctx context.Context, shortNames []string) ([]*UserGroup, error)
	// ListGroups returns all groups sorted by short_name
	ListGroups(ctx context.Context) ([]*UserGroup, error)
	// CreateGroup fails with a 400 client error when short_name is taken
	CreateGroup(ctx context.Context, group *UserGroup) error
	SaveGroup(ctx context.Context, group *UserGroup) error
	DeleteGroup(ctx context.Context, id primitive.ObjectID) error
	// CountChildren counts groups with parent_group id
	CountChildren(ctx context.Context, id primitive.ObjectID) (int64, error)
	// CountMembers counts users assigned to group id
	CountMembers(ctx context.Context, id primitive.ObjectID) (int64, error)
}
