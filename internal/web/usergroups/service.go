// Package usergroups manages usergroups and their settings from the admin panel.
package usergroups

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/web"
)

const addFormTitle = "New usergroup"

// GroupRef is a usergroup option of the parent select
type GroupRef struct {
	ID        string `json:"_id"`
	ShortName string `json:"short_name"`
}

// Head is the page meta
type Head struct {
	Title string `json:"title"`
}

// AddForm is the data of the new usergroup form
type AddForm struct {
	SettingsCategories map[string]map[string]SettingSchema `json:"settings_categories"`
	Usergroups         []GroupRef                          `json:"usergroups"`
	Head               Head                                `json:"head"`
}

// GroupPage is the data of one usergroup
type GroupPage struct {
	UsergroupID primitive.ObjectID                `json:"usergroup_id"`
	Usergroup   *UserGroup                        `json:"usergroup"`
	ItemGroups  map[string]map[string]SettingItem `json:"item_groups"`
}

// GroupInput is the editable part of a usergroup
type GroupInput struct {
	ShortName string `json:"short_name" validate:"required,max=64"`
	// ParentGroup is a hex id, empty for none
	ParentGroup string         `json:"parent_group"`
	Settings    map[string]any `json:"settings"`
}

// Service implements usergroup operations
type Service struct {
	store   Store
	schemas Schemas
	logger  logSDK.Logger
}

// NewService creates Service, schemas are the usergroup setting schemas
func NewService(store Store, schemas Schemas, logger logSDK.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if schemas == nil {
		schemas = Schemas{}
	}
	if err := schemas.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid usergroup setting schemas")
	}
	if logger == nil {
		logger = log.Logger.Named("usergroups")
	}

	return &Service{store: store, schemas: schemas, logger: logger}, nil
}

// GroupIDsByShortNames resolves short names to ids, unknown names are skipped
func (s *Service) GroupIDsByShortNames(ctx context.Context, shortNames []string) ([]primitive.ObjectID, error) {
	if len(shortNames) == 0 {
		return nil, nil
	}

	groups, err := s.store.FindByShortNames(ctx, shortNames)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	return ids, nil
}

// AddForm returns the setting schemas and the existing groups
func (s *Service) AddForm(ctx context.Context) (*AddForm, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	form := &AddForm{
		SettingsCategories: s.schemas.ByCategory(),
		Usergroups:         make([]GroupRef, 0, len(groups)),
		Head:               Head{Title: addFormTitle},
	}
	for _, g := range groups {
		form.Usergroups = append(form.Usergroups, GroupRef{ID: g.ID.Hex(), ShortName: g.ShortName})
	}

	return form, nil
}

// Show returns a usergroup with its settings grouped for the edit form
func (s *Service) Show(ctx context.Context, id primitive.ObjectID) (*GroupPage, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	return &GroupPage{
		UsergroupID: group.ID,
		Usergroup:   group,
		ItemGroups:  s.schemas.Items(group.Settings),
	}, nil
}

// List returns all usergroups sorted by short_name
func (s *Service) List(ctx context.Context) ([]*UserGroup, error) {
	return s.store.ListGroups(ctx)
}

// apply validates in and copies it into group
func (s *Service) apply(ctx context.Context, group *UserGroup, in GroupInput) error {
	in.ShortName = strings.TrimSpace(in.ShortName)
	if err := web.Validate(&in, web.Messages{fieldShortName: msgInvalidShortName}); err != nil {
		return err
	}
	shortName := in.ShortName

	if other, err := s.store.FindByShortName(ctx, shortName); err == nil {
		if other.ID != group.ID {
			return web.BadRequest(msgShortNameTaken, fieldShortName)
		}
	} else if !errors.Is(err, web.ErrNotFound) {
		return err
	}

	parentID, err := web.ParseOptionalObjectID(fieldParentGroup, in.ParentGroup)
	if err != nil {
		return err
	}
	group.ParentGroup = nil
	if !parentID.IsZero() {
		if parentID == group.ID {
			return web.BadRequest(msgParentIsSelf, fieldParentGroup)
		}
		if _, err = s.store.GetGroup(ctx, parentID); err != nil {
			if errors.Is(err, web.ErrNotFound) {
				return web.BadRequest(msgParentNotFound, fieldParentGroup)
			}

			return err
		}
		group.ParentGroup = &parentID
	}

	if key, err := s.schemas.Check(in.Settings); err != nil {
		return web.BadRequest(err.Error(), fieldSettings).With("setting", key)
	}

	group.ShortName = shortName
	group.Settings = in.Settings
	if group.Settings == nil {
		group.Settings = map[string]any{}
	}

	return nil
}

// Create adds a new usergroup
func (s *Service) Create(ctx context.Context, in GroupInput) (*UserGroup, error) {
	group := &UserGroup{ID: primitive.NewObjectID()}
	if err := s.apply(ctx, group, in); err != nil {
		return nil, err
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("usergroup created",
		zap.String("usergroup", group.ID.Hex()),
		zap.String("short_name", group.ShortName))
	return group, nil
}

// Update replaces the editable fields of usergroup id
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in GroupInput) (*UserGroup, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = s.apply(ctx, group, in); err != nil {
		return nil, err
	}
	if err = s.store.SaveGroup(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

// Destroy removes an unused, unprotected usergroup
func (s *Service) Destroy(ctx context.Context, id primitive.ObjectID) error {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group.IsProtected {
		return web.BadRequest(msgProtected, fieldID)
	}

	children, err := s.store.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return web.BadRequest(msgHasChildren, fieldID)
	}

	members, err := s.store.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if members > 0 {
		return web.BadRequest(msgHasMembers, fieldID)
	}

	if err = s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}

	s.logger.Info("usergroup removed",
		zap.String("usergroup", id.Hex()),
		zap.String("short_name", group.ShortName))
	return nil
}

// Seed creates the built-in protected groups that are missing
func (s *Service) Seed(ctx context.Context) error {
	for _, name := range []string{GroupAdministrators, GroupMembers, GroupGuests} {
		_, err := s.store.FindByShortName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, web.ErrNotFound) {
			return err
		}

		if err = s.store.CreateGroup(ctx, &UserGroup{
			ID:          primitive.NewObjectID(),
			ShortName:   name,
			IsProtected: true,
			Settings:    map[string]any{},
		}); err != nil {
			return errors.Wrapf(err, "seed usergroup %q", name)
		}

		s.logger.Info("seed usergroup", zap.String("short_name", name))
	}

	return nil
}
