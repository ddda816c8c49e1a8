package usergroups

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/web"
)

func testSchemas() Schemas {
	return Schemas{
		"forum_can_reply": {Type: TypeBoolean, Default: false, Category: "forum", Priority: 1},
		"forum_edit_max_time": {
			Type: TypeNumber, Default: 30.0, Category: "forum", Group: "forum_limits", Priority: 2,
		},
		"users_title": {Type: TypeString, Default: "", Category: "users"},
	}
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := &memStore{members: map[primitive.ObjectID]int64{}}
	svc, err := NewService(store, testSchemas(), nil)
	require.NoError(t, err)
	require.NoError(t, svc.Seed(context.Background()))
	return svc, store
}

func requireBadRequest(t *testing.T, err error, field string) *web.ClientError {
	t.Helper()
	cerr, ok := web.AsClientError(err)
	require.True(t, ok, "expect client error, got %v", err)
	require.Equal(t, 400, cerr.Code)
	require.Equal(t, []string{field}, cerr.Fields)
	return cerr
}

func TestSchemasValidate(t *testing.T) {
	require.NoError(t, testSchemas().Validate())
	require.Error(t, Schemas{"a": {Type: "date"}}.Validate())
	require.Error(t, Schemas{"a": {Type: TypeNumber, Default: "1"}}.Validate())

	_, err := NewService(&memStore{}, Schemas{"a": {Type: "list"}}, nil)
	require.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	require.NoError(t, svc.Seed(context.Background()))

	require.Len(t, store.groups, 3)
	for _, g := range store.groups {
		require.True(t, g.IsProtected)
	}

	ids, err := svc.GroupIDsByShortNames(context.Background(), []string{GroupMembers, "unknown"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	members, err := svc.store.FindByShortName(ctx, GroupMembers)
	require.NoError(t, err)

	group, err := svc.Create(ctx, GroupInput{
		ShortName:   " moderators ",
		ParentGroup: members.ID.Hex(),
		Settings:    map[string]any{"forum_can_reply": true, "forum_edit_max_time": 60.0},
	})
	require.NoError(t, err)
	require.Equal(t, "moderators", group.ShortName)
	require.Equal(t, members.ID, *group.ParentGroup)
	require.False(t, group.IsProtected)

	cases := []struct {
		name  string
		in    GroupInput
		field string
	}{
		{"empty name", GroupInput{ShortName: "  "}, fieldShortName},
		{"long name", GroupInput{ShortName: strings.Repeat("x", MaxShortNameLength+1)}, fieldShortName},
		{"taken name", GroupInput{ShortName: GroupMembers}, fieldShortName},
		{"bad parent id", GroupInput{ShortName: "a", ParentGroup: "zzz"}, fieldParentGroup},
		{"missing parent", GroupInput{ShortName: "a", ParentGroup: primitive.NewObjectID().Hex()}, fieldParentGroup},
		{"unknown setting", GroupInput{ShortName: "a", Settings: map[string]any{"nope": 1.0}}, fieldSettings},
		{"wrong type", GroupInput{ShortName: "a", Settings: map[string]any{"users_title": true}}, fieldSettings},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(ctx, c.in)
			requireBadRequest(t, err, c.field)
		})
	}

	_, err = svc.Create(ctx, GroupInput{ShortName: strings.Repeat("x", MaxShortNameLength+1)})
	cerr, ok := web.AsClientError(err)
	require.True(t, ok)
	require.Equal(t, msgInvalidShortName, cerr.Message)
	require.Equal(t, map[string]string{fieldShortName: msgInvalidShortName}, cerr.Errors)

	group, err = svc.Create(ctx, GroupInput{ShortName: " " + strings.Repeat("я", MaxShortNameLength) + " "})
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("я", MaxShortNameLength), group.ShortName)
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, GroupInput{ShortName: "editors"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, group.ID, GroupInput{ShortName: "editors", ParentGroup: group.ID.Hex()})
	requireBadRequest(t, err, fieldParentGroup)

	_, err = svc.Update(ctx, group.ID, GroupInput{ShortName: GroupGuests})
	requireBadRequest(t, err, fieldShortName)

	updated, err := svc.Update(ctx, group.ID, GroupInput{
		ShortName: "editors",
		Settings:  map[string]any{"users_title": "Editor"},
	})
	require.NoError(t, err)
	require.Equal(t, "Editor", updated.Settings["users_title"])

	_, err = svc.Update(ctx, primitive.NewObjectID(), GroupInput{ShortName: "x"})
	require.ErrorIs(t, err, web.ErrNotFound)
}

func TestShow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, GroupInput{
		ShortName: "editors",
		Settings:  map[string]any{"forum_edit_max_time": 90.0},
	})
	require.NoError(t, err)

	page, err := svc.Show(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, group.ID, page.UsergroupID)
	require.Equal(t, 90.0, page.ItemGroups["forum_limits"]["forum_edit_max_time"].Value)
	require.Equal(t, false, page.ItemGroups["forum"]["forum_can_reply"].Value)
	require.Contains(t, page.ItemGroups["users"], "users_title")

	// shared schemas keep their defaults
	require.Equal(t, 30.0, svc.schemas["forum_edit_max_time"].Default)
	other, err := svc.Create(ctx, GroupInput{ShortName: "readers"})
	require.NoError(t, err)
	page, err = svc.Show(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, 30.0, page.ItemGroups["forum_limits"]["forum_edit_max_time"].Value)

	_, err = svc.Show(ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, web.ErrNotFound)
}

func TestAddFormAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	form, err := svc.AddForm(ctx)
	require.NoError(t, err)
	require.Len(t, form.SettingsCategories["forum"], 2)
	require.Len(t, form.SettingsCategories["users"], 1)
	require.Len(t, form.Usergroups, 3)
	require.Equal(t, GroupAdministrators, form.Usergroups[0].ShortName)
	require.Len(t, form.Usergroups[0].ID, 24)
	require.NotEmpty(t, form.Head.Title)

	groups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{GroupAdministrators, GroupGuests, GroupMembers},
		[]string{groups[0].ShortName, groups[1].ShortName, groups[2].ShortName})
}

func TestDestroy(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	members, err := svc.store.FindByShortName(ctx, GroupMembers)
	require.NoError(t, err)
	err = svc.Destroy(ctx, members.ID)
	require.Equal(t, msgProtected, requireBadRequest(t, err, fieldID).Message)

	parent, err := svc.Create(ctx, GroupInput{ShortName: "parent"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, GroupInput{ShortName: "child", ParentGroup: parent.ID.Hex()})
	require.NoError(t, err)
	err = svc.Destroy(ctx, parent.ID)
	require.Equal(t, msgHasChildren, requireBadRequest(t, err, fieldID).Message)

	used, err := svc.Create(ctx, GroupInput{ShortName: "used"})
	require.NoError(t, err)
	store.members[used.ID] = 2
	err = svc.Destroy(ctx, used.ID)
	require.Equal(t, msgHasMembers, requireBadRequest(t, err, fieldID).Message)

	free, err := svc.Create(ctx, GroupInput{ShortName: "free"})
	require.NoError(t, err)
	require.NoError(t, svc.Destroy(ctx, free.ID))
	_, err = svc.Show(ctx, free.ID)
	require.ErrorIs(t, err, web.ErrNotFound)
}
