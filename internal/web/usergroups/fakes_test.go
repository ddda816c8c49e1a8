package usergroups

import (
	"context"
	"sort"
	"sync"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/web"
)

type memStore struct {
	mu      sync.Mutex
	groups  []*UserGroup
	members map[primitive.ObjectID]int64
}

func (s *memStore) find(match func(*UserGroup) bool) *UserGroup {
	for _, g := range s.groups {
		if match(g) {
			return g
		}
	}
	return nil
}

func copyGroup(g *UserGroup) *UserGroup {
	cp := *g
	cp.Settings = map[string]any{}
	for k, v := range g.Settings {
		cp.Settings[k] = v
	}
	return &cp
}

func (s *memStore) GetGroup(_ context.Context, id primitive.ObjectID) (*UserGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.find(func(g *UserGroup) bool { return g.ID == id }); g != nil {
		return copyGroup(g), nil
	}
	return nil, errors.Wrap(web.ErrNotFound, "usergroup")
}

func (s *memStore) FindByShortName(_ context.Context, name string) (*UserGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.find(func(g *UserGroup) bool { return g.ShortName == name }); g != nil {
		return copyGroup(g), nil
	}
	return nil, errors.Wrap(web.ErrNotFound, "usergroup")
}

func (s *memStore) FindByShortNames(_ context.Context, names []string) ([]*UserGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*UserGroup
	for _, g := range s.groups {
		for _, n := range names {
			if g.ShortName == n {
				out = append(out, copyGroup(g))
			}
		}
	}
	return out, nil
}

func (s *memStore) ListGroups(context.Context) ([]*UserGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func (s *memStore) CreateGroup(_ context.Context, group *UserGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(func(g *UserGroup) bool { return g.ShortName == group.ShortName }) != nil {
		return web.BadRequest(msgShortNameTaken, fieldShortName)
	}
	if group.ID.IsZero() {
		group.ID = primitive.NewObjectID()
	}
	s.groups = append(s.groups, copyGroup(group))
	return nil
}

func (s *memStore) SaveGroup(_ context.Context, group *UserGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.groups {
		if g.ID == group.ID {
			s.groups[i] = copyGroup(group)
			return nil
		}
	}
	return errors.Wrap(web.ErrNotFound, "usergroup")
}

func (s *memStore) DeleteGroup(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.groups {
		if g.ID == id {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) CountChildren(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, g := range s.groups {
		if g.ParentGroup != nil && *g.ParentGroup == id {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountMembers(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id], nil
}
