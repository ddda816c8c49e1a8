package dialogs

import (
	"context"
	"sort"
	"sync"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/web"
)

type memStore struct {
	mu       sync.Mutex
	dialogs  []*Dialog
	messages []*DlgMessage
}

func notFound(what string) error {
	return errors.Wrapf(web.ErrNotFound, "%s not found", what)
}

func (s *memStore) FindDialogBetween(_ context.Context, owner, opponent primitive.ObjectID) (*Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dialogs {
		if d.User == owner && d.To == opponent {
			cp := *d
			return &cp, nil
		}
	}
	return nil, notFound("dialog")
}

func (s *memStore) CreateDialog(_ context.Context, dlg *Dialog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dlg.ID.IsZero() {
		dlg.ID = primitive.NewObjectID()
	}
	cp := *dlg
	s.dialogs = append(s.dialogs, &cp)
	return nil
}

func (s *memStore) dialog(id primitive.ObjectID) *Dialog {
	for _, d := range s.dialogs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *memStore) GetDialog(_ context.Context, id primitive.ObjectID) (*Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.dialog(id); d != nil {
		cp := *d
		return &cp, nil
	}
	return nil, notFound("dialog")
}

func (s *memStore) FindDialogs(_ context.Context, ids []primitive.ObjectID, owner primitive.ObjectID) ([]*Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Dialog
	for _, id := range ids {
		if d := s.dialog(id); d != nil && d.User == owner {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListDialogs(_ context.Context, owner primitive.ObjectID, skip, limit int) ([]*Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Dialog
	for _, d := range s.dialogs {
		if d.User == owner && d.Exists {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Cache.LastTs.After(out[j].Cache.LastTs)
	})
	return window(out, skip, limit), nil
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (s *memStore) TouchDialog(_ context.Context, id primitive.ObjectID, cache DialogCache, unreadInc int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dialog(id)
	if d == nil {
		return notFound("dialog")
	}
	d.Exists = true
	d.Cache = cache
	d.Unread += unreadInc
	return nil
}

func (s *memStore) ResetUnread(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.dialog(id); d != nil {
		d.Unread = 0
	}
	return nil
}

func (s *memStore) SetDialogExists(_ context.Context, id primitive.ObjectID, exists bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.dialog(id); d != nil {
		d.Exists = exists
	}
	return nil
}

func (s *memStore) InsertMessage(_ context.Context, msg *DlgMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *memStore) GetExistingMessage(_ context.Context, id primitive.ObjectID) (*DlgMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id && m.Exists {
			cp := *m
			return &cp, nil
		}
	}
	return nil, notFound("message")
}

func (s *memStore) FindMessages(_ context.Context, ids []primitive.ObjectID) ([]*DlgMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*DlgMessage
	for _, m := range s.messages {
		for _, id := range ids {
			if m.ID == id {
				cp := *m
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (s *memStore) ListMessages(_ context.Context, dialog primitive.ObjectID, skip, limit int) ([]*DlgMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*DlgMessage
	for _, m := range s.messages {
		if m.Parent == dialog && m.Exists {
			cp := *m
			out = append(out, &cp)
		}
	}
	return window(out, skip, limit), nil
}

func (s *memStore) CountMessages(_ context.Context, dialog primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.Parent == dialog && m.Exists {
			n++
		}
	}
	return n, nil
}

func (s *memStore) HideMessage(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			m.Exists = false
		}
	}
	return nil
}

func (s *memStore) HideDialogMessages(_ context.Context, dialog primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.Parent == dialog {
			m.Exists = false
		}
	}
	return nil
}

// memDirectory is a fixed set of users
type memDirectory struct {
	users []*users.User
}

func (d *memDirectory) FetchUserByNick(_ context.Context, nick string) (*users.User, error) {
	for _, u := range d.users {
		if u.Nick == nick && u.Exists {
			return u, nil
		}
	}
	return nil, notFound("user")
}

func (d *memDirectory) FetchUsers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*users.User, error) {
	out := map[primitive.ObjectID]*users.User{}
	for _, id := range ids {
		for _, u := range d.users {
			if u.ID == id {
				out[id] = u
			}
		}
	}
	return out, nil
}
