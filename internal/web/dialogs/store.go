package dialogs

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists dialogs and messages.
// Single record lookups return an error wrapping web.ErrNotFound.
type Store interface {
	// FindDialogBetween returns owner's copy of the dialog with opponent, deleted or not
	FindDialogBetween(ctx context.Context, owner, opponent primitive.ObjectID) (*Dialog, error)
	CreateDialog(ctx context.Context, dlg *Dialog) error
	GetDialog(ctx context.Context, id primitive.ObjectID) (*Dialog, error)
	// FindDialogs returns dialogs of ids owned by owner
	FindDialogs(ctx context.Context, ids []primitive.ObjectID, owner primitive.ObjectID) ([]*Dialog, error)
	// ListDialogs returns existing dialogs of owner, newest first
	ListDialogs(ctx context.Context, owner primitive.ObjectID, skip, limit int) ([]*Dialog, error)
	// TouchDialog marks the dialog existing, replaces its cache and adds unreadInc to unread
	TouchDialog(ctx context.Context, id primitive.ObjectID, cache DialogCache, unreadInc int) error
	ResetUnread(ctx context.Context, id primitive.ObjectID) error
	SetDialogExists(ctx context.Context, id primitive.ObjectID, exists bool) error

	InsertMessage(ctx context.Context, msg *DlgMessage) error
	// GetExistingMessage returns a message that is not deleted
	GetExistingMessage(ctx context.Context, id primitive.ObjectID) (*DlgMessage, error)
	FindMessages(ctx context.Context, ids []primitive.ObjectID) ([]*DlgMessage, error)
	// ListMessages returns existing messages of dialog, oldest first
	ListMessages(ctx context.Context, dialog primitive.ObjectID, skip, limit int) ([]*DlgMessage, error)
	CountMessages(ctx context.Context, dialog primitive.ObjectID) (int64, error)
	HideMessage(ctx context.Context, id primitive.ObjectID) error
	HideDialogMessages(ctx context.Context, dialog primitive.ObjectID) error
}
