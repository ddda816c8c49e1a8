// Package dialogs implements private messages between members.
//
// Every participant owns a copy of the dialog and of each message,
// so either side can delete its history without touching the other.
package dialogs

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/library/markdown"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/web"
)

// Clock returns the current UTC time
type Clock func() time.Time

// UserDirectory looks up dialog participants
type UserDirectory interface {
	FetchUserByNick(ctx context.Context, nick string) (*users.User, error)
	FetchUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*users.User, error)
}

// Service implements dialog operations
type Service struct {
	store  Store
	users  UserDirectory
	logger logSDK.Logger
	clock  Clock
}

// NewService creates Service
func NewService(store Store, directory UserDirectory, logger logSDK.Logger, clock Clock) (*Service, error) {
	if store == nil || directory == nil {
		return nil, errors.New("store and user directory are required")
	}
	if logger == nil {
		logger = log.Logger.Named("dialogs")
	}
	if clock == nil {
		clock = gutils.Clock.GetUTCNow
	}

	return &Service{store: store, users: directory, logger: logger, clock: clock}, nil
}

// SendResult identifies the sender's copy of a new message
type SendResult struct {
	DialogID  primitive.ObjectID `json:"dialog_id"`
	MessageID primitive.ObjectID `json:"message_id"`
}

// SendInput is the new message form
type SendInput struct {
	To      string `json:"to" form:"to"`
	Message string `json:"message" form:"message" validate:"required,max=10000"`
}

var sendMessages = web.Messages{
	fieldMessage + ".required": msgEmptyMessage,
	fieldMessage + ".max":      msgMessageTooLong,
}

// Send delivers md from user `from` to the member named toNick
func (s *Service) Send(ctx context.Context, from primitive.ObjectID, toNick, md string) (*SendResult, error) {
	in := SendInput{To: strings.TrimSpace(toNick), Message: strings.TrimSpace(md)}
	if err := web.Validate(&in, sendMessages); err != nil {
		return nil, err
	}
	md = in.Message

	to, err := s.users.FetchUserByNick(ctx, in.To)
	if err != nil {
		if errors.Is(err, web.ErrNotFound) {
			return nil, web.BadRequest(msgUnknownRecipient, fieldTo)
		}

		return nil, err
	}
	if to.ID == from {
		return nil, web.BadRequest(msgSendToYourself, fieldTo)
	}

	own, err := s.findOrCreateDialog(ctx, from, to.ID)
	if err != nil {
		return nil, err
	}
	opp, err := s.findOrCreateDialog(ctx, to.ID, from)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	html := markdown.ToHTML(md)
	preview := markdown.Preview(md, previewLength)

	var ownMsgID primitive.ObjectID
	for _, dlg := range []*Dialog{own, opp} {
		msg := &DlgMessage{
			Parent: dlg.ID,
			User:   from,
			Ts:     now,
			Md:     md,
			HTML:   html,
			Exists: true,
		}
		if err = s.store.InsertMessage(ctx, msg); err != nil {
			return nil, err
		}

		unreadInc := 0
		if dlg == opp {
			unreadInc = 1
		} else {
			ownMsgID = msg.ID
		}

		if err = s.store.TouchDialog(ctx, dlg.ID, DialogCache{
			LastMessage: msg.ID,
			LastUser:    from,
			LastTs:      now,
			Preview:     preview,
		}, unreadInc); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("message sent",
		zap.String("from", from.Hex()),
		zap.String("to", to.ID.Hex()),
		zap.String("dialog", own.ID.Hex()))
	return &SendResult{DialogID: own.ID, MessageID: ownMsgID}, nil
}

func (s *Service) findOrCreateDialog(ctx context.Context, owner, opponent primitive.ObjectID) (*Dialog, error) {
	dlg, err := s.store.FindDialogBetween(ctx, owner, opponent)
	if err == nil {
		return dlg, nil
	}
	if !errors.Is(err, web.ErrNotFound) {
		return nil, err
	}

	dlg = &Dialog{
		User:   owner,
		To:     opponent,
		Exists: true,
	}
	if err = s.store.CreateDialog(ctx, dlg); err != nil {
		return nil, err
	}

	return dlg, nil
}

// Opponent is the public part of the other participant
type Opponent struct {
	ID   primitive.ObjectID `json:"_id"`
	Hid  int64              `json:"hid"`
	Nick string             `json:"nick"`
	Name string             `json:"name"`
}

// DialogView is a dialog with its opponent
type DialogView struct {
	*Dialog
	Opponent *Opponent `json:"opponent,omitempty"`
}

func pageBounds(page int) (skip, limit int) {
	if page < 1 {
		page = 1
	}

	return (page - 1) * PageSize, PageSize
}

// ListDialogs returns a page of the user's dialogs, most recent first
func (s *Service) ListDialogs(ctx context.Context, owner primitive.ObjectID, page int) ([]*DialogView, error) {
	skip, limit := pageBounds(page)
	dlgs, err := s.store.ListDialogs(ctx, owner, skip, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(dlgs))
	for _, dlg := range dlgs {
		ids = append(ids, dlg.To)
	}
	opponents, err := s.users.FetchUsers(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch opponents")
	}

	views := make([]*DialogView, 0, len(dlgs))
	for _, dlg := range dlgs {
		view := &DialogView{Dialog: dlg}
		if u, ok := opponents[dlg.To]; ok {
			view.Opponent = &Opponent{ID: u.ID, Hid: u.Hid, Nick: u.Nick, Name: u.Name}
		}
		views = append(views, view)
	}

	return views, nil
}

// ownedDialog returns an existing dialog copy of owner
func (s *Service) ownedDialog(ctx context.Context, owner, dialogID primitive.ObjectID) (*Dialog, error) {
	dlg, err := s.store.GetDialog(ctx, dialogID)
	if err != nil {
		return nil, err
	}
	if dlg.User != owner || !dlg.Exists {
		return nil, errors.Wrapf(web.ErrNotFound, "dialog %s", dialogID.Hex())
	}

	return dlg, nil
}

// ListMessages returns a page of a dialog's messages and marks the dialog read
func (s *Service) ListMessages(ctx context.Context,
	owner, dialogID primitive.ObjectID, page int) (*Dialog, []*DlgMessage, error) {
	dlg, err := s.ownedDialog(ctx, owner, dialogID)
	if err != nil {
		return nil, nil, err
	}

	skip, limit := pageBounds(page)
	msgs, err := s.store.ListMessages(ctx, dlg.ID, skip, limit)
	if err != nil {
		return nil, nil, err
	}

	if dlg.Unread != 0 {
		if err = s.store.ResetUnread(ctx, dlg.ID); err != nil {
			return nil, nil, err
		}
		dlg.Unread = 0
	}

	return dlg, msgs, nil
}

// DestroyMessage hides one message of the user's dialog copy and returns
// how many messages are left. A dialog without messages is hidden too.
func (s *Service) DestroyMessage(ctx context.Context, owner, messageID primitive.ObjectID) (int64, error) {
	msg, err := s.store.GetExistingMessage(ctx, messageID)
	if err != nil {
		return 0, err
	}

	dlg, err := s.ownedDialog(ctx, owner, msg.Parent)
	if err != nil {
		return 0, err
	}

	if err = s.store.HideMessage(ctx, msg.ID); err != nil {
		return 0, err
	}

	count, err := s.store.CountMessages(ctx, dlg.ID)
	if err != nil {
		return 0, err
	}

	if count == 0 {
		if err = s.store.SetDialogExists(ctx, dlg.ID, false); err != nil {
			return 0, err
		}
	}

	return count, nil
}

// DestroyDialog hides the user's copy of a dialog with all its messages
func (s *Service) DestroyDialog(ctx context.Context, owner, dialogID primitive.ObjectID) error {
	dlg, err := s.ownedDialog(ctx, owner, dialogID)
	if err != nil {
		return err
	}

	if err = s.store.HideDialogMessages(ctx, dlg.ID); err != nil {
		return err
	}

	return s.store.SetDialogExists(ctx, dlg.ID, false)
}

// Infraction references reported content
type Infraction struct {
	Src     primitive.ObjectID `json:"src"`
	SrcType string             `json:"src_type"`
}

// InfractionInfo describes a reported dialog message
type InfractionInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// InfractionInfo describes the reported dialog messages that belong to
// dialogs of userID, keyed by message id. Other sources are ignored.
func (s *Service) InfractionInfo(ctx context.Context,
	userID primitive.ObjectID, infractions []Infraction) (map[string]InfractionInfo, error) {
	info := map[string]InfractionInfo{}

	var msgIDs []primitive.ObjectID
	for _, inf := range infractions {
		if inf.SrcType == SourceDialogMessage {
			msgIDs = append(msgIDs, inf.Src)
		}
	}
	if len(msgIDs) == 0 {
		return info, nil
	}

	msgs, err := s.store.FindMessages(ctx, msgIDs)
	if err != nil {
		return nil, err
	}

	parentIDs := make([]primitive.ObjectID, 0, len(msgs))
	for _, msg := range msgs {
		parentIDs = append(parentIDs, msg.Parent)
	}
	dlgs, err := s.store.FindDialogs(ctx, parentIDs, userID)
	if err != nil {
		return nil, err
	}

	dlgByID := make(map[primitive.ObjectID]*Dialog, len(dlgs))
	opponentIDs := make([]primitive.ObjectID, 0, len(dlgs))
	for _, dlg := range dlgs {
		dlgByID[dlg.ID] = dlg
		opponentIDs = append(opponentIDs, dlg.To)
	}

	opponents, err := s.users.FetchUsers(ctx, opponentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "fetch opponents")
	}

	for _, msg := range msgs {
		dlg, ok := dlgByID[msg.Parent]
		if !ok {
			continue
		}

		item := InfractionInfo{
			URL:  DialogURL(dlg.ID, msg.ID),
			Text: msg.Md,
		}
		if u, ok := opponents[dlg.To]; ok {
			item.Title = u.Name
		}
		info[msg.ID.Hex()] = item
	}

	return info, nil
}

// DialogURL links to a message inside a dialog page
func DialogURL(dialogID, messageID primitive.ObjectID) string {
	return "/users/dialogs/" + dialogID.Hex() + "#" + messageID.Hex()
}
