package dialogs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DialogCache describes the last message of a dialog
type DialogCache struct {
	LastMessage primitive.ObjectID `bson:"last_message" json:"last_message"`
	LastUser    primitive.ObjectID `bson:"last_user" json:"last_user"`
	LastTs      time.Time          `bson:"last_ts" json:"last_ts"`
	Preview     string             `bson:"preview" json:"preview"`
}

// Dialog is one participant's copy of a conversation
type Dialog struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	// User owns this copy
	User primitive.ObjectID `bson:"user" json:"user"`
	// To is the opponent
	To     primitive.ObjectID `bson:"to" json:"to"`
	Exists bool               `bson:"exists" json:"exists"`
	Cache  DialogCache        `bson:"cache" json:"cache"`
	Unread int                `bson:"unread" json:"unread"`
}

// DlgMessage is a message inside one dialog copy
type DlgMessage struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Parent primitive.ObjectID `bson:"parent" json:"parent"`
	User   primitive.ObjectID `bson:"user" json:"user"`
	Ts     time.Time          `bson:"ts" json:"ts"`
	Md     string             `bson:"md" json:"md"`
	HTML   string             `bson:"html" json:"html"`
	Exists bool               `bson:"exists" json:"exists"`
}
