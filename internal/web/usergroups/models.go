package usergroups

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Built-in groups created by migrate
const (
	GroupAdministrators = "administrators"
	GroupMembers        = "members"
	GroupGuests         = "guests"
)

// UserGroup is a set of users sharing settings
type UserGroup struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	ShortName   string              `bson:"short_name" json:"short_name"`
	ParentGroup *primitive.ObjectID `bson:"parent_group,omitempty" json:"parent_group,omitempty"`
	// IsProtected groups can not be removed
	IsProtected bool           `bson:"is_protected" json:"is_protected"`
	Settings    map[string]any `bson:"settings" json:"settings"`
}

// Setting value types
const (
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeString  = "string"
)

// SettingSchema describes one usergroup setting
type SettingSchema struct {
	Type     string `mapstructure:"type" json:"type"`
	Default  any    `mapstructure:"default" json:"default"`
	Category string `mapstructure:"category" json:"category"`
	// Group is the form section, Category is used when empty
	Group    string `mapstructure:"group" json:"group,omitempty"`
	Priority int    `mapstructure:"priority" json:"priority"`
}

// SettingItem is a schema with the value of one group
type SettingItem struct {
	SettingSchema
	Value any `json:"value"`
}
