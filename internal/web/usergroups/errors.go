package usergroups

// MaxShortNameLength limits short_name, in runes. Keep GroupInput tags in sync.
const MaxShortNameLength = 64

const (
	msgInvalidShortName = "short_name must be 1-64 chars"
	msgShortNameTaken   = "short_name is already taken"
	msgParentNotFound   = "parent group not found"
	msgParentIsSelf     = "group can not be its own parent"
	msgProtected        = "protected group can not be removed"
	msgHasChildren      = "group is a parent of other groups"
	msgHasMembers       = "group has members"
)

const (
	fieldID          = "_id"
	fieldShortName   = "short_name"
	fieldParentGroup = "parent_group"
	fieldSettings    = "settings"
)
