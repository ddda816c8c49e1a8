package dialogs

const (
	// MaxMessageLength is the message limit in runes, see SendInput
	MaxMessageLength = 10000
	// PageSize is the max number of dialogs or messages in one page
	PageSize = 50
	// previewLength is the dialog preview size in runes
	previewLength = 100
	// SourceDialogMessage is the infraction source type of dialog messages
	SourceDialogMessage = "DIALOG_MESSAGE"
)

const (
	msgEmptyMessage     = "message is empty"
	msgMessageTooLong   = "message is too long"
	msgSendToYourself   = "can not send message to yourself"
	msgUnknownRecipient = "recipient not found"

	fieldTo      = "to"
	fieldMessage = "message"
)
