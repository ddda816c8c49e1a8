package users

// Client facing messages
const (
	msgLoginFailed         = "login_failed"
	msgMissedCaptcha       = "missed_captcha_solution"
	msgWrongCaptcha        = "wrong_captcha_solution"
	msgTooManyAttempts     = "too_many_attempts"
	msgExpiredToken        = "expired_token"
	msgBrokenToken         = "broken_token"
	msgNickTaken           = "nick is already taken"
	msgEmailTaken          = "email is already registered"
	msgInvalidNick         = "nick must be 2-32 letters, digits, `_` or `-`"
	msgInvalidPassword     = "password must be at least 8 chars with a letter and a digit"
	msgInvalidEmail        = "invalid email"
	msgInvalidRegistration = "invalid registration data"
)

// Input names echoed back in `fields` and `errors`
const (
	fieldEmailOrNick  = "email_or_nick"
	fieldPass         = "pass"
	fieldCaptchaToken = "captcha_token"
	fieldNick         = "nick"
	fieldEmail        = "email"
)
