package users

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/Laisky/laisky-forum/library/web"
)

func init() {
	web.RegisterRule("nick", ValidateNick, msgInvalidNick)
	web.RegisterRule("password", ValidatePassword, msgInvalidPassword)
	web.RegisterRule("mailbox", ValidateEmail, msgInvalidEmail)
}

var nickRe = regexp.MustCompile(`^[A-Za-z0-9_-]{2,32}$`)

const minPasswordLength = 8

// ValidateNick checks the nick format
func ValidateNick(nick string) bool {
	return nickRe.MatchString(nick)
}

// ValidatePassword requires at least 8 chars with a letter and a digit
func ValidatePassword(pass string) bool {
	if len([]rune(pass)) < minPasswordLength {
		return false
	}

	var letter, digit bool
	for _, r := range pass {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	return letter && digit
}

// ValidateEmail accepts a bare address, no display name
func ValidateEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// normalizeEmail lowercases and trims an email address
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sanitizeRedirect only keeps site relative paths
func sanitizeRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") ||
		strings.Contains(raw, `\`) {
		return "/"
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}

	return u.RequestURI()
}
