package users

import (
	"context"
	"net/url"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/Laisky/laisky-forum/library/web"
)

const resetMailSubject = "Password reset"

// newSecretKey is replaced in tests
var newSecretKey = func() string {
	return uuid.NewString()
}

// RequestPasswordReset mails a reset link to the owner of email.
// Unknown emails are silently accepted.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ip string) error {
	email = normalizeEmail(email)
	if !ValidateEmail(email) {
		return web.BadRequest(msgInvalidEmail, fieldEmail)
	}

	logger := gmw.GetLogger(ctx).With(zap.String("email", email))
	link, err := s.Store.FindPlainAuthLinkByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, web.ErrNotFound) {
			logger.Info("password reset for unknown email")
			return nil
		}

		return err
	}

	token := &TokenResetPassword{
		SecretKey:  newSecretKey(),
		AuthLinkID: link.ID,
		IP:         ip,
		CreateTs:   s.Clock(),
	}
	if err = s.Store.CreateResetToken(ctx, token); err != nil {
		return err
	}

	body := "To set a new password open the link below:\n\n" + s.resetLink(token.SecretKey) +
		"\n\nIf you did not request it, just ignore this mail.\n"
	if err = s.Mailer.Send(ctx, email, resetMailSubject, body); err != nil {
		return errors.Wrap(err, "send reset password mail")
	}

	logger.Info("password reset requested", zap.String("authlink", link.ID.Hex()))
	return nil
}

func (s *Service) resetLink(secretKey string) string {
	return s.settings.PublicURL + "/users/auth/reset_password/change?secret_key=" +
		url.QueryEscape(secretKey)
}

// ChangePassword sets a new password using a reset secret, then logs the user in
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*LoginResult, error) {
	if web.Validate(&req) != nil {
		return nil, (&web.ClientError{Code: 400}).With("bad_password", true)
	}

	token, err := s.Store.FindResetToken(ctx, req.SecretKey)
	if err != nil && !errors.Is(err, web.ErrNotFound) {
		return nil, err
	}
	if token == nil || token.IsExpired(s.Clock(), s.settings.ResetPasswordTTL) {
		return nil, web.BadRequest(msgExpiredToken).With("bad_password", false)
	}

	link, err := s.Store.FindAuthLinkByID(ctx, token.AuthLinkID)
	if err != nil {
		if errors.Is(err, web.ErrNotFound) {
			return nil, web.BadRequest(msgBrokenToken).With("bad_password", false)
		}

		return nil, err
	}

	user, err := s.Store.FindUserByID(ctx, link.UserID)
	if err != nil {
		if errors.Is(err, web.ErrNotFound) {
			return nil, web.BadRequest(msgBrokenToken).With("bad_password", false)
		}

		return nil, err
	}

	if err = link.SetPass(req.NewPassword); err != nil {
		return nil, err
	}
	if err = s.Store.RemoveResetTokens(ctx, link.ID); err != nil {
		return nil, err
	}
	if err = s.Store.SaveAuthLink(ctx, link); err != nil {
		return nil, err
	}

	gmw.GetLogger(ctx).Info("password changed", zap.String("user", user.ID.Hex()))
	return s.login(user, "")
}
