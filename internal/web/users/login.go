package users

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/library/captcha"
	"github.com/Laisky/laisky-forum/library/web"
)

// LoginPlain logs in by email or nick and password.
//
// Every failed attempt is counted by the login limiter. When the site wide
// limit is reached a captcha solution becomes mandatory, when the address
// limit is reached logins from that address are refused.
func (s *Service) LoginPlain(ctx context.Context, req LoginRequest, ip string) (*LoginResult, error) {
	req.EmailOrNick = strings.TrimSpace(req.EmailOrNick)
	if web.Validate(&req) != nil {
		return nil, s.loginFailed("empty", false)
	}

	totalExceeded, err := s.Limiter.TotalExceeded(ctx)
	if err != nil {
		return nil, err
	}

	captchaRequired := totalExceeded && s.Captcha != nil && s.Captcha.Enabled()
	if captchaRequired {
		if err = s.Captcha.Verify(ctx, req.CaptchaToken, ip); err != nil {
			switch {
			case errors.Is(err, captcha.ErrMissingSolution):
				s.Limiter.Touch(ip)
				metrics.LoginFail.WithLabelValues("captcha").Inc()
				return nil, web.BadRequest(msgMissedCaptcha).With("captcha", true)
			case errors.Is(err, captcha.ErrWrongSolution):
				s.Limiter.Touch(ip)
				metrics.LoginFail.WithLabelValues("captcha").Inc()
				return nil, web.BadRequest(msgWrongCaptcha, fieldCaptchaToken).With("captcha", true)
			default:
				return nil, errors.Wrap(err, "verify captcha")
			}
		}
	}

	ipExceeded, err := s.Limiter.IPExceeded(ctx, ip)
	if err != nil {
		return nil, err
	}
	if ipExceeded {
		s.Limiter.Touch(ip)
		metrics.LoginFail.WithLabelValues("ip_limit").Inc()
		fields := []string{}
		if captchaRequired {
			fields = append(fields, fieldCaptchaToken)
		}

		return nil, web.BadRequest(msgTooManyAttempts, fields...).With("captcha", captchaRequired)
	}

	user, link, err := s.findPlainCredentials(ctx, req.EmailOrNick)
	if err != nil {
		if !errors.Is(err, web.ErrNotFound) {
			return nil, err
		}

		s.Limiter.Touch(ip)
		return nil, s.loginFailed("not_found", captchaRequired)
	}

	if !link.CheckPass(req.Pass) {
		s.Limiter.Touch(ip)
		return nil, s.loginFailed("password", captchaRequired)
	}

	if err = s.Store.TouchAuthLink(ctx, link.ID, ip, s.Clock()); err != nil {
		return nil, err
	}

	gmw.GetLogger(ctx).Info("user login",
		zap.String("user", user.ID.Hex()),
		zap.String("ip", ip))
	return s.login(user, req.Redirect)
}

func (s *Service) loginFailed(reason string, captchaRequired bool) error {
	metrics.LoginFail.WithLabelValues(reason).Inc()
	return web.BadRequest(msgLoginFailed, fieldEmailOrNick, fieldPass).
		With("captcha", captchaRequired)
}

// findPlainCredentials looks up by email first, then by nick.
// An email link whose user is missing or deleted falls through to the nick lookup.
func (s *Service) findPlainCredentials(ctx context.Context, emailOrNick string) (*User, *AuthLink, error) {
	link, err := s.Store.FindPlainAuthLinkByEmail(ctx, normalizeEmail(emailOrNick))
	switch {
	case err == nil:
		user, err := s.Store.FindUserByID(ctx, link.UserID)
		if err == nil && user.Exists {
			return user, link, nil
		}
		if err != nil && !errors.Is(err, web.ErrNotFound) {
			return nil, nil, err
		}
	case !errors.Is(err, web.ErrNotFound):
		return nil, nil, err
	}

	user, err := s.Store.FindUserByNick(ctx, emailOrNick)
	if err != nil {
		return nil, nil, err
	}
	if !user.Exists {
		return nil, nil, errors.Wrapf(web.ErrNotFound, "user %s is deleted", user.ID.Hex())
	}

	if link, err = s.Store.FindPlainAuthLinkByUser(ctx, user.ID); err != nil {
		return nil, nil, err
	}

	return user, link, nil
}
