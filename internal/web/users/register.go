package users

import (
	"context"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/library/web"
)

type nickInput struct {
	Nick string `json:"nick" validate:"nick"`
}

// CheckNick returns a ClientError naming the nick problem, nil when nick is free
func (s *Service) CheckNick(ctx context.Context, nick string) error {
	_, problems, err := web.FieldErrors(&nickInput{Nick: nick})
	if err != nil {
		return err
	}

	msg := problems[fieldNick]
	if msg == "" {
		if msg, err = s.nickTaken(ctx, nick); err != nil {
			return err
		}
	}
	if msg != "" {
		return web.BadRequest(msgInvalidRegistration, fieldNick).
			WithErrors(map[string]string{fieldNick: msg})
	}

	return nil
}

// nickTaken returns msgNickTaken when a user already owns nick
func (s *Service) nickTaken(ctx context.Context, nick string) (string, error) {
	if _, err := s.Store.FindUserByNick(ctx, nick); err == nil {
		return msgNickTaken, nil
	} else if !errors.Is(err, web.ErrNotFound) {
		return "", errors.Wrapf(err, "find user by nick %q", nick)
	}

	return "", nil
}

func (s *Service) emailTaken(ctx context.Context, email string) (string, error) {
	if _, err := s.Store.FindPlainAuthLinkByEmail(ctx, email); err == nil {
		return msgEmailTaken, nil
	} else if !errors.Is(err, web.ErrNotFound) {
		return "", errors.Wrapf(err, "find authlink by email %q", email)
	}

	return "", nil
}

// Register creates a member with a plain auth link and logs it in
func (s *Service) Register(ctx context.Context, req RegisterRequest, ip string) (*LoginResult, error) {
	req.Email = normalizeEmail(req.Email)
	email := req.Email
	_, problems, err := web.FieldErrors(&req)
	if err != nil {
		return nil, err
	}
	if problems == nil {
		problems = map[string]string{}
	}

	// uniqueness is checked only for well formed values
	for _, check := range []struct {
		field, value string
		taken        func(context.Context, string) (string, error)
	}{
		{fieldEmail, email, s.emailTaken},
		{fieldNick, req.Nick, s.nickTaken},
	} {
		if _, bad := problems[check.field]; bad {
			continue
		}

		msg, err := check.taken(ctx, check.value)
		if err != nil {
			return nil, err
		} else if msg != "" {
			problems[check.field] = msg
		}
	}

	if len(problems) != 0 {
		fields := make([]string, 0, len(problems))
		for _, name := range []string{fieldEmail, fieldNick, fieldPass} {
			if _, ok := problems[name]; ok {
				fields = append(fields, name)
			}
		}

		return nil, web.BadRequest(msgInvalidRegistration, fields...).WithErrors(problems)
	}

	now := s.Clock()
	user := &User{
		Nick:     req.Nick,
		Name:     req.Nick,
		Email:    email,
		JoinedTs: now,
		Exists:   true,
	}
	if s.Groups != nil && s.settings.RegisteredGroup != "" {
		ids, err := s.Groups.GroupIDsByShortNames(ctx, []string{s.settings.RegisteredGroup})
		if err != nil {
			return nil, errors.Wrapf(err, "resolve usergroup %q", s.settings.RegisteredGroup)
		}
		user.Usergroups = ids
	}

	if err = s.Store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	link := &AuthLink{
		UserID: user.ID,
		Type:   AuthLinkPlain,
		Email:  email,
		Exist:  true,
		IP:     ip,
		LastTs: now,
	}
	if err = link.SetPass(req.Pass); err != nil {
		return nil, err
	}
	if err = s.Store.CreateAuthLink(ctx, link); err != nil {
		return nil, err
	}

	gmw.GetLogger(ctx).Info("user registered",
		zap.String("user", user.ID.Hex()),
		zap.Int64("hid", user.Hid),
		zap.String("nick", user.Nick))
	return s.login(user, "")
}
