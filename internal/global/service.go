package global

import (
	"context"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/internal/library/imaging"
	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/web/albums"
	"github.com/Laisky/laisky-forum/internal/web/dialogs"
	"github.com/Laisky/laisky-forum/internal/web/usergroups"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/captcha"
	"github.com/Laisky/laisky-forum/library/config"
	"github.com/Laisky/laisky-forum/library/jwt"
	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/mailer"
	"github.com/Laisky/laisky-forum/library/throttle"
)

const (
	defaultTokenTTL        = 7 * 24 * time.Hour
	defaultPublicURL       = "http://localhost:8080"
	defaultRegisteredGroup = usergroups.GroupMembers
)

var (
	Auth          *auth.Auth
	UsersSvc      *users.Service
	DialogsSvc    *dialogs.Service
	AlbumsSvc     *albums.Service
	UsergroupsSvc *usergroups.Service
	// AdminGroups may call the admin endpoints
	AdminGroups []string
)

// LoadUploadsConfig parses `settings.uploads.media`
func LoadUploadsConfig() (*uploads.Config, error) {
	return uploads.Parse(gconfig.Shared.Get("settings.uploads.media"))
}

// LoadUsergroupSchemas decodes `settings.setting_schemas.usergroup`
func LoadUsergroupSchemas() (usergroups.Schemas, error) {
	schemas := usergroups.Schemas{}
	if err := config.Decode("settings.setting_schemas.usergroup", &schemas); err != nil {
		return nil, err
	}

	return schemas, schemas.Validate()
}

func loginWindow(name string, def throttle.Window) throttle.Window {
	prefix := "settings.auth.rate_limit." + name
	return throttle.Window{
		Max:    int64(config.GetIntOr(prefix+".max", int(def.Max))),
		Period: config.GetDuration(prefix+".period", def.Period),
	}
}

// SetupUsergroups creates the usergroups service, SetupDB must run first
func SetupUsergroups() {
	schemas, err := LoadUsergroupSchemas()
	if err != nil {
		log.Logger.Panic("load usergroup setting schemas", zap.Error(err))
	}

	if UsergroupsSvc, err = usergroups.NewService(
		usergroups.NewMongoStore(ForumDB), schemas, nil,
	); err != nil {
		log.Logger.Panic("new usergroups service", zap.Error(err))
	}

	AdminGroups = gconfig.Shared.GetStringSlice("settings.usergroups.admin")
	if len(AdminGroups) == 0 {
		AdminGroups = []string{usergroups.GroupAdministrators}
	}
}

// SetupServices creates every web service, SetupDB must run first
func SetupServices(ctx context.Context) {
	SetupUsergroups()

	signer, err := jwt.New([]byte(gconfig.Shared.GetString("settings.secret")),
		config.GetDuration("settings.auth.token_ttl", defaultTokenTTL))
	if err != nil {
		log.Logger.Panic("new jwt signer", zap.Error(err))
	}

	limiter, err := throttle.NewLoginLimiter(Redis,
		loginWindow("total", throttle.DefaultTotalWindow),
		loginWindow("ip", throttle.DefaultIPWindow))
	if err != nil {
		log.Logger.Panic("new login limiter", zap.Error(err))
	}

	if UsersSvc, err = users.NewService(users.Deps{
		Store:   users.NewMongoStore(ForumDB),
		Signer:  signer,
		Limiter: limiter,
		Captcha: captcha.NewVerifier(gconfig.Shared.GetString("settings.auth.turnstile_secret")),
		Mailer: mailer.New(mailer.Options{
			Host: gconfig.Shared.GetString("settings.smtp.host"),
			Port: gconfig.Shared.GetInt("settings.smtp.port"),
			User: gconfig.Shared.GetString("settings.smtp.user"),
			Pwd:  gconfig.Shared.GetString("settings.smtp.pwd"),
			From: gconfig.Shared.GetString("settings.smtp.from"),
		}),
		Groups: UsergroupsSvc,
	}, users.Settings{
		ResetPasswordTTL: config.GetDuration("settings.auth.reset_password_ttl", 6*time.Hour),
		PublicURL:        config.GetStringOr("settings.web.public_url", defaultPublicURL),
		RegisteredGroup:  config.GetStringOr("settings.usergroups.registered", defaultRegisteredGroup),
	}); err != nil {
		log.Logger.Panic("new users service", zap.Error(err))
	}

	if Auth, err = auth.New(signer, UsersSvc); err != nil {
		log.Logger.Panic("new auth", zap.Error(err))
	}

	if DialogsSvc, err = dialogs.NewService(dialogs.NewMongoStore(ForumDB), UsersSvc, nil, nil); err != nil {
		log.Logger.Panic("new dialogs service", zap.Error(err))
	}

	uploadsCfg, err := LoadUploadsConfig()
	if err != nil {
		log.Logger.Panic("load uploads config", zap.Error(err))
	}
	processor, err := imaging.Detect(ctx)
	if err != nil {
		log.Logger.Panic("detect image processor", zap.Error(err))
	}
	log.Logger.Info("use image processor", zap.String("name", processor.Name()))

	albumsSettings := albums.Settings{
		DefaultName: gconfig.Shared.GetString("settings.albums.default_name"),
	}
	if err = config.Decode("settings.albums.medialink_providers", &albumsSettings.MedialinkProviders); err != nil {
		log.Logger.Panic("load medialink providers", zap.Error(err))
	}

	if AlbumsSvc, err = albums.NewService(albums.Deps{
		Store:   albums.NewMongoStore(ForumDB),
		Users:   UsersSvc,
		Files:   Files,
		Images:  processor,
		Tasks:   Redis,
		Uploads: uploadsCfg,
	}, albumsSettings); err != nil {
		log.Logger.Panic("new albums service", zap.Error(err))
	}
}
