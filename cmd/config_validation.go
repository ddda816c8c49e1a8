package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/go-viper/mapstructure/v2"

	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/web/usergroups"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.Shared.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateStorageConfig(get, &validationErrs)
	validateAuthConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)
	validateSMTPConfig(get, &validationErrs)
	validateUploadsConfig(get, &validationErrs)
	validateAlbumsConfig(get, &validationErrs)
	validateUsergroupsConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateStorageConfig validates mongo, redis and object storage settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateStorageConfig(get configGetter, errs *[]string) {
	for _, key := range []string{
		"settings.db.forum.addr",
		"settings.db.forum.db",
		"settings.redis.addr",
		"settings.s3.endpoint",
		"settings.s3.bucket",
	} {
		validateRequiredString(get, key, errs)
	}

	validateOptionalIntMin(get, "settings.redis.db", 0, errs)
	validateOptionalBool(get, "settings.s3.secure", errs)
}

// validateAuthConfig validates the jwt secret, token lifetimes and login rate limits.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateAuthConfig(get configGetter, errs *[]string) {
	validateRequiredString(get, "settings.secret", errs)
	validateOptionalDuration(get, "settings.auth.token_ttl", errs)
	validateOptionalDuration(get, "settings.auth.reset_password_ttl", errs)

	for _, window := range []string{"total", "ip"} {
		prefix := "settings.auth.rate_limit." + window
		validateOptionalIntMin(get, prefix+".max", 1, errs)
		validateOptionalDuration(get, prefix+".period", errs)
	}
}

// validateWebConfig validates public url and allowed cors domains.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalURL(get, "settings.web.public_url", errs)

	raw := get("settings.web.cors_domains")
	if raw == nil {
		return
	}

	domains, ok := raw.([]any)
	if !ok {
		appendValidationError(errs, "settings.web.cors_domains must be a list")
		return
	}
	for i, item := range domains {
		host, parseErr := parseStrictString(item)
		if parseErr != nil || !isValidHost(host) {
			appendValidationError(errs, "settings.web.cors_domains.%d must be a valid host", i)
		}
	}
}

// validateSMTPConfig validates the password reset mailer.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateSMTPConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.smtp.port", 1, errs)
	if host, _ := parseStrictString(get("settings.smtp.host")); strings.TrimSpace(host) == "" {
		return
	}

	if get("settings.smtp.from") == nil {
		validateOptionalStringNonEmpty(get, "settings.smtp.user", errs)
	} else {
		validateOptionalStringNonEmpty(get, "settings.smtp.from", errs)
	}
}

// validateUploadsConfig runs the uploads settings through the runtime parser.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateUploadsConfig(get configGetter, errs *[]string) {
	raw := get("settings.uploads.media")
	if raw == nil {
		appendValidationError(errs, "settings.uploads.media is required")
		return
	}

	if _, err := uploads.Parse(raw); err != nil {
		appendValidationError(errs, "settings.uploads.media: %s", err.Error())
	}
}

// validateAlbumsConfig validates album titles and medialink providers.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateAlbumsConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.albums.default_name", errs)

	raw := get("settings.albums.medialink_providers")
	if raw == nil {
		return
	}

	providers, ok := raw.([]any)
	if !ok {
		appendValidationError(errs, "settings.albums.medialink_providers must be a list")
		return
	}
	for i, item := range providers {
		provider := toStringMap(item)
		if provider == nil {
			appendValidationError(errs, "settings.albums.medialink_providers.%d must be an object", i)
			continue
		}

		if id, parseErr := parseStrictString(provider["id"]); parseErr != nil || !isValidHost(id) {
			appendValidationError(errs, "settings.albums.medialink_providers.%d.id must be a valid host", i)
		}
		if enabled, exists := provider["enabled"]; exists {
			if _, ok := parseStrictBool(enabled); !ok {
				appendValidationError(errs, "settings.albums.medialink_providers.%d.enabled must be a boolean", i)
			}
		}
	}
}

// validateUsergroupsConfig validates usergroup names and setting schemas.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateUsergroupsConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.usergroups.registered", errs)

	if raw := get("settings.usergroups.admin"); raw != nil {
		names, ok := raw.([]any)
		if !ok || len(names) == 0 {
			appendValidationError(errs, "settings.usergroups.admin must be a non-empty list")
		}
	}

	raw := get("settings.setting_schemas.usergroup")
	if raw == nil {
		return
	}

	schemas := usergroups.Schemas{}
	if err := mapstructure.Decode(raw, &schemas); err != nil {
		appendValidationError(errs, "settings.setting_schemas.usergroup must map names to schemas")
		return
	}
	if err := schemas.Validate(); err != nil {
		appendValidationError(errs, "settings.setting_schemas.usergroup: %s", err.Error())
	}
}

// validateRequiredString validates that key is configured with a non-empty string.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	validateOptionalStringNonEmpty(get, key, errs)
}

// validateOptionalDuration validates an optionally configured duration like `6h`.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalDuration(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a duration string", key)
		return
	}

	if d, err := time.ParseDuration(strings.TrimSpace(value)); err != nil || d <= 0 {
		appendValidationError(errs, "%s must be a positive duration", key)
	}
}

// toStringMap converts yaml and json decoded objects to map[string]any.
// It returns nil when value is not an object.
func toStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = item
		}
		return out
	default:
		return nil
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidHost validates a host string without scheme or path components.
// It accepts a host string and returns true when the host is syntactically acceptable.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
