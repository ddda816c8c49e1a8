package web

import (
	"reflect"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	validate = newValidator()

	ruleMu       sync.RWMutex
	ruleMessages = map[string]string{}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}

		return fld.Name
	})

	return v
}

// RegisterRule adds a string rule usable as `validate:"<tag>"`.
// msg is reported for the failing field unless the caller overrides it.
// Call it from init, it is not safe to race with Validate.
func RegisterRule(tag string, fn func(string) bool, msg string) {
	err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic(errors.Wrapf(err, "register rule %q", tag))
	}

	ruleMu.Lock()
	ruleMessages[tag] = msg
	ruleMu.Unlock()
}

// Messages maps "field" or "field.tag" to the client message of a failure.
// "field.tag" wins over "field".
type Messages map[string]string

func (m Messages) lookup(field, tag string) (string, bool) {
	if msg, ok := m[field+"."+tag]; ok {
		return msg, true
	}
	msg, ok := m[field]
	return msg, ok
}

// FieldErrors checks the `validate` tags of v.
// fields keeps struct order, errs is keyed by input name.
// err is only set when v cannot be validated at all.
func FieldErrors(v any, msgs ...Messages) (fields []string, errs map[string]string, err error) {
	if err = validate.Struct(v); err == nil {
		return nil, nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, nil, errors.Wrap(err, "validate")
	}

	errs = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, ok := errs[fe.Field()]; ok {
			continue
		}

		fields = append(fields, fe.Field())
		errs[fe.Field()] = failureMessage(fe, msgs)
	}

	return fields, errs, nil
}

func failureMessage(fe validator.FieldError, msgs []Messages) string {
	for _, m := range msgs {
		if msg, ok := m.lookup(fe.Field(), fe.Tag()); ok {
			return msg
		}
	}

	ruleMu.RLock()
	msg, ok := ruleMessages[fe.Tag()]
	ruleMu.RUnlock()
	if ok {
		return msg
	}

	msg = fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}

	return msg
}

// Validate checks the `validate` tags of v.
// Field failures are returned as a 400 ClientError keyed by input name,
// a single failing field also becomes the error message.
func Validate(v any, msgs ...Messages) error {
	fields, errs, err := FieldErrors(v, msgs...)
	switch {
	case err != nil:
		return err
	case len(fields) == 0:
		return nil
	case len(fields) == 1:
		return BadRequest(errs[fields[0]], fields...).WithErrors(errs)
	default:
		return BadRequest("invalid params", fields...).WithErrors(errs)
	}
}

// ParseObjectID parses a mongo id given as input `name`
func ParseObjectID(name, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, BadRequest("invalid "+name, name)
	}

	return id, nil
}

// ParseOptionalObjectID is ParseObjectID that accepts an empty input
func ParseOptionalObjectID(name, raw string) (primitive.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return primitive.NilObjectID, nil
	}

	return ParseObjectID(name, raw)
}
