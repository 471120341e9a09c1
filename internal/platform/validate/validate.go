// Package validate holds the process-wide struct validator with english messages
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "catalogsync/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Svc bundles the validator and its translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Svc
)

// Get returns the singleton, building it on first use
func Get() *Svc {
	once.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// json and env-style names read better in messages than Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "env"} {
				tag := fld.Tag.Get(key)
				if i := strings.Index(tag, ","); i >= 0 {
					tag = tag[:i]
				}
				if tag != "" && tag != "-" {
					return tag
				}
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		_ = v.RegisterValidation("notblank", validators.NotBlank)

		short(v, trans, "min", "{0} must be at least {1}", true)
		short(v, trans, "max", "{0} must be at most {1}", true)
		short(v, trans, "notblank", "{0} must not be blank", false)
		short(v, trans, "sku", "{0} must be a non-blank sku without '|'", false)

		_ = v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return strings.TrimSpace(s) != "" && !strings.Contains(s, "|")
		})

		svc = &Svc{Validator: v, Translator: trans}
	})
	return svc
}

// Struct validates v and maps the first failure to a Validation error with its field set
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validator misuse")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
}

// FieldAndMessage returns the first failing field and its translated message
func FieldAndMessage(err error) (field, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	if err == nil {
		return "", ""
	}
	return "", err.Error()
}

// short registers a one-line translation; withParam passes fe.Param() as {1}
func short(v *validator.Validate, trans ut.Translator, tag, text string, withParam bool) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			params := []string{fe.Field()}
			if withParam {
				params = append(params, fe.Param())
			}
			msg, _ := t.T(tag, params...)
			return msg
		},
	)
}
