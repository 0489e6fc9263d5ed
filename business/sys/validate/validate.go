// Package validate contains the support for validating models.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// validate holds the settings and caches for validating request struct values.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

func init() {

	// Instantiate a validator.
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Create a translator for english so the error messages are
	// more human-readable than technical.
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")

	// Register the english error messages for use.
	en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Check validates the provided model against it's declared tags.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		return fieldErrors(err)
	}

	return nil
}

// CheckVar validates a single value against the provided tags. The field
// name is used to build the field error.
func CheckVar(field string, val any, tag string) error {
	if err := validate.Var(val, tag); err != nil {
		fields := fieldErrors(err)

		var fe FieldErrors
		if errors.As(fields, &fe) {
			for i := range fe {
				fe[i].Field = field
				fe[i].Error = field + " " + strings.TrimSpace(fe[i].Error)
			}
			return fe
		}

		return fields
	}

	return nil
}

// fieldErrors converts validator errors into the translated field errors.
func fieldErrors(err error) error {
	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	fields := make(FieldErrors, 0, len(verrors))
	for _, verror := range verrors {
		field := FieldError{
			Field: verror.Field(),
			Error: verror.Translate(translator),
		}
		fields = append(fields, field)
	}

	return fields
}
