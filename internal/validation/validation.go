// Package validation holds the URL syntax rule shared by request payloads and stored records.
package validation

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagWebURL is the validator tag bound to IsURL.
const TagWebURL = "weburl"

// IsURL reports whether s is an absolute URL with both a scheme and a host.
func IsURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != "" && u.Hostname() != ""
}

// New returns a validator that reports field names by their json tags
// and knows the weburl tag.
func New() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or a nil func.
	_ = validate.RegisterValidation(TagWebURL, func(fl validator.FieldLevel) bool {
		return IsURL(fl.Field().String())
	})

	return validate
}
