package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var InvalidURLResponse = Response{
	Error: "Invalid URL",
}

var URLNotExistResponse = Response{
	Error: "URL does not exist",
}

var URLNotFoundResponse = Response{
	Error: "URL not found",
}

var ServerErrorResponse = Response{
	Error: "Internal Server Error",
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

type ThreatEntry struct {
	URL string `json:"url"`
}

// ThreatMatch mirrors a Safe Browsing match as reported to clients.
type ThreatMatch struct {
	ThreatType      string      `json:"threatType"`
	PlatformType    string      `json:"platformType"`
	ThreatEntryType string      `json:"threatEntryType"`
	Threat          ThreatEntry `json:"threat"`
	CacheDuration   string      `json:"cacheDuration,omitempty"`
}

type Response struct {
	Success bool              `json:"success,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Matches []ThreatMatch     `json:"matches,omitempty"`
	Details []validationError `json:"details,omitempty"`
}

func SuccessResponse(msg string) Response {
	return Response{
		Success: true,
		Message: msg,
	}
}

// UnsafeURLResponse lists the threat matches behind the rejection.
// The matches field is omitted when the lookup itself failed.
func UnsafeURLResponse(matches []ThreatMatch) Response {
	return Response{
		Error:   "Unsafe URL detected",
		Matches: matches,
	}
}

func ValidationErrorResponse(err error) Response {
	resp := InvalidURLResponse
	resp.Details = getValidationErrors(err)
	return resp
}

func getValidationErrors(err error) []validationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	validationErrs := make([]validationError, 0, len(errs))

	for _, e := range errs {
		validationErrs = append(validationErrs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issueForTag(e.Tag(), e.Param()),
		})
	}

	return validationErrs
}

func issueForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url", "weburl":
		return "Invalid url."
	default:
		if param != "" {
			return fmt.Sprintf("Failed on the '%s=%s' rule.", tag, param)
		}
		return fmt.Sprintf("Failed on the '%s' rule.", tag)
	}
}
