package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	// Code is the HTTP status code for this error.
	Code int `json:"code"`

	// Message is the error message.
	Message string `json:"message,omitempty"`

	// Status names the operation error code, e.g. key-not-found.
	Status string `json:"status,omitempty"`

	// Details lists the offending request fields.
	Details []string `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status, name := http.StatusInternalServerError, operation.Internal.String()
	if code, ok := operation.CodeOf(err); ok {
		status, name = code.HTTP(), code.String()
	}

	c.JSON(status, &ErrorResponse{APIError{
		Code:    status,
		Message: err.Error(),
		Status:  name,
	}})
}

func writeBindingError(c *gin.Context, errs ...error) {
	c.JSON(http.StatusBadRequest, &ErrorResponse{APIError{
		Code:    http.StatusBadRequest,
		Message: "The request is invalid",
		Status:  operation.InvalidArgument.String(),
		Details: parseBindingError(errs...),
	}})
}

func parseBindingError(errs ...error) []string {
	var out []string
	for _, err := range errs {
		switch typedErr := err.(type) {
		case validator.ValidationErrors:
			for _, e := range typedErr {
				out = append(out, parseFieldError(e))
			}
		default:
			out = append(out, err.Error())
		}
	}
	return out
}

func parseFieldError(e validator.FieldError) string {
	fieldPrefix := fmt.Sprintf("The field %s", e.Field())
	tag := strings.Split(e.Tag(), "|")[0]

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", fieldPrefix)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", fieldPrefix, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fieldPrefix, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fieldPrefix, e.Param())
	case "fingerprint":
		return fmt.Sprintf("%s must be a key id or fingerprint", fieldPrefix)
	case "oneofci":
		return fmt.Sprintf("%s must be one of %s", fieldPrefix, strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return e.Error()
	}
}

// Validations

var Fingerprint validator.Func = func(fl validator.FieldLevel) bool {
	return util.IsFingerprint(fl.Field().String())
}

var OneOfCaseInsensitive validator.Func = func(fl validator.FieldLevel) bool {
	fieldValue := fl.Field().String()
	allowedValues := strings.Split(fl.Param(), " ")

	for _, allowedValue := range allowedValues {
		if strings.EqualFold(fieldValue, allowedValue) {
			return true
		}
	}

	return false
}
