package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Per-field validation details
}

// ValidationHelper provides shared request validation.
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		if fieldErrors, ok := validationErr.(validator.ValidationErrors); ok {
			errorResp.Details = make(map[string]string)
			for _, err := range fieldErrors {
				errorResp.Details[err.Field()] = fmt.Sprintf("failed on '%s' validation", err.Tag())
			}
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
