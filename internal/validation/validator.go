// Package validation provides JSON-LD document validation for Sentra models.
//
// Camera and user documents are validated in three steps:
//
//  1. JSON parsing - Ensures valid JSON syntax
//  2. Struct validation - Checks required fields and policy constraints
//  3. JSON-LD validation - Verifies the document expands cleanly
//
// # Usage Example
//
//	validator := validation.New()
//	result, err := validator.ValidateCamera(jsonData)
//	if err != nil {
//	    // Handle error
//	}
//	if !result.Valid {
//	    for _, verr := range result.Errors {
//	        fmt.Printf("%s: %s\n", verr.Field, verr.Message)
//	    }
//	}
package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/piprate/json-gold/ld"

	"github.com/sentra-video/sentra/models"
)

// Validator handles document validation for Sentra models.
type Validator struct {
	// structValidator validates Go struct constraints and tags
	structValidator *validator.Validate

	// jsonldProcessor validates JSON-LD semantic correctness
	jsonldProcessor *ld.JsonLdProcessor
}

// ValidationError represents a single validation error with field-level
// details.
type ValidationError struct {
	// Field is the name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{
		structValidator: validator.New(),
		jsonldProcessor: ld.NewJsonLdProcessor(),
	}
}

// ValidateCamera validates a camera JSON-LD document.
func (v *Validator) ValidateCamera(data []byte) (*ValidationResult, error) {
	var camera models.Camera

	if err := json.Unmarshal(data, &camera); err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "document",
					Message: fmt.Sprintf("Invalid JSON: %v", err),
				},
			},
		}, nil
	}

	jsonldErrors := v.validateJSONLD(data)
	cameraErrors := v.ValidateCameraFields(&camera)

	allErrors := append(jsonldErrors, cameraErrors...)

	return &ValidationResult{
		Valid:  len(allErrors) == 0,
		Errors: allErrors,
	}, nil
}

// ValidateCameraFields checks a camera struct against the policy
// constraints enforced by the control surface.
func (v *Validator) ValidateCameraFields(camera *models.Camera) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(camera.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	if camera.IngressURL == "" {
		errors = append(errors, ValidationError{
			Field:   "ingressUrl",
			Message: "ingressUrl is required",
		})
	} else if err := validateIngressURL(camera.IngressURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "ingressUrl",
			Message: err.Error(),
			Value:   camera.IngressURL,
		})
	}

	switch camera.Recording.Mode {
	case models.RecordingModeOff, models.RecordingModeManual, models.RecordingModeContinuous:
	case "":
		errors = append(errors, ValidationError{
			Field:   "recording.mode",
			Message: "recording mode is required (off, manual, continuous)",
		})
	default:
		errors = append(errors, ValidationError{
			Field:   "recording.mode",
			Message: "recording mode must be one of: off, manual, continuous",
			Value:   camera.Recording.Mode,
		})
	}

	if camera.Recording.SegmentSeconds < 1 || camera.Recording.SegmentSeconds > 60 {
		errors = append(errors, ValidationError{
			Field:   "recording.segmentSeconds",
			Message: "segmentSeconds must be between 1 and 60",
			Value:   camera.Recording.SegmentSeconds,
		})
	}

	if camera.Recording.RetentionDays < 1 || camera.Recording.RetentionDays > 365 {
		errors = append(errors, ValidationError{
			Field:   "recording.retentionDays",
			Message: "retentionDays must be between 1 and 365",
			Value:   camera.Recording.RetentionDays,
		})
	}

	if camera.ANPR.Enabled {
		if camera.ANPR.SampleEveryNFrames < 1 || camera.ANPR.SampleEveryNFrames > 30 {
			errors = append(errors, ValidationError{
				Field:   "anpr.sampleEveryNFrames",
				Message: "sampleEveryNFrames must be between 1 and 30",
				Value:   camera.ANPR.SampleEveryNFrames,
			})
		}

		if camera.ANPR.ConfidenceThreshold < 0.1 || camera.ANPR.ConfidenceThreshold > 1.0 {
			errors = append(errors, ValidationError{
				Field:   "anpr.confidenceThreshold",
				Message: "confidenceThreshold must be between 0.1 and 1.0",
				Value:   camera.ANPR.ConfidenceThreshold,
			})
		}
	}

	if camera.Grid.Row < 0 || camera.Grid.Column < 0 {
		errors = append(errors, ValidationError{
			Field:   "grid",
			Message: "grid row and column must not be negative",
		})
	}

	return errors
}

// ValidateUser validates a user JSON-LD document.
func (v *Validator) ValidateUser(data []byte) (*ValidationResult, error) {
	var user models.User

	if err := json.Unmarshal(data, &user); err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "document",
					Message: fmt.Sprintf("Invalid JSON: %v", err),
				},
			},
		}, nil
	}

	jsonldErrors := v.validateJSONLD(data)
	userErrors := v.ValidateUserFields(&user)

	allErrors := append(jsonldErrors, userErrors...)

	return &ValidationResult{
		Valid:  len(allErrors) == 0,
		Errors: allErrors,
	}, nil
}

// ValidateUserFields checks a user struct against account constraints.
func (v *Validator) ValidateUserFields(user *models.User) []ValidationError {
	var errors []ValidationError

	if user.Email == "" {
		errors = append(errors, ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if err := v.structValidator.Var(user.Email, "email"); err != nil {
		errors = append(errors, ValidationError{
			Field:   "email",
			Message: "email is not a valid address",
			Value:   user.Email,
		})
	}

	if strings.TrimSpace(user.Username) == "" {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: "username is required",
		})
	}

	for _, role := range user.Roles {
		if role != models.RoleAdmin && role != models.RoleViewer {
			errors = append(errors, ValidationError{
				Field:   "roles",
				Message: "role must be one of: admin, viewer",
				Value:   role,
			})
		}
	}

	return errors
}

// ValidatePassword checks password strength for account creation and
// password changes.
func (v *Validator) ValidatePassword(password string) []ValidationError {
	var errors []ValidationError

	if len(password) < 8 {
		errors = append(errors, ValidationError{
			Field:   "password",
			Message: "password must be at least 8 characters",
		})
	}

	return errors
}

// validateIngressURL checks that the camera source address is a usable
// stream URL.
func validateIngressURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("ingressUrl is not a valid URL")
	}

	switch u.Scheme {
	case "rtsp", "rtsps", "rtmp", "http", "https":
	default:
		return fmt.Errorf("ingressUrl scheme must be one of: rtsp, rtsps, rtmp, http, https")
	}

	if u.Host == "" {
		return fmt.Errorf("ingressUrl must include a host")
	}

	return nil
}

// validateJSONLD validates JSON-LD structure using json-gold.
func (v *Validator) validateJSONLD(data []byte) []ValidationError {
	var errors []ValidationError

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []ValidationError{{
			Field:   "document",
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		}}
	}

	// Documents may omit JSON-LD framing entirely; the storage layer
	// fills in the defaults. Only validate what is present.
	if context, exists := doc["@context"]; exists {
		if context == nil || context == "" {
			errors = append(errors, ValidationError{
				Field:   "@context",
				Message: "@context cannot be empty if provided",
			})
		}
	}

	if typeField, exists := doc["@type"]; exists {
		if typeField == nil || typeField == "" {
			errors = append(errors, ValidationError{
				Field:   "@type",
				Message: "@type cannot be empty if provided",
			})
		}
	}

	if _, hasContext := doc["@context"]; hasContext && len(errors) == 0 {
		options := ld.NewJsonLdOptions("")
		if _, err := v.jsonldProcessor.Expand(doc, options); err != nil {
			errors = append(errors, ValidationError{
				Field:   "document",
				Message: fmt.Sprintf("JSON-LD expansion failed: %v", err),
			})
		}
	}

	return errors
}
