package store

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/streamvibe/streamvibe/internal/api"
)

// ValidationError rejects input locally, before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

var fieldLabels = map[string]string{
	"email":    "Email",
	"password": "Password",
	"name":     "Name",
	"role":     "Role",
	"media":    "File",
	"title":    "Title",
	"type":     "Media type",
}

// validateForm runs the struct rules of form and converts the first failure.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate form: %w", err)
	}

	fe := fieldErrs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = label + " is required"
	case "email":
		msg = "Please enter a valid email"
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		msg = label + " is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// LoginForm is the input of Session.Login.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (f *LoginForm) normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// RegisterForm is the input of Session.Register.
type RegisterForm struct {
	Name     string   `form:"name" validate:"required,min=2"`
	Email    string   `form:"email" validate:"required,email"`
	Password string   `form:"password" validate:"required,min=6"`
	Role     api.Role `form:"role" validate:"required,oneof=creator consumer"`
}

func (f *RegisterForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Role = api.Role(strings.ToLower(strings.TrimSpace(string(f.Role))))
}

// UploadForm is the input of Media.UploadMedia.
type UploadForm struct {
	File        io.Reader     `form:"media" validate:"required"`
	FileName    string        `form:"-"`
	ContentType string        `form:"-"`
	Title       string        `form:"title" validate:"required,min=3"`
	Caption     string        `form:"caption"`
	Location    string        `form:"location"`
	Type        api.MediaType `form:"type" validate:"required,oneof=image video"`
	Tags        *TagList      `form:"-" validate:"-"`
}

func (f *UploadForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Caption = strings.TrimSpace(f.Caption)
	f.Location = strings.TrimSpace(f.Location)
	f.Type = api.MediaType(strings.ToLower(strings.TrimSpace(string(f.Type))))
}

func (f *UploadForm) request() api.UploadRequest {
	return api.UploadRequest{
		File:        f.File,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Title:       f.Title,
		Caption:     f.Caption,
		Location:    f.Location,
		Type:        f.Type,
		Tags:        f.Tags.Tags(),
	}
}

// Rating bounds of the star scale.
const (
	MinRating = 0.5
	MaxRating = 5.0
)

func validateRating(value float64) error {
	if math.IsNaN(value) || value < MinRating || value > MaxRating || value*2 != math.Trunc(value*2) {
		return &ValidationError{
			Field:   "value",
			Message: fmt.Sprintf("Rating must be between %.1f and %.0f in half steps", MinRating, MaxRating),
		}
	}
	return nil
}

func validateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Field: "text", Message: "Comment cannot be empty"}
	}
	return text, nil
}
