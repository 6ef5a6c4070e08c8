package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/taskboard/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	for tag, fn := range map[string]validator.Func{
		"board_column":  validateColumn,
		"task_category": validateCategory,
		"task_priority": validatePriority,
		"board_theme":   validateTheme,
		"not_blank":     validateNotBlank,
	} {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func validateColumn(fl validator.FieldLevel) bool {
	_, err := models.ParseColumn(fl.Field().String())
	return err == nil
}

func validateCategory(fl validator.FieldLevel) bool {
	_, ok := models.ParseCategory(fl.Field().String())
	return ok
}

func validatePriority(fl validator.FieldLevel) bool {
	_, ok := models.ParsePriority(fl.Field().String())
	return ok
}

func validateTheme(fl validator.FieldLevel) bool {
	switch models.Theme(fl.Field().String()) {
	case models.ThemeLight, models.ThemeDark:
		return true
	default:
		return false
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Struct validates v and flattens validator errors into one readable message
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "not_blank":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "board_column":
		return fmt.Sprintf("invalid %s: must be 'todo', 'in-progress', or 'done'", field)
	case "task_category":
		return fmt.Sprintf("invalid %s: %v", field, fe.Value())
	case "task_priority":
		return fmt.Sprintf("invalid %s: must be Low, Normal, High, or Critical", field)
	case "board_theme":
		return fmt.Sprintf("invalid %s: must be 'light' or 'dark'", field)
	default:
		return fmt.Sprintf("invalid %s", field)
	}
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
