package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

// IsValidInput checks the field constraints an event must satisfy before it is
// stored. Every returned error wraps events.ErrInvalidData.
func IsValidInput(in domain.Input) error {
	if err := isValidSource(in.Source); err != nil {
		return err
	}
	if err := isValidText("name", in.Name, domain.MaxNameLen); err != nil {
		return err
	}
	if err := isValidText("description", in.Description, domain.MaxDescriptionLen); err != nil {
		return err
	}
	return nil
}

func isValidSource(s domain.Source) error {
	if s == "" {
		return fmt.Errorf("%w: source is required", events.ErrInvalidData)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: source %q is not one of %v", events.ErrInvalidData, string(s), domain.Sources())
	}
	return nil
}

func isValidText(field, v string, max int) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s must not be empty", events.ErrInvalidData, field)
	}
	// postgres text не хранит NUL и битый UTF-8
	if !utf8.ValidString(v) {
		return fmt.Errorf("%w: %s is not valid UTF-8", events.ErrInvalidData, field)
	}
	if strings.ContainsRune(v, 0) {
		return fmt.Errorf("%w: %s contains a NUL character", events.ErrInvalidData, field)
	}
	if n := utf8.RuneCountInString(v); n > max {
		return fmt.Errorf("%w: %s is %d chars, max %d", events.ErrInvalidData, field, n, max)
	}
	return nil
}
