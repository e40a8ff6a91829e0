package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/validation"
)

func validInput() domain.Input {
	return domain.Input{Source: domain.SourceUsers, Name: "user.created", Description: "new user signed up"}
}

func TestIsValidInputAccepts(t *testing.T) {
	require.NoError(t, validation.IsValidInput(validInput()))

	in := validInput()
	in.Source = domain.SourceProducts
	in.Name = strings.Repeat("n", domain.MaxNameLen)
	in.Description = strings.Repeat("д", domain.MaxDescriptionLen)
	assert.NoError(t, validation.IsValidInput(in), "limits are counted in characters, not bytes")
}

func TestIsValidInputRejects(t *testing.T) {
	cases := map[string]func(*domain.Input){
		"missing source":   func(in *domain.Input) { in.Source = "" },
		"unknown source":   func(in *domain.Input) { in.Source = "orders" },
		"empty name":       func(in *domain.Input) { in.Name = "" },
		"blank name":       func(in *domain.Input) { in.Name = "   " },
		"long name":        func(in *domain.Input) { in.Name = strings.Repeat("n", domain.MaxNameLen+1) },
		"empty desc":       func(in *domain.Input) { in.Description = "" },
		"long description": func(in *domain.Input) { in.Description = strings.Repeat("d", domain.MaxDescriptionLen+1) },
		"nul in name":      func(in *domain.Input) { in.Name = "a\x00b" },
		"nul in desc":      func(in *domain.Input) { in.Description = "\x00" + in.Description },
		"broken utf8":      func(in *domain.Input) { in.Name = "a\xffb" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			err := validation.IsValidInput(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, events.ErrInvalidData)
		})
	}
}
