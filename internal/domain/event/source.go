package event

import (
	"fmt"
	"strings"
)

type Source string

const (
	SourceUsers    Source = "users"
	SourceProducts Source = "products"
)

var sources = map[Source]struct{}{
	SourceUsers:    {},
	SourceProducts: {},
}

func (s Source) Valid() bool {
	_, ok := sources[s]
	return ok
}

func (s Source) String() string { return string(s) }

// ParseSource accepts only members of the closed source set, ignoring case
// and surrounding spaces.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// Sources lists the allowed values in a stable order.
func Sources() []Source {
	return []Source{SourceUsers, SourceProducts}
}
