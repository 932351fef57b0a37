package models

import (
	"fmt"
	"strings"

	"github.com/starford/schemakit/internal/apperr"
)

// ItemsStep is the path segment that descends into an array's items.
const ItemsStep = "[]"

// Path addresses a node from the document root. The empty path is the root.
type Path []string

// ParsePath parses a dotted path such as "orders.[].sku".
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == ItemsStep {
			continue
		}
		if err := ValidateName(p); err != nil {
			return nil, err
		}
	}
	return Path(parts), nil
}

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	return strings.Join(p, ".")
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Child returns p extended by a property key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Items returns p extended by the array items step.
func (p Path) Items() Path { return p.Child(ItemsStep) }

// Last returns the final segment, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// ValidateName checks that name can be used as a property key.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: property name is empty", apperr.ErrInvalidOperation)
	case name == ItemsStep:
		return fmt.Errorf("%w: property name %q is reserved", apperr.ErrInvalidOperation, name)
	case strings.Contains(name, "."):
		return fmt.Errorf("%w: property name %q contains '.'", apperr.ErrInvalidOperation, name)
	}
	return nil
}
