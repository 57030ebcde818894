package diag

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"compgen/internal/entity"
)

// Target names the kinds of declaration a lookup was allowed to land on.
type Target string

const (
	TargetClass            Target = "class"
	TargetClassOrInterface Target = "class or interface"
	TargetAny              Target = "class, interface, type or enum"
)

// TargetFor maps the lookup flags of the symbol resolver to a Target.
func TargetFor(considerInterfaces, considerOthers bool) Target {
	switch {
	case considerOthers:
		return TargetAny
	case considerInterfaces:
		return TargetClassOrInterface
	default:
		return TargetClass
	}
}

// NotFoundError is returned when a reference cannot be resolved to any declaration.
type NotFoundError struct {
	Reference entity.Reference
	Target    Target
}

func (e *NotFoundError) Error() string {
	origin := e.Reference.FileNameReferenced
	if origin == "" {
		origin = e.Reference.FileName
	}
	return fmt.Sprintf("could not load %s %s from %s (package %s, referenced in %s)",
		e.Target, e.Reference.QualifiedName(), e.Reference.FileName, e.Reference.PackageName, origin)
}

// ShapeKind enumerates the unsupported type shapes.
type ShapeKind string

const (
	ShapeNestedArray          ShapeKind = "nested-array"
	ShapeUnsupportedType      ShapeKind = "unsupported-type"
	ShapeUnsupportedTypeof    ShapeKind = "unsupported-typeof"
	ShapeEnumMember           ShapeKind = "enum-member"
	ShapeNamespacedSuperclass ShapeKind = "namespaced-superclass"
	ShapeAnonymousSuperclass  ShapeKind = "anonymous-superclass"
	ShapeUnsupportedParameter ShapeKind = "unsupported-parameter"
)

// ShapeError reports a type-level construct the generator does not model. Lenient
// runs downgrade it to a warning and a wildcard range.
type ShapeError struct {
	Kind    ShapeKind
	Entity  string
	File    string
	Line    int
	Subject string
	Message string
}

func (e *ShapeError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case ShapeNestedArray:
		b.WriteString("DetectedIllegalNestedArray: ")
	case ShapeUnsupportedTypeof:
		b.WriteString("UnsupportedTypeofTarget: ")
	}
	b.WriteString(e.Message)
	if e.Subject != "" {
		fmt.Fprintf(&b, " (%s)", e.Subject)
	}
	if e.Entity != "" {
		fmt.Fprintf(&b, " in %s", e.Entity)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " at %s", e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	return b.String()
}

// ClassificationError reports an inheritance edge pointing at the wrong kind of
// declaration, such as a class extending an interface.
type ClassificationError struct {
	Entity   string
	Target   string
	Expected entity.Kind
	Actual   entity.Kind
	File     string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("detected %s %s as super type of %s in %s, expected %s",
		e.Actual, e.Target, e.Entity, e.File, e.Expected)
}

// IsShape reports whether err carries a ShapeError.
func IsShape(err error) bool {
	var shape *ShapeError
	return errors.As(err, &shape)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// WithIgnoreHint attaches a hint pointing at the ignore set.
func WithIgnoreHint(err error, name string) error {
	if err == nil {
		return nil
	}
	return errors.WithHintf(err, "add %q to ignore_classes to skip it", name)
}
