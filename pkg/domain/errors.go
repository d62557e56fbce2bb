package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInTree is returned when a path lookup is attempted on a node
// that is not attached to any tree root.
var ErrNotInTree = errors.New("node is not attached to a tree")

// ErrMetadataNotFound is returned by metadata stores when no entry
// exists for the requested scene path.
var ErrMetadataNotFound = errors.New("scene metadata not found")

// ErrNoSuchSignal is returned when connecting to or emitting a signal
// that was never declared on the node.
var ErrNoSuchSignal = errors.New("no such signal")

// ErrNoSuchMethod is returned by Node.Call when no attached behavior
// exposes the requested method.
var ErrNoSuchMethod = errors.New("no such method")

// SourceNotFoundError reports an unresolved scene path.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("scene source not found: %q", e.Path)
}

// LoadError reports a missing or malformed scene file.
type LoadError struct {
	Path   string
	Reason error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load scene %q: %v", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Reason }

// CircularDependencyError reports a scene reference cycle, either
// detected statically in the dependency graph or at runtime while an
// instance subtree is under construction.
type CircularDependencyError struct {
	// Cycle holds the offending paths in reference order. The first
	// and last entries are the same scene.
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular scene dependency: %s", strings.Join(e.Cycle, " -> "))
}

// MissingDependencyError reports a reference to a scene file that does
// not resolve. It is soft: loads degrade to a placeholder instead of
// aborting, and the error is retained for editor display.
type MissingDependencyError struct {
	From string // scene holding the reference
	To   string // unresolvable target
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("scene %q references missing scene %q", e.From, e.To)
}

// OverrideTargetError reports a property override whose address does
// not resolve inside the live clone.
type OverrideTargetError struct {
	Address string
}

func (e *OverrideTargetError) Error() string {
	return fmt.Sprintf("override target not found: %q", e.Address)
}
