package outline

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureViolation is matched by every *StructureViolation.
	ErrStructureViolation = errors.New("structure violation")
	// ErrCrossArenaReference is returned when a Section or NodeID is used
	// with an arena that did not issue it.
	ErrCrossArenaReference = errors.New("cross-arena reference")
	// ErrUnknownNode is returned for identifiers this arena never issued.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidUTF8 is returned when input fails UTF-8 validation.
	ErrInvalidUTF8 = errors.New("input is not valid UTF-8")
)

// StructureViolation describes a rejected edit. Line is 1-based within the
// candidate text and Offset is the byte offset of that line; both are zero for
// structural operations that do not involve text.
type StructureViolation struct {
	Line   int
	Offset int
	Reason string
}

func (e *StructureViolation) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("structure violation: %s", e.Reason)
	}
	return fmt.Sprintf("structure violation at line %d (offset %d): %s", e.Line, e.Offset, e.Reason)
}

func (e *StructureViolation) Unwrap() error {
	return ErrStructureViolation
}

func violationf(format string, args ...any) *StructureViolation {
	return &StructureViolation{Reason: fmt.Sprintf(format, args...)}
}
