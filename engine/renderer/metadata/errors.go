package metadata

import "fmt"

/** @brief Self-consistency violations of a single layout entry. */
type EntryViolation uint32

const (
	/** @brief The visibility mask is empty. */
	EntryViolationNoVisibility EntryViolation = iota
	/** @brief Dynamic offsets are only valid on uniform and storage buffers. */
	EntryViolationUnexpectedHasDynamicOffset
	/** @brief Multisampling is only valid on sampled textures. */
	EntryViolationUnexpectedMultisampled
)

func (v EntryViolation) String() string {
	switch v {
	case EntryViolationNoVisibility:
		return "no visibility"
	case EntryViolationUnexpectedHasDynamicOffset:
		return "unexpected has_dynamic_offset"
	case EntryViolationUnexpectedMultisampled:
		return "unexpected multisampled"
	}
	return "unknown"
}

type BindGroupLayoutEntryError struct {
	Violation EntryViolation
}

func (e *BindGroupLayoutEntryError) Error() string {
	return fmt.Sprintf("bind group layout entry is invalid: %s", e.Violation)
}

// ConflictBindingError reports a slot index declared more than once in
// the same layout description.
type ConflictBindingError struct {
	Binding uint32
}

func (e *ConflictBindingError) Error() string {
	return fmt.Sprintf("bind group layout declares slot %d more than once", e.Binding)
}

// EntryError wraps a per-entry violation with the offending slot index.
type EntryError struct {
	Binding uint32
	Cause   *BindGroupLayoutEntryError
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("bind group layout entry for slot %d: %s", e.Binding, e.Cause.Violation)
}

func (e *EntryError) Unwrap() error {
	return e.Cause
}

// TooManyGroupsError reports a pipeline layout referencing more bind
// group layouts than the hardware bound.
type TooManyGroupsError struct {
	Count int
}

func (e *TooManyGroupsError) Error() string {
	return fmt.Sprintf("pipeline layout references %d bind group layouts, max is %d", e.Count, MaxBindGroups)
}

// UnknownSlotError reports a bind group entry for a slot the layout does
// not declare.
type UnknownSlotError struct {
	Binding uint32
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("bind group entry targets slot %d, which the layout does not declare", e.Binding)
}

// BindingTypeMismatchError reports a resource whose kind does not match
// the declared binding type of its slot.
type BindingTypeMismatchError struct {
	Binding  uint32
	Expected BindingType
	Got      ResourceKind
}

func (e *BindingTypeMismatchError) Error() string {
	return fmt.Sprintf("bind group entry for slot %d supplies a %s resource, but the slot is declared as %s",
		e.Binding, e.Got, e.Expected)
}

// BufferRangeError reports a buffer binding whose range exceeds the
// buffer's extent.
type BufferRangeError struct {
	Binding uint32
	Offset  uint64
	Size    uint64
	Extent  uint64
}

func (e *BufferRangeError) Error() string {
	return fmt.Sprintf("bind group entry for slot %d binds bytes [%d..%d) of a buffer with extent %d",
		e.Binding, e.Offset, e.Offset+e.Size, e.Extent)
}

// MissingSlotError reports a declared slot that received no entry.
// Unfilled slots are an error; there is no implicit defaulting.
type MissingSlotError struct {
	Binding uint32
}

func (e *MissingSlotError) Error() string {
	return fmt.Sprintf("bind group leaves declared slot %d unfilled", e.Binding)
}
