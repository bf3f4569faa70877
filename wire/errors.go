package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the parser or the primitive codec wraps
// exactly one of these, so callers can classify failures with errors.Is.
var (
	// ErrGrammar is a structural violation: unknown tag, negative tag id,
	// invalid collection count, negative abstract type code, bad not-null flag.
	ErrGrammar = errors.New("grammar violation")

	// ErrSizeLimit is returned when a declared length or count exceeds the
	// configured ceiling.
	ErrSizeLimit = errors.New("size limit exceeded")

	// ErrTooDeep is returned when structs and collections nest deeper than
	// Config.MaxDepth.
	ErrTooDeep = errors.New("nesting too deep")

	// ErrTruncated is returned when the input ends in the middle of a value.
	ErrTruncated = errors.New("unexpected end of input")

	// ErrHook wraps an error returned by a Handler callback.
	ErrHook = errors.New("handler failed")
)

// ParseError describes a decode failure together with the byte offset and
// the member path at which it happened.
type ParseError struct {
	Kind   error    // one of the Err* kinds above
	Offset int      // byte offset of the cursor when the failure was detected
	Path   []string // e.g. ["3", "[2]", "7"]: member tag ids and element indexes
	Msg    string
	Err    error // underlying cause, if any (hook error, varint error)
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if len(e.Path) > 0 {
		sb.WriteString(" at ")
		sb.WriteString(FormatPath(e.Path))
	}
	fmt.Fprintf(&sb, " (offset %d)", e.Offset)
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// FormatPath joins a member path, keeping element indexes attached to their
// parent: ["3", "[2]", "7"] becomes "3[2].7".
func FormatPath(path []string) string {
	var sb strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(p)
	}
	return sb.String()
}

// EncodeError represents an encoding error with the member path of the
// offending value.
type EncodeError struct {
	Path []string
	Err  error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if len(e.Path) == 0 {
		return "encode: " + e.Err.Error()
	}
	return fmt.Sprintf("encode error at %s: %v", FormatPath(e.Path), e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// WrapPath prefixes the path of an EncodeError with segment, creating
// one if err is not already an EncodeError.
func WrapPath(err error, segment string) error {
	if err == nil {
		return nil
	}

	var ee *EncodeError
	if errors.As(err, &ee) {
		return &EncodeError{
			Path: append([]string{segment}, ee.Path...),
			Err:  ee.Err,
		}
	}

	return &EncodeError{
		Path: []string{segment},
		Err:  err,
	}
}

func memberSegment(tagID int32) string {
	return fmt.Sprintf("%d", tagID)
}

func indexSegment(i int) string {
	return fmt.Sprintf("[%d]", i)
}
