package machine

// Kind is the stable category of a runtime fault.
type Kind int

//nolint:revive
const (
	RuntimeError Kind = iota
	TypeError
	ValueError
	IndexError
	AttributeError
)

var kindNames = [...]string{
	RuntimeError:   "RuntimeError",
	TypeError:      "TypeError",
	ValueError:     "ValueError",
	IndexError:     "IndexError",
	AttributeError: "AttributeError",
}

func (k Kind) String() string { return kindNames[k] }

// Error is a runtime fault. The machine prints the message and a traceback
// to its error stream before returning it; Traceback holds the same rendered
// lines for programmatic use.
type Error struct {
	Kind      Kind
	Message   string
	Traceback []string
}

func (e *Error) Error() string { return e.Message }

// NewError returns an Error with the given kind and message. Native
// functions use it to fail with a precise category; a plain error returned
// from a native is wrapped as a RuntimeError.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
