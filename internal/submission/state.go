package submission

import (
	"errors"

	"github.com/zombor/invoice-ocr/internal/invoice"
	"github.com/zombor/invoice-ocr/internal/ocr"
)

// ErrNoFileSelected is returned by Submit when there is nothing to submit
var ErrNoFileSelected = errors.New("no file selected")

// State is the lifecycle of the current submission. It is one of Idle,
// FileSelected, Submitting, Succeeded or Failed.
type State interface {
	state()
}

// Idle is the initial state: nothing selected yet
type Idle struct{}

// FileSelected holds a file ready to be submitted
type FileSelected struct {
	File ocr.File
}

// Submitting holds the file whose request is in flight
type Submitting struct {
	File ocr.File
}

// Succeeded holds the decoded invoice of the last resolved request. File is
// the file that was submitted, kept so the operator can submit it again.
type Succeeded struct {
	File   ocr.File
	Result *invoice.InvoiceResult
}

// Failed holds the human-readable message of the last failed request
type Failed struct {
	File    ocr.File
	Message string
}

func (Idle) state()         {}
func (FileSelected) state() {}
func (Submitting) state()   {}
func (Succeeded) state()    {}
func (Failed) state()       {}

// Event is an input to Transition
type Event interface {
	event()
}

// SelectFile is the operator choosing a file
type SelectFile struct {
	File ocr.File
}

// Submit is the operator asking to recognize the selected file
type Submit struct{}

// Resolved is the OCR call returning. Exactly one of Result and Err is set.
type Resolved struct {
	File   ocr.File
	Result *invoice.InvoiceResult
	Err    error
}

func (SelectFile) event() {}
func (Submit) event()     {}
func (Resolved) event()   {}

// Transition applies an event to a state and returns the next state along
// with an error for rejected events. A rejected event leaves the state as is.
//
// Resolved applies to whatever the current state is. Re-selecting a file while
// a request is in flight does not cancel it, and its resolution still lands.
func Transition(s State, e Event) (State, error) {
	switch e := e.(type) {
	case SelectFile:
		return FileSelected{File: e.File}, nil

	case Submit:
		switch s := s.(type) {
		case FileSelected:
			return Submitting{File: s.File}, nil
		case Succeeded:
			return Submitting{File: s.File}, nil
		case Failed:
			return Submitting{File: s.File}, nil
		case Submitting:
			return s, nil
		default:
			return s, ErrNoFileSelected
		}

	case Resolved:
		if e.Err != nil {
			return Failed{File: e.File, Message: Message(e.Err)}, nil
		}
		return Succeeded{File: e.File, Result: e.Result}, nil
	}
	return s, nil
}

// Name returns a short lowercase name for a state, used in logs
func Name(s State) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
