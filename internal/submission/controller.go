package submission

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/zombor/invoice-ocr/internal/invoice"
	"github.com/zombor/invoice-ocr/internal/ocr"
)

// ErrClosed is returned by Submit after the controller has been closed
var ErrClosed = errors.New("controller closed")

// Controller owns the single submission state cell. At most one request is
// dispatched per Submitting leg; requests run in their own goroutine and
// cannot be cancelled once dispatched.
type Controller struct {
	recognizer ocr.Recognizer
	onChange   func(State)

	mu      sync.Mutex
	state   State
	seq     int
	pending int
	closed  bool
	changed chan struct{}
}

// NewController creates a Controller in the Idle state. onChange, if not nil,
// is called after every transition with the new state. It is called with the
// controller's lock held, so transitions are observed in order, and it must
// not call back into the controller.
func NewController(recognizer ocr.Recognizer, onChange func(State)) *Controller {
	return &Controller{
		recognizer: recognizer,
		onChange:   onChange,
		state:      Idle{},
		changed:    make(chan struct{}),
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectFile makes file the current selection from any state, clearing a
// previous result or error. A request already in flight is not cancelled.
func (c *Controller) SelectFile(file ocr.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if _, busy := c.state.(Submitting); busy {
		slog.Warn("File selected while a request is in flight", "filename", file.Name)
	}
	next, _ := Transition(c.state, SelectFile{File: file})
	c.setState(next)
}

// Submit dispatches the selected file to the recognizer and returns without
// waiting for the result. It returns ErrNoFileSelected when nothing is
// selected, and does nothing while a request is already in flight, even if
// another file has been selected since.
func (c *Controller) Submit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	// A reselection moves the state off Submitting, so the in-flight count is
	// what bounds dispatch.
	if c.pending > 0 {
		slog.Debug("Submit ignored, request already in flight",
			"state", Name(c.state),
			"in_flight", c.pending,
		)
		return nil
	}

	next, err := Transition(c.state, Submit{})
	if err != nil {
		return err
	}
	c.setState(next)

	file := next.(Submitting).File
	c.seq++
	c.pending++
	slog.Info("Submitting invoice",
		"submission", c.seq,
		"filename", file.Name,
		"content_type", file.ContentType,
		"file_size", len(file.Data),
	)
	go c.run(c.seq, file)
	return nil
}

// run performs one request and applies its resolution
func (c *Controller) run(seq int, file ocr.File) {
	result, err := c.recognizer.Recognize(context.Background(), file)
	if err == nil && result == nil {
		result = &invoice.InvoiceResult{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--

	if c.closed {
		slog.Debug("Discarding resolution after close", "submission", seq)
		c.broadcast()
		return
	}

	if err != nil {
		slog.Error("Failed to recognize invoice",
			"submission", seq,
			"filename", file.Name,
			"error", err,
		)
	} else {
		slog.Info("Invoice recognized",
			"submission", seq,
			"invoice_number", result.InvoiceNumber,
		)
	}

	if _, stillSubmitting := c.state.(Submitting); !stillSubmitting {
		slog.Warn("Resolution applied to a state it did not start from",
			"submission", seq,
			"state", Name(c.state),
		)
	}
	next, _ := Transition(c.state, Resolved{File: file, Result: result, Err: err})
	c.setState(next)
}

// Wait blocks until no request is in flight or ctx is done
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears the controller down. Requests still in flight complete, but
// their resolution is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// setState stores next and notifies observers. Callers hold c.mu.
func (c *Controller) setState(next State) {
	slog.Debug("Submission state changed", "from", Name(c.state), "to", Name(next))
	c.state = next
	if c.onChange != nil {
		c.onChange(next)
	}
	c.broadcast()
}

// broadcast wakes Wait callers. Callers hold c.mu.
func (c *Controller) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}
