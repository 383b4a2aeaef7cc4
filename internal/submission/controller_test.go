package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-ocr/internal/invoice"
	"github.com/zombor/invoice-ocr/internal/ocr"
)

// mockRecognizer is a mock implementation of ocr.Recognizer. When gate is
// set, calls block until it is released.
type mockRecognizer struct {
	mu     sync.Mutex
	files  []ocr.File
	result *invoice.InvoiceResult
	err    error

	gate    chan struct{}
	release sync.Once
}

func newMockRecognizer() *mockRecognizer {
	return &mockRecognizer{
		result: &invoice.InvoiceResult{InvoiceNumber: "FP202401", TotalAmount: "100.00"},
	}
}

func (m *mockRecognizer) block() {
	m.gate = make(chan struct{})
}

func (m *mockRecognizer) unblock() {
	if m.gate != nil {
		m.release.Do(func() { close(m.gate) })
	}
}

func (m *mockRecognizer) Recognize(ctx context.Context, file ocr.File) (*invoice.InvoiceResult, error) {
	m.mu.Lock()
	m.files = append(m.files, file)
	result, err, gate := m.result, m.err, m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *mockRecognizer) calls() []ocr.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ocr.File(nil), m.files...)
}

var _ = Describe("Controller", func() {
	var (
		recognizer *mockRecognizer
		controller *Controller
		observed   []string
		observedMu sync.Mutex
		file       ocr.File
	)

	observedStates := func() []string {
		observedMu.Lock()
		defer observedMu.Unlock()
		return append([]string(nil), observed...)
	}

	waitIdle := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(controller.Wait(ctx)).To(Succeed())
	}

	BeforeEach(func() {
		recognizer = newMockRecognizer()
		observed = nil
		file = ocr.File{Name: "invoice.jpg", ContentType: "image/jpeg", Data: []byte("fake image data")}
		controller = NewController(recognizer, func(s State) {
			observedMu.Lock()
			defer observedMu.Unlock()
			observed = append(observed, Name(s))
		})
	})

	AfterEach(func() {
		recognizer.unblock()
		waitIdle()
	})

	It("should start idle", func() {
		Expect(controller.State()).To(Equal(Idle{}))
	})

	Describe("Submit", func() {
		var err error

		When("no file is selected", func() {
			JustBeforeEach(func() {
				err = controller.Submit()
			})

			It("returns ErrNoFileSelected", func() {
				Expect(err).To(MatchError(ErrNoFileSelected))
				Expect(Message(err)).To(Equal(MessageNoFileSelected))
			})

			It("should stay idle", func() {
				Expect(controller.State()).To(Equal(Idle{}))
			})

			It("should not call the recognizer", func() {
				Expect(recognizer.calls()).To(BeEmpty())
			})
		})

		When("a file is selected", func() {
			BeforeEach(func() {
				recognizer.block()
				controller.SelectFile(file)
			})

			JustBeforeEach(func() {
				err = controller.Submit()
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return while the request is in flight", func() {
				Expect(controller.State()).To(Equal(Submitting{File: file}))
			})

			It("should send the selected file", func() {
				Eventually(recognizer.calls).Should(Equal([]ocr.File{file}))
			})

			It("should ignore further submits until the request resolves", func() {
				Expect(controller.Submit()).To(Succeed())
				Expect(controller.Submit()).To(Succeed())
				Consistently(recognizer.calls, 100*time.Millisecond).Should(HaveLen(1))
				Expect(controller.State()).To(Equal(Submitting{File: file}))

				recognizer.unblock()
				waitIdle()
				Expect(recognizer.calls()).To(HaveLen(1))
				Expect(controller.State()).To(BeAssignableToTypeOf(Succeeded{}))
			})
		})
	})

	When("the recognizer succeeds", func() {
		BeforeEach(func() {
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
		})

		It("should hold the result", func() {
			state, ok := controller.State().(Succeeded)
			Expect(ok).To(BeTrue())
			Expect(state.Result.InvoiceNumber).To(Equal("FP202401"))
		})

		It("should notify every transition in order", func() {
			Expect(observedStates()).To(Equal([]string{"file_selected", "submitting", "succeeded"}))
		})

		It("should allow submitting the same file again", func() {
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
			Expect(recognizer.calls()).To(Equal([]ocr.File{file, file}))
		})
	})

	When("the recognizer returns nothing", func() {
		BeforeEach(func() {
			recognizer.result = nil
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
		})

		It("should hold an empty result", func() {
			Expect(controller.State()).To(Equal(Succeeded{File: file, Result: &invoice.InvoiceResult{}}))
		})
	})

	When("the service rejects the file", func() {
		BeforeEach(func() {
			recognizer.err = &ocr.Error{Kind: ocr.KindRejected, Message: "低置信度"}
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
		})

		It("should fail with the server message", func() {
			Expect(controller.State()).To(Equal(Failed{File: file, Message: "低置信度"}))
		})

		It("should clear the error on the next selection", func() {
			controller.SelectFile(file)
			Expect(controller.State()).To(Equal(FileSelected{File: file}))
		})
	})

	When("the network fails", func() {
		BeforeEach(func() {
			recognizer.err = &ocr.Error{Kind: ocr.KindNetwork, Err: errors.New("connection refused")}
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
		})

		It("should fail with the network message", func() {
			Expect(controller.State()).To(Equal(Failed{File: file, Message: MessageNetwork}))
		})

		It("should let the operator retry manually", func() {
			recognizer.err = nil
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
			Expect(controller.State()).To(BeAssignableToTypeOf(Succeeded{}))
		})
	})

	When("a file is selected while a request is in flight", func() {
		var other ocr.File

		BeforeEach(func() {
			other = ocr.File{Name: "other.png", ContentType: "image/png", Data: []byte("other")}
			recognizer.block()
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			controller.SelectFile(other)
		})

		It("should switch to the new selection immediately", func() {
			Expect(controller.State()).To(Equal(FileSelected{File: other}))
		})

		It("should not dispatch the new selection until the request resolves", func() {
			Expect(controller.Submit()).To(Succeed())
			Consistently(recognizer.calls, 100*time.Millisecond).Should(Equal([]ocr.File{file}))
			Expect(controller.State()).To(Equal(FileSelected{File: other}))

			recognizer.unblock()
			waitIdle()
			Expect(recognizer.calls()).To(Equal([]ocr.File{file}))
		})

		It("should submit the new selection once the request has resolved", func() {
			recognizer.unblock()
			waitIdle()

			controller.SelectFile(other)
			Expect(controller.Submit()).To(Succeed())
			waitIdle()
			Expect(recognizer.calls()).To(Equal([]ocr.File{file, other}))
		})

		It("should still apply the in-flight resolution when it lands", func() {
			recognizer.unblock()
			waitIdle()
			Expect(controller.State()).To(BeAssignableToTypeOf(Succeeded{}))
			Expect(controller.State().(Succeeded).File).To(Equal(file))
		})
	})

	When("the controller is closed while a request is in flight", func() {
		BeforeEach(func() {
			recognizer.block()
			controller.SelectFile(file)
			Expect(controller.Submit()).To(Succeed())
			controller.Close()
		})

		It("should discard the resolution", func() {
			recognizer.unblock()
			waitIdle()
			Expect(controller.State()).To(Equal(Submitting{File: file}))
		})

		It("should refuse new submissions", func() {
			Expect(controller.Submit()).To(MatchError(ErrClosed))
		})
	})

	Describe("Wait", func() {
		When("the context ends first", func() {
			It("returns the context error", func() {
				recognizer.block()
				controller.SelectFile(file)
				Expect(controller.Submit()).To(Succeed())

				ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
				defer cancel()
				Expect(controller.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
			})
		})

		When("nothing is in flight", func() {
			It("returns immediately", func() {
				Expect(controller.Wait(context.Background())).To(Succeed())
			})
		})
	})
})
