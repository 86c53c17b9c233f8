package errors

import (
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRippleErrorString(t *testing.T) {
	err := &RippleError{
		Op:   "core.Session.DispatchCallback",
		Kind: KindDispatch,
		Err:  stderrors.New("no such prop"),
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
	if !strings.Contains(got, "[dispatch]") {
		t.Errorf("error string %q should contain the kind", got)
	}
}

func TestRippleErrorWithNode(t *testing.T) {
	err := &RippleError{
		Op:   "core.Session.Flush",
		Kind: KindRender,
		Node: "app:0/1@item:2",
		Err:  stderrors.New("boom"),
	}
	want := "node=app:0/1@item:2"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindUsage, "usage"},
		{KindRender, "render"},
		{KindHook, "hook"},
		{KindDispatch, "dispatch"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestUsagePanics(t *testing.T) {
	defer func() {
		r := recover()
		ue, ok := r.(*UsageError)
		if !ok {
			t.Fatalf("recovered %T, want *UsageError", r)
		}
		if ue.Op != "core.Place" || !strings.Contains(ue.Detail, "Counter.Count") {
			t.Errorf("usage error = %+v", ue)
		}
	}()
	Usage("core.Place", "cannot mutate %s while a render is in progress", "Counter.Count")
}

func TestRenderErrorString(t *testing.T) {
	err := &RenderError{
		Component: "taskList",
		Node:      "taskList:0",
		Recovered: "index out of range",
		Timestamp: time.Now(),
	}
	got := err.Error()
	if !strings.Contains(got, "panic rendering taskList") {
		t.Errorf("RenderError.Error() = %q", got)
	}

	wrapped := &RenderError{
		Component: "taskList",
		Node:      "taskList:0",
		Err:       &UsageError{Op: "reactive", Detail: "bad"},
	}
	if !strings.Contains(wrapped.Error(), "error rendering taskList") {
		t.Errorf("RenderError.Error() = %q", wrapped.Error())
	}
	var ue *UsageError
	if !stderrors.As(wrapped, &ue) {
		t.Error("RenderError should unwrap to its cause")
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "core.Session.spawn"
	if got, want := err.Error(), "panic in core.Session.spawn: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

// captureHandler records everything reported to it.
type captureHandler struct {
	mu     sync.Mutex
	errs   []*RippleError
	panics []*PanicError
	hooks  []*HookError
}

func (h *captureHandler) HandleError(err *RippleError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *captureHandler) HandlePanic(err *PanicError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, err)
}

func (h *captureHandler) HandleHookError(err *HookError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, err)
}

func TestReportFillsTimestamp(t *testing.T) {
	h := &captureHandler{}
	SetHandler(h)
	defer SetHandler(nil)

	Report(&RippleError{Op: "test", Kind: KindRender, Err: stderrors.New("x")})
	if len(h.errs) != 1 {
		t.Fatalf("reported %d errors, want 1", len(h.errs))
	}
	if h.errs[0].Timestamp.IsZero() {
		t.Error("Report should stamp the error")
	}
}

func TestRecoverReportsPanic(t *testing.T) {
	h := &captureHandler{}
	SetHandler(h)
	defer SetHandler(nil)

	func() {
		defer Recover("worker.loop")
		panic("goroutine bug")
	}()

	if len(h.panics) != 1 {
		t.Fatalf("reported %d panics, want 1", len(h.panics))
	}
	p := h.panics[0]
	if p.Op != "worker.loop" || p.Value != "goroutine bug" {
		t.Errorf("panic = %+v", p)
	}
	if p.StackTrace == "" {
		t.Error("recovered panic should carry a stack trace")
	}
}

func TestSetHandlerNilRestoresDefault(t *testing.T) {
	SetHandler(&captureHandler{})
	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("DefaultHandler = %T, want *LogHandler", DefaultHandler)
	}
}

func TestCaptureStackNamesCaller(t *testing.T) {
	var stack string
	func() {
		stack = CaptureStack()
	}()
	if !strings.Contains(stack, "TestCaptureStackNamesCaller") {
		t.Errorf("stack should name the calling function:\n%s", stack)
	}
}
