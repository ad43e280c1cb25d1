// Package notify provides the user-facing signals (toasts, prompts) that page
// components raise while processing user actions.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Kind categorizes a Signal.
type Kind string

const (
	// KindLoginRequired prompts the user to sign-in before continuing.
	KindLoginRequired Kind = "login_required"
	// KindAdminDenied informs a signed-in user that an action requires admin
	// privileges.
	KindAdminDenied Kind = "admin_denied"

	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Signal is a user-facing notification.
type Signal struct {
	Kind    Kind   `json:"kind"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// Signaler is implemented by types that surface Signals to the user.
type Signaler interface {
	Signal(Signal)
}

// SignalerFunc adapts a function to the Signaler interface.
type SignalerFunc func(Signal)

// Signal calls fn(sig).
func (fn SignalerFunc) Signal(sig Signal) { fn(sig) }

// Info creates a KindInfo Signal.
func Info(msg string) Signal { return Signal{Kind: KindInfo, Message: msg} }

// Success creates a KindSuccess Signal.
func Success(msg string) Signal { return Signal{Kind: KindSuccess, Message: msg} }

// Warning creates a KindWarning Signal.
func Warning(msg string) Signal { return Signal{Kind: KindWarning, Message: msg} }

// Error creates a KindError Signal.
func Error(msg string) Signal { return Signal{Kind: KindError, Message: msg} }

// NewLogged creates a Signaler that logs every Signal before passing it to
// next.
func NewLogged(logger *zap.Logger, next Signaler) *Logged {
	return &Logged{logger: logger, next: next}
}

// Logged decorates a Signaler with logging.
type Logged struct {
	logger *zap.Logger
	next   Signaler
}

// Signal implements the Signaler interface.
func (l Logged) Signal(sig Signal) {
	l.logger.Debug(
		"signal",
		zap.String("kind", string(sig.Kind)),
		zap.String("action", sig.Action),
		zap.String("message", sig.Message),
	)
	l.next.Signal(sig)
}

// NewRecorder creates a new Recorder instance.
func NewRecorder() *Recorder {
	return &Recorder{mutex: new(sync.Mutex)}
}

// Recorder records Signals, typically for use in tests.
type Recorder struct {
	mutex   *sync.Mutex
	signals []Signal
}

// Signal implements the Signaler interface.
func (r *Recorder) Signal(sig Signal) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.signals = append(r.signals, sig)
}

// Signals retrieves a copy of all recorded Signals.
func (r *Recorder) Signals() []Signal {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	signals := make([]Signal, len(r.signals))
	copy(signals, r.signals)
	return signals
}

// Count retrieves the number of recorded Signals of the specified kind.
func (r *Recorder) Count(kind Kind) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int
	for _, sig := range r.signals {
		if sig.Kind == kind {
			n++
		}
	}
	return n
}

// Last retrieves the most recently recorded Signal. The second return value
// is false if no Signal has been recorded.
func (r *Recorder) Last() (Signal, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.signals) == 0 {
		return Signal{}, false
	}
	return r.signals[len(r.signals)-1], true
}
