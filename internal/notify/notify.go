// Package notify shows desktop notifications for failures the user would
// otherwise only find in the log.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// AppName is shown as the notification sender where the platform supports it
const AppName = "Stow Dashboard"

// Notifier delivers a short message to the user
type Notifier interface {
	Notify(title, message string)
}

// Desktop sends notifications through the platform notification center.
// Delivery is asynchronous and failures are only logged.
type Desktop struct {
	logger *zap.SugaredLogger
	send   func(title, message string) error

	wg sync.WaitGroup
}

// NewDesktop creates a beeep-backed notifier
func NewDesktop(logger *zap.SugaredLogger) *Desktop {
	beeep.AppName = AppName
	return &Desktop{
		logger: logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (d *Desktop) Notify(title, message string) {
	d.logger.Infow("Notification", "title", title, "message", message)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(title, message); err != nil {
			d.logger.Debugw("Failed to show desktop notification", "title", title, "error", err)
		}
	}()
}

// Wait blocks until pending notifications were handed to the platform
func (d *Desktop) Wait() {
	d.wg.Wait()
}

// Nop drops every notification
type Nop struct{}

func (Nop) Notify(string, string) {}

// Recorder keeps notifications in memory
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one recorded notification
type Message struct {
	Title   string
	Message string
}

func (r *Recorder) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Title: title, Message: message})
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.Messages...)
}
