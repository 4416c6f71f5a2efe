// Package notify carries short user-facing messages (success or failure of an
// action) from the contact workflow to whoever renders them.
package notify

import (
	"log"
	"sync"
)

// Kind classifies a notice
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one message for the user. The zero Notice means nothing to report.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Success returns a success notice
func Success(msg string) Notice { return Notice{Kind: KindSuccess, Message: msg} }

// Failure returns an error notice
func Failure(msg string) Notice { return Notice{Kind: KindError, Message: msg} }

// IsZero reports whether n carries nothing
func (n Notice) IsZero() bool { return n.Kind == "" }

// OK reports whether n is not an error
func (n Notice) OK() bool { return n.Kind != KindError }

// Notifier receives notices
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Discard drops every notice
var Discard Notifier = NotifierFunc(func(Notice) {})

// Log writes notices to the standard logger under prefix
func Log(prefix string) Notifier {
	return NotifierFunc(func(n Notice) {
		log.Printf("[%s] notice %s: %s", prefix, n.Kind, n.Message)
	})
}

// Collector keeps every notice it receives until drained
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

// Drain returns the collected notices and forgets them
func (c *Collector) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

// Notices returns a copy of the collected notices
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...)
}
