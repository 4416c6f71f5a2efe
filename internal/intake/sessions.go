package intake

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"precisionworks/internal/metrics"
)

// ErrTooManySessions is returned by Create when the registry is full
var ErrTooManySessions = errors.New("too many open form sessions")

// Sessions keeps one Form per visitor, keyed by an opaque id. Forms left idle
// longer than the TTL are closed and dropped by a background sweep.
type Sessions struct {
	newForm func() *Form
	ttl     time.Duration
	limit   int
	now     func() time.Time

	mu    sync.Mutex
	forms map[string]*session

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type session struct {
	form     *Form
	lastSeen time.Time
}

// NewSessions starts a registry whose forms come from newForm. The sweep runs
// every interval; a non-positive interval disables it. At most limit forms are
// open at once; a non-positive limit means no cap.
func NewSessions(newForm func() *Form, ttl, interval time.Duration, limit int) *Sessions {
	s := &Sessions{
		newForm: newForm,
		ttl:     ttl,
		limit:   limit,
		now:     time.Now,
		forms:   make(map[string]*session),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if interval > 0 {
		go s.janitor(interval)
	} else {
		close(s.done)
	}
	return s
}

func (s *Sessions) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("[INTAKE] Expired %d idle form sessions", n)
			}
		case <-s.stop:
			return
		}
	}
}

// Create opens a new form and returns its id. When the registry is full idle
// forms are swept first; ErrTooManySessions is returned if none could go.
func (s *Sessions) Create() (string, *Form, error) {
	if s.full() {
		s.Sweep()
	}

	id := uuid.NewString()
	f := s.newForm()

	s.mu.Lock()
	if s.limit > 0 && len(s.forms) >= s.limit {
		s.mu.Unlock()
		f.Close()
		log.Printf("[INTAKE] Refused new form session: %d open", s.limit)
		return "", nil, ErrTooManySessions
	}
	s.forms[id] = &session{form: f, lastSeen: s.now()}
	n := len(s.forms)
	s.mu.Unlock()

	metrics.SetIntakeSessions(n)
	return id, f, nil
}

func (s *Sessions) full() bool {
	if s.limit <= 0 {
		return false
	}
	return s.Len() >= s.limit
}

// Get returns the form for id and marks it as used
func (s *Sessions) Get(id string) (*Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.forms[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.form, true
}

// Remove closes and drops the form for id
func (s *Sessions) Remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.forms[id]
	delete(s.forms, id)
	n := len(s.forms)
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.form.Close()
	metrics.SetIntakeSessions(n)
	return true
}

// Sweep drops forms idle for longer than the TTL and returns how many went
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Form
	for id, sess := range s.forms {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess.form)
			delete(s.forms, id)
		}
	}
	n := len(s.forms)
	s.mu.Unlock()

	for _, f := range expired {
		f.Close()
	}
	if len(expired) > 0 {
		metrics.SetIntakeSessions(n)
	}
	return len(expired)
}

// Len returns the number of open forms
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// Close stops the sweep and closes every form
func (s *Sessions) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		forms := s.forms
		s.forms = make(map[string]*session)
		s.mu.Unlock()

		for _, sess := range forms {
			sess.form.Close()
		}
		metrics.SetIntakeSessions(0)
	})
}
