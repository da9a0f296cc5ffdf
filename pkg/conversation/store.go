package conversation

import (
	"sync"
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderLocal  Sender = "local"
	SenderRemote Sender = "remote"
)

// Message is one immutable transcript entry.
type Message struct {
	ID        int64
	Text      string
	Sender    Sender
	Timestamp time.Time
	Err       bool
}

// Store is the append-only transcript log plus the remote-is-composing flag.
// Entries are never edited or removed; the log is cleared only on logout.
type Store struct {
	mu        sync.RWMutex
	messages  []Message
	composing bool
	nextID    int64
	onChange  func()
}

func NewStore() *Store {
	return &Store{}
}

// SetOnChange registers a callback invoked after every mutation. The callback
// runs outside the store lock and must not call back into the store's write
// methods.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Append adds a message to the end of the log and assigns its ID from a
// monotonically increasing counter. Returns the stored message.
func (s *Store) Append(text string, sender Sender, isErr bool) Message {
	s.mu.Lock()
	s.nextID++
	msg := Message{
		ID:        s.nextID,
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
		Err:       isErr,
	}
	s.messages = append(s.messages, msg)
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return msg
}

// SetComposing updates the remote-is-composing flag.
func (s *Store) SetComposing(v bool) {
	s.mu.Lock()
	changed := s.composing != v
	s.composing = v
	fn := s.onChange
	s.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}

func (s *Store) Composing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.composing
}

// Messages returns a copy of the log in append order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear empties the log and resets the composing flag. Invoked on logout only;
// the ID counter keeps counting so IDs stay unique across a session.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.composing = false
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
