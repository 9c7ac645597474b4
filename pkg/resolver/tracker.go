package resolver

import "sync"

// Token identifies one trigger. Tokens are unique for the lifetime of a
// Tracker.
type Token uint64

// Tracker hands out per-key trigger tokens so that only the most recently
// triggered resolution for a key may apply, regardless of arrival order.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]Token
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]Token)}
}

// Begin issues a new token for key, superseding any earlier one.
func (t *Tracker) Begin(key string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	tok := Token(t.seq)
	t.latest[key] = tok
	return tok
}

// IsCurrent reports whether tok is still the latest token for key.
func (t *Tracker) IsCurrent(key string, tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[key] == tok
}

// Finish retires tok. It reports false when tok had already been superseded.
func (t *Tracker) Finish(key string, tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[key] != tok {
		return false
	}
	delete(t.latest, key)
	return true
}

// Cancel supersedes whatever is in flight for key.
func (t *Tracker) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, key)
}

// Reset supersedes every in-flight token.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = make(map[string]Token)
}

// InFlight reports how many keys have an outstanding token.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}
