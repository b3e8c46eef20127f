package client

import "sync"

type SessionEventReason string

const (
	// ReasonUnauthorized means the backend answered 401 to a bearer request.
	ReasonUnauthorized SessionEventReason = "unauthorized"
	// ReasonExpired means the stored token's exp claim has passed.
	ReasonExpired SessionEventReason = "expired"
)

// SessionEvent tells listeners that the stored access token is no longer usable.
type SessionEvent struct {
	Reason SessionEventReason
	Path   string
}

type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(SessionEvent)
}

// OnSessionInvalid registers fn for session invalidation events. The returned
// function unregisters it.
func (c *Client) OnSessionInvalid(fn func(SessionEvent)) func() {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	if c.listeners.fns == nil {
		c.listeners.fns = make(map[int]func(SessionEvent))
	}
	id := c.listeners.nextID
	c.listeners.nextID++
	c.listeners.fns[id] = fn
	return func() {
		c.listeners.mu.Lock()
		defer c.listeners.mu.Unlock()
		delete(c.listeners.fns, id)
	}
}

func (c *Client) emit(event SessionEvent) {
	c.listeners.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(c.listeners.fns))
	for _, fn := range c.listeners.fns {
		fns = append(fns, fn)
	}
	c.listeners.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
