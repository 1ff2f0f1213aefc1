package core

// Client is one live connection as seen by the delivery layer. The
// transport owns the underlying socket; the core holds a non-owning
// handle keyed by the authenticated user.
type Client struct {
	ID     string
	UserID string
	Events chan *Event
}

// NewClient constructs a client handle with a buffered event channel.
func NewClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, 32),
	}
}

// Send queues an event for the client's write loop. Returns false if
// the buffer is full; slow consumers miss events rather than block the
// delivery path.
func (c *Client) Send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
