package core

// Client is one live transport connection as seen by the core layer.
// ID is assigned by the transport on connect; UserID stays empty until the
// connection identifies itself with a setup command.
type Client struct {
	ID     string
	UserID string
	Name   string
	Events chan *Event
	Rooms  map[string]struct{}
	DocID  string // document room this connection currently edits, if any
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, 32),
		Rooms:  make(map[string]struct{}),
	}
}

// Send delivers an event without blocking. Slow consumers drop events rather
// than stalling the hub loop; delivery is best-effort per member.
func (c *Client) Send(ev *Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
