package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub owns all real-time state: the connection registry, the generic room
// tracker, and the video/document side tables. A single goroutine (Run)
// processes every command to completion before the next one, so no mutation
// needs a lock and per-room delivery order follows command arrival order.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	commands   chan *Command

	clients  map[string]*Client // connection id -> client
	registry *Registry
	rooms    *RoomSet
	video    *VideoRooms
	docs     map[string]*docSession

	store DocumentStore
	log   *zerolog.Logger
}

// NewHub creates a hub. store may be nil when document features are unused
// (e.g. in tests that exercise only messaging or signaling).
func NewHub(store DocumentStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client, 8),
		unregister: make(chan *Client, 8),
		commands:   make(chan *Command, 64),
		clients:    make(map[string]*Client),
		registry:   NewRegistry(),
		rooms:      NewRoomSet(),
		video:      NewVideoRooms(),
		docs:       make(map[string]*docSession),
		store:      store,
		log:        logger,
	}
}

// RegisterClient attaches a freshly connected transport session.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient detaches a disconnected session and triggers the full
// cleanup cascade.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Dispatch enqueues a command for processing. Commands from a single
// connection are processed in the order they were enqueued.
func (h *Hub) Dispatch(cmd *Command) {
	h.commands <- cmd
}

// Run processes commands until the context is cancelled. Pending
// registrations are drained first so a connection is always in the client map
// before its own commands are handled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c.ID] = c
			continue
		default:
		}

		select {
		case c := <-h.register:
			h.clients[c.ID] = c
		case c := <-h.unregister:
			h.teardown(c)
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, cmd *Command) {
	c := cmd.Client
	if c == nil {
		return
	}

	switch cmd.Kind {
	case CommandSetup:
		h.handleSetup(c, cmd)
	case CommandGetOnlineUsers:
		c.Send(&Event{Kind: EventOnlineUsers, Users: h.registry.OnlineUsers()})
	case CommandJoinChat:
		h.rooms.Join(cmd.Room, c)
	case CommandLeaveChat:
		h.rooms.Leave(cmd.Room, c)
	case CommandChatCreated:
		h.handleChatCreated(c, cmd)
	case CommandSendMessage:
		h.rooms.Broadcast(cmd.Room, &Event{Kind: EventNewMessage, Room: cmd.Room, Message: cmd.Message}, c)
	case CommandTyping:
		h.rooms.Broadcast(cmd.Room, &Event{Kind: EventTyping, Room: cmd.Room, From: cmd.From}, c)
	case CommandStopTyping:
		h.rooms.Broadcast(cmd.Room, &Event{Kind: EventStopTyping, Room: cmd.Room, From: cmd.From}, c)
	case CommandJoinVideoRoom:
		h.handleJoinVideoRoom(c, cmd)
	case CommandLeaveVideoRoom:
		h.leaveVideoRoom(c, cmd.Room)
	case CommandOffer:
		h.relaySignal(c, cmd, EventOffer)
	case CommandAnswer:
		h.relaySignal(c, cmd, EventAnswer)
	case CommandICECandidate:
		h.relaySignal(c, cmd, EventICECandidate)
	case CommandGetDocument:
		h.handleGetDocument(ctx, c, cmd.Room)
	case CommandSendChanges:
		h.handleSendChanges(c, cmd)
	case CommandSaveDocument:
		h.handleSaveDocument(ctx, c, cmd.Payload)
	case CommandLeaveDocument:
		h.leaveDocument(c)
	default:
		h.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown command kind")
	}
}

// handleSetup binds the user identity and publishes presence: the full
// online list goes to the triggering connection and to every other one.
func (h *Hub) handleSetup(c *Client, cmd *Command) {
	if cmd.UserID == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "user id is required")})
		return
	}

	c.UserID = cmd.UserID
	c.Name = cmd.Name
	h.registry.Register(c.ID, cmd.UserID)

	c.Send(&Event{Kind: EventConnected})
	h.broadcastPresence()

	h.log.Debug().Str("conn_id", c.ID).Str("user_id", cmd.UserID).Msg("connection identified")
}

// broadcastPresence publishes the current online list to every connection.
func (h *Hub) broadcastPresence() {
	users := h.registry.OnlineUsers()
	for _, cl := range h.clients {
		cl.Send(&Event{Kind: EventOnlineUsers, Users: users})
	}
}

// handleChatCreated forwards the chat object to each member's live
// connection, except the creator who already has it.
func (h *Hub) handleChatCreated(c *Client, cmd *Command) {
	for _, userID := range cmd.Members {
		if userID == c.UserID {
			continue
		}
		connID, ok := h.registry.ConnFor(userID)
		if !ok {
			continue
		}
		if target, ok := h.clients[connID]; ok {
			target.Send(&Event{Kind: EventChatCreated, Payload: cmd.Payload})
		}
	}
}

// handleJoinVideoRoom adds the member record and establishes join symmetry:
// existing members each learn about the joiner once, and the joiner learns
// about each existing member once, so offers can be created pairwise.
func (h *Hub) handleJoinVideoRoom(c *Client, cmd *Command) {
	existing := h.video.Members(cmd.Room)
	if !h.video.Add(cmd.Room, c, cmd.User) {
		return
	}
	h.rooms.Join(cmd.Room, c)

	for _, m := range existing {
		m.Client.Send(&Event{Kind: EventVideoUserJoined, Room: cmd.Room, From: c.ID, User: cmd.User})
		c.Send(&Event{Kind: EventVideoUserJoined, Room: cmd.Room, From: m.Client.ID, User: m.User})
	}
}

// leaveVideoRoom removes the member record and tells the remaining members.
func (h *Hub) leaveVideoRoom(c *Client, roomID string) {
	if !h.video.Remove(roomID, c.ID) {
		return
	}
	h.rooms.Leave(roomID, c)

	for _, m := range h.video.Members(roomID) {
		m.Client.Send(&Event{Kind: EventVideoUserLeft, Room: roomID, From: c.ID})
	}
}

// relaySignal forwards an offer/answer/candidate payload verbatim to the
// target connection only, stamping the sender's connection id. An unknown
// target is a no-op: the peer already disconnected.
func (h *Hub) relaySignal(c *Client, cmd *Command, kind EventKind) {
	target, ok := h.clients[cmd.Target]
	if !ok {
		return
	}
	target.Send(&Event{Kind: kind, From: c.ID, Payload: cmd.Payload})
}

// handleGetDocument joins the document room and replies to the requester
// only; other editors already hold the content.
func (h *Hub) handleGetDocument(ctx context.Context, c *Client, docID string) {
	if docID == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "document id is required")})
		return
	}

	// Switching editors closes the previous document first; otherwise its
	// room membership and session cache would outlive the switch.
	if c.DocID != "" && c.DocID != docID {
		h.leaveDocument(c)
	}

	sess, cerr := h.openDocument(ctx, docID)
	if cerr != nil {
		c.Send(&Event{Kind: EventError, Error: cerr})
		return
	}

	h.rooms.Join(docID, c)
	c.DocID = docID
	c.Send(&Event{Kind: EventLoadDocument, Room: docID, Payload: sess.content})
}

// handleSendChanges relays the delta to every other editor. The server never
// applies deltas; each client reconciles in receipt order.
func (h *Hub) handleSendChanges(c *Client, cmd *Command) {
	docID := cmd.Room
	if docID == "" {
		docID = c.DocID
	}
	if docID == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInDocument, "no document session")})
		return
	}
	h.rooms.Broadcast(docID, &Event{Kind: EventReceiveChanges, Room: docID, Payload: cmd.Payload}, c)
}

// handleSaveDocument refreshes the session cache and pushes the snapshot to
// the store. Every session-holding connection may emit saves independently;
// the store treats them as idempotent last-write-wins.
func (h *Hub) handleSaveDocument(ctx context.Context, c *Client, content []byte) {
	if c.DocID == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInDocument, "no document session")})
		return
	}

	if sess, ok := h.docs[c.DocID]; ok {
		sess.content = content
	}
	if err := h.store.UpsertDocumentContent(ctx, c.DocID, content); err != nil {
		h.log.Error().Err(err).Str("doc_id", c.DocID).Msg("persist document")
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeDocUnavailable, "document store unavailable")})
	}
}

// leaveDocument leaves the connection's current document room. No stored
// teardown is needed; content is already durable.
func (h *Hub) leaveDocument(c *Client) {
	if c.DocID == "" {
		return
	}
	docID := c.DocID
	c.DocID = ""
	h.rooms.Leave(docID, c)
	h.closeDocumentIfEmpty(docID)
}

// teardown is the single ordered disconnect cascade: registry, then rooms,
// then video member records, then document sessions. A disconnect is the
// only cancellation signal, so nothing may be left behind.
func (h *Hub) teardown(c *Client) {
	_, removed := h.registry.Unregister(c.ID)

	videoRooms := h.video.RoomsOf(c.ID)

	h.rooms.LeaveAll(c)

	for _, roomID := range videoRooms {
		h.video.Remove(roomID, c.ID)
		for _, m := range h.video.Members(roomID) {
			m.Client.Send(&Event{Kind: EventVideoUserLeft, Room: roomID, From: c.ID})
		}
	}

	if c.DocID != "" {
		docID := c.DocID
		c.DocID = ""
		h.closeDocumentIfEmpty(docID)
	}

	delete(h.clients, c.ID)

	if removed {
		h.broadcastPresence()
	}

	h.log.Debug().Str("conn_id", c.ID).Msg("connection torn down")
}
