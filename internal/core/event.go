package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected acknowledges a successful setup.
	EventConnected EventKind = iota
	// EventOnlineUsers carries the full current online-user list.
	EventOnlineUsers
	// EventChatCreated forwards a freshly created chat object to its members.
	EventChatCreated
	// EventNewMessage relays a persisted chat message to room members.
	EventNewMessage
	// EventTyping relays a typing indicator.
	EventTyping
	// EventStopTyping relays the end of a typing indicator.
	EventStopTyping
	// EventVideoUserJoined notifies video room members about a new peer.
	EventVideoUserJoined
	// EventVideoUserLeft notifies video room members that a peer left.
	EventVideoUserLeft
	// EventOffer delivers a WebRTC offer to a single target connection.
	EventOffer
	// EventAnswer delivers a WebRTC answer to a single target connection.
	EventAnswer
	// EventICECandidate delivers an ICE candidate to a single target connection.
	EventICECandidate
	// EventLoadDocument delivers document content to the requesting connection.
	EventLoadDocument
	// EventReceiveChanges relays a document delta to other editors.
	EventReceiveChanges
	// EventError notifies a client about a domain error.
	EventError
)

// ChatMessage is a relayed chat message. The durable copy is persisted by the
// REST layer before the relay ever sees it; the core only fans it out.
type ChatMessage struct {
	SenderID string
	ChatID   string
	Content  string
	Kind     string
	File     *FileRef // non-nil for file messages
}

// FileRef describes an externally stored attachment on a file message.
type FileRef struct {
	Name        string
	MimeType    string
	ViewURL     string
	DownloadURL string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	From    string          // sender identity (user id or connection id, per event)
	Users   []string        // for EventOnlineUsers
	User    json.RawMessage // video joiner identity payload, passed through
	Message *ChatMessage    // for EventNewMessage
	Payload json.RawMessage // opaque relayed payload (chat object, sdp, candidate, content, delta)
	Error   *CoreError      // for EventError
}
