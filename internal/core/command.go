package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSetup binds a user identity to the connection.
	CommandSetup CommandKind = iota
	// CommandGetOnlineUsers requests the online-user list (reply to requester only).
	CommandGetOnlineUsers
	// CommandJoinChat subscribes the connection to a chat room.
	CommandJoinChat
	// CommandLeaveChat unsubscribes the connection from a chat room.
	CommandLeaveChat
	// CommandChatCreated forwards a new chat object to each member's connection.
	CommandChatCreated
	// CommandSendMessage relays an already-persisted message to a chat room.
	CommandSendMessage
	// CommandTyping relays a typing indicator to a chat room.
	CommandTyping
	// CommandStopTyping relays the end of a typing indicator.
	CommandStopTyping
	// CommandJoinVideoRoom adds the connection to a video room.
	CommandJoinVideoRoom
	// CommandLeaveVideoRoom removes the connection from a video room.
	CommandLeaveVideoRoom
	// CommandOffer forwards a WebRTC offer to a target connection.
	CommandOffer
	// CommandAnswer forwards a WebRTC answer to a target connection.
	CommandAnswer
	// CommandICECandidate forwards an ICE candidate to a target connection.
	CommandICECandidate
	// CommandGetDocument joins a document room and replies with its content.
	CommandGetDocument
	// CommandSendChanges relays a document delta to the other editors.
	CommandSendChanges
	// CommandSaveDocument persists a full content snapshot.
	CommandSaveDocument
	// CommandLeaveDocument leaves the connection's current document room.
	CommandLeaveDocument
)

// Command represents an action requested by a client connection.
type Command struct {
	Kind    CommandKind
	Client  *Client
	Room    string          // chat id, video room id, or document id
	UserID  string          // setup identity
	Name    string          // setup display name
	From    string          // typing indicator sender identity
	Target  string          // signaling target connection id
	Members []string        // chat-created member user ids
	Message *ChatMessage    // for CommandSendMessage
	User    json.RawMessage // video joiner identity payload
	Payload json.RawMessage // opaque payload (chat object, sdp, candidate, delta, content)
}
