package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event names. These match the socket events the web client emits.
const (
	InboundTypeSetup          = "setup"
	InboundTypeGetOnlineUsers = "get-online-users"
	InboundTypeJoinChat       = "join chat"
	InboundTypeLeaveChat      = "leave chat"
	InboundTypeChatCreated    = "new chat created"
	InboundTypeSendMessage    = "sendMessage"
	InboundTypeTyping         = "typing"
	InboundTypeStopTyping     = "stop typing"
	InboundTypeJoinVideoRoom  = "join-video-room"
	InboundTypeLeaveVideoRoom = "leave-video-room"
	InboundTypeOffer          = "offer"
	InboundTypeAnswer         = "answer"
	InboundTypeICECandidate   = "ice-candidate"
	InboundTypeGetDocument    = "get-document"
	InboundTypeSendChanges    = "send-changes"
	InboundTypeSaveDocument   = "save-document"
	InboundTypeLeaveDocument  = "leave-document"
)

// Outbound event names.
const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected      = "connected"
	EventOnlineUsers    = "online-users"
	EventChatCreated    = "new chat created"
	EventNewMessage     = "newMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stop typing"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventOffer          = "offer"
	EventAnswer         = "answer"
	EventICECandidate   = "ice-candidate"
	EventLoadDocument   = "load-document"
	EventReceiveChanges = "receive-changes"
)

// UserRef identifies a user inside event payloads.
type UserRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// ChatRef identifies a chat inside event payloads.
type ChatRef struct {
	ID string `json:"_id"`
}

// SetupData binds the connection to a user identity.
type SetupData struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// ChatCreatedData is the chat object relayed to each member. Raw carries the
// object verbatim for pass-through; Users is parsed out for targeting.
type ChatCreatedData struct {
	ID    string    `json:"_id"`
	Users []UserRef `json:"users"`
}

// FilePayload describes a file attachment on a message.
type FilePayload struct {
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	ViewURL     string `json:"viewUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// SendMessageData is an already-persisted chat message to relay.
type SendMessageData struct {
	Content     string       `json:"content"`
	Sender      UserRef      `json:"sender"`
	MessageType string       `json:"messageType"`
	Chat        ChatRef      `json:"chat"`
	File        *FilePayload `json:"file,omitempty"`
}

// NewMessageData is the relayed form delivered to the other chat members.
type NewMessageData struct {
	Sender      string       `json:"sender"`
	Chat        string       `json:"chat"`
	Content     string       `json:"content"`
	MessageType string       `json:"messageType"`
	File        *FilePayload `json:"file,omitempty"`
}

// TypingData carries a typing indicator.
type TypingData struct {
	ChatID string `json:"chatId"`
	From   string `json:"from"`
}

// TypingEvent is the relayed typing indicator (sender only).
type TypingEvent struct {
	From string `json:"from"`
}

// VideoJoinData requests joining a video room. User is passed through
// verbatim to the other members for UI labeling.
type VideoJoinData struct {
	RoomID string          `json:"roomId"`
	User   json.RawMessage `json:"user"`
}

// VideoLeaveData requests leaving a video room.
type VideoLeaveData struct {
	RoomID string `json:"roomId"`
}

// SignalData is a WebRTC offer/answer/candidate addressed to one connection.
// Exactly one of SDP or Candidate is set depending on the event.
type SignalData struct {
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	To        string          `json:"to"`
	From      string          `json:"from,omitempty"`
}

// UserJoinedEvent announces a new video room peer.
type UserJoinedEvent struct {
	SocketID string          `json:"socketId"`
	User     json.RawMessage `json:"user,omitempty"`
}

// UserLeftEvent announces a departed video room peer.
type UserLeftEvent struct {
	SocketID string `json:"socketId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
