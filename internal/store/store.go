package store

import (
	"context"
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ChatType defines different kinds of chats.
type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

// Chat represents a conversation between two or more users.
type Chat struct {
	ID        int64
	Name      string
	Type      ChatType
	AdminID   *int64  // set for group chats
	DirectKey *string // for direct chats: "dm:{minUserId}:{maxUserId}"
	CreatedAt time.Time
}

// ChatMember represents chat membership.
type ChatMember struct {
	UserID   int64
	ChatID   int64
	JoinedAt time.Time
}

// MessageKind defines the payload carried by a message.
type MessageKind string

const (
	MessageKindText MessageKind = "text"
	MessageKindFile MessageKind = "file"
)

// FileDescriptor points at an externally stored file attachment.
type FileDescriptor struct {
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	ViewURL     string `json:"viewUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Kind      MessageKind
	Content   string
	File      *FileDescriptor // non-nil for file messages
	CreatedAt time.Time
}

// Document represents a collaborative document attached to a chat.
// Content is an opaque client-side delta snapshot; the server never
// interprets its structure.
type Document struct {
	ID        string // UUID, may be supplied by the client
	ChatID    int64
	Name      string
	Content   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users by username prefix or substring.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// ChatStore handles chat persistence.
type ChatStore interface {
	// CreateGroupChat creates a named group chat owned by adminID.
	CreateGroupChat(ctx context.Context, name string, adminID int64, memberIDs []int64) (*Chat, error)

	// CreateDirectChat creates (or returns the existing) direct chat between
	// two users, deduplicated via directKey.
	CreateDirectChat(ctx context.Context, directKey string, user1ID, user2ID int64) (*Chat, error)

	// GetChatByID retrieves a chat by ID.
	GetChatByID(ctx context.Context, id int64) (*Chat, error)

	// ListChats lists all chats the user is a member of.
	ListChats(ctx context.Context, userID int64) ([]*Chat, error)

	// RenameChat updates a group chat's name.
	RenameChat(ctx context.Context, chatID int64, name string) error

	// AddMember adds a user to a chat.
	AddMember(ctx context.Context, userID, chatID int64) error

	// RemoveMember removes a user from a chat.
	RemoveMember(ctx context.Context, userID, chatID int64) error

	// IsMember checks if user is a member of the chat.
	IsMember(ctx context.Context, userID, chatID int64) (bool, error)

	// ListMembers lists user IDs of all members of a chat.
	ListMembers(ctx context.Context, chatID int64) ([]int64, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and timestamp.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a chat with pagination.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, chatID int64, limit int, beforeID *int64) ([]*Message, error)
}

// DocumentStore handles collaborative document persistence.
// The real-time core consumes this interface directly: LoadDocument on first
// join of a document room, CreateDocument when no record exists, and
// UpsertDocumentContent for periodic snapshots (idempotent last-write-wins).
type DocumentStore interface {
	// CreateDocument creates a new document record.
	CreateDocument(ctx context.Context, doc *Document) error

	// LoadDocument retrieves a document by ID. Returns (nil, nil) when no
	// record exists.
	LoadDocument(ctx context.Context, id string) (*Document, error)

	// ListDocumentsByChat lists documents attached to a chat.
	ListDocumentsByChat(ctx context.Context, chatID int64) ([]*Document, error)

	// UpsertDocumentContent overwrites the stored content snapshot for id,
	// creating the record if needed.
	UpsertDocumentContent(ctx context.Context, id string, content json.RawMessage) error

	// RenameDocument updates a document's display name.
	RenameDocument(ctx context.Context, id string, name string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore
	MessageStore
	DocumentStore

	// Close closes the underlying database connection.
	Close() error
}
