package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ovasiliev/converse-server/internal/store"
)

// Schema is applied on open. IF NOT EXISTS keeps reopening idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chats (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'direct',
	admin_id   INTEGER,
	direct_key TEXT UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (admin_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS chat_members (
	chat_id   INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (chat_id, user_id),
	FOREIGN KEY (chat_id) REFERENCES chats(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id           INTEGER NOT NULL,
	sender_id         INTEGER NOT NULL,
	kind              TEXT NOT NULL DEFAULT 'text',
	content           TEXT NOT NULL DEFAULT '',
	file_name         TEXT,
	file_mime         TEXT,
	file_view_url     TEXT,
	file_download_url TEXT,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (chat_id) REFERENCES chats(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	chat_id    INTEGER,
	name       TEXT NOT NULL DEFAULT 'Untitled Document',
	content    TEXT NOT NULL DEFAULT '""',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (chat_id) REFERENCES chats(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_members_user ON chat_members(user_id);
CREATE INDEX IF NOT EXISTS idx_documents_chat ON documents(chat_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// SearchUsers searches for users by username substring, ordered by username.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string) ([]*store.User, error) {
	sqlQuery := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username LIKE ?
		ORDER BY username
		LIMIT 20
	`
	rows, err := s.db.QueryContext(ctx, sqlQuery, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// ==== ChatStore implementation ====

// CreateGroupChat creates a named group chat owned by adminID.
// The admin is always included in the member list.
func (s *SQLiteStore) CreateGroupChat(ctx context.Context, name string, adminID int64, memberIDs []int64) (*store.Chat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO chats (name, type, admin_id)
		VALUES (?, 'group', ?)
	`, name, adminID)
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	chatID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	members := append([]int64{adminID}, memberIDs...)
	seen := make(map[int64]bool, len(members))
	for _, uid := range members {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES (?, ?)
		`, chatID, uid); err != nil {
			return nil, fmt.Errorf("insert chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetChatByID(ctx, chatID)
}

// CreateDirectChat creates a direct chat between two users, deduplicated via
// directKey. Both users are added as members.
func (s *SQLiteStore) CreateDirectChat(ctx context.Context, directKey string, user1ID, user2ID int64) (*store.Chat, error) {
	existing, err := s.getChatByDirectKey(ctx, directKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO chats (type, direct_key)
		VALUES ('direct', ?)
	`, directKey)
	if err != nil {
		return nil, fmt.Errorf("insert direct chat: %w", err)
	}

	chatID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, uid := range []int64{user1ID, user2ID} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES (?, ?)
		`, chatID, uid); err != nil {
			return nil, fmt.Errorf("insert chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetChatByID(ctx, chatID)
}

func (s *SQLiteStore) getChatByDirectKey(ctx context.Context, directKey string) (*store.Chat, error) {
	query := `
		SELECT id, name, type, admin_id, direct_key, created_at
		FROM chats
		WHERE direct_key = ?
	`
	return s.scanChatRow(s.db.QueryRowContext(ctx, query, directKey))
}

// GetChatByID retrieves a chat by ID.
func (s *SQLiteStore) GetChatByID(ctx context.Context, id int64) (*store.Chat, error) {
	query := `
		SELECT id, name, type, admin_id, direct_key, created_at
		FROM chats
		WHERE id = ?
	`
	return s.scanChatRow(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanChatRow(row *sql.Row) (*store.Chat, error) {
	var chat store.Chat
	var adminID sql.NullInt64
	var directKey sql.NullString
	err := row.Scan(
		&chat.ID,
		&chat.Name,
		&chat.Type,
		&adminID,
		&directKey,
		&chat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat not found: %w", err)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}

	if adminID.Valid {
		chat.AdminID = &adminID.Int64
	}
	if directKey.Valid {
		chat.DirectKey = &directKey.String
	}
	return &chat, nil
}

// ListChats lists all chats the user is a member of, newest first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID int64) ([]*store.Chat, error) {
	query := `
		SELECT c.id, c.name, c.type, c.admin_id, c.direct_key, c.created_at
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = ?
		ORDER BY c.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []*store.Chat
	for rows.Next() {
		var chat store.Chat
		var adminID sql.NullInt64
		var directKey sql.NullString
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.Type, &adminID, &directKey, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if adminID.Valid {
			chat.AdminID = &adminID.Int64
		}
		if directKey.Valid {
			chat.DirectKey = &directKey.String
		}
		chats = append(chats, &chat)
	}

	return chats, rows.Err()
}

// RenameChat updates a group chat's name.
func (s *SQLiteStore) RenameChat(ctx context.Context, chatID int64, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chats SET name = ? WHERE id = ? AND type = 'group'
	`, name, chatID)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chat not found or not a group: %w", sql.ErrNoRows)
	}
	return nil
}

// AddMember adds a user to a chat. Adding an existing member is a no-op.
func (s *SQLiteStore) AddMember(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chat_members (chat_id, user_id) VALUES (?, ?)
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a chat.
func (s *SQLiteStore) RemoveMember(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_members WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// IsMember checks if user is a member of the chat.
func (s *SQLiteStore) IsMember(ctx context.Context, userID, chatID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM chat_members WHERE chat_id = ? AND user_id = ?
	`, chatID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// ListMembers lists user IDs of all members of a chat.
func (s *SQLiteStore) ListMembers(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM chat_members WHERE chat_id = ? ORDER BY joined_at
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, uid)
	}

	return members, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its ID and timestamp.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	var fileName, fileMime, fileViewURL, fileDownloadURL sql.NullString
	if msg.File != nil {
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		fileMime = sql.NullString{String: msg.File.MimeType, Valid: true}
		fileViewURL = sql.NullString{String: msg.File.ViewURL, Valid: true}
		fileDownloadURL = sql.NullString{String: msg.File.DownloadURL, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, sender_id, kind, content, file_name, file_mime, file_view_url, file_download_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ChatID, msg.SenderID, msg.Kind, msg.Content, fileName, fileMime, fileViewURL, fileDownloadURL)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return s.db.QueryRowContext(ctx, `
		SELECT created_at FROM messages WHERE id = ?
	`, id).Scan(&msg.CreatedAt)
}

// ListMessages retrieves messages from a chat, oldest first, with pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, chat_id, sender_id, kind, content, file_name, file_mime, file_view_url, file_download_url, created_at
		FROM messages
		WHERE chat_id = ?
	`
	args := []any{chatID}
	if beforeID != nil {
		query += " AND id < ?"
		args = append(args, *beforeID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var fileName, fileMime, fileViewURL, fileDownloadURL sql.NullString
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.SenderID,
			&msg.Kind,
			&msg.Content,
			&fileName,
			&fileMime,
			&fileViewURL,
			&fileDownloadURL,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if fileName.Valid {
			msg.File = &store.FileDescriptor{
				Name:        fileName.String,
				MimeType:    fileMime.String,
				ViewURL:     fileViewURL.String,
				DownloadURL: fileDownloadURL.String,
			}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first so clients can append in order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ==== DocumentStore implementation ====

// CreateDocument creates a new document record.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *store.Document) error {
	if doc.Name == "" {
		doc.Name = "Untitled Document"
	}
	content := doc.Content
	if len(content) == 0 {
		content = json.RawMessage(`""`)
	}

	var chatID any
	if doc.ChatID != 0 {
		chatID = doc.ChatID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, chat_id, name, content)
		VALUES (?, ?, ?, ?)
	`, doc.ID, chatID, doc.Name, string(content))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	loaded, err := s.LoadDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	*doc = *loaded
	return nil
}

// LoadDocument retrieves a document by ID. Returns (nil, nil) when no record exists.
func (s *SQLiteStore) LoadDocument(ctx context.Context, id string) (*store.Document, error) {
	query := `
		SELECT id, COALESCE(chat_id, 0), name, content, created_at, updated_at
		FROM documents
		WHERE id = ?
	`
	var doc store.Document
	var content string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.ChatID,
		&doc.Name,
		&content,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}

	doc.Content = json.RawMessage(content)
	return &doc, nil
}

// ListDocumentsByChat lists documents attached to a chat.
func (s *SQLiteStore) ListDocumentsByChat(ctx context.Context, chatID int64) ([]*store.Document, error) {
	query := `
		SELECT id, COALESCE(chat_id, 0), name, content, created_at, updated_at
		FROM documents
		WHERE chat_id = ?
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*store.Document
	for rows.Next() {
		var doc store.Document
		var content string
		if err := rows.Scan(&doc.ID, &doc.ChatID, &doc.Name, &content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Content = json.RawMessage(content)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// UpsertDocumentContent overwrites the stored content snapshot for id.
// Last write wins; concurrent writers from the same document session are
// expected and harmless.
func (s *SQLiteStore) UpsertDocumentContent(ctx context.Context, id string, content json.RawMessage) error {
	if len(content) == 0 {
		content = json.RawMessage(`""`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, content)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			updated_at = CURRENT_TIMESTAMP
	`, id, string(content))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// RenameDocument updates a document's display name.
func (s *SQLiteStore) RenameDocument(ctx context.Context, id string, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, name, id)
	if err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document not found: %w", sql.ErrNoRows)
	}
	return nil
}
