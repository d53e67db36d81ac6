package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ovasiliev/converse-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustCreateUser(t *testing.T, st *SQLiteStore, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestSearchUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, st, "alice")
	mustCreateUser(t, st, "alicia")
	mustCreateUser(t, st, "bob")

	users, err := st.SearchUsers(ctx, "ali")
	if err != nil {
		t.Fatalf("search users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(users))
	}
	if users[0].Username != "alice" || users[1].Username != "alicia" {
		t.Fatalf("expected ordered matches, got %s, %s", users[0].Username, users[1].Username)
	}

	users, err = st.SearchUsers(ctx, "zzz")
	if err != nil {
		t.Fatalf("search users: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no matches, got %d", len(users))
	}
}

func TestCreateDirectChatDeduplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")

	first, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create direct chat: %v", err)
	}
	second, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create direct chat again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same chat, got %d and %d", first.ID, second.ID)
	}
	if first.Type != store.ChatTypeDirect {
		t.Fatalf("expected direct type, got %s", first.Type)
	}

	for _, uid := range []int64{alice.ID, bob.ID} {
		member, err := st.IsMember(ctx, uid, first.ID)
		if err != nil || !member {
			t.Fatalf("user %d should be a member (err=%v)", uid, err)
		}
	}
}

func TestCreateDirectChatSurfacesLookupFailure(t *testing.T) {
	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	_ = st.Close()

	// A failing dedup lookup must be reported as such, not swallowed and
	// turned into an insert attempt.
	_, err = st.CreateDirectChat(context.Background(), "dm:1:2", 1, 2)
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if !strings.Contains(err.Error(), "query chat") {
		t.Fatalf("expected the lookup failure to surface, got %v", err)
	}
}

func TestCreateGroupChatIncludesAdminOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	carol := mustCreateUser(t, st, "carol")

	// Admin appears in the member list too; must not duplicate.
	chat, err := st.CreateGroupChat(ctx, "team", alice.ID, []int64{alice.ID, bob.ID, carol.ID})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}
	if chat.Type != store.ChatTypeGroup || chat.Name != "team" {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if chat.AdminID == nil || *chat.AdminID != alice.ID {
		t.Fatalf("expected admin %d, got %v", alice.ID, chat.AdminID)
	}

	members, err := st.ListMembers(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %v", members)
	}
}

func TestRenameChatGroupOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")

	direct, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create direct chat: %v", err)
	}
	if err := st.RenameChat(ctx, direct.ID, "nope"); err == nil {
		t.Fatal("renaming a direct chat should fail")
	}

	group, err := st.CreateGroupChat(ctx, "team", alice.ID, []int64{bob.ID})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}
	if err := st.RenameChat(ctx, group.ID, "renamed"); err != nil {
		t.Fatalf("rename group chat: %v", err)
	}

	reloaded, err := st.GetChatByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if reloaded.Name != "renamed" {
		t.Fatalf("expected renamed, got %s", reloaded.Name)
	}
}

func TestAddRemoveMember(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	carol := mustCreateUser(t, st, "carol")

	chat, err := st.CreateGroupChat(ctx, "team", alice.ID, []int64{bob.ID})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	if err := st.AddMember(ctx, carol.ID, chat.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Re-adding is a no-op.
	if err := st.AddMember(ctx, carol.ID, chat.ID); err != nil {
		t.Fatalf("re-add member: %v", err)
	}

	member, err := st.IsMember(ctx, carol.ID, chat.ID)
	if err != nil || !member {
		t.Fatalf("carol should be a member (err=%v)", err)
	}

	if err := st.RemoveMember(ctx, carol.ID, chat.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	member, err = st.IsMember(ctx, carol.ID, chat.ID)
	if err != nil || member {
		t.Fatalf("carol should no longer be a member (err=%v)", err)
	}
}

func TestListChats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	carol := mustCreateUser(t, st, "carol")

	if _, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID); err != nil {
		t.Fatalf("create direct chat: %v", err)
	}
	if _, err := st.CreateGroupChat(ctx, "team", alice.ID, []int64{bob.ID}); err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	chats, err := st.ListChats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats for alice, got %d", len(chats))
	}

	chats, err = st.ListChats(ctx, carol.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("expected no chats for carol, got %d", len(chats))
	}
}

func TestSaveAndListMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	chat, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	text := &store.Message{ChatID: chat.ID, SenderID: alice.ID, Kind: store.MessageKindText, Content: "hi"}
	if err := st.SaveMessage(ctx, text); err != nil {
		t.Fatalf("save text message: %v", err)
	}
	if text.ID == 0 || text.CreatedAt.IsZero() {
		t.Fatalf("save should fill id and timestamp, got %+v", text)
	}

	file := &store.Message{
		ChatID:   chat.ID,
		SenderID: bob.ID,
		Kind:     store.MessageKindFile,
		File: &store.FileDescriptor{
			Name:        "notes.pdf",
			MimeType:    "application/pdf",
			ViewURL:     "https://files.example/view/1",
			DownloadURL: "https://files.example/dl/1",
		},
	}
	if err := st.SaveMessage(ctx, file); err != nil {
		t.Fatalf("save file message: %v", err)
	}

	messages, err := st.ListMessages(ctx, chat.ID, 50, nil)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	// Oldest first.
	if messages[0].Content != "hi" {
		t.Fatalf("expected text message first, got %+v", messages[0])
	}
	if messages[1].File == nil || messages[1].File.Name != "notes.pdf" {
		t.Fatalf("file descriptor should round-trip, got %+v", messages[1].File)
	}
}

func TestListMessagesPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	chat, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	var ids []int64
	for i := 0; i < 5; i++ {
		msg := &store.Message{ChatID: chat.ID, SenderID: alice.ID, Kind: store.MessageKindText, Content: "m"}
		if err := st.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	page, err := st.ListMessages(ctx, chat.ID, 2, nil)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(page) != 2 || page[1].ID != ids[4] {
		t.Fatalf("expected the 2 newest messages, got %+v", page)
	}

	older, err := st.ListMessages(ctx, chat.ID, 2, &page[0].ID)
	if err != nil {
		t.Fatalf("list older messages: %v", err)
	}
	if len(older) != 2 || older[1].ID >= page[0].ID {
		t.Fatalf("expected strictly older messages, got %+v", older)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	const docID = "6f1b0a52-0c4e-4a8a-9a64-2f9a46c2f001"

	// Absent document loads as (nil, nil).
	doc, err := st.LoadDocument(ctx, docID)
	if err != nil {
		t.Fatalf("load absent document: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for absent document, got %+v", doc)
	}

	created := &store.Document{ID: docID}
	if err := st.CreateDocument(ctx, created); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if created.Name != "Untitled Document" {
		t.Fatalf("expected default name, got %q", created.Name)
	}
	if string(created.Content) != `""` {
		t.Fatalf("expected empty content default, got %s", created.Content)
	}

	snapshot := json.RawMessage(`{"ops":[{"insert":"hello"}]}`)
	if err := st.UpsertDocumentContent(ctx, docID, snapshot); err != nil {
		t.Fatalf("upsert content: %v", err)
	}

	doc, err = st.LoadDocument(ctx, docID)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if doc == nil || string(doc.Content) != string(snapshot) {
		t.Fatalf("expected saved snapshot, got %+v", doc)
	}

	if err := st.RenameDocument(ctx, docID, "Plans"); err != nil {
		t.Fatalf("rename document: %v", err)
	}
	doc, err = st.LoadDocument(ctx, docID)
	if err != nil || doc == nil || doc.Name != "Plans" {
		t.Fatalf("expected renamed document, got %+v err=%v", doc, err)
	}
}

func TestUpsertDocumentContentCreatesRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	const docID = "0b54a4e2-5d7f-43d9-8f24-6f3f2c7f1002"
	snapshot := json.RawMessage(`"text"`)
	if err := st.UpsertDocumentContent(ctx, docID, snapshot); err != nil {
		t.Fatalf("upsert into empty table: %v", err)
	}

	doc, err := st.LoadDocument(ctx, docID)
	if err != nil || doc == nil {
		t.Fatalf("expected document after upsert, got %+v err=%v", doc, err)
	}
	if string(doc.Content) != string(snapshot) {
		t.Fatalf("unexpected content: %s", doc.Content)
	}
}

func TestListDocumentsByChat(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	chat, err := st.CreateDirectChat(ctx, "dm:1:2", alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	attached := &store.Document{ID: "a7e9c7ce-93b0-4f4e-8b34-111111111111", ChatID: chat.ID, Name: "Plans"}
	if err := st.CreateDocument(ctx, attached); err != nil {
		t.Fatalf("create attached document: %v", err)
	}
	loose := &store.Document{ID: "a7e9c7ce-93b0-4f4e-8b34-222222222222"}
	if err := st.CreateDocument(ctx, loose); err != nil {
		t.Fatalf("create loose document: %v", err)
	}

	docs, err := st.ListDocumentsByChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != attached.ID {
		t.Fatalf("expected only the attached document, got %+v", docs)
	}
}
