package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ovasiliev/converse-server/internal/auth"
	"github.com/ovasiliev/converse-server/internal/config"
	"github.com/ovasiliev/converse-server/internal/core"
	"github.com/ovasiliev/converse-server/internal/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := core.NewHub(nil, testLogger())
	go hub.Run(ctx)

	cfg := config.Default()
	server := NewServer(hub, authService, st, &cfg, testLogger())

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*stdhttp.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := stdhttp.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func registerUser(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()

	resp, body := doJSON(t, "POST", srv.URL+"/api/users/register", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, resp.StatusCode, body)
	}

	var auth AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil || auth.Token == "" {
		t.Fatalf("unexpected register response: %s err=%v", body, err)
	}
	return auth.Token
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	registerUser(t, srv, "alice")

	// Duplicate username.
	resp, _ := doJSON(t, "POST", srv.URL+"/api/users/register", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != stdhttp.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, "POST", srv.URL+"/api/users/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("login failed: %d %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, "POST", srv.URL+"/api/users/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, "GET", srv.URL+"/api/chats", "", nil)
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", srv.URL+"/api/chats", "not-a-token", nil)
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestUserSearch(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := registerUser(t, srv, "alice")
	registerUser(t, srv, "alicia")
	registerUser(t, srv, "bob")

	resp, body := doJSON(t, "GET", srv.URL+"/api/users/search?q=ali", aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("search failed: %d %s", resp.StatusCode, body)
	}

	var users []map[string]any
	if err := json.Unmarshal(body, &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The requester is excluded from results.
	if len(users) != 1 || users[0]["username"] != "alicia" {
		t.Fatalf("unexpected results: %s", body)
	}

	// Query too short.
	resp, _ = doJSON(t, "GET", srv.URL+"/api/users/search?q=a", aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for short query, got %d", resp.StatusCode)
	}
}

func TestDirectChatFlow(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	resp, body := doJSON(t, "POST", srv.URL+"/api/chats", aliceToken, map[string]any{"user_id": 2})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("create direct chat: %d %s", resp.StatusCode, body)
	}
	var first ChatResponse
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Type != "direct" || len(first.Members) != 2 {
		t.Fatalf("unexpected chat: %+v", first)
	}

	// Same pair resolves to the same chat.
	_, body = doJSON(t, "POST", srv.URL+"/api/chats", aliceToken, map[string]any{"user_id": 2})
	var second ChatResponse
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("direct chat should deduplicate, got %d and %d", first.ID, second.ID)
	}

	// Self-chat is rejected.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/chats", aliceToken, map[string]any{"user_id": 1})
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for self chat, got %d", resp.StatusCode)
	}
}

func TestGroupChatAdminRules(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := registerUser(t, srv, "alice")
	bobToken := registerUser(t, srv, "bob")
	registerUser(t, srv, "carol")

	resp, body := doJSON(t, "POST", srv.URL+"/api/chats/group", aliceToken, map[string]any{
		"name":    "team",
		"members": []int64{2},
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("create group: %d %s", resp.StatusCode, body)
	}
	var chat ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Non-admin member cannot rename.
	resp, _ = doJSON(t, "PUT", fmt.Sprintf("%s/api/chats/%d/rename", srv.URL, chat.ID), bobToken, map[string]string{"name": "hijack"})
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for non-admin rename, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "PUT", fmt.Sprintf("%s/api/chats/%d/rename", srv.URL, chat.ID), aliceToken, map[string]string{"name": "renamed"})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("admin rename failed: %d", resp.StatusCode)
	}

	// Admin adds carol; carol can leave on her own; bob cannot remove alice.
	resp, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/chats/%d/members", srv.URL, chat.ID), aliceToken, map[string]any{"user_id": 3})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("add member failed: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "DELETE", fmt.Sprintf("%s/api/chats/%d/members/1", srv.URL, chat.ID), bobToken, nil)
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 removing another member, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "DELETE", fmt.Sprintf("%s/api/chats/%d/members/2", srv.URL, chat.ID), bobToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("self-removal failed: %d", resp.StatusCode)
	}
}

func TestMessagePersistence(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := registerUser(t, srv, "alice")
	bobToken := registerUser(t, srv, "bob")
	carolToken := registerUser(t, srv, "carol")

	_, body := doJSON(t, "POST", srv.URL+"/api/chats", aliceToken, map[string]any{"user_id": 2})
	var chat ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}

	resp, body := doJSON(t, "POST", srv.URL+"/api/messages", aliceToken, map[string]any{
		"chat_id": chat.ID,
		"content": "hello bob",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("send message: %d %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, "POST", srv.URL+"/api/messages", bobToken, map[string]any{
		"chat_id": chat.ID,
		"file": map[string]string{
			"name":    "notes.pdf",
			"viewUrl": "https://files.example/v/1",
		},
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("send file message: %d", resp.StatusCode)
	}

	// Empty message is rejected.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/messages", aliceToken, map[string]any{"chat_id": chat.ID})
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", resp.StatusCode)
	}

	// Non-member cannot post or read.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/messages", carolToken, map[string]any{
		"chat_id": chat.ID,
		"content": "intruder",
	})
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, "GET", fmt.Sprintf("%s/api/messages/%d", srv.URL, chat.ID), bobToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("list messages: %d", resp.StatusCode)
	}
	var messages []MessageResponse
	if err := json.Unmarshal(body, &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "hello bob" {
		t.Fatalf("unexpected history: %s", body)
	}
	if messages[1].File == nil || messages[1].File.Name != "notes.pdf" {
		t.Fatalf("file descriptor missing: %+v", messages[1])
	}
}

func TestDocumentEndpoints(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	_, body := doJSON(t, "POST", srv.URL+"/api/chats", aliceToken, map[string]any{"user_id": 2})
	var chat ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}

	const docID = "1f0e7c2a-58c4-4f5e-9d8e-3a8f0a1b2c3d"
	resp, body := doJSON(t, "POST", srv.URL+"/api/documents", aliceToken, map[string]any{
		"id":      docID,
		"chat_id": chat.ID,
		"title":   "Plans",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("create document: %d %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, "POST", srv.URL+"/api/documents", aliceToken, map[string]any{
		"id":      "not-a-uuid",
		"chat_id": chat.ID,
	})
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, "PUT", srv.URL+"/api/documents/"+docID, aliceToken, map[string]any{
		"content": map[string]any{"ops": []any{map[string]string{"insert": "hi"}}},
	})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("update document: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, "GET", srv.URL+"/api/documents/"+docID, aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("get document: %d", resp.StatusCode)
	}
	var doc DocumentResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Name != "Plans" || !bytes.Contains(doc.Content, []byte("insert")) {
		t.Fatalf("unexpected document: %s", body)
	}

	resp, body = doJSON(t, "GET", fmt.Sprintf("%s/api/chats/%d/documents", srv.URL, chat.ID), aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("list documents: %d", resp.StatusCode)
	}
	var docs []DocumentResponse
	if err := json.Unmarshal(body, &docs); err != nil || len(docs) != 1 {
		t.Fatalf("unexpected document list: %s err=%v", body, err)
	}

	resp, _ = doJSON(t, "GET", srv.URL+"/api/documents/ffffffff-ffff-4fff-bfff-ffffffffffff", aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 for unknown document, got %d", resp.StatusCode)
	}
}
