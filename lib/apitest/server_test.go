// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gwdash/gwdash/lib/clock"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	server := NewServer(Config{
		SigningKey: []byte("test-signing-key"),
		TokenTTL:   time.Hour,
		Clock:      fake,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if _, err := server.AddUser("admin@example.com", "admin-password", "Admin", "admin", true); err != nil {
		t.Fatalf("AddUser admin: %v", err)
	}
	if _, err := server.AddUser("user@example.com", "user-password", "", "user", true); err != nil {
		t.Fatalf("AddUser user: %v", err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	return server, httpServer, fake
}

func do(t *testing.T, base, method, path, token string, body any) (int, map[string]any, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, base+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	var object map[string]any
	json.Unmarshal(raw, &object)
	return response.StatusCode, object, raw
}

func login(t *testing.T, base, email, password string) string {
	t.Helper()
	status, body, raw := do(t, base, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, status, raw)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("login %s: no access_token in %s", email, raw)
	}
	return token
}

func TestHealth(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	status, body, _ := do(t, httpServer.URL, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("health = %d %v", status, body)
	}
}

func TestLogin(t *testing.T) {
	_, httpServer, _ := newTestServer(t)

	status, body, raw := do(t, httpServer.URL, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin-password",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, raw)
	}
	if body["token_type"] != "bearer" {
		t.Errorf("token_type = %v", body["token_type"])
	}
	if body["expires_in"] != float64(3600) {
		t.Errorf("expires_in = %v, want 3600", body["expires_in"])
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "admin@example.com" || user["rol"] != "admin" {
		t.Errorf("user = %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Error("user payload includes a password field")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	status, body, _ := do(t, httpServer.URL, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["code"] != "401" || body["error"] == "" {
		t.Errorf("error envelope = %v", body)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	server, httpServer, _ := newTestServer(t)
	if _, err := server.AddUser("idle@example.com", "idle-password", "", "user", false); err != nil {
		t.Fatal(err)
	}
	status, _, _ := do(t, httpServer.URL, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "idle@example.com", "password": "idle-password",
	})
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	for _, token := range []string{"", "not-a-jwt"} {
		status, body, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, status)
		}
		if body["code"] != "401" {
			t.Errorf("token %q: envelope = %v", token, body)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	_, httpServer, fake := newTestServer(t)
	token := login(t, httpServer.URL, "user@example.com", "user-password")

	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil); status != http.StatusOK {
		t.Fatalf("fresh token: status = %d", status)
	}
	fake.Advance(2 * time.Hour)
	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil); status != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", status)
	}
}

func TestRevokeTokens(t *testing.T) {
	server, httpServer, _ := newTestServer(t)
	old := login(t, httpServer.URL, "user@example.com", "user-password")
	server.RevokeTokens()

	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", old, nil); status != http.StatusUnauthorized {
		t.Errorf("revoked token: status = %d, want 401", status)
	}
	fresh := login(t, httpServer.URL, "user@example.com", "user-password")
	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", fresh, nil); status != http.StatusOK {
		t.Errorf("token issued after revoke: status = %d, want 200", status)
	}
}

func TestIssueToken(t *testing.T) {
	server, httpServer, _ := newTestServer(t)
	token, err := server.IssueToken("admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	status, body, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil)
	if status != http.StatusOK || body["email"] != "admin@example.com" {
		t.Errorf("me = %d %v", status, body)
	}
	if _, err := server.IssueToken("nobody@example.com"); err == nil {
		t.Error("IssueToken for unknown user succeeded")
	}
}

func TestAdminRoutesRequireElevatedRole(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	user := login(t, httpServer.URL, "user@example.com", "user-password")
	admin := login(t, httpServer.URL, "admin@example.com", "admin-password")

	for _, path := range []string{"/api/usuarios", "/api/estadisticas/global"} {
		if status, _, _ := do(t, httpServer.URL, http.MethodGet, path, user, nil); status != http.StatusForbidden {
			t.Errorf("standard user GET %s: status = %d, want 403", path, status)
		}
		if status, _, _ := do(t, httpServer.URL, http.MethodGet, path, admin, nil); status != http.StatusOK {
			t.Errorf("admin GET %s: status = %d, want 200", path, status)
		}
	}
}

func TestUserAdministration(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	admin := login(t, httpServer.URL, "admin@example.com", "admin-password")

	status, _, _ := do(t, httpServer.URL, http.MethodPost, "/api/usuarios", admin, map[string]any{
		"email": "new@example.com", "password": "short",
	})
	if status != http.StatusUnprocessableEntity {
		t.Errorf("short password: status = %d, want 422", status)
	}

	status, created, raw := do(t, httpServer.URL, http.MethodPost, "/api/usuarios", admin, map[string]any{
		"email": "new@example.com", "password": "long-enough", "nombre": "New",
	})
	if status != http.StatusOK {
		t.Fatalf("create: status = %d: %s", status, raw)
	}
	id, _ := created["id"].(string)
	if created["rol"] != "user" || created["activo"] != true {
		t.Errorf("created = %v", created)
	}

	status, _, _ = do(t, httpServer.URL, http.MethodPost, "/api/usuarios", admin, map[string]any{
		"email": "new@example.com", "password": "long-enough",
	})
	if status != http.StatusBadRequest {
		t.Errorf("duplicate email: status = %d, want 400", status)
	}

	status, updated, _ := do(t, httpServer.URL, http.MethodPut, "/api/usuarios/"+id, admin, map[string]any{"activo": false})
	if status != http.StatusOK || updated["activo"] != false || updated["updated_at"] == nil {
		t.Errorf("update = %d %v", status, updated)
	}

	if status, _, _ := do(t, httpServer.URL, http.MethodDelete, "/api/usuarios/"+id, admin, nil); status != http.StatusOK {
		t.Errorf("delete: status = %d", status)
	}
	if status, _, _ := do(t, httpServer.URL, http.MethodDelete, "/api/usuarios/"+id, admin, nil); status != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", status)
	}
}

func TestDeactivatedUserIsForbidden(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	admin := login(t, httpServer.URL, "admin@example.com", "admin-password")
	user := login(t, httpServer.URL, "user@example.com", "user-password")

	_, me, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", user, nil)
	id, _ := me["id"].(string)
	do(t, httpServer.URL, http.MethodPut, "/api/usuarios/"+id, admin, map[string]any{"activo": false})

	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", user, nil); status != http.StatusForbidden {
		t.Errorf("deactivated user: status = %d, want 403", status)
	}
}

func TestAnalysesAndChat(t *testing.T) {
	_, httpServer, _ := newTestServer(t)
	user := login(t, httpServer.URL, "user@example.com", "user-password")
	admin := login(t, httpServer.URL, "admin@example.com", "admin-password")

	status, _, _ := do(t, httpServer.URL, http.MethodPost, "/api/analisis", user, map[string]any{"mac_address": "AA:BB"})
	if status != http.StatusUnprocessableEntity {
		t.Errorf("short MAC: status = %d, want 422", status)
	}

	var ids []string
	for _, mac := range []string{"AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02", "AA:BB:CC:DD:EE:03"} {
		status, created, raw := do(t, httpServer.URL, http.MethodPost, "/api/analisis", user, map[string]any{"mac_address": mac})
		if status != http.StatusOK {
			t.Fatalf("create %s: %d %s", mac, status, raw)
		}
		if created["estado"] != "completado" || created["datos_tecnicos"] == nil {
			t.Errorf("created = %v", created)
		}
		ids = append(ids, created["id"].(string))
	}

	_, _, raw := do(t, httpServer.URL, http.MethodGet, "/api/analisis?limit=2&offset=1", user, nil)
	var page []map[string]any
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("list: %v: %s", err, raw)
	}
	if len(page) != 2 || page[0]["id"] != ids[1] || page[1]["id"] != ids[0] {
		t.Errorf("page = %v, want newest-first ids %s, %s", page, ids[1], ids[0])
	}

	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/analisis/"+ids[0], admin, nil); status != http.StatusNotFound {
		t.Errorf("other user's analysis: status = %d, want 404", status)
	}

	status, answer, raw := do(t, httpServer.URL, http.MethodPost, "/api/chat", user, map[string]any{
		"analisis_id": ids[2], "pregunta": "Is the signal stable?",
	})
	if status != http.StatusOK || !strings.Contains(answer["respuesta"].(string), "AA:BB:CC:DD:EE:03") {
		t.Errorf("chat = %d %s", status, raw)
	}
	_, _, raw = do(t, httpServer.URL, http.MethodGet, "/api/chat/"+ids[2], user, nil)
	var history []map[string]any
	if err := json.Unmarshal(raw, &history); err != nil || len(history) != 1 {
		t.Errorf("history = %s (%v)", raw, err)
	}

	if status, _, _ := do(t, httpServer.URL, http.MethodDelete, "/api/analisis/"+ids[2], user, nil); status != http.StatusOK {
		t.Errorf("delete: status = %d", status)
	}

	_, stats, _ := do(t, httpServer.URL, http.MethodGet, "/api/estadisticas/global", admin, nil)
	if stats["total_analisis"] != float64(2) || stats["total_usuarios"] != float64(2) {
		t.Errorf("stats = %v", stats)
	}
}

func TestFault(t *testing.T) {
	server, httpServer, _ := newTestServer(t)
	token := login(t, httpServer.URL, "user@example.com", "user-password")

	server.SetFault(http.StatusServiceUnavailable)
	status, body, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil)
	if status != http.StatusServiceUnavailable || body["code"] != "503" {
		t.Errorf("faulted me = %d %v", status, body)
	}
	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Errorf("health during fault: status = %d", status)
	}

	server.SetFault(0)
	if status, _, _ := do(t, httpServer.URL, http.MethodGet, "/api/auth/me", token, nil); status != http.StatusOK {
		t.Errorf("after clearing fault: status = %d", status)
	}
}

func TestRequestsRecorded(t *testing.T) {
	server, httpServer, _ := newTestServer(t)
	request, _ := http.NewRequest(http.MethodGet, httpServer.URL+"/health", nil)
	request.Header.Set("X-Request-ID", "req-1")
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	response.Body.Close()

	requests := server.Requests()
	if len(requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(requests))
	}
	if requests[0].Path != "/health" || requests[0].Header.Get("X-Request-ID") != "req-1" {
		t.Errorf("recorded = %+v", requests[0])
	}
}
