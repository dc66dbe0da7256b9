// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gwdash/gwdash/lib/apitest"
	"github.com/gwdash/gwdash/lib/secret"
	"github.com/gwdash/gwdash/session"
)

func TestNewClientValidation(t *testing.T) {
	store := session.NewStore(session.Config{Logger: discardLogger()})
	t.Cleanup(store.Close)

	tests := []struct {
		name   string
		config Config
	}{
		{"no session", Config{BaseURL: "http://localhost:8000"}},
		{"no base url", Config{Session: store}},
		{"relative base url", Config{Session: store, BaseURL: "localhost:8000/api"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewClient(test.config); err == nil {
				t.Error("NewClient succeeded")
			}
		})
	}
}

// backend is a fake service with one standard and one elevated account.
type backend struct {
	server *apitest.Server
	h      *harness
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	server := apitest.NewServer(apitest.Config{Logger: discardLogger()})
	if _, err := server.AddUser("admin@example.com", "admin-password", "Admin", "admin", true); err != nil {
		t.Fatal(err)
	}
	if _, err := server.AddUser("user@example.com", "user-password", "User", "user", true); err != nil {
		t.Fatal(err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	return &backend{server: server, h: newHarnessAt(t, httpServer.URL)}
}

func (b *backend) login(t *testing.T, email, password string) *LoginResponse {
	t.Helper()
	buffer, err := secret.NewFromString(password)
	if err != nil {
		t.Fatal(err)
	}
	defer buffer.Close()
	response, err := b.h.client.Login(context.Background(), email, buffer)
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return response
}

func TestLoginStartsSession(t *testing.T) {
	b := newBackend(t)
	response := b.login(t, "admin@example.com", "admin-password")

	if response.TokenType != "bearer" || response.ExpiresIn <= 0 {
		t.Errorf("response = %+v", response)
	}
	credential, ok := b.h.store.Credential()
	if !ok || credential != response.AccessToken {
		t.Errorf("session credential = %q, want the issued token", credential)
	}
	if !b.h.store.IsElevated() {
		t.Error("admin session not elevated")
	}
	identity, _ := b.h.store.Identity()
	if identity.Email != "admin@example.com" || identity.ID == "" || identity.CreatedAt.IsZero() {
		t.Errorf("identity = %+v", identity)
	}
	if _, found, _ := b.h.storage.Get(context.Background(), session.DefaultKey); !found {
		t.Error("session not persisted after login")
	}
}

func TestLoginWrongPasswordKeepsSession(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")
	before, _ := b.h.store.Credential()

	buffer, _ := secret.NewFromString("wrong-password")
	defer buffer.Close()
	_, err := b.h.client.Login(context.Background(), "user@example.com", buffer)
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if after, _ := b.h.store.Credential(); after != before {
		t.Error("failed login replaced the session")
	}
	if n := b.h.notifier.all(); len(n) != 0 {
		t.Errorf("notifications = %+v, want none", n)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	b := newBackend(t)
	if _, err := b.h.client.Login(context.Background(), "", nil); err == nil {
		t.Error("Login with no credentials succeeded")
	}
	if requests := b.server.Requests(); len(requests) != 0 {
		t.Errorf("Login with no credentials sent %d requests", len(requests))
	}
}

func TestVerify(t *testing.T) {
	b := newBackend(t)

	if _, err := b.h.client.Verify(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify without session: err = %v, want ErrUnauthorized", err)
	}
	if requests := b.server.Requests(); len(requests) != 0 {
		t.Errorf("Verify without session sent %d requests", len(requests))
	}

	b.login(t, "user@example.com", "user-password")
	identity, err := b.h.client.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Email != "user@example.com" || identity.Elevated() {
		t.Errorf("identity = %+v", identity)
	}
}

func TestRevokedSessionExpiresOnNextRequest(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")

	if _, err := b.h.client.Analyses.Create(context.Background(), CreateAnalysisRequest{MACAddress: "AA:BB:CC:DD:EE:FF"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	b.server.RevokeTokens()

	_, err := b.h.client.Analyses.List(context.Background(), ListOptions{})
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("List after revoke: err = %v, want unauthorized", err)
	}
	if b.h.store.IsAuthenticated() {
		t.Error("session survived a revoked token")
	}
	if routes := b.h.navigator.all(); len(routes) != 1 || routes[0] != DefaultEntryRoute {
		t.Errorf("navigations = %v", routes)
	}
	if _, found, _ := b.h.storage.Get(context.Background(), session.DefaultKey); found {
		t.Error("persisted session survived expiry")
	}

	// The next request goes out without a credential: it is sent back
	// to the entry route again, but there is no session left to expire.
	_, err = b.h.client.Analyses.List(context.Background(), ListOptions{})
	if !IsKind(err, KindUnauthorized) {
		t.Errorf("second List: err = %v", err)
	}
	if routes := b.h.navigator.all(); len(routes) != 2 {
		t.Errorf("navigations after second request = %d, want 2", len(routes))
	}
	if n := b.h.notifier.all(); len(n) != 1 {
		t.Errorf("notifications after second request = %d, want 1", len(n))
	}
}

func TestAnalysesAndChat(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")
	ctx := context.Background()

	created, err := b.h.client.Analyses.Create(ctx, CreateAnalysisRequest{MACAddress: "AA:BB:CC:DD:EE:01", IncludeEvents: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != AnalysisCompleted || created.TechnicalData["mac_address"] != "AA:BB:CC:DD:EE:01" {
		t.Errorf("created = %+v", created)
	}
	if created.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
	if _, err := b.h.client.Analyses.Create(ctx, CreateAnalysisRequest{MACAddress: "AA:BB:CC:DD:EE:02"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := b.h.client.Analyses.List(ctx, ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].MACAddress != "AA:BB:CC:DD:EE:02" {
		t.Errorf("listed = %+v, want the newest analysis only", listed)
	}

	fetched, err := b.h.client.Analyses.Get(ctx, created.ID)
	if err != nil || fetched.ID != created.ID || fetched.UserEmail != "user@example.com" {
		t.Errorf("Get = %+v, %v", fetched, err)
	}

	answer, err := b.h.client.Chat.Send(ctx, ChatRequest{AnalysisID: created.ID, Question: "Any reboots?"})
	if err != nil || answer.Answer == "" {
		t.Fatalf("Send = %+v, %v", answer, err)
	}
	history, err := b.h.client.Chat.History(ctx, created.ID)
	if err != nil || len(history) != 1 || history[0].Question != "Any reboots?" {
		t.Errorf("History = %+v, %v", history, err)
	}
	if _, err := b.h.client.Chat.Send(ctx, ChatRequest{AnalysisID: created.ID}); err == nil {
		t.Error("Send with an empty question succeeded")
	}

	if _, err := b.h.client.Analyses.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = b.h.client.Analyses.Get(ctx, created.ID)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindClientError || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Get after delete: err = %v, want 404 client error", err)
	}
	if !b.h.store.IsAuthenticated() {
		t.Error("404 ended the session")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")

	_, err := b.h.client.Analyses.Create(context.Background(), CreateAnalysisRequest{MACAddress: "AA"})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422", err)
	}
	if apiErr.Message != "mac_address must have between 12 and 17 characters" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestStandardUserForbiddenFromAdministration(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")

	_, err := b.h.client.Users.List(context.Background())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Users.List: err = %v, want forbidden", err)
	}
	_, err = b.h.client.Stats.Global(context.Background())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Stats.Global: err = %v, want forbidden", err)
	}
	if !b.h.store.IsAuthenticated() {
		t.Error("403 ended the session")
	}
	if n := b.h.notifier.all(); len(n) != 2 {
		t.Errorf("notifications = %d, want 2", len(n))
	}
}

func TestUserAdministration(t *testing.T) {
	b := newBackend(t)
	b.login(t, "admin@example.com", "admin-password")
	ctx := context.Background()

	created, err := b.h.client.Users.Create(ctx, CreateUserRequest{
		Email:    "tech@example.com",
		Password: "technician",
		Name:     "Tech",
		Role:     session.RoleStandard,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Role != session.RoleStandard || !created.Active || created.DisplayName() != "Tech" {
		t.Errorf("created = %+v", created)
	}

	elevated := session.RoleElevated
	updated, err := b.h.client.Users.Update(ctx, created.ID, UpdateUserRequest{Role: &elevated})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Elevated() || updated.UpdatedAt == nil {
		t.Errorf("updated = %+v", updated)
	}

	users, err := b.h.client.Users.List(ctx)
	if err != nil || len(users) != 3 {
		t.Errorf("List = %d users, %v", len(users), err)
	}

	stats, err := b.h.client.Stats.Global(ctx)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if stats.TotalUsers != 3 || stats.ActiveUsers != 3 || len(stats.TopUsers) != 3 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := b.h.client.Users.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestLogout(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")

	if err := b.h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if b.h.store.IsAuthenticated() {
		t.Error("session active after Logout")
	}
	if routes := b.h.navigator.all(); len(routes) != 0 {
		t.Errorf("explicit logout navigated: %v", routes)
	}
}

func TestLogoutWithDeadCredential(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")
	b.server.RevokeTokens()

	if err := b.h.client.Logout(context.Background()); err != nil {
		t.Errorf("Logout with a revoked token: %v", err)
	}
	if b.h.store.IsAuthenticated() {
		t.Error("session active after Logout")
	}
}

func TestLogoutWhileServerDown(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")
	b.server.SetFault(http.StatusServiceUnavailable)

	err := b.h.client.Logout(context.Background())
	if !IsKind(err, KindServerError) {
		t.Errorf("err = %v, want server error", err)
	}
	if b.h.store.IsAuthenticated() {
		t.Error("local session kept after a failed server logout")
	}
}

func TestHealthIsAnonymous(t *testing.T) {
	b := newBackend(t)
	b.login(t, "user@example.com", "user-password")

	health, err := b.h.client.Health(context.Background())
	if err != nil || health.Status != "healthy" {
		t.Fatalf("Health = %+v, %v", health, err)
	}
	requests := b.server.Requests()
	last := requests[len(requests)-1]
	if last.Path != "/health" || last.Header.Get("Authorization") != "" {
		t.Errorf("health request = %+v", last)
	}
}

func TestSlowServerTimesOut(t *testing.T) {
	server := apitest.NewServer(apitest.Config{Logger: discardLogger()})
	server.AddUser("user@example.com", "user-password", "", "user", true)
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	h := newHarnessAt(t, httpServer.URL, func(config *Config) {
		config.Timeout = 50 * time.Millisecond
	})
	token, err := server.IssueToken("user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	h.login(t, token)

	server.SetDelay(time.Second)
	_, err = h.client.Analyses.List(context.Background(), ListOptions{})
	if !IsKind(err, KindNetworkError) {
		t.Errorf("err = %v, want network error", err)
	}
	if !h.store.IsAuthenticated() {
		t.Error("timeout ended the session")
	}
}
