// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gwdash/gwdash/lib/kvstore"
	"github.com/gwdash/gwdash/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity(email string, role Role) Identity {
	updated := ParseTimestamp("2024-03-05T08:30:00.123456")
	return Identity{
		ID:        "6f1c9a3e-0000-4000-8000-000000000001",
		Email:     email,
		Name:      "Operator",
		Role:      role,
		Active:    true,
		CreatedAt: ParseTimestamp("2024-01-01T10:00:00"),
		UpdatedAt: &updated,
	}
}

func newTestStore(t *testing.T, storage Storage) *Store {
	t.Helper()
	store := NewStore(Config{Storage: storage, Logger: discardLogger()})
	t.Cleanup(store.Close)
	return store
}

func TestNewStoreStartsAbsent(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())

	if _, ok := store.Credential(); ok {
		t.Error("Credential present on a new store")
	}
	if _, ok := store.Identity(); ok {
		t.Error("Identity present on a new store")
	}
	if store.IsAuthenticated() || store.IsElevated() {
		t.Error("new store reports authenticated or elevated")
	}
	if snapshot := store.Snapshot(); snapshot.Authenticated() || snapshot.Identity != nil {
		t.Errorf("Snapshot = %+v, want absent", snapshot)
	}
}

func TestLogin(t *testing.T) {
	storage := kvstore.NewMemory()
	store := newTestStore(t, storage)

	identity := testIdentity("admin@example.com", RoleElevated)
	if err := store.Login("token-1", identity); err != nil {
		t.Fatalf("Login: %v", err)
	}

	credential, ok := store.Credential()
	if !ok || credential != "token-1" {
		t.Errorf("Credential = %q, %v; want token-1, true", credential, ok)
	}
	current, ok := store.Identity()
	if !ok || !current.Equal(identity) {
		t.Errorf("Identity = %+v, want %+v", current, identity)
	}
	if !store.IsAuthenticated() {
		t.Error("IsAuthenticated = false after Login")
	}
	if !store.IsElevated() {
		t.Error("IsElevated = false for the elevated role")
	}

	if _, found, _ := storage.Get(context.Background(), DefaultKey); !found {
		t.Error("Login did not persist the session")
	}
}

func TestLoginStandardRole(t *testing.T) {
	store := newTestStore(t, nil)
	if err := store.Login("token", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !store.IsAuthenticated() || store.IsElevated() {
		t.Errorf("authenticated=%v elevated=%v, want true,false", store.IsAuthenticated(), store.IsElevated())
	}
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())
	if err := store.Login("token-a", testIdentity("a@example.com", RoleElevated)); err != nil {
		t.Fatal(err)
	}
	if err := store.Login("token-b", testIdentity("b@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}

	snapshot := store.Snapshot()
	if snapshot.Credential != "token-b" || snapshot.Identity.Email != "b@example.com" {
		t.Errorf("Snapshot = %q/%q, want token-b/b@example.com", snapshot.Credential, snapshot.Identity.Email)
	}
	if store.IsElevated() {
		t.Error("elevated role survived the replacing login")
	}
}

func TestLoginRejectsInvalidInput(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())
	if err := store.Login("token", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		credential string
		identity   Identity
	}{
		{"empty credential", "", testIdentity("other@example.com", RoleStandard)},
		{"empty email", "other-token", testIdentity("", RoleStandard)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := store.Login(test.credential, test.identity)
			if !errors.Is(err, ErrInvalidLogin) {
				t.Fatalf("Login error = %v, want ErrInvalidLogin", err)
			}
			if credential, _ := store.Credential(); credential != "token" {
				t.Errorf("state changed after rejected login: credential %q", credential)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	storage := kvstore.NewMemory()
	store := newTestStore(t, storage)
	if err := store.Login("token", testIdentity("user@example.com", RoleElevated)); err != nil {
		t.Fatal(err)
	}

	if !store.Logout() {
		t.Error("Logout reported no change for an active session")
	}
	if store.IsAuthenticated() || store.IsElevated() {
		t.Error("store still authenticated after Logout")
	}
	if _, ok := store.Identity(); ok {
		t.Error("Identity present after Logout")
	}
	if _, found, _ := storage.Get(context.Background(), DefaultKey); found {
		t.Error("persisted session survived Logout")
	}

	if store.Logout() {
		t.Error("second Logout reported a change")
	}
	if store.IsAuthenticated() {
		t.Error("second Logout changed the state")
	}
}

func TestLogoutWhenAbsent(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())
	if store.Logout() {
		t.Error("Logout on an absent store reported a change")
	}
	if store.IsAuthenticated() {
		t.Error("absent store became authenticated")
	}
}

func TestExpire(t *testing.T) {
	storage := kvstore.NewMemory()
	store := newTestStore(t, storage)
	if err := store.Login("current", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}

	if store.Expire("stale") {
		t.Error("Expire with a stale credential ended the session")
	}
	if store.Expire("") {
		t.Error("Expire with an empty credential ended the session")
	}
	if !store.IsAuthenticated() {
		t.Fatal("session ended by a non-matching Expire")
	}

	if !store.Expire("current") {
		t.Error("Expire with the current credential did not end the session")
	}
	if store.IsAuthenticated() {
		t.Error("store authenticated after Expire")
	}
	if _, found, _ := storage.Get(context.Background(), DefaultKey); found {
		t.Error("persisted session survived Expire")
	}
	if store.Expire("current") {
		t.Error("second Expire reported a change")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	storage := kvstore.NewMemory()
	identity := testIdentity("admin@example.com", RoleElevated)
	access := ParseTimestamp("2024-06-01")
	identity.LastAccess = &access

	first := newTestStore(t, storage)
	if err := first.Login("round-trip-token", identity); err != nil {
		t.Fatal(err)
	}

	second := newTestStore(t, storage)
	if err := second.Rehydrate(context.Background()); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	if !second.Snapshot().Equal(first.Snapshot()) {
		t.Errorf("rehydrated state %+v differs from %+v", second.Snapshot(), first.Snapshot())
	}
	if second.IsElevated() != first.IsElevated() || second.IsAuthenticated() != first.IsAuthenticated() {
		t.Error("derived flags differ after rehydration")
	}
	rehydrated, _ := second.Identity()
	if rehydrated.CreatedAt.String() != "2024-01-01T10:00:00" {
		t.Errorf("created_at = %q, want original text", rehydrated.CreatedAt.String())
	}
}

func TestPersistedLayout(t *testing.T) {
	storage := kvstore.NewMemory()
	store := newTestStore(t, storage)
	if err := store.Login("layout-token", testIdentity("admin@example.com", RoleElevated)); err != nil {
		t.Fatal(err)
	}

	data, _, _ := storage.Get(context.Background(), DefaultKey)
	var decoded struct {
		State struct {
			Token           string         `json:"token"`
			Usuario         map[string]any `json:"usuario"`
			IsAuthenticated bool           `json:"isAuthenticated"`
			IsAdmin         bool           `json:"isAdmin"`
		} `json:"state"`
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("persisted entry is not JSON: %v", err)
	}
	if decoded.State.Token != "layout-token" {
		t.Errorf("token = %q", decoded.State.Token)
	}
	if decoded.State.Usuario["email"] != "admin@example.com" || decoded.State.Usuario["rol"] != "admin" {
		t.Errorf("usuario = %v", decoded.State.Usuario)
	}
	if decoded.State.Usuario["created_at"] != "2024-01-01T10:00:00" {
		t.Errorf("created_at = %v, want original text", decoded.State.Usuario["created_at"])
	}
	if !decoded.State.IsAuthenticated || !decoded.State.IsAdmin {
		t.Error("derived flags not written")
	}
	if decoded.Version == nil || *decoded.Version != 0 {
		t.Errorf("version = %v, want 0", decoded.Version)
	}
}

func TestRehydrateRecomputesDerivedFlags(t *testing.T) {
	storage := kvstore.NewMemory()
	payload := `{"state":{"token":"t","usuario":{"id":"1","email":"u@example.com","rol":"user","activo":true,"created_at":"2024-01-01T00:00:00"},"isAuthenticated":false,"isAdmin":true},"version":0}`
	if err := storage.Set(context.Background(), DefaultKey, []byte(payload)); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, storage)
	if err := store.Rehydrate(context.Background()); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if !store.IsAuthenticated() {
		t.Error("stored isAuthenticated=false was trusted")
	}
	if store.IsElevated() {
		t.Error("stored isAdmin=true was trusted over rol=user")
	}
}

func TestRehydrateAbsent(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())
	if err := store.Rehydrate(context.Background()); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("authenticated after rehydrating nothing")
	}

	inMemoryOnly := newTestStore(t, nil)
	if err := inMemoryOnly.Rehydrate(context.Background()); err != nil {
		t.Fatalf("Rehydrate without storage: %v", err)
	}
}

func TestRehydrateLoggedOutEntry(t *testing.T) {
	storage := kvstore.NewMemory()
	payload := `{"state":{"token":null,"usuario":null,"isAuthenticated":false,"isAdmin":false},"version":0}`
	if err := storage.Set(context.Background(), DefaultKey, []byte(payload)); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, storage)
	if err := store.Rehydrate(context.Background()); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("logged-out entry rehydrated as authenticated")
	}
}

func TestRehydrateMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"state":`},
		{"wrong type", `{"state":{"token":42},"version":0}`},
		{"unknown version", `{"state":{"token":"t","usuario":{"email":"u@example.com","rol":"user"}},"version":7}`},
		{"token without identity", `{"state":{"token":"t","usuario":null},"version":0}`},
		{"identity without token", `{"state":{"token":null,"usuario":{"email":"u@example.com","rol":"user"}},"version":0}`},
		{"empty token", `{"state":{"token":"","usuario":{"email":"u@example.com","rol":"user"}},"version":0}`},
		{"identity without email", `{"state":{"token":"t","usuario":{"rol":"admin"}},"version":0}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			storage := kvstore.NewMemory()
			if err := storage.Set(context.Background(), DefaultKey, []byte(test.payload)); err != nil {
				t.Fatal(err)
			}

			var logs bytes.Buffer
			store := NewStore(Config{Storage: storage, Logger: slog.New(slog.NewTextHandler(&logs, nil))})
			defer store.Close()

			if err := store.Rehydrate(context.Background()); err != nil {
				t.Fatalf("Rehydrate = %v, want nil", err)
			}
			if store.IsAuthenticated() || store.IsElevated() {
				t.Error("malformed entry produced an authenticated state")
			}
			if _, found, _ := storage.Get(context.Background(), DefaultKey); found {
				t.Error("malformed entry was not removed")
			}
			if !strings.Contains(logs.String(), "malformed") {
				t.Errorf("no warning logged; logs: %s", logs.String())
			}
		})
	}
}

func TestRehydrateStorageFailure(t *testing.T) {
	storage := kvstore.NewMemory()
	storage.Fail(errors.New("device unavailable"))

	store := newTestStore(t, storage)
	if err := store.Rehydrate(context.Background()); err == nil {
		t.Fatal("Rehydrate returned nil for a storage failure")
	}
	if store.IsAuthenticated() {
		t.Error("authenticated after a failed rehydration")
	}
}

func TestLoginSurvivesPersistenceFailure(t *testing.T) {
	storage := kvstore.NewMemory()
	storage.Fail(errors.New("disk full"))

	store := newTestStore(t, storage)
	if err := store.Login("token", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatalf("Login = %v, want nil despite persistence failure", err)
	}
	if !store.IsAuthenticated() {
		t.Error("persistence failure rolled back the in-memory session")
	}
	if !store.Logout() {
		t.Error("Logout reported no change")
	}
}

func TestCredentialNeverLogged(t *testing.T) {
	var logs bytes.Buffer
	store := NewStore(Config{Storage: kvstore.NewMemory(), Logger: slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	defer store.Close()

	const credential = "eyJhbGciOiJIUzI1NiJ9.secret-payload.signature"
	if err := store.Login(credential, testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}
	store.Expire(credential)

	if strings.Contains(logs.String(), "secret-payload") {
		t.Fatalf("credential leaked into logs: %s", logs.String())
	}
	if !strings.Contains(logs.String(), Fingerprint(credential)) {
		t.Errorf("logs do not carry the credential fingerprint: %s", logs.String())
	}
}

func TestSnapshotsNeverTorn(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory())

	const writers = 4
	const iterations = 200
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for writer := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iteration := range iterations {
				name := fmt.Sprintf("w%d-%d", writer, iteration)
				role := RoleStandard
				if iteration%2 == 0 {
					role = RoleElevated
				}
				store.Login("token-"+name, testIdentity(name+"@example.com", role))
				if iteration%3 == 0 {
					store.Logout()
				}
			}
		}()
	}

	readerErrors := make(chan string, 1)
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snapshot := store.Snapshot()
				if snapshot.Identity == nil {
					if snapshot.Credential != "" {
						select {
						case readerErrors <- "credential without identity":
						default:
						}
					}
					continue
				}
				name := strings.TrimSuffix(snapshot.Identity.Email, "@example.com")
				if snapshot.Credential != "token-"+name {
					select {
					case readerErrors <- fmt.Sprintf("credential %q paired with %q", snapshot.Credential, snapshot.Identity.Email):
					default:
					}
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readers.Wait()

	select {
	case message := <-readerErrors:
		t.Fatal(message)
	default:
	}
}

func TestSubscribe(t *testing.T) {
	store := newTestStore(t, nil)
	changes, cancel := store.Subscribe()
	defer cancel()

	if err := store.Login("token", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}
	state := testutil.RequireReceive(t, changes, 5*time.Second, "waiting for login")
	if !state.Authenticated() {
		t.Error("login change not authenticated")
	}

	store.Logout()
	state = testutil.RequireReceive(t, changes, 5*time.Second, "waiting for logout")
	if state.Authenticated() {
		t.Error("logout change still authenticated")
	}

	store.Logout()
	testutil.RequireNoReceive(t, changes, 20*time.Millisecond, "no-op logout published a change")
}

func TestSubscribeLatestWins(t *testing.T) {
	store := newTestStore(t, nil)
	changes, cancel := store.Subscribe()
	defer cancel()

	for index := range 5 {
		if err := store.Login(fmt.Sprintf("token-%d", index), testIdentity("user@example.com", RoleStandard)); err != nil {
			t.Fatal(err)
		}
	}
	state := testutil.RequireReceive(t, changes, 5*time.Second, "waiting for latest")
	if state.Credential != "token-4" {
		t.Errorf("received %q, want the latest state token-4", state.Credential)
	}
	testutil.RequireNoReceive(t, changes, 20*time.Millisecond, "intermediate states delivered")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := newTestStore(t, nil)
	changes, cancel := store.Subscribe()
	cancel()
	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			t.Error("received a value after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	if err := store.Login("token", testIdentity("user@example.com", RoleStandard)); err != nil {
		t.Fatal(err)
	}
}
