// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gwdash/gwdash/lib/clock"
)

// Config configures a [Server].
type Config struct {
	// SigningKey signs issued tokens. Default: a random key.
	SigningKey []byte

	// TokenTTL is the lifetime of issued tokens. Default: 24h.
	TokenTTL time.Duration

	// Clock drives token issue and expiry times. Default: clock.Real().
	Clock clock.Clock

	// Logger records each request. Default: slog.Default().
	Logger *slog.Logger
}

// User is a stored account.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	LastAccess   *time.Time
	passwordHash []byte
}

type analysis struct {
	ID            string
	UserID        string
	MACAddress    string
	Status        string
	Report        string
	TechnicalData map[string]any
	CreatedAt     time.Time
}

type chatMessage struct {
	ID         string
	AnalysisID string
	UserID     string
	Question   string
	Answer     string
	CreatedAt  time.Time
}

// RecordedRequest is the part of an inbound request tests inspect.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

// Server is the fake service. Safe for concurrent use.
type Server struct {
	signingKey []byte
	tokenTTL   time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	mux        *http.ServeMux

	mu         sync.Mutex
	users      map[string]*User
	analyses   []*analysis
	messages   []*chatMessage
	generation int
	fault      int
	delay      time.Duration
	requests   []RecordedRequest
}

// maxRecordedRequests bounds the request log.
const maxRecordedRequests = 256

// NewServer returns an empty server. Add accounts with AddUser.
func NewServer(config Config) *Server {
	if len(config.SigningKey) == 0 {
		config.SigningKey = []byte(uuid.NewString() + uuid.NewString())
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		signingKey: config.SigningKey,
		tokenTTL:   config.TokenTTL,
		clock:      config.Clock,
		logger:     config.Logger,
		users:      make(map[string]*User),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", s.authenticated(s.handleMe))
	mux.Handle("POST /api/auth/logout", s.authenticated(s.handleLogout))

	mux.Handle("GET /api/usuarios", s.admin(s.handleListUsers))
	mux.Handle("POST /api/usuarios", s.admin(s.handleCreateUser))
	mux.Handle("PUT /api/usuarios/{id}", s.admin(s.handleUpdateUser))
	mux.Handle("DELETE /api/usuarios/{id}", s.admin(s.handleDeleteUser))

	mux.Handle("POST /api/analisis", s.authenticated(s.handleCreateAnalysis))
	mux.Handle("GET /api/analisis", s.authenticated(s.handleListAnalyses))
	mux.Handle("GET /api/analisis/{id}", s.authenticated(s.handleGetAnalysis))
	mux.Handle("DELETE /api/analisis/{id}", s.authenticated(s.handleDeleteAnalysis))

	mux.Handle("POST /api/chat", s.authenticated(s.handleChat))
	mux.Handle("GET /api/chat/{id}", s.authenticated(s.handleChatHistory))

	mux.Handle("GET /api/estadisticas/global", s.admin(s.handleGlobalStats))
	s.mux = mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: request.Method,
		Path:   request.URL.Path,
		Header: request.Header.Clone(),
	})
	if len(s.requests) > maxRecordedRequests {
		s.requests = s.requests[len(s.requests)-maxRecordedRequests:]
	}
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-request.Context().Done():
			return
		}
	}

	s.logger.Debug("mock api request",
		"method", request.Method,
		"path", request.URL.Path,
		"request_id", request.Header.Get("X-Request-ID"),
	)
	s.mux.ServeHTTP(writer, request)
}

// AddUser creates an account and returns its id.
func (s *Server) AddUser(email, password, name, role string, active bool) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("apitest: hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmailLocked(email) != nil {
		return "", fmt.Errorf("apitest: user %s already exists", email)
	}
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		Active:       active,
		CreatedAt:    s.clock.Now().UTC(),
		passwordHash: hash,
	}
	s.users[user.ID] = user
	return user.ID, nil
}

// IssueToken returns a valid token for an existing user without a
// login round trip.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.userByEmailLocked(email)
	if user == nil {
		return "", fmt.Errorf("apitest: no user %s", email)
	}
	return s.issueLocked(user)
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// SetFault makes every route except /health and login answer with
// status. Zero clears the fault.
func (s *Server) SetFault(status int) {
	s.mu.Lock()
	s.fault = status
	s.mu.Unlock()
}

// SetDelay stalls every response by delay. Zero clears it.
func (s *Server) SetDelay(delay time.Duration) {
	s.mu.Lock()
	s.delay = delay
	s.mu.Unlock()
}

// Requests returns the recorded requests, oldest first.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// claims are the JWT claims the service issues: subject is the email.
type claims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"rol"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) issueLocked(user *User) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:     user.ID,
		Role:       user.Role,
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("apitest: signing token: %w", err)
	}
	return signed, nil
}

var errInvalidToken = errors.New("could not validate credentials")

// verify parses a bearer token and returns the user it names.
func (s *Server) verify(raw string) (*User, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if parsed.Generation != s.generation {
		return nil, errInvalidToken
	}
	user, ok := s.users[parsed.UserID]
	if !ok || parsed.UserID == "" || parsed.Subject == "" {
		return nil, errors.New("user not found")
	}
	return user, nil
}

type userHandler func(writer http.ResponseWriter, request *http.Request, user *User)

func (s *Server) authenticated(next userHandler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if status := s.currentFault(); status != 0 {
			writeError(writer, status, http.StatusText(status))
			return
		}

		raw, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writer.Header().Set("WWW-Authenticate", "Bearer")
			writeError(writer, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.verify(raw)
		if err != nil {
			writer.Header().Set("WWW-Authenticate", "Bearer")
			writeError(writer, http.StatusUnauthorized, err.Error())
			return
		}

		s.mu.Lock()
		active := user.Active
		if active {
			now := s.clock.Now().UTC()
			user.LastAccess = &now
		}
		snapshot := *user
		s.mu.Unlock()
		if !active {
			writeError(writer, http.StatusForbidden, "inactive user")
			return
		}

		next(writer, request, &snapshot)
	})
}

func (s *Server) admin(next userHandler) http.Handler {
	return s.authenticated(func(writer http.ResponseWriter, request *http.Request, user *User) {
		if user.Role != "admin" {
			writeError(writer, http.StatusForbidden, "administrator role required")
			return
		}
		next(writer, request, user)
	})
}

func (s *Server) currentFault() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Server) userByEmailLocked(email string) *User {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user
		}
	}
	return nil
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

// writeError writes the service's error envelope.
func writeError(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]any{
		"error":  message,
		"detail": nil,
		"code":   strconv.Itoa(status),
	})
}

// writeValidationError writes the framework-level validation envelope.
func writeValidationError(writer http.ResponseWriter, message string) {
	writeJSON(writer, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]string{{"msg": message}},
	})
}

func decodeBody(writer http.ResponseWriter, request *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, 1<<20)).Decode(v); err != nil {
		writeValidationError(writer, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// formatTime renders times the way the service does: naive ISO-8601.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func userJSON(user *User) map[string]any {
	var name any
	if user.Name != "" {
		name = user.Name
	}
	return map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"nombre":        name,
		"rol":           user.Role,
		"activo":        user.Active,
		"created_at":    formatTime(user.CreatedAt),
		"updated_at":    formatOptionalTime(user.UpdatedAt),
		"ultimo_acceso": formatOptionalTime(user.LastAccess),
	}
}
