// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package apitest

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": formatTime(s.clock.Now()),
	})
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(writer, request, &body) {
		return
	}
	if body.Email == "" || body.Password == "" {
		writeValidationError(writer, "email and password are required")
		return
	}

	s.mu.Lock()
	user := s.userByEmailLocked(body.Email)
	var hash []byte
	if user != nil {
		hash = user.passwordHash
	}
	s.mu.Unlock()

	if user == nil || bcrypt.CompareHashAndPassword(hash, []byte(body.Password)) != nil {
		writer.Header().Set("WWW-Authenticate", "Bearer")
		writeError(writer, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	s.mu.Lock()
	if !user.Active {
		s.mu.Unlock()
		writeError(writer, http.StatusForbidden, "inactive user")
		return
	}
	now := s.clock.Now().UTC()
	user.LastAccess = &now
	token, err := s.issueLocked(user)
	payload := userJSON(user)
	s.mu.Unlock()
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(writer, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.tokenTTL.Seconds()),
		"user":         payload,
	})
}

func (s *Server) handleMe(writer http.ResponseWriter, _ *http.Request, user *User) {
	writeJSON(writer, http.StatusOK, userJSON(user))
}

func (s *Server) handleLogout(writer http.ResponseWriter, _ *http.Request, _ *User) {
	writeJSON(writer, http.StatusOK, map[string]any{
		"message": "session closed",
		"detail":  "token invalidated",
	})
}

func (s *Server) handleListUsers(writer http.ResponseWriter, _ *http.Request, _ *User) {
	s.mu.Lock()
	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b *User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	payload := make([]map[string]any, 0, len(users))
	for _, user := range users {
		payload = append(payload, userJSON(user))
	}
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, payload)
}

func (s *Server) handleCreateUser(writer http.ResponseWriter, request *http.Request, _ *User) {
	var body struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     string  `json:"nombre"`
		Role     string  `json:"rol"`
		Active   *bool   `json:"activo"`
	}
	if !decodeBody(writer, request, &body) {
		return
	}
	if !strings.Contains(body.Email, "@") {
		writeValidationError(writer, "value is not a valid email address")
		return
	}
	if len(body.Password) < 8 {
		writeValidationError(writer, "password must have at least 8 characters")
		return
	}
	if body.Role == "" {
		body.Role = "user"
	}
	if body.Role != "user" && body.Role != "admin" {
		writeValidationError(writer, "rol must be 'user' or 'admin'")
		return
	}
	active := body.Active == nil || *body.Active

	id, err := s.AddUser(body.Email, body.Password, body.Name, body.Role, active)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "email already registered")
		return
	}
	s.mu.Lock()
	payload := userJSON(s.users[id])
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, payload)
}

func (s *Server) handleUpdateUser(writer http.ResponseWriter, request *http.Request, _ *User) {
	var body struct {
		Name     *string `json:"nombre"`
		Role     *string `json:"rol"`
		Active   *bool   `json:"activo"`
		Password *string `json:"password"`
	}
	if !decodeBody(writer, request, &body) {
		return
	}
	if body.Name == nil && body.Role == nil && body.Active == nil && body.Password == nil {
		writeError(writer, http.StatusBadRequest, "no fields to update")
		return
	}
	if body.Role != nil && *body.Role != "user" && *body.Role != "admin" {
		writeValidationError(writer, "rol must be 'user' or 'admin'")
		return
	}
	var hash []byte
	if body.Password != nil {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.MinCost); err != nil {
			writeError(writer, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[request.PathValue("id")]
	if !ok {
		writeError(writer, http.StatusNotFound, "user not found")
		return
	}
	if body.Name != nil {
		user.Name = *body.Name
	}
	if body.Role != nil {
		user.Role = *body.Role
	}
	if body.Active != nil {
		user.Active = *body.Active
	}
	if hash != nil {
		user.passwordHash = hash
	}
	now := s.clock.Now().UTC()
	user.UpdatedAt = &now
	writeJSON(writer, http.StatusOK, userJSON(user))
}

func (s *Server) handleDeleteUser(writer http.ResponseWriter, request *http.Request, caller *User) {
	id := request.PathValue("id")
	if id == caller.ID {
		writeError(writer, http.StatusBadRequest, "you cannot delete your own account")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeError(writer, http.StatusNotFound, "user not found")
		return
	}
	delete(s.users, id)
	writeJSON(writer, http.StatusOK, map[string]any{"message": "user deleted"})
}

func (s *Server) handleCreateAnalysis(writer http.ResponseWriter, request *http.Request, user *User) {
	var body struct {
		MACAddress    string `json:"mac_address"`
		IncludeEvents *bool  `json:"incluir_eventos"`
	}
	if !decodeBody(writer, request, &body) {
		return
	}
	if length := len(body.MACAddress); length < 12 || length > 17 {
		writeValidationError(writer, "mac_address must have between 12 and 17 characters")
		return
	}
	includeEvents := body.IncludeEvents == nil || *body.IncludeEvents

	now := s.clock.Now().UTC()
	technical := map[string]any{
		"mac_address": body.MACAddress,
		"estado":      "online",
		"senal_dbm":   -61,
		"uptime_s":    86400,
	}
	if includeEvents {
		technical["eventos"] = []map[string]any{
			{"tipo": "reboot", "timestamp": formatTime(now.Add(-6 * time.Hour))},
			{"tipo": "firmware_check", "timestamp": formatTime(now.Add(-time.Hour))},
		}
	}
	record := &analysis{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		MACAddress:    body.MACAddress,
		Status:        "completado",
		Report:        fmt.Sprintf("Gateway %s is online with stable signal.", body.MACAddress),
		TechnicalData: technical,
		CreatedAt:     now,
	}

	s.mu.Lock()
	s.analyses = append(s.analyses, record)
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, analysisDetailJSON(record, user.Email))
}

func (s *Server) handleListAnalyses(writer http.ResponseWriter, request *http.Request, user *User) {
	limit, offset := 50, 0
	query := request.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeValidationError(writer, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeValidationError(writer, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	s.mu.Lock()
	var owned []*analysis
	for index := len(s.analyses) - 1; index >= 0; index-- {
		if s.analyses[index].UserID == user.ID {
			owned = append(owned, s.analyses[index])
		}
	}
	s.mu.Unlock()

	payload := make([]map[string]any, 0)
	for index := offset; index < len(owned) && index < offset+limit; index++ {
		payload = append(payload, analysisSummaryJSON(owned[index]))
	}
	writeJSON(writer, http.StatusOK, payload)
}

func (s *Server) findAnalysisLocked(id, userID string) int {
	return slices.IndexFunc(s.analyses, func(candidate *analysis) bool {
		return candidate.ID == id && candidate.UserID == userID
	})
}

func (s *Server) handleGetAnalysis(writer http.ResponseWriter, request *http.Request, user *User) {
	s.mu.Lock()
	index := s.findAnalysisLocked(request.PathValue("id"), user.ID)
	var record *analysis
	if index >= 0 {
		record = s.analyses[index]
	}
	s.mu.Unlock()
	if record == nil {
		writeError(writer, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(writer, http.StatusOK, analysisDetailJSON(record, user.Email))
}

func (s *Server) handleDeleteAnalysis(writer http.ResponseWriter, request *http.Request, user *User) {
	s.mu.Lock()
	index := s.findAnalysisLocked(request.PathValue("id"), user.ID)
	if index >= 0 {
		s.analyses = slices.Delete(s.analyses, index, index+1)
	}
	s.mu.Unlock()
	if index < 0 {
		writeError(writer, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{"message": "analysis deleted"})
}

func (s *Server) handleChat(writer http.ResponseWriter, request *http.Request, user *User) {
	var body struct {
		AnalysisID string `json:"analisis_id"`
		Question   string `json:"pregunta"`
	}
	if !decodeBody(writer, request, &body) {
		return
	}
	if body.Question == "" || len(body.Question) > 1000 {
		writeValidationError(writer, "pregunta must have between 1 and 1000 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.findAnalysisLocked(body.AnalysisID, user.ID)
	if index < 0 {
		writeError(writer, http.StatusNotFound, "analysis not found")
		return
	}
	message := &chatMessage{
		ID:         uuid.NewString(),
		AnalysisID: body.AnalysisID,
		UserID:     user.ID,
		Question:   body.Question,
		Answer:     fmt.Sprintf("Gateway %s: no anomalies related to %q.", s.analyses[index].MACAddress, body.Question),
		CreatedAt:  s.clock.Now().UTC(),
	}
	s.messages = append(s.messages, message)
	writeJSON(writer, http.StatusOK, chatMessageJSON(message))
}

func (s *Server) handleChatHistory(writer http.ResponseWriter, request *http.Request, user *User) {
	analysisID := request.PathValue("id")
	s.mu.Lock()
	payload := make([]map[string]any, 0)
	for _, message := range s.messages {
		if message.AnalysisID == analysisID && message.UserID == user.ID {
			payload = append(payload, chatMessageJSON(message))
		}
	}
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, payload)
}

func (s *Server) handleGlobalStats(writer http.ResponseWriter, _ *http.Request, _ *User) {
	now := s.clock.Now().UTC()
	today := now.Format(time.DateOnly)
	weekAgo := now.AddDate(0, 0, -7)

	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, user := range s.users {
		if user.Active {
			active++
		}
	}
	counts := make(map[string]int)
	latest := make(map[string]time.Time)
	analysesToday, analysesWeek := 0, 0
	for _, record := range s.analyses {
		counts[record.UserID]++
		if record.CreatedAt.After(latest[record.UserID]) {
			latest[record.UserID] = record.CreatedAt
		}
		if record.CreatedAt.Format(time.DateOnly) == today {
			analysesToday++
		}
		if record.CreatedAt.After(weekAgo) {
			analysesWeek++
		}
	}

	top := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		top = append(top, user)
	}
	slices.SortFunc(top, func(a, b *User) int {
		if difference := counts[b.ID] - counts[a.ID]; difference != 0 {
			return difference
		}
		return strings.Compare(a.Email, b.Email)
	})
	if len(top) > 5 {
		top = top[:5]
	}
	rows := make([]map[string]any, 0, len(top))
	for _, user := range top {
		var name, lastAnalysis any
		if user.Name != "" {
			name = user.Name
		}
		if when, ok := latest[user.ID]; ok {
			lastAnalysis = formatTime(when)
		}
		rows = append(rows, map[string]any{
			"usuario_id":      user.ID,
			"email":           user.Email,
			"nombre":          name,
			"total_analisis":  counts[user.ID],
			"ultimo_analisis": lastAnalysis,
			"ultimo_acceso":   formatOptionalTime(user.LastAccess),
		})
	}

	writeJSON(writer, http.StatusOK, map[string]any{
		"total_usuarios":   len(s.users),
		"usuarios_activos": active,
		"total_analisis":   len(s.analyses),
		"analisis_hoy":     analysesToday,
		"analisis_semana":  analysesWeek,
		"top_usuarios":     rows,
	})
}

func analysisSummaryJSON(record *analysis) map[string]any {
	return map[string]any{
		"id":          record.ID,
		"usuario_id":  record.UserID,
		"mac_address": record.MACAddress,
		"estado":      record.Status,
		"created_at":  formatTime(record.CreatedAt),
	}
}

func analysisDetailJSON(record *analysis, email string) map[string]any {
	payload := analysisSummaryJSON(record)
	payload["informe_ia"] = record.Report
	payload["datos_tecnicos"] = record.TechnicalData
	payload["usuario_email"] = email
	return payload
}

func chatMessageJSON(message *chatMessage) map[string]any {
	return map[string]any{
		"id":         message.ID,
		"pregunta":   message.Question,
		"respuesta":  message.Answer,
		"created_at": formatTime(message.CreatedAt),
	}
}
