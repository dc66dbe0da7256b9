// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"

	"github.com/gwdash/gwdash/session"
)

// LoginResponse is the body of a successful POST /api/auth/login.
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	User        session.Identity `json:"user"`
}

// Message is the generic acknowledgement body.
type Message struct {
	Message string          `json:"message"`
	Detail  string          `json:"detail,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CreateUserRequest is the body of POST /api/usuarios.
type CreateUserRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Name     string       `json:"nombre,omitempty"`
	Role     session.Role `json:"rol,omitempty"`
	Active   *bool        `json:"activo,omitempty"`
}

// UpdateUserRequest is the body of PUT /api/usuarios/{id}. Nil fields
// are left unchanged.
type UpdateUserRequest struct {
	Name     *string       `json:"nombre,omitempty"`
	Role     *session.Role `json:"rol,omitempty"`
	Active   *bool         `json:"activo,omitempty"`
	Password *string       `json:"password,omitempty"`
}

// AnalysisStatus is the lifecycle state of a gateway analysis.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pendiente"
	AnalysisProcessing AnalysisStatus = "procesando"
	AnalysisCompleted  AnalysisStatus = "completado"
	AnalysisFailed     AnalysisStatus = "error"
)

// Analysis is a gateway analysis summary, as listed.
type Analysis struct {
	ID         string            `json:"id"`
	UserID     string            `json:"usuario_id"`
	MACAddress string            `json:"mac_address"`
	Status     AnalysisStatus    `json:"estado"`
	Report     string            `json:"informe_ia,omitempty"`
	CreatedAt  session.Timestamp `json:"created_at"`
}

// AnalysisDetail is a full analysis with its technical data.
type AnalysisDetail struct {
	Analysis
	TechnicalData map[string]any `json:"datos_tecnicos"`
	UserEmail     string         `json:"usuario_email,omitempty"`
}

// CreateAnalysisRequest is the body of POST /api/analisis.
type CreateAnalysisRequest struct {
	MACAddress    string `json:"mac_address"`
	IncludeEvents bool   `json:"incluir_eventos"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	AnalysisID string `json:"analisis_id"`
	Question   string `json:"pregunta"`
}

// ChatMessage is one question and its answer.
type ChatMessage struct {
	ID        string            `json:"id"`
	Question  string            `json:"pregunta"`
	Answer    string            `json:"respuesta"`
	CreatedAt session.Timestamp `json:"created_at"`
}

// UserStats is one row of the top-users table.
type UserStats struct {
	UserID        string             `json:"usuario_id"`
	Email         string             `json:"email"`
	Name          *string            `json:"nombre"`
	TotalAnalyses int                `json:"total_analisis"`
	LastAnalysis  *session.Timestamp `json:"ultimo_analisis"`
	LastAccess    *session.Timestamp `json:"ultimo_acceso"`
}

// GlobalStats is the body of GET /api/estadisticas/global.
type GlobalStats struct {
	TotalUsers       int         `json:"total_usuarios"`
	ActiveUsers      int         `json:"usuarios_activos"`
	TotalAnalyses    int         `json:"total_analisis"`
	AnalysesToday    int         `json:"analisis_hoy"`
	AnalysesThisWeek int         `json:"analisis_semana"`
	TopUsers         []UserStats `json:"top_usuarios"`
}

// Health is the body of GET /health.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}
