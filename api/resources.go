// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gwdash/gwdash/session"
)

// UsersService manages dashboard users. The server requires the
// elevated role; other sessions get KindForbidden.
type UsersService struct {
	client *Client
}

// List returns every user.
func (s *UsersService) List(ctx context.Context) ([]session.Identity, error) {
	var users []session.Identity
	err := s.client.call(ctx, Request{Path: "/api/usuarios"}, &users)
	return users, err
}

// Create creates a user.
func (s *UsersService) Create(ctx context.Context, request CreateUserRequest) (session.Identity, error) {
	var user session.Identity
	err := s.client.call(ctx, Request{Method: http.MethodPost, Path: "/api/usuarios", Body: request}, &user)
	return user, err
}

// Update changes the non-nil fields of request on user id.
func (s *UsersService) Update(ctx context.Context, id string, request UpdateUserRequest) (session.Identity, error) {
	var user session.Identity
	err := s.client.call(ctx, Request{Method: http.MethodPut, Path: "/api/usuarios/" + escapeID(id), Body: request}, &user)
	return user, err
}

// Delete removes user id.
func (s *UsersService) Delete(ctx context.Context, id string) (Message, error) {
	var message Message
	err := s.client.call(ctx, Request{Method: http.MethodDelete, Path: "/api/usuarios/" + escapeID(id)}, &message)
	return message, err
}

// AnalysesService runs and retrieves gateway analyses owned by the
// current user.
type AnalysesService struct {
	client *Client
}

// Create runs a new analysis for a gateway MAC address.
func (s *AnalysesService) Create(ctx context.Context, request CreateAnalysisRequest) (AnalysisDetail, error) {
	var analysis AnalysisDetail
	err := s.client.call(ctx, Request{Method: http.MethodPost, Path: "/api/analisis", Body: request}, &analysis)
	return analysis, err
}

// ListOptions pages a listing. Zero values use the server defaults.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) query() url.Values {
	query := url.Values{}
	if o.Limit > 0 {
		query.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		query.Set("offset", strconv.Itoa(o.Offset))
	}
	return query
}

// List returns analyses newest first.
func (s *AnalysesService) List(ctx context.Context, options ListOptions) ([]Analysis, error) {
	var analyses []Analysis
	err := s.client.call(ctx, Request{Path: "/api/analisis", Query: options.query()}, &analyses)
	return analyses, err
}

// Get returns one analysis with its technical data.
func (s *AnalysesService) Get(ctx context.Context, id string) (AnalysisDetail, error) {
	var analysis AnalysisDetail
	err := s.client.call(ctx, Request{Path: "/api/analisis/" + escapeID(id)}, &analysis)
	return analysis, err
}

// Delete removes an analysis.
func (s *AnalysesService) Delete(ctx context.Context, id string) (Message, error) {
	var message Message
	err := s.client.call(ctx, Request{Method: http.MethodDelete, Path: "/api/analisis/" + escapeID(id)}, &message)
	return message, err
}

// ChatService asks questions about an analysis.
type ChatService struct {
	client *Client
}

// Send asks a question about an analysis and returns the answer.
func (s *ChatService) Send(ctx context.Context, request ChatRequest) (ChatMessage, error) {
	if request.Question == "" {
		return ChatMessage{}, fmt.Errorf("api: chat question is empty")
	}
	var message ChatMessage
	err := s.client.call(ctx, Request{Method: http.MethodPost, Path: "/api/chat", Body: request}, &message)
	return message, err
}

// History returns the conversation about an analysis, oldest first.
func (s *ChatService) History(ctx context.Context, analysisID string) ([]ChatMessage, error) {
	var messages []ChatMessage
	err := s.client.call(ctx, Request{Path: "/api/chat/" + escapeID(analysisID)}, &messages)
	return messages, err
}

// StatsService reads aggregate statistics. Elevated role only.
type StatsService struct {
	client *Client
}

// Global returns system-wide statistics.
func (s *StatsService) Global(ctx context.Context) (GlobalStats, error) {
	var stats GlobalStats
	err := s.client.call(ctx, Request{Path: "/api/estadisticas/global"}, &stats)
	return stats, err
}

func escapeID(id string) string {
	return url.PathEscape(id)
}
