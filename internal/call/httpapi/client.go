// Package httpapi implements call.Backend over the consultation session
// HTTP API, so the call core runs against a real deployment with no glue.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// Client calls the session API with a bearer token. It satisfies call.Backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates an API client. baseURL has no trailing slash
// (e.g. "https://api.example.com").
func NewClient(baseURL, token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// envelope is the API's standard JSON response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// do performs one JSON request and decodes the envelope data into out.
// A 404 yields (found=false, nil error) so callers can map "no session".
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return false, fmt.Errorf("%s %s: %s", method, path, msg)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return false, fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return true, nil
}

// GetSessionByConsultation returns the latest non-ended session, or (nil, nil).
func (c *Client) GetSessionByConsultation(ctx context.Context, consultationID uuid.UUID) (*models.Session, error) {
	var s models.Session
	found, err := c.do(ctx, http.MethodGet, "/consultations/"+consultationID.String()+"/session", nil, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

// CreateSession creates (or idempotently returns) the consultation's session.
func (c *Client) CreateSession(ctx context.Context, consultationID, participantUserID uuid.UUID) (*models.Session, error) {
	body := map[string]string{"participant_user_id": participantUserID.String()}
	var s models.Session
	if _, err := c.do(ctx, http.MethodPost, "/consultations/"+consultationID.String()+"/session", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession returns the session by id.
func (c *Client) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var s models.Session
	found, err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID.String(), nil, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return &s, nil
}

// StartSession flips a waiting session to active.
func (c *Client) StartSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var s models.Session
	if _, err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID.String()+"/start", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession transitions the session to ended.
func (c *Client) EndSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var s models.Session
	if _, err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID.String()+"/end", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetMessages returns the session's full ordered message list.
func (c *Client) GetMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	var data struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID.String()+"/messages", nil, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// SendMessage posts a text message and returns the server record.
func (c *Client) SendMessage(ctx context.Context, sessionID uuid.UUID, text string) (*models.ChatMessage, error) {
	body := map[string]string{"message": text}
	var m models.ChatMessage
	if _, err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID.String()+"/messages", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetConsultation returns the consultation record.
func (c *Client) GetConsultation(ctx context.Context, consultationID uuid.UUID) (*models.Consultation, error) {
	var consult models.Consultation
	found, err := c.do(ctx, http.MethodGet, "/consultations/"+consultationID.String(), nil, &consult)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("consultation %s not found", consultationID)
	}
	return &consult, nil
}

// GetPrescriptionsByConsultation returns the consultation's prescriptions.
func (c *Client) GetPrescriptionsByConsultation(ctx context.Context, consultationID uuid.UUID) ([]models.Prescription, error) {
	var data struct {
		Prescriptions []models.Prescription `json:"prescriptions"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/consultations/"+consultationID.String()+"/prescriptions", nil, &data); err != nil {
		return nil, err
	}
	return data.Prescriptions, nil
}
