// Package api talks to the remote notes service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/models"
)

const (
	listPath   = "/api/v1/notes/getmynotes"
	createPath = "/api/v1/notes/createnote"
	notePath   = "/api/v1/notes/"
	loginPath  = "/api/v1/users/login"
	logoutPath = "/api/v1/users/logout"

	maxBodyBytes = 1 << 20
)

var tokenCookies = []string{"token", "accessToken"}

// Client is a thin wrapper around the notes REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a cookie jar and the
// configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock overrides the time used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout, Jar: jar},
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type noteRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

func newNoteRequest(d models.Draft) noteRequest {
	return noteRequest{Title: d.Title, Content: d.Content, IsPublic: d.IsPublic}
}

// ListNotes fetches every note of the current user. The token may be empty
// when a session cookie from Login identifies the user.
func (c *Client) ListNotes(ctx context.Context, token string) ([]models.Note, error) {
	const op = "list notes"

	if token != "" && tokenExpired(token, c.now()) {
		return nil, &Error{Kind: AuthenticationRequired, Op: op}
	}

	body, err := c.do(ctx, op, http.MethodGet, listPath, token, nil)
	if err != nil {
		return nil, err
	}
	notes, err := decodeNoteList(body)
	if err != nil {
		return nil, &Error{Kind: MalformedResponse, Op: op, Err: err}
	}
	return notes, nil
}

// CreateNote submits a new note and returns it as confirmed by the service.
func (c *Client) CreateNote(ctx context.Context, token string, draft models.Draft) (models.Note, error) {
	const op = "create note"

	if err := c.requireToken(op, token); err != nil {
		return models.Note{}, err
	}

	body, err := c.do(ctx, op, http.MethodPost, createPath, token, newNoteRequest(draft))
	if err != nil {
		return models.Note{}, err
	}
	note, err := decodeNote(body)
	if err != nil {
		return models.Note{}, &Error{Kind: MalformedResponse, Op: op, Err: err}
	}
	if err := validNote(note); err != nil {
		return models.Note{}, &Error{Kind: MalformedResponse, Op: op, Err: err}
	}
	return note, nil
}

// UpdateNote saves draft over the note with the given id. When the service
// answers without a note body, the sent fields are returned instead.
func (c *Client) UpdateNote(ctx context.Context, token, id string, draft models.Draft) (models.Note, error) {
	const op = "update note"

	if err := c.requireToken(op, token); err != nil {
		return models.Note{}, err
	}

	body, err := c.do(ctx, op, http.MethodPut, notePath+url.PathEscape(id), token, newNoteRequest(draft))
	if err != nil {
		return models.Note{}, err
	}

	note, err := decodeNote(body)
	if err != nil || (note.ID == "" && note.Title == "") {
		note = draft.Note(id)
	}
	if note.ID == "" {
		note.ID = id
	}
	if err := validNote(note); err != nil {
		return models.Note{}, &Error{Kind: MalformedResponse, Op: op, Err: err}
	}
	return note, nil
}

func (c *Client) DeleteNote(ctx context.Context, token, id string) error {
	const op = "delete note"

	if err := c.requireToken(op, token); err != nil {
		return err
	}
	_, err := c.do(ctx, op, http.MethodDelete, notePath+url.PathEscape(id), token, nil)
	return err
}

// Login exchanges credentials for a token. The token is read from the body
// or, failing that, from a session cookie set by the service.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	const op = "login"

	if err := validate.Struct(creds); err != nil {
		return "", &Error{Kind: ApplicationFailure, Op: op, Message: "Enter a valid email and password.", Err: err}
	}

	body, err := c.do(ctx, op, http.MethodPost, loginPath, "", creds)
	if err != nil {
		return "", err
	}
	if token := decodeToken(body); token != "" {
		return token, nil
	}
	if token := c.cookieToken(); token != "" {
		return token, nil
	}
	return "", &Error{Kind: MalformedResponse, Op: op, Err: errors.New("no token in login response")}
}

// Logout ends the remote session. Callers discard their token either way.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, "logout", http.MethodPost, logoutPath, token, nil)
	return err
}

func (c *Client) requireToken(op, token string) error {
	if token == "" {
		return &Error{Kind: AuthenticationRequired, Op: op, Message: "Please log in first."}
	}
	if tokenExpired(token, c.now()) {
		return &Error{Kind: AuthenticationRequired, Op: op}
	}
	return nil
}

func (c *Client) cookieToken() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		for _, name := range tokenCookies {
			if cookie.Name == name && cookie.Value != "" {
				return cookie.Value
			}
		}
	}
	return ""
}

// do performs one request and classifies any failure.
func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: TransportFailure, Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, &Error{Kind: TransportFailure, Op: op, Err: err}
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &Error{Kind: TransportFailure, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: TransportFailure, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("Request finished",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &Error{Kind: AuthenticationRequired, Op: op, Status: resp.StatusCode, Message: decodeMessage(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{Kind: ApplicationFailure, Op: op, Status: resp.StatusCode, Message: decodeMessage(body)}
	}
	return body, nil
}
