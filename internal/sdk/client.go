// Package sdk implements the client capabilities of internal/app against a
// minichat server, or in-process for embedded mode.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"minichat/internal/live"
	"minichat/internal/models"
)

// ErrNotSignedIn is returned by calls that need a session token.
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

// Is maps 404 responses onto models.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == models.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a minichat server. It keeps the signed-in identity in
// memory only.
type Client struct {
	baseURL  string
	http     *http.Client
	dialer   *websocket.Dialer
	identity *live.Value[*models.Identity]
}

// New creates a signed-out client for the server at baseURL.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		identity: live.NewValue[*models.Identity](nil),
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, email, password string) (models.Identity, error) {
	return c.authenticate(ctx, "/auth/signup", map[string]string{"email": email, "password": password})
}

func (c *Client) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	return c.authenticate(ctx, "/auth/signin", map[string]string{"email": email, "password": password})
}

func (c *Client) SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error) {
	return c.authenticate(ctx, "/auth/sso", map[string]string{"token": providerToken})
}

// SignOut forgets the session token. Tokens are stateless, so there is
// nothing to revoke on the server.
func (c *Client) SignOut(ctx context.Context) error {
	c.identity.Set(nil)
	return nil
}

func (c *Client) WatchAuthState(ctx context.Context) *live.Subscription[*models.Identity] {
	return c.identity.Watch(ctx)
}

// Current returns the signed-in identity or nil.
func (c *Client) Current() *models.Identity {
	return c.identity.Get()
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (models.Identity, error) {
	var identity models.Identity
	if _, err := c.do(ctx, http.MethodPost, path, false, body, &identity); err != nil {
		return models.Identity{}, err
	}
	c.identity.Set(&identity)
	return identity, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	_, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), true, nil, &user)
	return user, err
}

func (c *Client) SetUser(ctx context.Context, user models.User) error {
	_, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(user.ID), true, user, nil)
	return err
}

func (c *Client) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/users/batch", true, map[string][]string{"ids": ids}, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) ListUsers(ctx context.Context, q models.UserQuery) (models.UserPage, error) {
	params := url.Values{}
	if q.ExcludeID != "" {
		params.Set("exclude", q.ExcludeID)
	}
	if q.After != "" {
		params.Set("after", q.After)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/users"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var page models.UserPage
	_, err := c.do(ctx, http.MethodGet, path, true, nil, &page)
	return page, err
}

func (c *Client) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	var chat models.Conversation
	_, err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), true, nil, &chat)
	return chat, err
}

func (c *Client) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	var stored models.Conversation
	status, err := c.do(ctx, http.MethodPut, "/chats/"+url.PathEscape(chat.ID), true, chat, &stored)
	if err != nil {
		return models.Conversation{}, false, err
	}
	return stored, status == http.StatusCreated, nil
}

func (c *Client) UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error {
	body := models.ChatSummaryUpdate{LastMessage: last, UpdatedAt: updatedAt}
	_, err := c.do(ctx, http.MethodPatch, "/chats/"+url.PathEscape(chatID)+"/summary", true, body, nil)
	return err
}

func (c *Client) AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	var stored models.Message
	_, err := c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(chatID)+"/messages", true, msg, &stored)
	return stored, err
}

func (c *Client) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages", true, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Upload sends body to the upload relay and returns the public URL.
func (c *Client) Upload(ctx context.Context, chatID, filename string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/uploads/"+url.PathEscape(chatID), true, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		URL string `json:"url"`
	}
	if _, err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, authed, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, authed bool, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if authed {
		token, err := c.token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) token() (string, error) {
	identity := c.identity.Get()
	if identity == nil || identity.Token == "" {
		return "", ErrNotSignedIn
	}
	return identity.Token, nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
