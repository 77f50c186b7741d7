package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client talks to the remote story backend. Every request carries the
// bearer token from the TokenProvider.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         ports.TokenProvider
	RequestTimeout time.Duration
}

var _ ports.StoryGateway = (*Client)(nil)

func (c *Client) InitStory(ctx context.Context, prefs domain.StoryPreferences) (domain.SessionID, string, error) {
	body := storyInitRequest{
		Genre:          prefs.Genre,
		Character:      prefs.Character,
		WorldAdditions: prefs.WorldAdditions,
		Actions:        prefs.Actions,
	}

	var resp storyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/story/init", nil, body, &resp); err != nil {
		return "", "", fmt.Errorf("init story: %w", err)
	}
	if !resp.Success || resp.SessionID == "" {
		return "", "", fmt.Errorf("init story: backend rejected request: %s", resp.Message)
	}

	return domain.SessionID(resp.SessionID), resp.StoryContent, nil
}

func (c *Client) SendAction(ctx context.Context, id domain.SessionID, action string) (string, error) {
	body := storyActionRequest{SessionID: string(id), UserAction: action}

	var resp storyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/story/action", nil, body, &resp); err != nil {
		return "", fmt.Errorf("send story action: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("send story action: backend rejected request: %s", resp.Message)
	}

	return resp.StoryContent, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]ports.SessionSummary, error) {
	var resp sessionListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/story/sessions", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]ports.SessionSummary, 0, len(resp.Sessions))
	for _, entry := range resp.Sessions {
		summaries = append(summaries, ports.SessionSummary{
			SessionID:    domain.SessionID(entry.SessionID),
			Title:        entry.Title,
			MessageCount: entry.MessageCount,
			CreatedAt:    parseTimestamp(entry.CreatedAt),
			LastUpdated:  parseTimestamp(entry.LastUpdated),
			Media: domain.MediaStatus{
				World:     jobStateFromWire(entry.WorldImageStatus),
				Character: jobStateFromWire(entry.CharacterImageStatus),
			},
		})
	}

	return summaries, nil
}

func (c *Client) SessionMessages(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	var resp sessionDetailResponse
	if err := c.doJSON(ctx, http.MethodGet, "/story/session/"+url.PathEscape(string(id)), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch session messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(resp.Messages))
	for _, entry := range resp.Messages {
		messages = append(messages, domain.Message{
			ID:        entry.ID,
			Role:      domain.Role(entry.Role),
			Content:   entry.Content,
			Timestamp: parseTimestamp(entry.Timestamp),
		})
	}

	// Earlier timestamps never appear after later ones; stable so equal
	// timestamps keep wire order.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	return messages, nil
}

func (c *Client) DeleteSession(ctx context.Context, id domain.SessionID) error {
	var resp deleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/story/session/"+url.PathEscape(string(id)), nil, nil, &resp); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (c *Client) MediaStatus(ctx context.Context, id domain.SessionID) (domain.MediaStatus, error) {
	var resp imageStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/images/status/"+url.PathEscape(string(id)), nil, nil, &resp); err != nil {
		return domain.MediaStatus{}, fmt.Errorf("fetch media status: %w", err)
	}

	return domain.MediaStatus{
		World:     jobStateFromWire(resp.WorldStatus),
		Character: jobStateFromWire(resp.CharacterStatus),
	}, nil
}

func (c *Client) MediaURL(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, error) {
	query := url.Values{}
	query.Set("chat_id", string(id))
	query.Set("image_type", string(imageType))
	query.Set("variant", string(variant))

	var resp imageURLResponse
	if err := c.doJSON(ctx, http.MethodGet, "/images/get-url", query, nil, &resp); err != nil {
		return "", fmt.Errorf("resolve media url: %w", err)
	}
	if !resp.Success || resp.URL == "" {
		return "", fmt.Errorf("resolve media url: backend returned no url")
	}

	return resp.URL, nil
}

func (c *Client) RegenerateMedia(ctx context.Context, id domain.SessionID) error {
	query := url.Values{}
	query.Set("chat_id", string(id))

	var resp regenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/images/regenerate", query, nil, &resp); err != nil {
		return fmt.Errorf("regenerate media: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("regenerate media: backend rejected request: %s", resp.Message)
	}

	return nil
}

func (c *Client) doJSON(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve bearer token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeErrorMessage(resp *http.Response) string {
	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Message
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("gateway base url is required")
	}
	if path == "" {
		return "", errors.New("gateway path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("gateway base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("gateway base url host is required")
	}

	// JoinPath keeps a path prefix on the base url (such as /api) intact.
	return parsed.JoinPath(path).String(), nil
}
