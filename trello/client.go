// Package trello is a minimal client for the Trello REST API covering the
// card operations mirrored from todos.
package trello

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"todo-api/domain"
)

const defaultBaseURL = "https://api.trello.com/1"

// Client mirrors todo lifecycle events to Trello cards on a single list.
type Client struct {
	hc      *http.Client
	baseURL string
	key     string
	token   string
	listID  string
}

// New creates a client against the public Trello API.
func New(key, token, listID string) *Client {
	return NewWithClient(http.DefaultClient, defaultBaseURL, key, token, listID)
}

// NewWithClient creates a client with an explicit HTTP client and base URL.
func NewWithClient(hc *http.Client, baseURL, key, token, listID string) *Client {
	return &Client{
		hc:      hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		token:   token,
		listID:  listID,
	}
}

// CreateCard creates a card for the todo and returns its id.
func (c *Client) CreateCard(ctx context.Context, todo domain.Todo) (string, error) {
	params := url.Values{}
	params.Set("idList", c.listID)
	params.Set("name", todo.Title)
	params.Set("desc", "Önem Derecesi: "+todo.Importance)
	body, err := c.do(ctx, http.MethodPost, "/cards", params)
	if err != nil {
		return "", err
	}
	var card struct {
		ID string `json:"id"`
	}
	if err := sonic.ConfigStd.Unmarshal(body, &card); err != nil {
		return "", fmt.Errorf("trello: decode card: %w", err)
	}
	return card.ID, nil
}

// UpdateCard refreshes the card's title and description from the todo.
func (c *Client) UpdateCard(ctx context.Context, cardID string, todo domain.Todo) error {
	params := url.Values{}
	params.Set("name", todo.Title)
	params.Set("desc", "Önem Derecesi: "+todo.Importance+"\nDurum: "+todo.Status)
	_, err := c.do(ctx, http.MethodPut, "/cards/"+cardID, params)
	return err
}

// DeleteCard removes the card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cards/"+cardID, url.Values{})
	return err
}

// AttachImage attaches an image URL to the card.
func (c *Client) AttachImage(ctx context.Context, cardID, imageURL string) error {
	params := url.Values{}
	params.Set("url", imageURL)
	_, err := c.do(ctx, http.MethodPost, "/cards/"+cardID+"/attachments", params)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("key", c.key)
	params.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("trello: %s %s: status %d", method, path, resp.StatusCode)
	}
	return body, nil
}
