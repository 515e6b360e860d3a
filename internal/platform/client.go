// Package platform is the HTTP client for the main platform service:
// profile lookups for matchmaking and the durable call-session record.
// This service depends on it only through the app-level interfaces.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, serviceToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   serviceToken,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type profileResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Level       string `json:"englishLevel"`
}

func (c *Client) Profile(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	var pr profileResponse
	if err := c.do(ctx, http.MethodGet, "/profiles/"+string(id), nil, &pr); err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{
		UserID:      domain.UserID(pr.UserID),
		Username:    pr.Username,
		DisplayName: pr.DisplayName,
		AvatarURL:   pr.AvatarURL,
		Level:       domain.Level(pr.Level),
	}, nil
}

func (c *Client) CreateSession(ctx context.Context, roomID domain.RoomID, userA, userB domain.UserID, level domain.Level, topic string) error {
	body := map[string]string{
		"roomId":  string(roomID),
		"userAId": string(userA),
		"userBId": string(userB),
		"level":   string(level),
		"topic":   topic,
	}
	return c.do(ctx, http.MethodPost, "/sessions", body, nil)
}

func (c *Client) CloseSession(ctx context.Context, roomID domain.RoomID, endedBy domain.UserID) error {
	body := map[string]string{"endedById": string(endedBy)}
	return c.do(ctx, http.MethodPost, "/sessions/"+string(roomID)+"/end", body, nil)
}
