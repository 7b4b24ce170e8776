package toolkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// This module calls the application's backend APIs: the auth service for
// tokens and profiles, and the videos service for upload cleanup.

type Client struct {
	authBase   string
	videosBase string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(authBase, videosBase string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if !isAbsoluteURL(authBase) {
		return nil, fmt.Errorf("auth base must be an absolute URL, got=%q", authBase)
	}
	if videosBase != "" && !isAbsoluteURL(videosBase) {
		return nil, fmt.Errorf("videos base must be an absolute URL, got=%q", videosBase)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		authBase:   strings.TrimRight(strings.TrimSpace(authBase), "/"),
		videosBase: strings.TrimRight(strings.TrimSpace(videosBase), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default http.Client.
func (c *Client) WithHTTPClient(httpClient *http.Client) {
	if httpClient != nil {
		c.httpClient = httpClient
	}
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	URL := c.authBase + "/api/login"
	c.logger.Debug("toolkit.login: start", zap.String("url", URL), zap.String("email", email))

	payload := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	status, body, err := c.doJSON(ctx, http.MethodPost, URL, nil, payload)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("login failed with status=%d body=%s", status, truncateForLog(body, 500))
	}

	token, err := decodeTokenBody(body)
	if err != nil {
		c.logger.Debug("toolkit.login: decode failed", zap.Error(err), zap.String("body", truncateForLog(body, 300)))
		return "", err
	}
	c.logger.Debug("toolkit.login: token received", zap.Int("token_bytes", len(token)))
	return token, nil
}

// Profile returns the profile of the token's owner.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	URL := c.authBase + "/api/profile"
	headers := map[string]string{"Authorization": "Bearer " + token}

	status, body, err := c.doJSON(ctx, http.MethodGet, URL, headers, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("profile request: %w", err)
	}
	if status < 200 || status > 299 {
		return Profile{}, fmt.Errorf("profile failed with status=%d body=%s", status, truncateForLog(body, 500))
	}

	var profile Profile
	if err := decodeEnvelope(body, &profile, func() bool { return profile.ID != "" }); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	c.logger.Debug("toolkit.profile: decoded", zap.String("user_id", profile.ID))
	return profile, nil
}

func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	if c.videosBase == "" {
		return nil, fmt.Errorf("videos base is not configured")
	}
	status, body, err := c.doJSON(ctx, http.MethodGet, c.videosBase+"/videos", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("list videos failed with status=%d body=%s", status, truncateForLog(body, 500))
	}

	var listing struct {
		Videos []Video `json:"videos"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}
	return listing.Videos, nil
}

// FindVideosByTitle returns every listed video with exactly the given title.
func (c *Client) FindVideosByTitle(ctx context.Context, title string) ([]Video, error) {
	videos, err := c.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	var out []Video
	for _, v := range videos {
		if v.Title == title {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	if c.videosBase == "" {
		return fmt.Errorf("videos base is not configured")
	}
	URL := c.videosBase + "/videos/" + url.PathEscape(id)
	status, body, err := c.doJSON(ctx, http.MethodDelete, URL, nil, nil)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("delete video %s failed with status=%d body=%s", id, status, truncateForLog(body, 300))
	}
	c.logger.Debug("toolkit.delete_video: deleted", zap.String("video_id", id))
	return nil
}

// ---------- helpers

func decodeTokenBody(body []byte) (string, error) {
	var anyBody any
	if err := json.Unmarshal(body, &anyBody); err != nil {
		return "", fmt.Errorf("decode token body: %w", err)
	}
	m, ok := findMapWithKeys(anyBody, "access_token", "token")
	if !ok {
		return "", fmt.Errorf("could not find access_token in login response")
	}
	for _, key := range []string{"access_token", "token"} {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("login response carried an empty token")
}

// decodeEnvelope decodes body into out either directly or from a
// {"response": ...} wrapper. ok reports whether a decode produced data.
func decodeEnvelope(body []byte, out any, ok func() bool) error {
	if err := json.Unmarshal(body, out); err == nil && ok() {
		return nil
	}

	var wrapper struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && len(wrapper.Response) > 0 {
		if err := json.Unmarshal(wrapper.Response, out); err == nil && ok() {
			return nil
		}
	}
	return fmt.Errorf("could not find payload (expected top-level or response wrapper)")
}

func findMapWithKeys(v any, keys ...string) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		for _, key := range keys {
			if _, ok := t[key]; ok {
				return t, true
			}
		}
		for _, child := range t {
			if m, ok := findMapWithKeys(child, keys...); ok {
				return m, true
			}
		}
	case []any:
		for _, child := range t {
			if m, ok := findMapWithKeys(child, keys...); ok {
				return m, true
			}
		}
	}
	return nil, false
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func truncateForLog(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}

// TruncateText caps s at max runes, appending "..." when it was cut.
func TruncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func (c *Client) doJSON(ctx context.Context, method, URL string, headers map[string]string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, URL, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}
