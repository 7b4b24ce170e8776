package apicheck

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

	"acceptance/toolkit"
)

const (
	FailureRequestBuild  = "request_build_error"
	FailureAuth          = "auth_error"
	FailureTransport     = "transport_error"
	FailureStatus        = "status_mismatch"
	FailureResponseParse = "response_parse_error"
	FailureContent       = "content_mismatch"
	FailureToken         = "token_mismatch"
)

type Options struct {
	// BaseURL, when set, takes precedence over the suite's own base.
	BaseURL   string
	JWTSecret string
	Timeout   time.Duration
}

type Runner struct {
	client *http.Client
	opts   Options
	logger *zap.Logger
}

func NewRunner(opts Options, logger *zap.Logger) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: logger,
	}
}

func (r *Runner) WithHTTPClient(c *http.Client) *Runner {
	if c != nil {
		r.client = c
	}
	return r
}

// Run executes every check of suite in order. A failing check never stops
// the ones after it.
func (r *Runner) Run(ctx context.Context, suite toolkit.CheckSuite) []toolkit.CheckResult {
	baseURL := suite.BaseURL
	if r.opts.BaseURL != "" {
		baseURL = r.opts.BaseURL
	}
	r.logger.Info("apicheck.run: start", zap.String("suite", suite.Name), zap.String("base_url", baseURL), zap.Int("checks", len(suite.Checks)))

	results := make([]toolkit.CheckResult, 0, len(suite.Checks))
	passed := 0
	for _, c := range suite.Checks {
		res := r.runOne(ctx, baseURL, c)
		if res.Passed() {
			passed++
		}
		r.logger.Info("apicheck.run: check done",
			zap.String("check", c.Name),
			zap.String("status", string(res.Status)),
			zap.Int("code", res.Code),
			zap.String("failure", res.Failure))
		results = append(results, res)
	}
	r.logger.Info("apicheck.run: completed", zap.Int("total", len(results)), zap.Int("passed", passed), zap.Int("failed", len(results)-passed))
	return results
}

func (r *Runner) runOne(ctx context.Context, baseURL string, c toolkit.Check) toolkit.CheckResult {
	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method == "" {
		method = http.MethodGet
	}
	res := toolkit.CheckResult{Name: c.Name, Method: method, Status: toolkit.CheckFailed}

	fullURL, err := buildURL(baseURL, c.Path, c.Request.PathParams, c.Request.Query)
	if err != nil {
		res.Failure = FailureRequestBuild
		res.Why = "Failed to build request URL for this check: " + err.Error()
		return res
	}
	res.URL = fullURL

	headers := cloneHeaders(c.Request.Headers)
	if _, ok := headers["Authorization"]; !ok {
		bearer, err := r.bearer(c.Auth)
		if err != nil {
			res.Failure = FailureAuth
			res.Why = err.Error()
			return res
		}
		if bearer != "" {
			headers["Authorization"] = "Bearer " + bearer
		}
	}

	status, raw, latency, err := r.executeRequest(ctx, method, fullURL, headers, c.Request.Body)
	res.Duration = latency
	res.Code = status
	if err != nil {
		res.Failure = FailureTransport
		res.Why = "Request did not complete successfully: " + err.Error()
		return res
	}
	res.Body = raw

	if !statusMatches(status, c.Expect.Status) {
		res.Failure = FailureStatus
		res.Why = buildStatusMismatchReason(c.Expect.Status, status, raw)
		return res
	}

	if c.Expect.Content != nil || c.Expect.TokenField != "" {
		var actual any
		if err := json.Unmarshal([]byte(raw), &actual); err != nil {
			res.Failure = FailureResponseParse
			res.Why = "Expected structured content, but response body is not valid JSON."
			return res
		}
		if c.Expect.Content != nil && !contentMatches(actual, c.Expect.Content) {
			res.Failure = FailureContent
			res.Why = buildContentMismatchReason(c.Expect.Content, actual)
			return res
		}
		if c.Expect.TokenField != "" {
			if why := tokenMismatch(actual, c.Expect.TokenField, c.Expect.TokenSubject); why != "" {
				res.Failure = FailureToken
				res.Why = why
				return res
			}
		}
	}

	res.Status = toolkit.CheckPassed
	return res
}

func (r *Runner) bearer(auth toolkit.AuthSpec) (string, error) {
	if auth.SignedSubject != "" {
		tok, err := toolkit.SignToken(r.opts.JWTSecret, auth.SignedSubject)
		if err != nil {
			return "", fmt.Errorf("cannot sign token for %q: %w", auth.SignedSubject, err)
		}
		return tok, nil
	}
	return strings.TrimSpace(auth.Bearer), nil
}

func (r *Runner) executeRequest(ctx context.Context, method, fullURL string, headers map[string]string, payload map[string]any) (int, string, time.Duration, error) {
	var body io.Reader
	if method != http.MethodGet && method != http.MethodDelete && len(payload) > 0 {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, "", 0, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(b)
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return 0, "", 0, fmt.Errorf("NewRequest: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	r.logger.Debug("apicheck.execute: sending", zap.String("method", method), zap.String("url", fullURL))
	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, "", latency, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", time.Since(start), fmt.Errorf("read response body: %w", err)
	}
	r.logger.Debug("apicheck.execute: received",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))
	return resp.StatusCode, string(raw), latency, nil
}

func cloneHeaders(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

func buildURL(baseURL, endpoint string, pathParams, query map[string]string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("no base URL configured")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", baseURL)
	}

	path := endpoint
	for k, v := range pathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("unresolved path parameter in %q", path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	rawPath := strings.TrimRight(u.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", err
	}
	u.Path, u.RawPath = unescaped, rawPath

	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func statusMatches(got int, allowed []int) bool {
	if len(allowed) == 0 {
		return got >= 200 && got <= 299
	}
	for _, s := range allowed {
		if got == s {
			return true
		}
	}
	return false
}

// contentMatches reports whether expected is a subset of actual. Arrays are
// matched as prefixes and "..." accepts any present non-empty value.
func contentMatches(actual any, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			a, ok := act[k]
			if !ok {
				return false
			}
			if !contentMatches(a, v) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return false
		}
		if len(exp) > len(act) {
			return false
		}
		for i := range exp {
			if !contentMatches(act[i], exp[i]) {
				return false
			}
		}
		return true
	case string:
		if exp == "..." {
			if s, ok := actual.(string); ok {
				return strings.TrimSpace(s) != ""
			}
			return actual != nil
		}
		s, ok := actual.(string)
		return ok && s == exp
	case float64:
		a, ok := actual.(float64)
		return ok && a == exp
	default:
		return actual == expected
	}
}

func tokenMismatch(actual any, field, subject string) string {
	obj, ok := actual.(map[string]any)
	if !ok {
		return "Response is not a JSON object."
	}
	raw, ok := obj[field].(string)
	if !ok {
		if inner, isMap := obj["response"].(map[string]any); isMap {
			raw, ok = inner[field].(string)
		}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return fmt.Sprintf("Response has no token in field %q.", field)
	}
	claims, err := toolkit.InspectToken(raw)
	if err != nil {
		return fmt.Sprintf("Field %q does not hold a JWT: %v", field, err)
	}
	if subject != "" && claims.Subject != subject {
		return fmt.Sprintf("Token subject mismatch (expected=%s got=%s).", subject, claims.Subject)
	}
	return ""
}

func buildStatusMismatchReason(expected []int, got int, rawBody string) string {
	base := fmt.Sprintf("Expected status in %v but received %d.", expected, got)
	if len(expected) == 0 {
		base = fmt.Sprintf("Expected a 2xx status but received %d.", got)
	}
	if hint := genericErrorHint(rawBody); hint != "" {
		return base + " Response hint: " + hint
	}
	return base
}

func buildContentMismatchReason(expected any, actual any) string {
	if path, exp, act, ok := firstContentDifference("$", expected, actual); ok {
		return fmt.Sprintf("Response content mismatch at %s (expected=%s got=%s).", path, exp, act)
	}
	return "Response content did not match expected structure."
}

func firstContentDifference(path string, expected any, actual any) (string, string, string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		for k, v := range exp {
			a, exists := act[k]
			if !exists {
				return path + "." + k, compactForReport(v), "<missing>", true
			}
			if p, e, av, diff := firstContentDifference(path+"."+k, v, a); diff {
				return p, e, av, true
			}
		}
		return "", "", "", false
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		if len(act) < len(exp) {
			return path, fmt.Sprintf("len>=%d", len(exp)), fmt.Sprintf("len=%d", len(act)), true
		}
		for i := range exp {
			if p, e, av, diff := firstContentDifference(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i]); diff {
				return p, e, av, true
			}
		}
		return "", "", "", false
	default:
		if !contentMatches(actual, expected) {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		return "", "", "", false
	}
}

func genericErrorHint(rawBody string) string {
	if strings.TrimSpace(rawBody) == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(rawBody), &v); err != nil {
		return ""
	}
	return extractErrorHint(v)
}

func extractErrorHint(v any) string {
	switch obj := v.(type) {
	case map[string]any:
		for _, key := range []string{"detail", "error", "errors", "message", "msg", "reason", "title"} {
			if val, ok := obj[key]; ok {
				return compactForReport(val)
			}
		}
		for _, val := range obj {
			if hint := extractErrorHint(val); hint != "" {
				return hint
			}
		}
	case []any:
		for _, item := range obj {
			if hint := extractErrorHint(item); hint != "" {
				return hint
			}
		}
	}
	return ""
}

func compactForReport(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
