package toolkit

import "time"

// -- Check Suite

type CheckSuite struct {
	Name    string  `json:"name" yaml:"name"`
	BaseURL string  `json:"base_url" yaml:"base_url"`
	Checks  []Check `json:"checks" yaml:"checks"`
}

type Check struct {
	Name    string       `json:"name" yaml:"name"`
	Method  string       `json:"method" yaml:"method"`
	Path    string       `json:"path" yaml:"path"`
	Request RequestSpecs `json:"request" yaml:"request"`
	Auth    AuthSpec     `json:"auth" yaml:"auth"`
	Expect  Expectation  `json:"expect" yaml:"expect"`
}

type RequestSpecs struct {
	PathParams map[string]string `json:"path_params" yaml:"path_params"`
	Query      map[string]string `json:"query" yaml:"query"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	Body       map[string]any    `json:"body" yaml:"body"`
}

// AuthSpec selects the bearer token sent with a check. SignedSubject asks
// for an HS256 token signed with the configured secret.
type AuthSpec struct {
	Bearer        string `json:"bearer,omitempty" yaml:"bearer,omitempty"`
	SignedSubject string `json:"signed_subject,omitempty" yaml:"signed_subject,omitempty"`
}

type Expectation struct {
	Status  []int `json:"status" yaml:"status"`
	Content any   `json:"content" yaml:"content"`

	// TokenField names a JSON field holding a JWT whose "sub" claim must
	// equal TokenSubject.
	TokenField   string `json:"token_field,omitempty" yaml:"token_field,omitempty"`
	TokenSubject string `json:"token_subject,omitempty" yaml:"token_subject,omitempty"`
}

// -- Check Results

type CheckStatus string

const (
	CheckPassed CheckStatus = "PASSED"
	CheckFailed CheckStatus = "FAILED"
)

type CheckResult struct {
	Name     string        `json:"name"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   CheckStatus   `json:"status"`
	Code     int           `json:"code"`
	Body     string        `json:"body,omitempty"`
	Duration time.Duration `json:"duration"`
	Failure  string        `json:"failure_type,omitempty"`
	Why      string        `json:"why_failed,omitempty"`
}

func (r CheckResult) Passed() bool {
	return r.Status == CheckPassed
}

// -- Backend payloads

type Profile struct {
	ID       string   `json:"_id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type Video struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}
