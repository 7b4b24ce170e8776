package apicheck

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"acceptance/toolkit"
)

//go:embed suites/auth.yaml
var authSuite []byte

// DefaultSuite is the auth service suite shipped with the binary.
func DefaultSuite() (toolkit.CheckSuite, error) {
	return ParseSuite(authSuite, "yaml")
}

// LoadSuite reads a suite from a .yaml, .yml or .json file.
func LoadSuite(path string) (toolkit.CheckSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return toolkit.CheckSuite{}, fmt.Errorf("read suite %q: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	suite, err := ParseSuite(data, format)
	if err != nil {
		return toolkit.CheckSuite{}, fmt.Errorf("load suite %q: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

func ParseSuite(data []byte, format string) (toolkit.CheckSuite, error) {
	var suite toolkit.CheckSuite
	switch format {
	case "json":
		if err := json.Unmarshal(data, &suite); err != nil {
			return suite, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &suite); err != nil {
			return suite, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return suite, fmt.Errorf("unsupported suite format %q", format)
	}
	if err := normalize(&suite); err != nil {
		return suite, err
	}
	return suite, nil
}

func normalize(suite *toolkit.CheckSuite) error {
	if len(suite.Checks) == 0 {
		return fmt.Errorf("suite %q has no checks", suite.Name)
	}
	seen := make(map[string]bool, len(suite.Checks))
	for i := range suite.Checks {
		c := &suite.Checks[i]
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("check #%d has no name", i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate check name %q", c.Name)
		}
		seen[c.Name] = true
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("check %q has no path", c.Name)
		}
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = http.MethodGet
		}
		if c.Expect.Content != nil {
			content, err := jsonShape(c.Expect.Content)
			if err != nil {
				return fmt.Errorf("check %q: expected content: %w", c.Name, err)
			}
			c.Expect.Content = content
		}
	}
	return nil
}

// jsonShape converts decoded YAML into the types a JSON response decodes
// to, so numbers compare as float64.
func jsonShape(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
