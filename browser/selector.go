package browser

import (
	"fmt"
	"strings"
)

type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
	ByID    By = "id"
)

// Selector locates an element on the current page.
type Selector struct {
	By    By
	Query string
}

func CSS(query string) Selector { return Selector{By: ByCSS, Query: query} }
func XPath(query string) Selector { return Selector{By: ByXPath, Query: query} }
func ID(id string) Selector { return Selector{By: ByID, Query: id} }

// LinkText matches an anchor whose visible text equals text.
func LinkText(text string) Selector {
	return XPath(fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(text)))
}

// ButtonText matches a button whose visible text contains text.
func ButtonText(text string) Selector {
	return XPath(fmt.Sprintf("//button[contains(normalize-space(.), %s)]", xpathLiteral(text)))
}

// Placeholder matches an input or textarea by its placeholder.
func Placeholder(tag, placeholder string) Selector {
	return CSS(fmt.Sprintf("%s[placeholder=%s]", tag, cssString(placeholder)))
}

// Nth picks the n-th (1-based) element matched by an XPath expression.
func Nth(xpath string, n int) Selector {
	return XPath(fmt.Sprintf("(%s)[%d]", xpath, n))
}

func (s Selector) String() string {
	return string(s.By) + "=" + s.Query
}

func (s Selector) Valid() bool {
	switch s.By {
	case ByCSS, ByXPath, ByID:
		return strings.TrimSpace(s.Query) != ""
	}
	return false
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

func cssString(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
