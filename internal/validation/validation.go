// Package validation checks modify requests before they reach the pipeline.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/pagesmith/internal/types"
)

// Field limits for POST /modify.
const (
	MaxURLLength     = 2048
	MaxChangesLength = 4000
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// rule returns a failure message, or "" when value passes.
type rule func(value string) string

func maxRunes(n int) rule {
	return func(value string) string {
		if utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("exceeds maximum length of %d characters", n)
		}
		return ""
	}
}

func validUTF8(value string) string {
	if !utf8.ValidString(value) {
		return "must be valid UTF-8"
	}
	return ""
}

func noNullBytes(value string) string {
	if strings.ContainsRune(value, 0) {
		return "must not contain null bytes"
	}
	return ""
}

func httpURL(value string) string {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "must be an absolute http or https URL"
	}
	return ""
}

var (
	urlRules     = []rule{maxRunes(MaxURLLength), httpURL}
	changesRules = []rule{validUTF8, noNullBytes, maxRunes(MaxChangesLength)}
)

// check reports "is required" for a blank value and otherwise every failing rule.
func check(field, value string, rules []rule) []ValidationError {
	if strings.TrimSpace(value) == "" {
		return []ValidationError{{Field: field, Message: "is required"}}
	}
	var errs []ValidationError
	for _, r := range rules {
		if msg := r(value); msg != "" {
			errs = append(errs, ValidationError{Field: field, Message: msg})
		}
	}
	return errs
}

// ValidateModifyRequest checks every field of a modify request and returns all
// failures, url first.
func ValidateModifyRequest(req types.ModifyRequest) []ValidationError {
	errs := check("url", req.URL, urlRules)
	return append(errs, check("changes", req.Changes, changesRules)...)
}

// Summary joins validation errors into one line, e.g. "url is required; changes is required".
func Summary(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
