package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxLength caps sanitized reasons so they fit a status message
const DefaultMaxLength = 300

// Sanitizer turns service error bodies (JSON, HTML or plain text) into a
// single line of plain text that is safe to show to the user
type Sanitizer struct {
	maxLength       int
	whitespaceRegex *regexp.Regexp
	invisibleRegex  *regexp.Regexp
}

// NewSanitizer creates a new sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		maxLength:       DefaultMaxLength,
		whitespaceRegex: regexp.MustCompile(`\s+`),
		// Zero-width and other invisible code points
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{2060}-\x{2064}\x{206A}-\x{206F}\x{FE00}-\x{FE0F}\x{FFF0}-\x{FFF8}]+`),
	}
}

// Sanitize extracts a human readable reason from body
func (s *Sanitizer) Sanitize(body []byte, contentType string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	switch {
	case strings.Contains(contentType, "json") || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "["):
		if msg := jsonReason(text); msg != "" {
			text = msg
		}
	case strings.Contains(contentType, "html") || strings.HasPrefix(text, "<"):
		if msg, err := s.htmlText(text); err == nil && msg != "" {
			text = msg
		}
	}

	text = s.invisibleRegex.ReplaceAllString(text, "")
	text = s.whitespaceRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return truncate(text, s.maxLength)
}

// htmlText returns the visible text of an HTML document
func (s *Sanitizer) htmlText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, meta, link").Remove()

	// Keep block boundaries as separators
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr, title").Each(func(i int, sel *goquery.Selection) {
		sel.PrependHtml(" ")
	})

	return doc.Text(), nil
}

// jsonReason pulls the message out of the error shapes the *arr and Plex APIs return
func jsonReason(text string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return objectReason(obj)
	}

	var list []map[string]any
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		var reasons []string
		for _, item := range list {
			if r := objectReason(item); r != "" {
				reasons = append(reasons, r)
			}
		}
		return strings.Join(reasons, "; ")
	}
	return ""
}

func objectReason(obj map[string]any) string {
	for _, key := range []string{"errorMessage", "message", "error", "title", "description"} {
		if v, ok := obj[key].(string); ok && v != "" {
			if prop, ok := obj["propertyName"].(string); ok && prop != "" && key == "errorMessage" {
				return prop + ": " + v
			}
			return v
		}
	}
	// Plex wraps errors as {"errors":[{"code":..,"message":..}]}
	if errs, ok := obj["errors"].([]any); ok {
		var reasons []string
		for _, e := range errs {
			if m, ok := e.(map[string]any); ok {
				if r := objectReason(m); r != "" {
					reasons = append(reasons, r)
				}
			}
		}
		return strings.Join(reasons, "; ")
	}
	return ""
}

// truncate truncates text to maxLen runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
