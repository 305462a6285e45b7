// Package template provides the notification template renderer. Templates
// use {{token}} placeholders resolved against a variable mapping; rendering
// never fails, unknown tokens produce an empty string.
package template

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

var markupPattern = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// Render substitutes every {{token}} in the template with the stringified
// value from vars. Missing variables render as an empty string.
func Render(tmpl string, vars map[string]any) string {
	return tokenPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.TrimSpace(strings.Trim(match, "{}"))

		value, exists := vars[name]
		if !exists {
			return ""
		}

		return Stringify(value)
	})
}

// Stringify converts a template variable to its display form: decimal
// amounts via their canonical string, dates in ISO form, maps and slices as
// JSON, everything else through default formatting.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return ""
		}

		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}

		return v.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ConvertToPlainTextOrMarkup passes bodies that already contain markup tags
// through unchanged. Plain text is HTML-escaped, split into paragraphs on
// blank lines, and single newlines become line breaks.
func ConvertToPlainTextOrMarkup(body string) string {
	if markupPattern.MatchString(body) {
		return body
	}

	escaped := html.EscapeString(body)
	normalized := strings.ReplaceAll(escaped, "\r\n", "\n")

	paragraphs := regexp.MustCompile(`\n\s*\n`).Split(normalized, -1)

	var sb strings.Builder

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(paragraph, "\n", "<br/>"))
		sb.WriteString("</p>")
	}

	return sb.String()
}
