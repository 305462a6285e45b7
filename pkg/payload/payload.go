// Package payload provides typed extraction helpers over the untyped
// key/value payloads carried by domain events. Every helper tolerates
// missing or malformed fields and reports presence via a boolean.
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatusAliases are the payload keys probed, in order, when a handler needs
// the lifecycle status of the triggering entity.
var StatusAliases = []string{
	"status",
	"newStatus",
	"new_status",
	"stage",
	"pipelineStatus",
	"pipeline_status",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// String returns the first non-empty string value found under any of the
// given keys. Numeric values are stringified; other types are ignored.
func String(p map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		value, exists := p[key]
		if !exists || value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case json.Number:
			return v.String(), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}

	return "", false
}

// Date returns the first value under the given keys that parses as a date.
// Accepts time.Time, a handful of common string layouts, and epoch
// milliseconds.
func Date(p map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		value, exists := p[key]
		if !exists || value == nil {
			continue
		}

		switch v := value.(type) {
		case time.Time:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}

			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, true
				}
			}
		case float64:
			if v > 1e12 { // epoch millis
				return time.UnixMilli(int64(v)).UTC(), true
			}
		case json.Number:
			if ms, err := v.Int64(); err == nil && ms > 1e12 {
				return time.UnixMilli(ms).UTC(), true
			}
		}
	}

	return time.Time{}, false
}

// Decimal returns the first value under the given keys that parses as a
// decimal amount.
func Decimal(p map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		value, exists := p[key]
		if !exists || value == nil {
			continue
		}

		switch v := value.(type) {
		case decimal.Decimal:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}

			if d, err := decimal.NewFromString(s); err == nil {
				return d, true
			}
		case json.Number:
			if d, err := decimal.NewFromString(v.String()); err == nil {
				return d, true
			}
		case float64:
			return decimal.NewFromFloat(v), true
		case int:
			return decimal.NewFromInt(int64(v)), true
		case int64:
			return decimal.NewFromInt(v), true
		}
	}

	return decimal.Decimal{}, false
}

// FirstEmail returns the first address-looking string found under the given
// keys. List values yield their first address; comma-separated strings are
// split.
func FirstEmail(p map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		value, exists := p[key]
		if !exists || value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			if email, ok := firstAddress(v); ok {
				return email, true
			}
		case []string:
			for _, item := range v {
				if email, ok := firstAddress(item); ok {
					return email, true
				}
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					if email, ok := firstAddress(s); ok {
						return email, true
					}
				}
			}
		}
	}

	return "", false
}

// Status returns the uppercased lifecycle status probed across the known
// alias keys. A missing or non-string status reports absent.
func Status(p map[string]any) (string, bool) {
	value, ok := String(p, StatusAliases...)
	if !ok {
		return "", false
	}

	return strings.ToUpper(value), true
}

// Bool returns the first boolean value found under the given keys. String
// forms accepted by strconv.ParseBool are tolerated.
func Bool(p map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		value, exists := p[key]
		if !exists || value == nil {
			continue
		}

		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}

	return false, false
}

func firstAddress(s string) (string, bool) {
	for _, part := range strings.Split(s, ",") {
		candidate := strings.TrimSpace(part)
		if isEmail(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func isEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}

	return !strings.ContainsAny(s, " \t\n")
}
