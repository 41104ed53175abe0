package remote

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
)

// Document is a stored document.
type Document struct {
	ID     string
	Fields Fields
}

// Fields are the JSON-shaped contents of a document: strings, float64
// numbers, bools, nil, nested maps and slices. Timestamps are RFC 3339
// strings once stored.
type Fields map[string]any

// Normalize converts fields into the shape they have after storage, so every
// Store implementation compares and returns the same values. time.Time
// becomes an RFC 3339 string and integers become float64.
func Normalize(fields map[string]any) (Fields, error) {
	if fields == nil {
		return Fields{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported field value: %v", common.ErrBadRequest, err)
	}
	var out Fields
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	return out, nil
}

// NormalizeValue is Normalize for a single value.
func NormalizeValue(v any) (any, error) {
	f, err := Normalize(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return f["v"], nil
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the string stored under key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Float returns the number stored under key, or 0.
func (f Fields) Float(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int returns the number stored under key rounded to an int, or 0.
func (f Fields) Int(key string) int {
	return int(math.Round(f.Float(key)))
}

// Time returns the timestamp stored under key, or the zero time.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	default:
		return time.Time{}
	}
}
