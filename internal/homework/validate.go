package homework

import (
	"encoding/json"
	"math"
)

// Response is the validated top-level payload.
//
// Items are the raw elements of "homeworks", in response order. They are
// checked one by one by Parse so that element shape problems surface at
// format time.
type Response struct {
	Items []any

	// CurrentDate is the server-side timestamp to use as the next cursor.
	// HasDate is false when the field is absent or not an integer.
	CurrentDate int64
	HasDate     bool
}

// Validate checks the decoded API payload and extracts the work-item list.
func Validate(raw any) (Response, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Response{}, &SchemaError{Reason: "not a mapping"}
	}
	items, ok := m["homeworks"].([]any)
	if !ok {
		return Response{}, &SchemaError{Reason: "homeworks not a list"}
	}

	resp := Response{Items: items}
	resp.CurrentDate, resp.HasDate = asInt64(m["current_date"])
	return resp, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
