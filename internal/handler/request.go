package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var errQty = errors.New("qty must be a non-negative integer")

// parseQty accepts a JSON number or a numeric string holding an integer >= 0.
func parseQty(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("qty is required")
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, errQty
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(raw)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errQty
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, errQty
	}
	return int(f), nil
}
