package fees

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/longbox/internal/common"
)

// ParseRateOverride normalizes a stored per-seller fee rate into a fraction.
//
// Profiles store the rate loosely, so the raw value may be:
//   - null or empty: no override
//   - a number or numeric string: a fraction such as 0.03
//   - a string ending in "%": a percentage such as "3%"
//   - an object {"rate": 0.03} or {"percent": 3}
//
// Any other shape, or a value outside [0, 1), returns common.ErrMalformedRate.
func ParseRateOverride(raw json.RawMessage) (*float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil //nolint:nilnil // absent override is not an error
	}

	var rate float64
	var err error
	switch trimmed[0] {
	case '"':
		var s string
		if err = json.Unmarshal(trimmed, &s); err == nil {
			rate, err = parseRateString(s)
		}
	case '{':
		rate, err = parseRateObject(trimmed)
	default:
		err = json.Unmarshal(trimmed, &rate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMalformedRate, trimmed, err)
	}

	if err := ValidateRate(rate); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRate, err)
	}
	return &rate, nil
}

func parseRateString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, err
		}
		return v / 100, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseRateObject(raw []byte) (float64, error) {
	var obj struct {
		Rate    *float64 `json:"rate"`
		Percent *float64 `json:"percent"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, err
	}
	switch {
	case obj.Rate != nil && obj.Percent != nil:
		return 0, fmt.Errorf("both rate and percent set")
	case obj.Rate != nil:
		return *obj.Rate, nil
	case obj.Percent != nil:
		return *obj.Percent / 100, nil
	default:
		return 0, fmt.Errorf("object has neither rate nor percent")
	}
}
