package importer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayouts are the accepted textual forms of a posting or invoice date.
// Values without a zone are read as UTC.
var DateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate parses value with the first matching layout in DateLayouts and
// returns it in UTC
func ParseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, strings.TrimSpace(value))
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// UnmarshalJSON accepts postedAt in any of DateLayouts, so a date-only
// "2024-01-02" decodes the same way a statement row does.
func (in *TransactionInput) UnmarshalJSON(data []byte) error {
	type plain TransactionInput
	aux := struct {
		*plain
		PostedAt *string `json:"postedAt"`
	}{plain: (*plain)(in)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.PostedAt == nil || strings.TrimSpace(*aux.PostedAt) == "" {
		in.PostedAt = time.Time{}
		return nil
	}

	postedAt, err := ParseDate(*aux.PostedAt)
	if err != nil {
		return fmt.Errorf("postedAt %q: want RFC3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD", *aux.PostedAt)
	}
	in.PostedAt = postedAt
	return nil
}
