package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration fields are plain strings ("2s", "1m30s") so the document reads
// the same in JSON and YAML. Empty means unset and parses to zero;
// ApplyDefaults fills those before validation, so a zero that survives is
// a deliberate operator choice.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}
