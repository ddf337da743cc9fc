package trigger

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SpecKind describes the normalized kind of a trigger spec string.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// Spec is a parsed trigger spec.
//
// Supported forms:
//   - Cron (crontab.guru-style): "0 9 * * *", "@daily", "@every 6h"
//   - Interval duration: "24h", "90m"
//   - Daily HH:MM: "09:30" fires every day at that local time
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
type Spec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "duration" | "daily"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseSpec parses a trigger spec into either a cron expression or an
// interval duration.
func ParseSpec(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("trigger spec required")
	}

	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Spec{}, fmt.Errorf("cron expression required after 'cron:'")
		}
		return Spec{Kind: SpecCron, Cron: expr, Source: "cron"}, nil
	}
	for _, p := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, p) {
			d, err := parseInterval(s[len(p):])
			if err != nil {
				return Spec{}, err
			}
			return Spec{Kind: SpecInterval, Every: d, Source: "duration"}, nil
		}
	}

	// Any whitespace or a leading '@' means a cron expression.
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return Spec{Kind: SpecCron, Cron: s, Source: "cron"}, nil
	}

	// Bare HH:MM fires daily at that time.
	if m := reHHMM.FindStringSubmatch(s); m != nil {
		hh, mm, err := parseDaily(m)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: SpecCron, Cron: fmt.Sprintf("%d %d * * *", mm, hh), Source: "daily"}, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return Spec{}, fmt.Errorf("trigger interval must be > 0")
		}
		return Spec{Kind: SpecInterval, Every: d, Source: "duration"}, nil
	}

	return Spec{}, fmt.Errorf(
		"invalid trigger spec %q (use cron like '0 9 * * *', daily HH:MM like '09:30', or a duration like '24h')",
		raw,
	)
}

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("trigger interval required")
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid trigger interval %q (use a Go duration like '24h' or '90m')", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("trigger interval must be > 0")
	}
	return d, nil
}

func parseDaily(m []string) (hh, mm int, err error) {
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm = int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if hh > 23 {
		return 0, 0, fmt.Errorf("invalid hour in daily time %q", m[0])
	}
	if mm > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in daily time %q", m[0])
	}
	return hh, mm, nil
}
