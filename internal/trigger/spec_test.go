package trigger

import (
	"testing"
	"time"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    Spec
		wantErr bool
	}{
		{name: "bare cron", raw: "0 9 * * *", want: Spec{Kind: SpecCron, Cron: "0 9 * * *", Source: "cron"}},
		{name: "descriptor", raw: "@daily", want: Spec{Kind: SpecCron, Cron: "@daily", Source: "cron"}},
		{name: "cron prefix", raw: "cron:*/5 * * * *", want: Spec{Kind: SpecCron, Cron: "*/5 * * * *", Source: "cron"}},
		{name: "daily hhmm", raw: "09:30", want: Spec{Kind: SpecCron, Cron: "30 9 * * *", Source: "daily"}},
		{name: "daily midnight", raw: "0:00", want: Spec{Kind: SpecCron, Cron: "0 0 * * *", Source: "daily"}},
		{name: "bare duration", raw: "24h", want: Spec{Kind: SpecInterval, Every: 24 * time.Hour, Source: "duration"}},
		{name: "interval prefix", raw: "interval:90m", want: Spec{Kind: SpecInterval, Every: 90 * time.Minute, Source: "duration"}},
		{name: "every prefix", raw: "every:6h", want: Spec{Kind: SpecInterval, Every: 6 * time.Hour, Source: "duration"}},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "empty cron prefix", raw: "cron:", wantErr: true},
		{name: "empty interval prefix", raw: "interval: ", wantErr: true},
		{name: "hour out of range", raw: "24:00", wantErr: true},
		{name: "minutes out of range", raw: "09:61", wantErr: true},
		{name: "negative interval", raw: "interval:-5m", wantErr: true},
		{name: "zero interval", raw: "0s", wantErr: true},
		{name: "garbage", raw: "soonish", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSpec(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseSpec(%q) = %+v, want error", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseSpec(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}
