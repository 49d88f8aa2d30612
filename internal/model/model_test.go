package model

import (
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{"h1", H1, false},
		{" M15 ", M15, false},
		{"mn1", MN1, false},
		{"H2", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTimeframe(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTimeframe(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTimeframeSchedule(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		dur  time.Duration
		cron string
	}{
		{M1, time.Minute, "5 * * * * *"},
		{M15, 15 * time.Minute, "5 */15 * * * *"},
		{H4, 4 * time.Hour, "5 0 */4 * * *"},
		{D1, 24 * time.Hour, "5 0 0 * * *"},
		{W1, 7 * 24 * time.Hour, "5 0 0 * * 1"},
	}
	for _, tt := range tests {
		if tt.tf.Duration() != tt.dur || tt.tf.CronSpec() != tt.cron {
			t.Errorf("%s: got %s %q", tt.tf, tt.tf.Duration(), tt.tf.CronSpec())
		}
	}
	if Timeframe("X").Label() != "X" {
		t.Error("unknown timeframe should label as itself")
	}
}

func TestBarGeometry(t *testing.T) {
	b := Bar{Timeframe: H1, Time: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC), Open: 10, High: 12, Low: 7, Close: 9}
	if b.Body() != 1 || b.Range() != 5 || b.UpperShadow() != 2 || b.LowerShadow() != 2 {
		t.Errorf("unexpected geometry body=%v range=%v upper=%v lower=%v", b.Body(), b.Range(), b.UpperShadow(), b.LowerShadow())
	}
	if !b.Bearish() || b.Bullish() {
		t.Error("close below open is bearish")
	}
	if want := b.Time.Add(time.Hour); !b.CloseTime().Equal(want) {
		t.Errorf("close time = %s, want %s", b.CloseTime(), want)
	}
	feb := Bar{Timeframe: MN1, Time: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !feb.CloseTime().Equal(want) {
		t.Errorf("monthly close time = %s, want %s", feb.CloseTime(), want)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.ID())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.ID(), got, err)
		}
	}
	if _, err := ParseKind("morning_star"); err == nil {
		t.Error("expected error for unknown pattern")
	}
	if Kind(42).String() != "Kind(42)" {
		t.Errorf("unexpected name %q", Kind(42).String())
	}
}

func TestKindSet(t *testing.T) {
	s := NewKindSet(Doji, Hammer)
	if !s.Has(Doji) || !s.Has(Hammer) || s.Has(ShootingStar) {
		t.Fatalf("unexpected membership %s", s)
	}
	if got := s.String(); got != "hammer,doji" {
		t.Errorf("String() = %q, want evaluation order", got)
	}
	if s.Without(Doji).Has(Doji) {
		t.Error("Without should remove the kind")
	}
	if len(AllKinds.Kinds()) != len(Kinds()) {
		t.Error("AllKinds should contain every kind")
	}
	if KindSet(0).Has(Doji) || AllKinds.Has(Kind(99)) {
		t.Error("unexpected member")
	}
}

func TestKindDirection(t *testing.T) {
	tests := map[Kind]Direction{
		BullishEngulfing: Bullish,
		Hammer:           Bullish,
		BearishEngulfing: Bearish,
		ShootingStar:     Bearish,
		Doji:             Neutral,
	}
	for k, want := range tests {
		if k.Direction() != want {
			t.Errorf("%s: got %s, want %s", k, k.Direction(), want)
		}
	}
}
