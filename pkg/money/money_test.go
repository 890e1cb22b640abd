package money

import "testing"

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"700.00", 70000, true},
		{"1,500.00", 150000, true},
		{"R 1,500.00", 150000, true},
		{"500", 50000, true},
		{"500,50", 50050, true},
		{"-120.00", -12000, true},
		{"(120.00)", -12000, true},
		{"4,918.02", 491802, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12.3.4", 0, false},
	}
	for _, c := range cases {
		got, err := ParseCents(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ParseCents(%q) = %d, %v; want %d", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("ParseCents(%q) expected error, got %d", c.in, got)
		}
	}
}

func TestFormatRands(t *testing.T) {
	if s := FormatRands(150000); s != "1500.00" {
		t.Fatalf("expected 1500.00 got %s", s)
	}
	if s := FormatRands(-5); s != "-0.05" {
		t.Fatalf("expected -0.05 got %s", s)
	}
}
