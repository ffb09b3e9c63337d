package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestSplitIncomeExactness(t *testing.T) {
	amounts := []int64{0, 1, 49, 50, 99, 100, 999, 100000, 123456789}
	for rate := 0; rate <= 100; rate++ {
		for _, c := range amounts {
			r, s := SplitIncome(Money{Cents: c}, rate)
			if r.Cents+s.Cents != c {
				t.Fatalf("split(%d, %d%%) = %d + %d, does not sum back", c, rate, r.Cents, s.Cents)
			}
			if r.Cents < 0 || s.Cents < 0 {
				t.Fatalf("split(%d, %d%%) produced a negative share", c, rate)
			}
		}
	}
}

func TestSplitIncomeRounding(t *testing.T) {
	// 10% of 10.05 is 1.005, rounds half-up to 1.01
	r, s := SplitIncome(Money{Cents: 1005}, 10)
	if r.Cents != 101 || s.Cents != 904 {
		t.Fatalf("expected 101/904, got %d/%d", r.Cents, s.Cents)
	}
}

func TestSplitIncomeNegation(t *testing.T) {
	for _, c := range []int64{1, 33, 1005, 99999} {
		for _, rate := range []int{0, 7, 10, 33, 50, 100} {
			pr, ps := SplitIncome(Money{Cents: c}, rate)
			nr, ns := SplitIncome(Money{Cents: -c}, rate)
			if nr.Cents != -pr.Cents || ns.Cents != -ps.Cents {
				t.Fatalf("split(-%d, %d%%) is not the negation of split(%d, %d%%)", c, rate, c, rate)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-50, "-0.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
