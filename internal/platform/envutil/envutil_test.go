package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"7", 7 * time.Second},
		{"soon", 5 * time.Second},
	}
	for _, tc := range cases {
		t.Setenv("TEST_DURATION", tc.raw)
		if got := Duration("TEST_DURATION", 5*time.Second); got != tc.want {
			t.Fatalf("Duration(%q): want=%v got=%v", tc.raw, tc.want, got)
		}
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_BOOL", "off")
	if Bool("TEST_BOOL", true) {
		t.Fatalf("Bool: want=false")
	}
	t.Setenv("TEST_LIST", " a, ,b ")
	got := List("TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
}

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "twenty")
	if got := Int("TEST_INT", 20); got != 20 {
		t.Fatalf("Int: want=20 got=%d", got)
	}
}
