package quantity

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/invman/internal/domain"
)

func TestIsValid(t *testing.T) {
	for _, q := range []Quantity{Supply, Night, Morning, Noon, Evening} {
		if !q.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", q)
		}
	}

	for _, q := range []Quantity{"", "warning", "empty_prediction", "SUPPLY", "lunch"} {
		if q.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", q)
		}
	}
}

func TestIsDose(t *testing.T) {
	if Supply.IsDose() {
		t.Error("Supply.IsDose() = true")
	}
	for _, q := range Doses() {
		if !q.IsDose() {
			t.Errorf("%q.IsDose() = false", q)
		}
	}
	if Quantity("warning").IsDose() {
		t.Error("warning.IsDose() = true")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	if len(a) != 5 {
		t.Fatalf("len(All()) = %d, want 5", len(a))
	}
	a[0] = "mutated"
	if All()[0] != Supply {
		t.Error("All() exposes internal slice")
	}
}

func TestDoses(t *testing.T) {
	d := Doses()
	want := []Quantity{Morning, Noon, Evening, Night}
	if len(d) != len(want) {
		t.Fatalf("len(Doses()) = %d, want %d", len(d), len(want))
	}
	for i := range want {
		if d[i] != want[i] {
			t.Errorf("Doses()[%d] = %q, want %q", i, d[i], want[i])
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"supply", Supply},
		{"Morning", Morning},
		{" NOON ", Noon},
		{"evening", Evening},
		{"night", Night},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "warning", "empty_prediction", "brunch"} {
		_, err := Parse(in)
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidQuantity", in, err)
		}
	}
}
