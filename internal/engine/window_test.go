package engine

import (
	"testing"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
	"pgregory.net/rapid"
)

func points(values ...string) []domain.PricePoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := make([]domain.PricePoint, len(values))
	for i, v := range values {
		result[i] = domain.PricePoint{Time: base.Add(time.Duration(i) * time.Second), Value: domain.MustMoney(v)}
	}
	return result
}

func TestAdvance_EvictsOldestAndKeepsLength(t *testing.T) {
	window := points("1.00", "2.00", "3.00")
	next := domain.PricePoint{Time: window[2].Time.Add(time.Second), Value: domain.MustMoney("4.00")}

	got := Advance(window, next)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"2.00", "3.00", "4.00"}
	for i, w := range want {
		if got[i].Value.String() != w {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Value, w)
		}
	}
	if window[0].Value.String() != "1.00" {
		t.Error("Advance must not modify its input")
	}
}

func TestAdvance_EmptyWindow(t *testing.T) {
	p := domain.PricePoint{Value: domain.MustMoney("1.00")}
	if got := Advance(nil, p); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestChangePercent(t *testing.T) {
	tests := []struct {
		name   string
		window []domain.PricePoint
		want   string
	}{
		{"rise", points("100.00", "90.00", "110.00"), "10"},
		{"fall", points("200.00", "150.00"), "-25"},
		{"flat", points("5.00", "7.00", "5.00"), "0"},
		{"single point", points("5.00"), "0"},
		{"empty", nil, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangePercent(tt.window)
			if got.Cmp(decimal.MustParse(tt.want)) != 0 {
				t.Errorf("ChangePercent() = %s, want %s", got, tt.want)
			}
		})
	}
}

// Feature: stock-simulation, Property 4: Change percent is computed from the window ends

func TestProperty_ChangePercentMatchesEnds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.SliceOfN(rapid.Int64Range(1, 10_000_00), 1, 50).Draw(t, "cents")

		window := make([]domain.PricePoint, len(cents))
		for i, c := range cents {
			window[i] = domain.PricePoint{Value: decimal.MustNew(c, 2)}
		}

		got, _ := ChangePercent(window).Float64()
		first := float64(cents[0])
		last := float64(cents[len(cents)-1])
		want := (last - first) / first * 100

		tolerance := 1e-9 * max(1, abs(want))
		if abs(got-want) > tolerance {
			t.Fatalf("ChangePercent = %v, want %v (first=%v last=%v)", got, want, first, last)
		}
	})
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
