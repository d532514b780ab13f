package domain

import "testing"

func TestValidEventType(t *testing.T) {
	for _, et := range EventTypes {
		if !ValidEventType(string(et)) {
			t.Errorf("ValidEventType(%q) = false, want true", et)
		}
	}
	for _, s := range []string{"", "trade.executed", "NOTIFY"} {
		if ValidEventType(s) {
			t.Errorf("ValidEventType(%q) = true, want false", s)
		}
	}
}

func TestInstrument_MarketValueAndSummary(t *testing.T) {
	inst := Instrument{
		Name:     "AAA",
		Price:    MustMoney("12.50"),
		Quantity: 4,
		History:  []PricePoint{{Value: MustMoney("12.50")}},
	}
	if got, err := inst.MarketValue(); err != nil || got.Cmp(MustMoney("50")) != 0 {
		t.Errorf("MarketValue() = (%s, %v), want 50.00", got, err)
	}
	if s := inst.Summary(); s.History != nil {
		t.Errorf("Summary().History = %v, want nil", s.History)
	}
	if len(inst.History) != 1 {
		t.Error("Summary must not modify the receiver")
	}
}

func TestSettlement_Side(t *testing.T) {
	if got := (Settlement{Amount: 3}).Side(); got != "buy" {
		t.Errorf("Side() = %q, want buy", got)
	}
	if got := (Settlement{Amount: -3}).Side(); got != "sell" {
		t.Errorf("Side() = %q, want sell", got)
	}
}
