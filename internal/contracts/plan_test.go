package contracts

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNewRebalancePlan_EncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(NewRebalancePlan())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"actions":[],"notes":[],"warnings":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRebalancePlan_Counts(t *testing.T) {
	plan := &RebalancePlan{Actions: []RebalanceAction{
		{Action: ActionBuy, Ticker: "JNJ", DeltaWeight: 0.1},
		{Action: ActionSell, Ticker: "AAPL", DeltaWeight: 0.2},
		{Action: ActionBuy, Ticker: "XOM", DeltaWeight: 0.1},
	}}

	if plan.BuyCount() != 2 {
		t.Errorf("BuyCount() = %d, want 2", plan.BuyCount())
	}
	if plan.SellCount() != 1 {
		t.Errorf("SellCount() = %d, want 1", plan.SellCount())
	}
}

func TestTargetAllocation_Sum(t *testing.T) {
	target := TargetAllocation{Cash: 0.1, CoreEquity: 0.5, ThematicSectors: 0.15, Defensive: 0.25}

	if math.Abs(target.Sum()-1.0) > 1e-12 {
		t.Errorf("Sum() = %v, want 1.0", target.Sum())
	}
	if math.Abs(target.Equity()-0.9) > 1e-12 {
		t.Errorf("Equity() = %v, want 0.9", target.Equity())
	}
}

func TestApplyPlan(t *testing.T) {
	current := Portfolio{
		Holdings: []Holding{
			{Ticker: "aapl", Weight: 0.5},
			{Ticker: "MSFT", Weight: 0.3},
			{Ticker: "XOM", Weight: 0.1},
		},
		CashWeight: 0.1,
	}
	plan := &RebalancePlan{Actions: []RebalanceAction{
		{Action: ActionSell, Ticker: "AAPL", DeltaWeight: 0.25},
		{Action: ActionBuy, Ticker: "JNJ", DeltaWeight: 0.2},
		{Action: ActionSell, Ticker: "XOM", DeltaWeight: 0.5}, // 보유량보다 큰 매도는 보유량까지만
		{Action: ActionBuy, Ticker: "MSFT", DeltaWeight: 0.05},
	}}

	result := ApplyPlan(current, plan)

	want := []Holding{
		{Ticker: "AAPL", Weight: 0.25},
		{Ticker: "MSFT", Weight: 0.35},
		{Ticker: "JNJ", Weight: 0.2},
	}
	if len(result.Holdings) != len(want) {
		t.Fatalf("Holdings = %+v, want %+v", result.Holdings, want)
	}
	for i, h := range want {
		got := result.Holdings[i]
		if got.Ticker != h.Ticker || math.Abs(got.Weight-h.Weight) > 1e-12 {
			t.Errorf("Holdings[%d] = %+v, want %+v", i, got, h)
		}
	}
	if math.Abs(result.CashWeight-0.2) > 1e-12 {
		t.Errorf("CashWeight = %v, want 0.2", result.CashWeight)
	}
	if math.Abs(result.Total()-1.0) > 1e-12 {
		t.Errorf("Total() = %v, want 1.0", result.Total())
	}

	// 원본은 변경되지 않음
	if current.Holdings[0].Ticker != "aapl" || current.Holdings[0].Weight != 0.5 {
		t.Errorf("input mutated: %+v", current.Holdings[0])
	}
}

func TestApplyPlan_DropsDust(t *testing.T) {
	current := Portfolio{Holdings: []Holding{{Ticker: "AAPL", Weight: 0.5}}, CashWeight: 0.5}
	plan := &RebalancePlan{Actions: []RebalanceAction{
		{Action: ActionSell, Ticker: "AAPL", DeltaWeight: 0.4995},
	}}

	result := ApplyPlan(current, plan)

	if len(result.Holdings) != 0 {
		t.Errorf("Holdings = %+v, want none", result.Holdings)
	}
	if math.Abs(result.CashWeight-1.0) > 1e-12 {
		t.Errorf("CashWeight = %v, want 1.0", result.CashWeight)
	}
}
