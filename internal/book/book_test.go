package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

// d is a test helper for creating decimals from strings.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fill struct {
	price, qty string
}

func applyAll(t *testing.T, fills []fill) *model.Holding {
	t.Helper()
	var h *model.Holding
	for _, f := range fills {
		var err error
		h, err = ApplyBuy(h, "pf", "primary:1", d(f.price), d(f.qty))
		if err != nil {
			t.Fatalf("ApplyBuy(%v): %v", f, err)
		}
	}
	return h
}

func TestApplyBuy_FirstBuySetsAvgToPrice(t *testing.T) {
	h, err := ApplyBuy(nil, "pf", "primary:1", d("10"), d("50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Shares.Equal(d("50")) || !h.AvgCost.Equal(d("10")) {
		t.Errorf("got shares=%s avg=%s, want 50 @ 10", h.Shares, h.AvgCost)
	}
}

func TestApplyBuy_TwoFills(t *testing.T) {
	h := applyAll(t, []fill{{"10", "10"}, {"20", "10"}})
	if !h.Shares.Equal(d("20")) {
		t.Errorf("shares = %s, want 20", h.Shares)
	}
	if !h.AvgCost.Equal(d("15")) {
		t.Errorf("avg = %s, want 15", h.AvgCost)
	}
}

func TestApplyBuy_OrderIndependent(t *testing.T) {
	tests := []struct {
		name      string
		fills     []fill
		orderings [][]int
	}{
		{
			name:      "mixed fractions",
			fills:     []fill{{"10", "10"}, {"20", "10"}, {"30", "20"}, {"12.5", "3.25"}},
			orderings: [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}},
		},
		{
			name:      "non-terminating average",
			fills:     []fill{{"37.16", "5131848"}, {"31.31", "7941319"}, {"40.4", "1240457"}},
			orderings: [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}},
		},
		{
			name:      "thirds",
			fills:     []fill{{"1", "1"}, {"2", "1"}, {"2", "1"}},
			orderings: [][]int{{0, 1, 2}, {1, 2, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Σ(p·q) / Σq computed directly, rounded once.
			num, den := decimal.Zero, decimal.Zero
			for _, f := range tt.fills {
				num = num.Add(d(f.price).Mul(d(f.qty)))
				den = den.Add(d(f.qty))
			}
			want := num.DivRound(den, AvgScale)

			for _, order := range tt.orderings {
				seq := make([]fill, 0, len(order))
				for _, i := range order {
					seq = append(seq, tt.fills[i])
				}
				h := applyAll(t, seq)
				if !h.Shares.Equal(den) {
					t.Errorf("order %v: shares = %s, want %s", order, h.Shares, den)
				}
				if !h.AvgCost.Equal(want) {
					t.Errorf("order %v: avg = %s, want %s", order, h.AvgCost, want)
				}
				if !h.CostBasis.Equal(num) {
					t.Errorf("order %v: basis = %s, want %s", order, h.CostBasis, num)
				}
			}
		})
	}
}

func TestApplyBuy_AfterPartialSellUsesRecordedAverage(t *testing.T) {
	h := applyAll(t, []fill{{"1", "1"}, {"2", "2"}}) // avg 5/3
	left, err := ApplySell(h, d("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !left.CostBasis.Equal(h.AvgCost.Mul(d("2"))) {
		t.Errorf("basis after sell = %s, want avg × 2", left.CostBasis)
	}

	next, err := ApplyBuy(left, "pf", "primary:1", d("4"), d("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := h.AvgCost.Mul(d("2")).Add(d("4")).DivRound(d("3"), AvgScale)
	if !next.AvgCost.Equal(want) {
		t.Errorf("avg = %s, want %s", next.AvgCost, want)
	}
}

func TestApplyBuy_LegacyHoldingWithoutBasis(t *testing.T) {
	legacy := &model.Holding{PortfolioID: "pf", PlayerID: "primary:1", Shares: d("10"), AvgCost: d("10")}
	h, err := ApplyBuy(legacy, "pf", "primary:1", d("20"), d("10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.AvgCost.Equal(d("15")) || !h.CostBasis.Equal(d("300")) {
		t.Errorf("got avg=%s basis=%s, want 15 / 300", h.AvgCost, h.CostBasis)
	}
}

func TestCheckShares(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"1", nil},
		{"0.00000001", nil},
		{"12.5", nil},
		{"1.000000000000000000000", nil},
		{"100e-10", nil},
		{"999999999999.99999999", nil},
		{"0", ErrNonPositive},
		{"-3", ErrNonPositive},
		{"0.000000001", ErrShareScale},
		{"1e-11", ErrShareScale},
		{"1e-20000000", ErrShareScale},
		{"1000000000000", ErrShareSize},
		{"1e2000000000", ErrShareSize},
	}
	for _, tt := range tests {
		if got := CheckShares(d(tt.in)); got != tt.want {
			t.Errorf("CheckShares(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCheckShares_TinyExponentIsCheap(t *testing.T) {
	start := time.Now()
	for _, s := range []string{"1e-20000000", "7e-2147483000", "-1e-2147483000"} {
		if CheckShares(d(s)) == nil {
			t.Errorf("CheckShares(%s) accepted", s)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("validation took %s", elapsed)
	}
}

func TestApplyBuy_RejectsNonPositive(t *testing.T) {
	if _, err := ApplyBuy(nil, "pf", "p", d("10"), d("0")); err != ErrNonPositive {
		t.Errorf("expected ErrNonPositive, got %v", err)
	}
}

func TestApplySell_KeepsAverage(t *testing.T) {
	h := applyAll(t, []fill{{"10", "10"}, {"20", "10"}})
	left, err := ApplySell(h, d("5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !left.Shares.Equal(d("15")) {
		t.Errorf("shares = %s, want 15", left.Shares)
	}
	if !left.AvgCost.Equal(h.AvgCost) {
		t.Errorf("avg changed on sell: %s -> %s", h.AvgCost, left.AvgCost)
	}
}

func TestApplySell_ToZeroRemoves(t *testing.T) {
	h := applyAll(t, []fill{{"10", "7.5"}})
	left, err := ApplySell(h, d("7.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left != nil {
		t.Fatalf("expected holding removed, got %+v", left)
	}

	// A later buy starts fresh.
	again, _ := ApplyBuy(left, "pf", "primary:1", d("42"), d("1"))
	if !again.AvgCost.Equal(d("42")) || !again.Shares.Equal(d("1")) {
		t.Errorf("recreated holding carries residual state: %+v", again)
	}
}

func TestApplySell_Underflow(t *testing.T) {
	h := applyAll(t, []fill{{"10", "1"}})
	if _, err := ApplySell(h, d("1.0001")); err != ErrUnderflow {
		t.Errorf("expected ErrUnderflow, got %v", err)
	}
	if _, err := ApplySell(nil, d("1")); err != ErrUnderflow {
		t.Errorf("expected ErrUnderflow for missing holding, got %v", err)
	}
}

func TestBookValue(t *testing.T) {
	hs := []model.Holding{
		{Shares: d("10"), AvgCost: d("15")},
		{Shares: d("2.5"), AvgCost: d("4")},
	}
	if got := BookValue(hs); !got.Equal(d("160")) {
		t.Errorf("BookValue = %s, want 160", got)
	}
}
