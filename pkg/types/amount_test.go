package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundAmountKeepsSixDigits(t *testing.T) {
	got := RoundAmount(decimal.RequireFromString("1.23456789"))
	if !got.Equal(decimal.RequireFromString("1.234568")) {
		t.Fatalf("unexpected rounding %s", got)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("100.0000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", got)
	}
	if _, err := ParseAmount("ten"); err == nil {
		t.Fatal("expected parse failure")
	}
}
