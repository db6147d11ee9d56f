package liveexchange

import "testing"

func TestNewWalletFromHex(t *testing.T) {
	// Well-known throwaway test key (Hardhat default account #0), not a
	// real fund-bearing address.
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	_, err := NewWalletFromHex(key[:64])
	if err == nil {
		t.Fatalf("expected error for malformed key length")
	}
}

func TestNewWalletFromHexValid(t *testing.T) {
	const key = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	w, err := NewWalletFromHex(key)
	if err != nil {
		t.Fatalf("NewWalletFromHex: %v", err)
	}
	if w.Address.Hex() == "" {
		t.Fatalf("expected non-empty derived address")
	}
}

func TestBuildBuyOrderRequiresWallet(t *testing.T) {
	b := NewOrderBuilder(137, nil)
	if _, err := b.BuildBuyOrder("123", "1000000", "2000000"); err == nil {
		t.Fatalf("expected error when wallet is nil")
	}
}
