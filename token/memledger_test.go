package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testAddr(suffix byte) common.Address {
	var a common.Address
	a[len(a)-1] = suffix
	return a
}

func TestTransferMovesBalances(t *testing.T) {
	asset := testAddr(0x10)
	from, to := testAddr(0x01), testAddr(0x02)
	l := NewMemLedger()
	if err := l.Mint(asset, from, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(asset, from, to, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	src, _ := l.BalanceOf(asset, from)
	dst, _ := l.BalanceOf(asset, to)
	if src.Cmp(big.NewInt(60)) != 0 || dst.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("balances after transfer: %s / %s", src, dst)
	}
	if err := l.Transfer(asset, from, to, big.NewInt(100)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestHookErrorRevertsTransfer(t *testing.T) {
	asset := testAddr(0x10)
	from, to := testAddr(0x01), testAddr(0x02)
	l := NewMemLedger()
	if err := l.Mint(asset, from, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	broken := errors.New("token frozen")
	var sawDst *big.Int
	l.SetTransferHook(func(asset, from, to common.Address, amount *big.Int) error {
		// The hook observes the applied movement before it is reverted.
		sawDst, _ = l.BalanceOf(asset, to)
		return broken
	})
	if err := l.Transfer(asset, from, to, big.NewInt(40)); !errors.Is(err, broken) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if sawDst == nil || sawDst.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("hook did not observe the movement: %s", sawDst)
	}
	src, _ := l.BalanceOf(asset, from)
	dst, _ := l.BalanceOf(asset, to)
	if src.Cmp(big.NewInt(100)) != 0 || dst.Sign() != 0 {
		t.Fatalf("failed transfer left funds moved: %s / %s", src, dst)
	}
}
