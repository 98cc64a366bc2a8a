package redis

import (
	"context"
	"math/big"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTreasuryAccumulatesBalances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	treasury := NewTreasury(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	// Amounts past int64 must survive the string round trip.
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	if err := treasury.Pay(ctx, "alice", huge); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := treasury.Pay(ctx, "alice", big.NewInt(1)); err != nil {
		t.Fatalf("pay: %v", err)
	}

	balance, err := treasury.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	want := new(big.Int).Add(huge, big.NewInt(1))
	if balance.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, balance)
	}

	zero, err := treasury.Balance(ctx, "bob")
	if err != nil || zero.Sign() != 0 {
		t.Fatalf("expected zero balance for bob, got %s err=%v", zero, err)
	}
}
