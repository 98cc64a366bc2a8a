package redis

import (
	"context"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"
)

// Treasury credits payouts to balance:{account} keys. Balances are stored as
// decimal strings because prize amounts can exceed int64, which rules out a
// plain INCRBY.
type Treasury struct {
	client *redis.Client
}

func NewTreasury(client *redis.Client) *Treasury {
	return &Treasury{client: client}
}

func (t *Treasury) Pay(ctx context.Context, account string, amount *big.Int) error {
	key := "balance:" + account
	err := t.client.Watch(ctx, func(rtx *redis.Tx) error {
		current, err := rtx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		balance := new(big.Int)
		if err == nil {
			if _, ok := balance.SetString(current, 10); !ok {
				return fmt.Errorf("malformed balance for %s: %q", account, current)
			}
		}
		balance.Add(balance, amount)
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, balance.String(), 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return nil
}

// Balance reads the total credited to an account.
func (t *Treasury) Balance(ctx context.Context, account string) (*big.Int, error) {
	current, err := t.client.Get(ctx, "balance:"+account).Result()
	if err == redis.Nil {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(current, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance for %s: %q", account, current)
	}
	return balance, nil
}
