package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SlotFlags stores one key per booked slot. A missing key means the slot is free.
type SlotFlags struct {
	client *redis.Client
}

func NewSlotFlags(client *redis.Client) *SlotFlags {
	return &SlotFlags{client: client}
}

func flagKey(slot string) string {
	return fmt.Sprintf("slot:%s", slot)
}

// Claim books the slot unless someone already holds it.
func (f *SlotFlags) Claim(ctx context.Context, slot string) (bool, error) {
	ok, err := f.client.SetNX(ctx, flagKey(slot), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("claim slot %s: %w", slot, err)
	}
	return ok, nil
}

func (f *SlotFlags) Free(ctx context.Context, slot string) error {
	if err := f.client.Del(ctx, flagKey(slot)).Err(); err != nil {
		return fmt.Errorf("free slot %s: %w", slot, err)
	}
	return nil
}

// Claimed reports, for each slot, whether it is booked.
func (f *SlotFlags) Claimed(ctx context.Context, slots []string) ([]bool, error) {
	cmds := make([]*redis.IntCmd, len(slots))
	_, err := f.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, slot := range slots {
			cmds[i] = pipe.Exists(ctx, flagKey(slot))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check slots: %w", err)
	}

	out := make([]bool, len(slots))
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

// Sequence is a shared counter backed by INCR.
type Sequence struct {
	client *redis.Client
	key    string
}

func NewSequence(client *redis.Client, name string) *Sequence {
	return &Sequence{client: client, key: fmt.Sprintf("seq:%s", name)}
}

func (s *Sequence) Incr(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", s.key, err)
	}
	return n, nil
}
