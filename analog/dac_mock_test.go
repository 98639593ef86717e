package analog

import (
	"context"
	"fmt"
	"testing"
)

func TestMockDAC_RecordsOutput(t *testing.T) {
	var gotChannel Channel
	var gotValue uint16
	d := NewMockDAC(func(ctx context.Context, channel Channel, value uint16) error {
		gotChannel = channel
		gotValue = value
		return nil
	})
	ctx := context.Background()
	err := d.WriteAndUpdateChannel(ctx, ChannelC, 0x7FFF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotChannel != ChannelC || gotValue != 0x7FFF {
		t.Errorf("expected C/0x7FFF, got %s/%#04x", gotChannel, gotValue)
	}
}

func TestMockDAC_Error(t *testing.T) {
	d := NewMockDAC(func(ctx context.Context, channel Channel, value uint16) error {
		return fmt.Errorf("dac error")
	})
	ctx := context.Background()
	err := d.WriteAndUpdateChannel(ctx, ChannelA, 0)
	if err == nil || err.Error() != "dac error" {
		t.Errorf("expected dac error, got %v", err)
	}
}

func TestMockDAC_ContextPropagation(t *testing.T) {
	var received context.Context
	d := NewMockDAC(func(ctx context.Context, channel Channel, value uint16) error {
		received = ctx
		return nil
	})
	type ctxKey string
	key := ctxKey("k")
	ctx := context.WithValue(context.Background(), key, "v")
	_ = d.WriteAndUpdateChannel(ctx, ChannelA, 42)
	if received.Value(key) != "v" {
		t.Error("context was not propagated")
	}
}
