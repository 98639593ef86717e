package analog

import (
	"context"
)

// SetOutputBehaviorFunc defines the function signature for DAC output behavior.
// It receives the addressed channel and the 16-bit output value.
type SetOutputBehaviorFunc func(ctx context.Context, channel Channel, value uint16) error

// MockDAC is a mock implementation of a multi-channel DAC that uses a
// behavior function to handle output updates without requiring hardware.
// This can be used to mock converters like the AD5668.
type MockDAC struct {
	behavior SetOutputBehaviorFunc
}

// NewMockDAC creates a new mock DAC with the given behavior function.
// The behavior function is called whenever WriteAndUpdateChannel is invoked.
//
// Example usage:
//
//	dac := NewMockDAC(func(ctx context.Context, ch Channel, value uint16) error { return nil })
func NewMockDAC(behavior SetOutputBehaviorFunc) *MockDAC {
	return &MockDAC{behavior: behavior}
}

// WriteAndUpdateChannel applies the output update by calling the behavior function.
func (m *MockDAC) WriteAndUpdateChannel(ctx context.Context, channel Channel, value uint16) error {
	return m.behavior(ctx, channel, value)
}

// NewMockAD5668 creates a new mock AD5668 converter (alias for NewMockDAC).
func NewMockAD5668(behavior SetOutputBehaviorFunc) *MockDAC {
	return NewMockDAC(behavior)
}
