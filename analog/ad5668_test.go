package analog

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSPIBus is a mock implementation of dac.SPIBus using testify/mock.
// It records a copy of every frame written so the exact bit layout can be
// asserted against datasheet byte sequences.
type MockSPIBus struct {
	mock.Mock
	frames [][]byte
}

func (m *MockSPIBus) Write(ctx context.Context, buffer []byte) error {
	m.frames = append(m.frames, append([]byte(nil), buffer...))
	args := m.Called(ctx, buffer)
	return args.Error(0)
}

func (m *MockSPIBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestAD5668_FrameLayout(t *testing.T) {
	tests := []struct {
		name     string
		command  func(context.Context, *AD5668) error
		expected []byte
	}{
		{
			name: "write input register channel B",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteInputRegister(ctx, ChannelB, 0x1234)
			},
			expected: []byte{0x00, 0x11, 0x23, 0x40},
		},
		{
			name: "write input register channel A zero",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteInputRegister(ctx, ChannelA, 0x0000)
			},
			expected: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "update channel H",
			command: func(ctx context.Context, d *AD5668) error {
				return d.UpdateChannel(ctx, ChannelH)
			},
			expected: []byte{0x01, 0x70, 0x00, 0x00},
		},
		{
			name: "write and update channel A full scale",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteAndUpdateChannel(ctx, ChannelA, 0xFFFF)
			},
			expected: []byte{0x03, 0x0F, 0xFF, 0xF0},
		},
		{
			name: "write and update all channels midscale",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteAndUpdateChannel(ctx, AllChannels, 0x8000)
			},
			expected: []byte{0x03, 0xF8, 0x00, 0x00},
		},
		{
			name: "write channel C update all",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteInputUpdateAll(ctx, ChannelC, 0xABCD)
			},
			expected: []byte{0x02, 0x2A, 0xBC, 0xD0},
		},
		{
			name: "reset",
			command: func(ctx context.Context, d *AD5668) error {
				return d.Reset(ctx)
			},
			expected: []byte{0x07, 0x00, 0x00, 0x00},
		},
		{
			name: "internal reference on",
			command: func(ctx context.Context, d *AD5668) error {
				return d.SetInternalReference(ctx, true)
			},
			expected: []byte{0x08, 0x00, 0x00, 0x01},
		},
		{
			name: "internal reference off",
			command: func(ctx context.Context, d *AD5668) error {
				return d.SetInternalReference(ctx, false)
			},
			expected: []byte{0x08, 0x00, 0x00, 0x00},
		},
		{
			name: "power down 100k channels A and C",
			command: func(ctx context.Context, d *AD5668) error {
				return d.PowerDown(ctx, PowerDown100K, 0b00000101)
			},
			expected: []byte{0x04, 0x00, 0x02, 0x05},
		},
		{
			name: "power on all channels",
			command: func(ctx context.Context, d *AD5668) error {
				return d.PowerDown(ctx, PowerOn, 0xFF)
			},
			expected: []byte{0x04, 0x00, 0x00, 0xFF},
		},
		{
			name: "load clear code midscale",
			command: func(ctx context.Context, d *AD5668) error {
				return d.LoadClearCode(ctx, ClearToMidscale)
			},
			expected: []byte{0x05, 0x00, 0x00, 0x01},
		},
		{
			name: "load LDAC register",
			command: func(ctx context.Context, d *AD5668) error {
				return d.LoadLDACRegister(ctx, 0xFF)
			},
			expected: []byte{0x06, 0x00, 0x00, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockSPIBus)
			bus.On("Write", mock.Anything, mock.Anything).Return(nil).Once()
			d := NewAD5668(bus)

			err := tt.command(context.Background(), d)

			assert.NoError(t, err)
			if assert.Len(t, bus.frames, 1) {
				assert.Equal(t, tt.expected, bus.frames[0],
					"expected frame %s, got %s",
					hex.EncodeToString(tt.expected), hex.EncodeToString(bus.frames[0]))
			}
			bus.AssertExpectations(t)
		})
	}
}

func TestAD5668_DataBitSweep(t *testing.T) {
	// the 16 data bits occupy DB19-4 for every channel
	channels := []Channel{ChannelA, ChannelB, ChannelC, ChannelD, ChannelE, ChannelF, ChannelG, ChannelH}
	values := []uint16{0x0000, 0x0001, 0x8000, 0xAAAA, 0x5555, 0xFFFF}

	for _, ch := range channels {
		for _, value := range values {
			bus := new(MockSPIBus)
			bus.On("Write", mock.Anything, mock.Anything).Return(nil).Once()
			d := NewAD5668(bus)

			err := d.WriteAndUpdateChannel(context.Background(), ch, value)

			assert.NoError(t, err)
			frame := bus.frames[0]
			assert.Equal(t, byte(0x03), frame[0])
			assert.Equal(t, byte(ch), frame[1]>>4, "address nibble for channel %s", ch)
			decoded := uint16(frame[1]&0x0F)<<12 | uint16(frame[2])<<4 | uint16(frame[3])>>4
			assert.Equal(t, value, decoded, "data bits for channel %s value %#04x", ch, value)
			assert.Equal(t, byte(0), frame[3]&0x0F, "flag bits must stay clear")
		}
	}
}

func TestAD5668_TransportFailure(t *testing.T) {
	busErr := errors.New("spi write failed")
	tests := []struct {
		name     string
		command  func(context.Context, *AD5668) error
		expected string
	}{
		{
			name: "write input register",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteInputRegister(ctx, ChannelA, 0x0102)
			},
			expected: "ad5668: could not write input register A: spi write failed",
		},
		{
			name: "update channel",
			command: func(ctx context.Context, d *AD5668) error {
				return d.UpdateChannel(ctx, ChannelB)
			},
			expected: "ad5668: could not update channel B: spi write failed",
		},
		{
			name: "write and update",
			command: func(ctx context.Context, d *AD5668) error {
				return d.WriteAndUpdateChannel(ctx, AllChannels, 0xFFFF)
			},
			expected: "ad5668: could not write and update channel ALL: spi write failed",
		},
		{
			name: "reset",
			command: func(ctx context.Context, d *AD5668) error {
				return d.Reset(ctx)
			},
			expected: "ad5668: could not reset: spi write failed",
		},
		{
			name: "internal reference",
			command: func(ctx context.Context, d *AD5668) error {
				return d.SetInternalReference(ctx, true)
			},
			expected: "ad5668: could not set internal reference: spi write failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockSPIBus)
			bus.On("Write", mock.Anything, mock.Anything).Return(busErr).Once()
			d := NewAD5668(bus)

			err := tt.command(context.Background(), d)

			assert.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
			assert.ErrorIs(t, err, busErr)
			// exactly one transaction, no retries
			assert.Len(t, bus.frames, 1)
			bus.AssertExpectations(t)
		})
	}
}

func TestAD5668_RepeatedCommandsAreIndependent(t *testing.T) {
	bus := new(MockSPIBus)
	bus.On("Write", mock.Anything, mock.Anything).Return(nil).Times(3)
	d := NewAD5668(bus)
	ctx := context.Background()

	assert.NoError(t, d.WriteAndUpdateChannel(ctx, ChannelD, 0xBEEF))
	assert.NoError(t, d.WriteAndUpdateChannel(ctx, ChannelD, 0xBEEF))
	assert.NoError(t, d.Reset(ctx))

	assert.Equal(t, bus.frames[0], bus.frames[1], "repeating a command re-sends the same frame")
	assert.Equal(t, []byte{0x07, 0x00, 0x00, 0x00}, bus.frames[2],
		"reset frame carries no residue from earlier commands")
	bus.AssertExpectations(t)
}

func TestChannel_String(t *testing.T) {
	assert.Equal(t, "A", ChannelA.String())
	assert.Equal(t, "H", ChannelH.String())
	assert.Equal(t, "ALL", AllChannels.String())
	assert.Equal(t, "UNKNOWN(0x9)", Channel(0b1001).String())
}
