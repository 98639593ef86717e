package analog

import (
	"context"
	"fmt"

	"github.com/mklimuk/dac"
)

// command opcodes (datasheet Table 9)
const (
	cmdWriteInput       = 0b0000
	cmdUpdateChannel    = 0b0001
	cmdWriteInputUpdAll = 0b0010
	cmdWriteAndUpdate   = 0b0011
	cmdPowerDown        = 0b0100
	cmdLoadClearCode    = 0b0101
	cmdLoadLDAC         = 0b0110
	cmdReset            = 0b0111
	cmdInternalRefSetup = 0b1000
)

// Channel selects one of the eight DAC outputs of the AD5668.
type Channel byte

const (
	ChannelA Channel = 0b0000
	ChannelB Channel = 0b0001
	ChannelC Channel = 0b0010
	ChannelD Channel = 0b0011
	ChannelE Channel = 0b0100
	ChannelF Channel = 0b0101
	ChannelG Channel = 0b0110
	ChannelH Channel = 0b0111
	// AllChannels addresses every DAC register at once.
	AllChannels Channel = 0b1111
)

func (c Channel) String() string {
	switch c {
	case AllChannels:
		return "ALL"
	case ChannelA, ChannelB, ChannelC, ChannelD, ChannelE, ChannelF, ChannelG, ChannelH:
		return string(rune('A' + byte(c)))
	default:
		return fmt.Sprintf("UNKNOWN(%#x)", byte(c))
	}
}

// PowerDownMode selects the output impedance of powered-down channels
// (DB9..DB8 of the power-down command).
type PowerDownMode byte

const (
	PowerOn           PowerDownMode = 0b00
	PowerDown1K       PowerDownMode = 0b01
	PowerDown100K     PowerDownMode = 0b10
	PowerDownTriState PowerDownMode = 0b11
)

// ClearCode selects the value loaded into every DAC register when the CLR
// pin is activated (DB1..DB0 of the clear-code command).
type ClearCode byte

const (
	ClearToZero      ClearCode = 0b00
	ClearToMidscale  ClearCode = 0b01
	ClearToFullscale ClearCode = 0b10
	ClearIgnore      ClearCode = 0b11
)

// AD5668 represents an Analog Devices AD5668 octal 16-bit DAC attached to an
// SPI bus. See: https://www.analog.com/media/en/technical-documentation/data-sheets/AD5628_5648_5668.pdf
//
// Every command is a single 32-bit frame clocked out in one blocking bus
// transaction; the driver keeps no state between calls.
type AD5668 struct {
	transport dac.SPIBus
	frame     []byte
}

// NewAD5668 creates a new AD5668 connector over the given SPI transport.
// The transport is exclusively owned by the driver; concurrent use from
// multiple goroutines requires external synchronization.
func NewAD5668(trans dac.SPIBus) *AD5668 {
	return &AD5668{
		transport: trans,
		frame:     make([]byte, 4),
	}
}

// WriteInputRegister loads value into the input register of the given
// channel without updating the DAC output (command 0b0000).
func (d *AD5668) WriteInputRegister(ctx context.Context, channel Channel, value uint16) error {
	err := d.transmit(ctx, cmdWriteInput, channel, value, 0)
	if err != nil {
		return fmt.Errorf("ad5668: could not write input register %s: %w", channel, err)
	}
	return nil
}

// UpdateChannel copies the channel's input register into its DAC register,
// updating the output (command 0b0001).
func (d *AD5668) UpdateChannel(ctx context.Context, channel Channel) error {
	err := d.transmit(ctx, cmdUpdateChannel, channel, 0, 0)
	if err != nil {
		return fmt.Errorf("ad5668: could not update channel %s: %w", channel, err)
	}
	return nil
}

// WriteInputUpdateAll loads value into the channel's input register and
// then updates all DAC registers (command 0b0010, software LDAC).
func (d *AD5668) WriteInputUpdateAll(ctx context.Context, channel Channel, value uint16) error {
	err := d.transmit(ctx, cmdWriteInputUpdAll, channel, value, 0)
	if err != nil {
		return fmt.Errorf("ad5668: could not write %s and update all: %w", channel, err)
	}
	return nil
}

// WriteAndUpdateChannel loads value into the channel's input register and
// updates that channel's output in a single command (command 0b0011).
func (d *AD5668) WriteAndUpdateChannel(ctx context.Context, channel Channel, value uint16) error {
	err := d.transmit(ctx, cmdWriteAndUpdate, channel, value, 0)
	if err != nil {
		return fmt.Errorf("ad5668: could not write and update channel %s: %w", channel, err)
	}
	return nil
}

// PowerDown sets the power mode of the channels selected by the bit mask
// (bit 0 = channel A ... bit 7 = channel H). PowerOn restores normal
// operation.
func (d *AD5668) PowerDown(ctx context.Context, mode PowerDownMode, channels byte) error {
	err := d.transmit(ctx, cmdPowerDown, 0, 0, uint16(mode)<<8|uint16(channels))
	if err != nil {
		return fmt.Errorf("ad5668: could not set power mode: %w", err)
	}
	return nil
}

// LoadClearCode programs the value loaded on CLR pin activation.
func (d *AD5668) LoadClearCode(ctx context.Context, code ClearCode) error {
	err := d.transmit(ctx, cmdLoadClearCode, 0, 0, uint16(code))
	if err != nil {
		return fmt.Errorf("ad5668: could not load clear code: %w", err)
	}
	return nil
}

// LoadLDACRegister selects which channels ignore the hardware LDAC pin
// (bit set = channel updates on write regardless of LDAC).
func (d *AD5668) LoadLDACRegister(ctx context.Context, channels byte) error {
	err := d.transmit(ctx, cmdLoadLDAC, 0, 0, uint16(channels))
	if err != nil {
		return fmt.Errorf("ad5668: could not load LDAC register: %w", err)
	}
	return nil
}

// Reset performs a power-on reset of the DAC (command 0b0111). All input and
// DAC registers return to their power-on values.
func (d *AD5668) Reset(ctx context.Context) error {
	err := d.transmit(ctx, cmdReset, 0, 0, 0)
	if err != nil {
		return fmt.Errorf("ad5668: could not reset: %w", err)
	}
	return nil
}

// SetInternalReference switches the on-chip 1.25V/2.5V reference on or off
// (command 0b1000, DB0).
func (d *AD5668) SetInternalReference(ctx context.Context, enabled bool) error {
	var flags uint16
	if enabled {
		flags = 1
	}
	err := d.transmit(ctx, cmdInternalRefSetup, 0, 0, flags)
	if err != nil {
		return fmt.Errorf("ad5668: could not set internal reference: %w", err)
	}
	return nil
}

// transmit packs one 32-bit command frame and writes it to the bus.
//
// Frame layout (MSB first): DB31-28 don't care, DB27-24 command,
// DB23-20 address, DB19-4 data, DB3-0 flag bits (power-down, clear-code and
// reference commands carry their payload in the low bits instead).
func (d *AD5668) transmit(ctx context.Context, command byte, channel Channel, value uint16, flags uint16) error {
	d.frame[0] = command & 0x0F
	d.frame[1] = byte(channel)<<4 | byte(value>>12)
	d.frame[2] = byte(value >> 4)
	d.frame[3] = byte(value << 4)
	if flags != 0 {
		d.frame[2] |= byte(flags >> 8)
		d.frame[3] |= byte(flags)
	}
	return d.transport.Write(ctx, d.frame)
}
