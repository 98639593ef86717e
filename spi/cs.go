package spi

import (
	"context"
	"fmt"

	"github.com/mklimuk/dac"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
)

var _ dac.SPIBus = &ManualCSBus{}
var _ dac.ChipSelect = &GPIOChipSelect{}

// ManualCSBus drives the chip-select line itself around every frame write,
// for boards where the DAC hangs off a GPIO instead of a hardware CS line.
// The line is deasserted on every exit path, including transport failures.
type ManualCSBus struct {
	conn dac.BusWriter
	cs   dac.ChipSelect
}

func NewManualCSBus(conn dac.BusWriter, cs dac.ChipSelect) *ManualCSBus {
	return &ManualCSBus{
		conn: conn,
		cs:   cs,
	}
}

func (b *ManualCSBus) Write(ctx context.Context, buffer []byte) error {
	err := b.cs.Assert(ctx)
	if err != nil {
		return fmt.Errorf("could not assert chip select: %w", err)
	}
	writeErr := b.conn.Write(ctx, buffer)
	err = b.cs.Deassert(ctx)
	if writeErr != nil {
		return fmt.Errorf("could not write frame: %w", writeErr)
	}
	if err != nil {
		return fmt.Errorf("could not deassert chip select: %w", err)
	}
	return nil
}

func (b *ManualCSBus) Release(ctx context.Context) error {
	return b.cs.Deassert(ctx)
}

// GPIOChipSelect drives an active-low chip-select line through a periph GPIO
// pin.
type GPIOChipSelect struct {
	pin gpio.PinOut
}

// NewGPIOChipSelect resolves the named pin (e.g. "GPIO22") and parks it high.
func NewGPIOChipSelect(name string) (*GPIOChipSelect, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no gpio pin named %s", name)
	}
	err := pin.Out(gpio.High)
	if err != nil {
		return nil, fmt.Errorf("could not initialize chip select pin %s: %w", name, err)
	}
	return &GPIOChipSelect{pin: pin}, nil
}

func (c *GPIOChipSelect) Assert(ctx context.Context) error {
	err := c.pin.Out(gpio.Low)
	if err != nil {
		return fmt.Errorf("could not drive %s low: %w", c.pin.Name(), err)
	}
	return nil
}

func (c *GPIOChipSelect) Deassert(ctx context.Context) error {
	err := c.pin.Out(gpio.High)
	if err != nil {
		return fmt.Errorf("could not drive %s high: %w", c.pin.Name(), err)
	}
	return nil
}

// NewManualCSPort opens an SPI port with the kernel chip-select disabled and
// pairs it with a GPIO-driven one.
func NewManualCSPort(dev, csPin string, opts ...BusOption) (*ManualCSBus, error) {
	cs, err := NewGPIOChipSelect(csPin)
	if err != nil {
		return nil, err
	}
	opts = append(opts, func(c *BusConfig) {
		c.Mode |= spi.NoCS
	})
	bus, err := NewGenericBus(dev, opts...)
	if err != nil {
		return nil, err
	}
	return NewManualCSBus(bus, cs), nil
}
