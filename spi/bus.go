package spi

import (
	"context"
	"fmt"

	"github.com/mklimuk/dac"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var _ dac.SPIBus = &GenericBus{}

type BusConfig struct {
	Speed physic.Frequency
	Mode  spi.Mode
}

type BusOption func(*BusConfig)

func WithSpeed(speed physic.Frequency) BusOption {
	return func(c *BusConfig) {
		c.Speed = speed
	}
}

func WithMode(mode spi.Mode) BusOption {
	return func(c *BusConfig) {
		c.Mode = mode
	}
}

// GenericBus is a write-only SPI bus backed by a periph.io port. Chip-select
// is handled by the kernel driver for the duration of each Tx.
type GenericBus struct {
	port spi.PortCloser
	conn spi.Conn
}

// NewGenericBus opens the named SPI port (e.g. "SPI0.0") in mode 0 at 1MHz
// unless configured otherwise.
func NewGenericBus(dev string, opts ...BusOption) (*GenericBus, error) {
	config := &BusConfig{
		Speed: physic.MegaHertz,
		Mode:  spi.Mode0,
	}
	for _, opt := range opts {
		opt(config)
	}
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		fmt.Println(driver.String())
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open spi port: %w", err)
	}
	conn, err := port.Connect(config.Speed, config.Mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("could not connect to spi port: %w", err)
	}
	return &GenericBus{
		port: port,
		conn: conn,
	}, nil
}

func (b *GenericBus) Write(ctx context.Context, buffer []byte) error {
	err := b.conn.Tx(buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to spi bus: %w", err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.port.Close()
}
