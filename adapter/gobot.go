package adapter

import (
	"context"
	"fmt"

	"gobot.io/x/gobot/v2/drivers/spi"

	"github.com/mklimuk/dac"
)

var _ dac.SPIBus = &GobotSPI{}

// GobotSPI adapts a Gobot SPI connection to the dac.SPIBus interface, for
// boards covered by the Gobot sysfs adaptors (tested on NanoPi). Chip-select
// is handled by the kernel for each WriteBytes call.
type GobotSPI struct {
	driver *spi.Driver
}

// NewGobotSPI binds a Gobot SPI adaptor. bus and additional options follow
// the usual Gobot SPI driver conventions. The connection defaults to mode 0
// at 1 MHz, within the AD5668 50 MHz limit.
func NewGobotSPI(adaptor spi.Connector, bus string, opts ...func(spi.Config)) *GobotSPI {
	d := spi.NewDriver(adaptor, bus, opts...)
	d.SetMode(0)
	if d.GetSpeedOrDefault(0) == 0 {
		d.SetSpeed(1_000_000)
	}
	return &GobotSPI{driver: d}
}

// Start establishes the SPI bus. Required by the Gobot driver lifecycle.
func (g *GobotSPI) Start() error {
	return g.driver.Start()
}

func (g *GobotSPI) Write(ctx context.Context, buffer []byte) error {
	if g == nil || g.driver == nil {
		return fmt.Errorf("spi driver not initialized")
	}
	conn := g.driver.Connection()
	ops, ok := conn.(interface {
		WriteBytes(data []byte) error
	})
	if !ok {
		return fmt.Errorf("spi connection does not support writes")
	}
	err := ops.WriteBytes(buffer)
	if err != nil {
		return fmt.Errorf("could not write to spi bus: %w", err)
	}
	return nil
}

func (g *GobotSPI) Release(ctx context.Context) error {
	return g.driver.Halt()
}
