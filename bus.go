package dac

import (
	"context"
	"fmt"
)

var ErrBusUnavailable = fmt.Errorf("SPI engine is busy (command not completed)")

// BusWriter writes a complete frame to the underlying bus in a single
// blocking transaction.
type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

// ChipSelect controls the chip-select line of a device. Assert must be called
// before a frame transfer begins and Deassert after it completes, on every
// exit path.
type ChipSelect interface {
	Assert(ctx context.Context) error
	Deassert(ctx context.Context) error
}

type SPIBus interface {
	BusWriter
	Release(ctx context.Context) error
}
