package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/dac"
	"github.com/mklimuk/dac/adapter"
	"github.com/mklimuk/dac/analog"
	"github.com/mklimuk/dac/spi"
)

// flags shared by every command that talks to the converter
var busFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter (spi, mcp2210)",
		Value:   "spi",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "SPI port name",
		Value:   "SPI0.0",
	},
	&cli.StringFlag{
		Name:  "cs",
		Usage: "GPIO pin driving chip select (kernel CS when empty)",
	},
	&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
}

func openBus(c *cli.Context) (dac.SPIBus, error) {
	switch c.String("adapter") {
	case "mcp2210":
		return adapter.NewMCP2210(), nil
	case "spi":
		if cs := c.String("cs"); cs != "" {
			return spi.NewManualCSPort(c.String("device"), cs)
		}
		return spi.NewGenericBus(c.String("device"))
	default:
		return nil, fmt.Errorf("unknown adapter %q", c.String("adapter"))
	}
}

func parseChannel(arg string) (analog.Channel, error) {
	switch strings.ToLower(arg) {
	case "a":
		return analog.ChannelA, nil
	case "b":
		return analog.ChannelB, nil
	case "c":
		return analog.ChannelC, nil
	case "d":
		return analog.ChannelD, nil
	case "e":
		return analog.ChannelE, nil
	case "f":
		return analog.ChannelF, nil
	case "g":
		return analog.ChannelG, nil
	case "h":
		return analog.ChannelH, nil
	case "all":
		return analog.AllChannels, nil
	default:
		return 0, fmt.Errorf("unknown channel %q (expected a-h or all)", arg)
	}
}

func parseClearCode(arg string) (analog.ClearCode, error) {
	switch strings.ToLower(arg) {
	case "zero":
		return analog.ClearToZero, nil
	case "midscale":
		return analog.ClearToMidscale, nil
	case "fullscale":
		return analog.ClearToFullscale, nil
	case "ignore":
		return analog.ClearIgnore, nil
	default:
		return 0, fmt.Errorf("unknown clear code %q (expected zero, midscale, fullscale or ignore)", arg)
	}
}
