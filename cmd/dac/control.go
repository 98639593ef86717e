package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/dac/analog"
	"github.com/mklimuk/dac/cmd/dac/console"
)

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "perform a power-on reset of the converter",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "skip confirmation",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("reset all DAC outputs to power-on state?")
			if err != nil {
				return console.Exit(1, "could not read answer: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.Warnf("reset aborted")
				return nil
			}
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.Reset(ctx)
		if err != nil {
			return console.Exit(1, "error resetting converter: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "converter reset")
		return nil
	},
}

var refCmd = cli.Command{
	Name:  "ref",
	Usage: "control the internal voltage reference",
	Subcommands: cli.Commands{
		&refOnCmd,
		&refOffCmd,
	},
}

var refOnCmd = cli.Command{
	Name:  "on",
	Flags: busFlags,
	Action: func(c *cli.Context) error {
		return setReference(c, true)
	},
}

var refOffCmd = cli.Command{
	Name:  "off",
	Flags: busFlags,
	Action: func(c *cli.Context) error {
		return setReference(c, false)
	},
}

func setReference(c *cli.Context, enabled bool) error {
	ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
	bus, err := openBus(c)
	if err != nil {
		return console.Exit(1, "bus initialization error: %s", console.Red(err))
	}
	d := analog.NewAD5668(bus)
	err = d.SetInternalReference(ctx, enabled)
	if err != nil {
		return console.Exit(1, "error switching internal reference: %s", console.Red(err))
	}
	state := "off"
	if enabled {
		state = "on"
	}
	console.PInfof(console.PictoPlug, "internal reference %s", state)
	return nil
}

var powerCmd = cli.Command{
	Name:  "power",
	Usage: "power channels up or down",
	Subcommands: cli.Commands{
		&powerDownCmd,
		&powerUpCmd,
	},
}

var channelMaskFlag = &cli.UintFlag{
	Name:  "mask",
	Usage: "channel bit mask (bit 0 = channel A)",
	Value: 0xFF,
}

var powerDownCmd = cli.Command{
	Name: "down",
	Flags: append([]cli.Flag{
		channelMaskFlag,
		&cli.StringFlag{
			Name:  "mode",
			Usage: "power-down impedance (1k, 100k, tristate)",
			Value: "1k",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		var mode analog.PowerDownMode
		switch c.String("mode") {
		case "1k":
			mode = analog.PowerDown1K
		case "100k":
			mode = analog.PowerDown100K
		case "tristate":
			mode = analog.PowerDownTriState
		default:
			return console.Exit(1, "unknown power-down mode %q", c.String("mode"))
		}
		mask := c.Uint("mask")
		if mask > 0xFF {
			return console.Exit(1, "mask out of range (0-255): %d", mask)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.PowerDown(ctx, mode, byte(mask))
		if err != nil {
			return console.Exit(1, "error powering down channels: %s", console.Red(err))
		}
		console.PInfof(console.PictoStop, "channels %#08b powered down (%s)", mask, c.String("mode"))
		return nil
	},
}

var clearCmd = cli.Command{
	Name:  "clear",
	Usage: "program the value loaded on CLR pin activation",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "code",
			Usage: "clear code (zero, midscale, fullscale, ignore)",
			Value: "zero",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		code, err := parseClearCode(c.String("code"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.LoadClearCode(ctx, code)
		if err != nil {
			return console.Exit(1, "error loading clear code: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "clear code set to %s", c.String("code"))
		return nil
	},
}

var ldacCmd = cli.Command{
	Name:  "ldac",
	Usage: "select channels that ignore the hardware LDAC pin",
	Flags: append([]cli.Flag{channelMaskFlag}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		mask := c.Uint("mask")
		if mask > 0xFF {
			return console.Exit(1, "mask out of range (0-255): %d", mask)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.LoadLDACRegister(ctx, byte(mask))
		if err != nil {
			return console.Exit(1, "error loading LDAC register: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "LDAC register set to %#08b", mask)
		return nil
	},
}

var powerUpCmd = cli.Command{
	Name:  "up",
	Flags: append([]cli.Flag{channelMaskFlag}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		mask := c.Uint("mask")
		if mask > 0xFF {
			return console.Exit(1, "mask out of range (0-255): %d", mask)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.PowerDown(ctx, analog.PowerOn, byte(mask))
		if err != nil {
			return console.Exit(1, "error powering up channels: %s", console.Red(err))
		}
		console.PInfof(console.PictoZap, "channels %#08b powered up", mask)
		return nil
	},
}
