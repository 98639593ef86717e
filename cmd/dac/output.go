package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/dac/analog"
	"github.com/mklimuk/dac/cmd/dac/console"
)

var outputCmd = cli.Command{
	Name:  "output",
	Usage: "program DAC output channels",
	Subcommands: cli.Commands{
		&outputWriteCmd,
		&outputUpdateCmd,
		&outputSetCmd,
	},
}

var channelFlag = &cli.StringFlag{
	Name:    "channel",
	Aliases: []string{"c"},
	Usage:   "DAC channel (a-h or all)",
	Value:   "all",
}

var valueFlag = &cli.UintFlag{
	Name:     "value",
	Usage:    "16-bit output value",
	Required: true,
}

var outputWriteCmd = cli.Command{
	Name:  "write",
	Usage: "load the channel input register without updating the output",
	Flags: append([]cli.Flag{
		channelFlag,
		valueFlag,
		&cli.BoolFlag{
			Name:  "update-all",
			Usage: "update every channel output after the write (software LDAC)",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		channel, err := parseChannel(c.String("channel"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		value := c.Uint("value")
		if value > 0xFFFF {
			return console.Exit(1, "value out of range (0-65535): %d", value)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		if c.Bool("update-all") {
			err = d.WriteInputUpdateAll(ctx, channel, uint16(value))
			if err != nil {
				return console.Exit(1, "error writing input register: %s", console.Red(err))
			}
			console.PInfof(console.PictoZap, "input register %s loaded with %#04x, all outputs updated", channel, value)
			return nil
		}
		err = d.WriteInputRegister(ctx, channel, uint16(value))
		if err != nil {
			return console.Exit(1, "error writing input register: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "input register %s loaded with %#04x", channel, value)
		return nil
	},
}

var outputUpdateCmd = cli.Command{
	Name:  "update",
	Usage: "update the channel output from its input register",
	Flags: append([]cli.Flag{channelFlag}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		channel, err := parseChannel(c.String("channel"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.UpdateChannel(ctx, channel)
		if err != nil {
			return console.Exit(1, "error updating channel: %s", console.Red(err))
		}
		console.PInfof(console.PictoZap, "channel %s updated", channel)
		return nil
	},
}

var outputSetCmd = cli.Command{
	Name:  "set",
	Usage: "write and update the channel output in one command",
	Flags: append([]cli.Flag{channelFlag, valueFlag}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		channel, err := parseChannel(c.String("channel"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		value := c.Uint("value")
		if value > 0xFFFF {
			return console.Exit(1, "value out of range (0-65535): %d", value)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)
		err = d.WriteAndUpdateChannel(ctx, channel, uint16(value))
		if err != nil {
			return console.Exit(1, "error setting output: %s", console.Red(err))
		}
		console.PInfof(console.PictoZap, "channel %s set to %#04x", channel, value)
		return nil
	},
}
