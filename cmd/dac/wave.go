package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/dac/analog"
	"github.com/mklimuk/dac/cmd/dac/console"
)

var waveCmd = cli.Command{
	Name:  "wave",
	Usage: "generate test waveforms on the converter outputs",
	Subcommands: cli.Commands{
		&waveSquareCmd,
	},
}

var waveSquareCmd = cli.Command{
	Name:  "square",
	Usage: "alternate the output between two levels until interrupted",
	Flags: append([]cli.Flag{
		channelFlag,
		&cli.DurationFlag{
			Name:  "period",
			Usage: "full period of the square wave",
			Value: 100 * time.Millisecond,
		},
		&cli.UintFlag{
			Name:  "high",
			Usage: "16-bit high level",
			Value: 0xFFFF,
		},
		&cli.UintFlag{
			Name:  "low",
			Usage: "16-bit low level",
			Value: 0x0000,
		},
		&cli.UintFlag{
			Name:  "cycles",
			Usage: "number of periods to generate (0 = until interrupted)",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		channel, err := parseChannel(c.String("channel"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		high := c.Uint("high")
		low := c.Uint("low")
		if high > 0xFFFF || low > 0xFFFF {
			return console.Exit(1, "levels out of range (0-65535): %d/%d", low, high)
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		d := analog.NewAD5668(bus)

		cycles := c.Uint("cycles")
		console.PInfof(console.PictoWave, "square wave on channel %s: %#04x/%#04x, period %s", channel, low, high, c.Duration("period"))
		ticker := time.NewTicker(c.Duration("period") / 2)
		defer ticker.Stop()
		level := uint16(high)
		var halfPeriods uint
		for {
			err = d.WriteAndUpdateChannel(ctx, channel, level)
			if err != nil {
				return console.Exit(1, "error setting output: %s", console.Red(err))
			}
			if level == uint16(high) {
				level = uint16(low)
			} else {
				level = uint16(high)
			}
			halfPeriods++
			if cycles > 0 && halfPeriods >= cycles*2 {
				return nil
			}
			select {
			case <-ctx.Done():
				console.PInfof(console.PictoFinish, "wave interrupted")
				return nil
			case <-ticker.C:
			}
		}
	},
}
