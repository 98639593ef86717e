package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/dac"
	"github.com/mklimuk/dac/dacctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DE

// HID command codes (datasheet section 3)
const (
	cmdStatus      = 0x10
	cmdCancel      = 0x11
	cmdGetSettings = 0x40
	cmdSetSettings = 0x41
	cmdTransfer    = 0x42
)

// SPI transfer response status codes
const (
	statusCompleted  = 0x00
	statusBusInUse   = 0xF7
	statusInProgress = 0xF8
)

// SPI engine status codes (byte 3 of the transfer response)
const (
	engineFinished = 0x10
	engineStarted  = 0x20
	enginePending  = 0x30
)

// max payload bytes per 64-byte transfer report
const transferChunkSize = 60

var ErrCommandFailed = errors.New("command failed")
var ErrTransferRejected = errors.New("transfer settings rejected (transfer in progress)")

// MCP2210 drives the Microchip MCP2210 USB-to-SPI bridge over raw HID
// reports. It implements dac.SPIBus so chip drivers can run over USB without
// a native SPI controller.
//
// The bridge handles the chip-select line itself: GP pins configured as CS
// in the transfer settings are driven to their active value for the duration
// of each transaction and back to idle afterwards, on success and on failure.
type MCP2210 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	configured   uint16
}

// MCP2210Status mirrors the chip status response (command 0x10).
type MCP2210Status struct {
	BusReleaseRequested bool   `yaml:"bus_release_requested"`
	BusOwner            string `yaml:"bus_owner"`
	PasswordAttempts    int    `yaml:"password_attempts"`
	PasswordGuessed     bool   `yaml:"password_guessed"`
}

// SPIMode is the SPI clock polarity/phase setting.
type SPIMode byte

const (
	SPIMode0 SPIMode = iota
	SPIMode1
	SPIMode2
	SPIMode3
)

// TransferSettings is the volatile SPI transfer configuration of the bridge
// (commands 0x40/0x41). Delay fields are in quanta of 100µs.
type TransferSettings struct {
	BitRate             uint32  `yaml:"bit_rate"`
	IdleCSValue         uint16  `yaml:"idle_cs_value"`
	ActiveCSValue       uint16  `yaml:"active_cs_value"`
	CSToDataDelay       uint16  `yaml:"cs_to_data_delay"`
	LastByteToCSDelay   uint16  `yaml:"last_byte_to_cs_delay"`
	InterByteDelay      uint16  `yaml:"inter_byte_delay"`
	BytesPerTransaction uint16  `yaml:"bytes_per_transaction"`
	Mode                SPIMode `yaml:"spi_mode"`
}

func NewMCP2210() *MCP2210 {
	return &MCP2210{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
	}
}

// Write clocks buffer out as one SPI transaction. The bridge's transfer size
// is reprogrammed when the frame length changes, then the payload is pushed
// in 60-byte report chunks and the engine polled until the transaction
// completes and chip-select returns to idle.
func (d *MCP2210) Write(ctx context.Context, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(buffer) > 0xFFFF {
		return fmt.Errorf("frame too long: %d", len(buffer))
	}
	if d.configured != uint16(len(buffer)) {
		err := d.setTransferSize(ctx, uint16(len(buffer)))
		if err != nil {
			return fmt.Errorf("could not set transfer size: %w", err)
		}
	}
	sent := 0
	for sent < len(buffer) {
		chunk := buffer[sent:]
		if len(chunk) > transferChunkSize {
			chunk = chunk[:transferChunkSize]
		}
		err := d.transferChunk(ctx, chunk)
		if err != nil {
			return fmt.Errorf("transfer failed at byte %d: %w", sent, err)
		}
		sent += len(chunk)
	}
	return d.waitTransferDone(ctx)
}

func (d *MCP2210) transferChunk(ctx context.Context, chunk []byte) error {
	for {
		d.resetBuffers()
		d.request[0] = cmdTransfer
		d.request[1] = byte(len(chunk))
		copy(d.request[4:], chunk)
		err := d.send(ctx, true)
		if err != nil {
			return err
		}
		switch d.response[1] {
		case statusCompleted:
			return nil
		case statusBusInUse:
			return dac.ErrBusUnavailable
		case statusInProgress:
			// engine still shifting the previous chunk
			if err := sleepContext(ctx, d.responseWait); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: status %#x", ErrCommandFailed, d.response[1])
		}
	}
}

// waitTransferDone polls the engine with empty transfer reports until it
// reports the transaction finished and the CS line released.
func (d *MCP2210) waitTransferDone(ctx context.Context) error {
	for {
		if d.response[3] == engineFinished {
			return nil
		}
		if err := sleepContext(ctx, d.responseWait); err != nil {
			return err
		}
		d.resetBuffers()
		d.request[0] = cmdTransfer
		d.request[1] = 0
		err := d.send(ctx, true)
		if err != nil {
			return err
		}
		if d.response[1] == statusBusInUse {
			return dac.ErrBusUnavailable
		}
	}
}

// GetTransferSettings reads the current volatile SPI configuration.
func (d *MCP2210) GetTransferSettings(ctx context.Context) (TransferSettings, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetSettings
	err := d.send(ctx, true)
	if err != nil {
		return TransferSettings{}, fmt.Errorf("get transfer settings command write failed: %w", err)
	}
	if d.response[1] != statusCompleted {
		return TransferSettings{}, ErrCommandFailed
	}
	return TransferSettings{
		BitRate:             binary.LittleEndian.Uint32(d.response[4:8]),
		IdleCSValue:         binary.LittleEndian.Uint16(d.response[8:10]),
		ActiveCSValue:       binary.LittleEndian.Uint16(d.response[10:12]),
		CSToDataDelay:       binary.LittleEndian.Uint16(d.response[12:14]),
		LastByteToCSDelay:   binary.LittleEndian.Uint16(d.response[14:16]),
		InterByteDelay:      binary.LittleEndian.Uint16(d.response[16:18]),
		BytesPerTransaction: binary.LittleEndian.Uint16(d.response[18:20]),
		Mode:                SPIMode(d.response[20]),
	}, nil
}

// SetTransferSettings programs the volatile SPI configuration. The bridge
// rejects the command while a transfer is in progress.
func (d *MCP2210) SetTransferSettings(ctx context.Context, settings TransferSettings) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.setTransferSettings(ctx, settings)
	if err != nil {
		return err
	}
	d.configured = settings.BytesPerTransaction
	return nil
}

func (d *MCP2210) setTransferSettings(ctx context.Context, settings TransferSettings) error {
	d.resetBuffers()
	d.request[0] = cmdSetSettings
	packTransferSettings(d.request, settings)
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("set transfer settings command write failed: %w", err)
	}
	switch d.response[1] {
	case statusCompleted:
		return nil
	case statusInProgress:
		return ErrTransferRejected
	default:
		return ErrCommandFailed
	}
}

func packTransferSettings(request []byte, settings TransferSettings) {
	binary.LittleEndian.PutUint32(request[4:8], settings.BitRate)
	binary.LittleEndian.PutUint16(request[8:10], settings.IdleCSValue)
	binary.LittleEndian.PutUint16(request[10:12], settings.ActiveCSValue)
	binary.LittleEndian.PutUint16(request[12:14], settings.CSToDataDelay)
	binary.LittleEndian.PutUint16(request[14:16], settings.LastByteToCSDelay)
	binary.LittleEndian.PutUint16(request[16:18], settings.InterByteDelay)
	binary.LittleEndian.PutUint16(request[18:20], settings.BytesPerTransaction)
	request[20] = byte(settings.Mode)
}

// setTransferSize re-reads the current settings and rewrites them with the
// new transaction length, preserving everything else.
func (d *MCP2210) setTransferSize(ctx context.Context, size uint16) error {
	d.resetBuffers()
	d.request[0] = cmdGetSettings
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("get transfer settings command write failed: %w", err)
	}
	if d.response[1] != statusCompleted {
		return ErrCommandFailed
	}
	settings := make([]byte, 17)
	copy(settings, d.response[4:21])
	d.resetBuffers()
	d.request[0] = cmdSetSettings
	copy(d.request[4:21], settings)
	binary.LittleEndian.PutUint16(d.request[18:20], size)
	err = d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("set transfer settings command write failed: %w", err)
	}
	if d.response[1] != statusCompleted {
		return ErrCommandFailed
	}
	d.configured = size
	return nil
}

// Status reads the chip status (command 0x10).
func (d *MCP2210) Status(ctx context.Context) (*MCP2210Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2210Status {
	/*
		2: SPI bus release external request status (0x01 pending, 0x00 none)
		3: SPI bus current owner (0x00 none, 0x01 USB bridge, 0x02 external master)
		4: number of attempted password accesses
		5: password guessed (0x00 no, 0x01 yes)
	*/
	status := &MCP2210Status{
		BusReleaseRequested: buffer[2] == 0x01,
		PasswordAttempts:    int(buffer[4]),
		PasswordGuessed:     buffer[5] == 0x01,
	}
	switch buffer[3] {
	case 0x00:
		status.BusOwner = "none"
	case 0x01:
		status.BusOwner = "usb-bridge"
	case 0x02:
		status.BusOwner = "external-master"
	default:
		status.BusOwner = hex.EncodeToString(buffer[3:4])
	}
	return status
}

// Cancel aborts the SPI transfer currently in progress (command 0x11) and
// returns the resulting chip status.
func (d *MCP2210) Cancel(ctx context.Context) (*MCP2210Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdCancel
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("cancel request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// Release aborts any in-flight transfer so the bus returns to idle.
func (d *MCP2210) Release(ctx context.Context) error {
	_, err := d.Cancel(ctx)
	return err
}

func (d *MCP2210) send(ctx context.Context, response bool, id ...int) error {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) > 1 && len(id) == 0 {
		return fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return fmt.Errorf("MCP2210 device not found")
	}
	var dev *hid.Device
	var err error
	if len(id) == 0 {
		dev, err = devs[0].Open()
		if err != nil {
			return fmt.Errorf("error opening device: %w", err)
		}
	} else {
		for i := range devs {
			if i == id[0] {
				dev, err = devs[i].Open()
				if err != nil {
					return fmt.Errorf("error opening device: %w", err)
				}
			}
		}
		if dev == nil {
			return fmt.Errorf("no device with id %d", id[0])
		}
	}
	defer func() {
		_ = dev.Close()
	}()
	verbose := dacctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "request", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	time.Sleep(d.responseWait)
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "response", hex.EncodeToString(d.response))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (d *MCP2210) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := 0; i < len(buf)-1; i++ {
		buf[i] = 0x00
	}
}
