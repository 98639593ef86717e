package spi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeChipSelect records the order of line transitions relative to frame
// writes on the shared journal.
type fakeChipSelect struct {
	journal     *[]string
	assertErr   error
	deassertErr error
}

func (c *fakeChipSelect) Assert(ctx context.Context) error {
	*c.journal = append(*c.journal, "assert")
	return c.assertErr
}

func (c *fakeChipSelect) Deassert(ctx context.Context) error {
	*c.journal = append(*c.journal, "deassert")
	return c.deassertErr
}

type fakeWriter struct {
	journal  *[]string
	writeErr error
	frames   [][]byte
}

func (w *fakeWriter) Write(ctx context.Context, buffer []byte) error {
	*w.journal = append(*w.journal, "write")
	w.frames = append(w.frames, append([]byte(nil), buffer...))
	return w.writeErr
}

func TestManualCSBus_AssertsAroundWrite(t *testing.T) {
	var journal []string
	cs := &fakeChipSelect{journal: &journal}
	conn := &fakeWriter{journal: &journal}
	bus := NewManualCSBus(conn, cs)

	err := bus.Write(context.Background(), []byte{0x03, 0x0F, 0xFF, 0xF0})

	assert.NoError(t, err)
	assert.Equal(t, []string{"assert", "write", "deassert"}, journal)
	assert.Equal(t, [][]byte{{0x03, 0x0F, 0xFF, 0xF0}}, conn.frames)
}

func TestManualCSBus_DeassertsOnWriteFailure(t *testing.T) {
	var journal []string
	writeErr := errors.New("spi write failed")
	cs := &fakeChipSelect{journal: &journal}
	conn := &fakeWriter{journal: &journal, writeErr: writeErr}
	bus := NewManualCSBus(conn, cs)

	err := bus.Write(context.Background(), []byte{0x07, 0x00, 0x00, 0x00})

	assert.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, []string{"assert", "write", "deassert"}, journal,
		"chip select must be released even when the transfer fails")
}

func TestManualCSBus_AssertFailureSkipsWrite(t *testing.T) {
	var journal []string
	assertErr := errors.New("pin stuck")
	cs := &fakeChipSelect{journal: &journal, assertErr: assertErr}
	conn := &fakeWriter{journal: &journal}
	bus := NewManualCSBus(conn, cs)

	err := bus.Write(context.Background(), []byte{0x07, 0x00, 0x00, 0x00})

	assert.Error(t, err)
	assert.ErrorIs(t, err, assertErr)
	assert.Equal(t, []string{"assert"}, journal, "no frame may be clocked out without chip select")
	assert.Empty(t, conn.frames)
}

func TestManualCSBus_DeassertFailureSurfaces(t *testing.T) {
	var journal []string
	deassertErr := errors.New("pin stuck")
	cs := &fakeChipSelect{journal: &journal, deassertErr: deassertErr}
	conn := &fakeWriter{journal: &journal}
	bus := NewManualCSBus(conn, cs)

	err := bus.Write(context.Background(), []byte{0x01, 0x70, 0x00, 0x00})

	assert.Error(t, err)
	assert.ErrorIs(t, err, deassertErr)
	assert.Equal(t, []string{"assert", "write", "deassert"}, journal)
}

func TestManualCSBus_ReleaseParksLineHigh(t *testing.T) {
	var journal []string
	cs := &fakeChipSelect{journal: &journal}
	conn := &fakeWriter{journal: &journal}
	bus := NewManualCSBus(conn, cs)

	assert.NoError(t, bus.Release(context.Background()))
	assert.Equal(t, []string{"deassert"}, journal)
}
