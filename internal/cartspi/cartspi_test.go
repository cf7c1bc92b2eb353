package cartspi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBus models a simple in-memory chip: a byte array plus a status
// register that reports WIP cleared immediately (writes are synchronous).
type fakeBus struct {
	mem           []byte
	wel           bool
	jedecMfg      byte
	jedecCapacity byte
	jedecOK       bool
}

func newFakeBus(size int) *fakeBus {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &fakeBus{mem: mem}
}

func (b *fakeBus) Transfer(ctx context.Context, cmd byte, addr []byte, data []byte, read bool) error {
	baseCmd := cmd &^ 0x08
	highBit := cmd&0x08 != 0
	if cmd == cmdJEDECID || cmd == cmdSectorErase {
		// Bit 3 is part of these opcodes, not a folded address bit.
		baseCmd, highBit = cmd, false
	}

	switch baseCmd {
	case cmdJEDECID:
		if read {
			if b.jedecOK {
				data[0] = b.jedecMfg
				data[1] = b.jedecCapacity
			} else {
				data[0] = 0x00
			}
		}
		return nil
	case cmdReadStatus:
		var status byte
		if b.wel {
			status |= StatusWriteEnableLatch
		}
		data[0] = status
		return nil
	case cmdWriteEnable:
		b.wel = true
		return nil
	case cmdWriteDisable:
		b.wel = false
		return nil
	case cmdRead:
		off := decodeOffset(addr, highBit)
		copy(data, b.mem[off:off+len(data)])
		return nil
	case cmdPageWrite:
		off := decodeOffset(addr, highBit)
		copy(b.mem[off:off+len(data)], data)
		return nil
	case cmdSectorErase:
		off := decodeOffset(addr, highBit)
		for i := off; i < off+sectorSize && i < len(b.mem); i++ {
			b.mem[i] = 0xFF
		}
		return nil
	}
	return nil
}

func decodeOffset(addr []byte, highBit bool) int {
	off := 0
	switch len(addr) {
	case 1:
		off = int(addr[0])
		if highBit {
			off |= 0x100
		}
	case 2:
		off = int(addr[0])<<8 | int(addr[1])
		if highBit {
			off |= 0x10000
		}
	case 3:
		off = int(addr[0])<<16 | int(addr[1])<<8 | int(addr[2])
	}
	return off
}

func TestDetectBlankChipDefaultsTo64K(t *testing.T) {
	bus := newFakeBus(SizeOf(EEPROM64K))
	spi := New(bus)

	got, err := spi.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, EEPROM64K, got)
}

func TestDetectWrapsAt8K(t *testing.T) {
	// Make the chip "wrap": data at offset 0 shows up again at offset
	// 0x2000 because the underlying fake only has an 8KB address space.
	small := newFakeBus(8 * 1024)
	small.mem[0] = 0xAB
	bus := &fakeBus{mem: make([]byte, SizeOf(EEPROM64K))}
	for i := range bus.mem {
		bus.mem[i] = small.mem[i%len(small.mem)]
	}
	spi := New(bus)

	got, err := spi.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, EEPROM8K, got)
}

func TestDetectFlashByJEDEC(t *testing.T) {
	bus := newFakeBus(SizeOf(Flash256K))
	bus.jedecOK = true
	bus.jedecMfg = 0x20
	bus.jedecCapacity = 0x14
	spi := New(bus)

	got, err := spi.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, Flash1M, got)
}

func TestWriteFullThenReadFullRoundTrip(t *testing.T) {
	for _, chipType := range []ChipType{EEPROM8K, EEPROM64K, EEPROM128K, Flash256K, FRAM32K} {
		chipType := chipType
		t.Run(chipType.String(), func(t *testing.T) {
			bus := newFakeBus(SizeOf(chipType))
			spi := New(bus)
			ctx := context.Background()

			payload := []byte{0x01, 0x02, 0x03, 0x04}
			require.NoError(t, spi.WriteFull(ctx, chipType, payload))

			out := make([]byte, SizeOf(chipType))
			require.NoError(t, spi.ReadFull(ctx, chipType, out))

			require.Equal(t, payload, out[:len(payload)])
			for _, b := range out[len(payload):] {
				require.Equal(t, byte(0xFF), b)
			}
		})
	}
}

func TestWriteFullRejectsOversizedPayload(t *testing.T) {
	bus := newFakeBus(SizeOf(EEPROM8K))
	spi := New(bus)
	err := spi.WriteFull(context.Background(), EEPROM8K, make([]byte, SizeOf(EEPROM8K)+1))
	require.Error(t, err)
}
