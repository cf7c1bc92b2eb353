// Package cartspi is the protocol floor for a generic serial memory
// controller: it auto-detects the save chip on an inserted cartridge, then
// reads and writes its full contents over the serial command set (spec
// §4.4). It is a pure byte-array in/out layer — the physical bus itself
// (clock, chip-select, electrical timing) is supplied by the caller through
// the SerialBus interface and is outside this package's scope.
package cartspi

import (
	"context"
	"fmt"
	"time"
)

// Command words (spec §4.4).
const (
	cmdReadStatus   byte = 0x05
	cmdRead         byte = 0x03
	cmdWriteEnable  byte = 0x06
	cmdWriteDisable byte = 0x04
	cmdPageWrite    byte = 0x02
	cmdSectorErase  byte = 0xD8
	cmdJEDECID      byte = 0x9F
)

// Status register bits.
const (
	StatusWriteInProgress byte = 0x01 // WIP
	StatusWriteEnableLatch byte = 0x02 // WEL
)

// Poll/timeout parameters (spec §4.4, §5).
const (
	pollInterval        = 1 * time.Millisecond
	byteOrPageTimeout   = 50 * time.Millisecond
	sectorEraseTimeout  = 3000 * time.Millisecond
	sectorSize          = 64 * 1024
)

// knownFlashVendors is the manufacturer-byte set recognized by JEDEC ID
// detection (spec §4.4 step 1).
var knownFlashVendors = map[byte]bool{
	0x20: true, 0xC2: true, 0x62: true, 0x1C: true, 0xBF: true,
}

// SerialBus is the byte-oriented transport a CartSpi operates over. The
// caller owns the physical bus (electrical timing, chip select); SerialBus
// only frames command+address+data transactions.
type SerialBus interface {
	// Transfer issues cmd, optionally followed by addr, then either reads
	// len(data) bytes into data (read == true) or writes data (read ==
	// false). addr may be nil/empty for commands that take none.
	Transfer(ctx context.Context, cmd byte, addr []byte, data []byte, read bool) error
}

// CartSpi is an explicit, caller-owned handle over one serial bus. The
// cartridge bus is a process singleton in practice; that invariant is
// enforced by never constructing more than one live handle, not by global
// state inside this package (spec §9 design notes).
type CartSpi struct {
	bus SerialBus
}

// New returns a CartSpi handle over bus.
func New(bus SerialBus) *CartSpi {
	return &CartSpi{bus: bus}
}

func (c *CartSpi) readStatus(ctx context.Context) (byte, error) {
	var status [1]byte
	if err := c.bus.Transfer(ctx, cmdReadStatus, nil, status[:], true); err != nil {
		return 0, fmt.Errorf("cartspi: read status: %w", err)
	}
	return status[0], nil
}

func (c *CartSpi) exec(ctx context.Context, cmd byte) error {
	return c.bus.Transfer(ctx, cmd, nil, nil, false)
}

// waitReady polls the status register every 1ms until WIP clears or
// timeout elapses.
func (c *CartSpi) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := c.readStatus(ctx)
		if err != nil {
			return err
		}
		if status&StatusWriteInProgress == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("cartspi: timed out after %s waiting for write-in-progress to clear", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Detect runs the ordered detection algorithm of spec §4.4 and returns the
// chip type on the inserted cartridge.
func (c *CartSpi) Detect(ctx context.Context) (ChipType, error) {
	// Step 1: JEDEC ID.
	var id [3]byte
	if err := c.bus.Transfer(ctx, cmdJEDECID, nil, id[:], true); err == nil {
		if knownFlashVendors[id[0]] {
			return flashTypeFromCapacityByte(id[1]), nil
		}
	}

	// Step 2: write-enable/disable handshake presence check.
	if err := c.exec(ctx, cmdWriteEnable); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: write enable: %w", err)
	}
	enabledStatus, err := c.readStatus(ctx)
	if err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: read status after enable: %w", err)
	}
	if err := c.exec(ctx, cmdWriteDisable); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: write disable: %w", err)
	}
	disabledStatus, err := c.readStatus(ctx)
	if err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: read status after disable: %w", err)
	}
	if enabledStatus&StatusWriteEnableLatch == 0 || disabledStatus&StatusWriteEnableLatch != 0 {
		return Unknown, fmt.Errorf("cartspi: no cartridge detected")
	}

	// Step 3: reference read at offset 0, 2-byte address.
	ref := make([]byte, 32)
	if err := c.readAt(ctx, Addr2Byte, 0, ref); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: reference read: %w", err)
	}
	if isUniform(ref) {
		return EEPROM64K, nil
	}

	// Step 4: wrap check at 8KB.
	wrap8k := make([]byte, 32)
	if err := c.readAt(ctx, Addr2Byte, 0x2000, wrap8k); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: 8KB wrap read: %w", err)
	}
	if bytesEqual(wrap8k, ref) {
		return EEPROM8K, nil
	}

	// Step 5: wrap check at 32KB (FRAM).
	wrap32k := make([]byte, 32)
	if err := c.readAt(ctx, Addr2Byte, 0x8000, wrap32k); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: 32KB wrap read: %w", err)
	}
	if bytesEqual(wrap32k, ref) {
		return FRAM32K, nil
	}

	// Step 6: 128KB-class upper-page check (bit 16 of address folded into
	// command bit 3).
	upper := make([]byte, 32)
	if err := c.readAt(ctx, Addr2ByteUpperBitInCmd, 0x10000, upper); err != nil {
		return Unknown, fmt.Errorf("cartspi: detect: upper page read: %w", err)
	}
	if !bytesEqual(upper, ref) {
		return EEPROM128K, nil
	}
	return EEPROM64K, nil
}

func flashTypeFromCapacityByte(capacity byte) ChipType {
	switch capacity {
	case 0x10, 0x12:
		return Flash256K
	case 0x13:
		return Flash512K
	case 0x14:
		return Flash1M
	case 0x17:
		return Flash8M
	default:
		return Flash256K
	}
}

func isUniform(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	first := data[0]
	for _, b := range data[1:] {
		if b != first {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReadFull reads the entire chip image for chipType into out, which must be
// exactly SizeOf(chipType) bytes.
func (c *CartSpi) ReadFull(ctx context.Context, chipType ChipType, out []byte) error {
	info := infoFor(chipType)
	if len(out) != info.Size {
		return fmt.Errorf("cartspi: read buffer is %d bytes, chip is %d bytes", len(out), info.Size)
	}

	const maxChunk = 256
	for off := 0; off < info.Size; off += maxChunk {
		n := maxChunk
		if off+n > info.Size {
			n = info.Size - off
		}
		if err := c.readAt(ctx, info.AddrClass, off, out[off:off+n]); err != nil {
			return fmt.Errorf("cartspi: read at 0x%x: %w", off, err)
		}
	}
	return nil
}

// WriteFull writes in to the chip, padding any shortfall up to the chip's
// full size with 0xFF (spec §4.3). Flash chips are sector-erased across the
// full save range before any page is programmed (spec §4.4).
func (c *CartSpi) WriteFull(ctx context.Context, chipType ChipType, in []byte) error {
	info := infoFor(chipType)
	if len(in) > info.Size {
		return fmt.Errorf("cartspi: write payload is %d bytes, exceeds chip size %d", len(in), info.Size)
	}

	padded := make([]byte, info.Size)
	copy(padded, in)
	for i := len(in); i < info.Size; i++ {
		padded[i] = 0xFF
	}

	if info.EraseRequired {
		for off := 0; off < info.Size; off += sectorSize {
			if err := c.eraseSector(ctx, info.AddrClass, off); err != nil {
				return fmt.Errorf("cartspi: erase sector at 0x%x: %w", off, err)
			}
		}
	}

	for off := 0; off < info.Size; off += info.PageSize {
		n := info.PageSize
		if off+n > info.Size {
			n = info.Size - off
		}
		if err := c.writePage(ctx, info.AddrClass, off, padded[off:off+n]); err != nil {
			return fmt.Errorf("cartspi: write page at 0x%x: %w", off, err)
		}
	}
	return nil
}

func (c *CartSpi) eraseSector(ctx context.Context, class AddrClass, offset int) error {
	if err := c.exec(ctx, cmdWriteEnable); err != nil {
		return err
	}
	addr := encodeAddr(class, offset)
	cmd, addrBytes := splitAddrCommand(class, cmdSectorErase, addr)
	if err := c.bus.Transfer(ctx, cmd, addrBytes, nil, false); err != nil {
		return err
	}
	return c.waitReady(ctx, sectorEraseTimeout)
}

func (c *CartSpi) writePage(ctx context.Context, class AddrClass, offset int, data []byte) error {
	if err := c.exec(ctx, cmdWriteEnable); err != nil {
		return err
	}
	addr := encodeAddr(class, offset)
	cmd, addrBytes := splitAddrCommand(class, cmdPageWrite, addr)
	if err := c.bus.Transfer(ctx, cmd, addrBytes, data, false); err != nil {
		return err
	}
	return c.waitReady(ctx, byteOrPageTimeout)
}

func (c *CartSpi) readAt(ctx context.Context, class AddrClass, offset int, out []byte) error {
	addr := encodeAddr(class, offset)
	cmd, addrBytes := splitAddrCommand(class, cmdRead, addr)
	return c.bus.Transfer(ctx, cmd, addrBytes, out, true)
}
