package savestore

import (
	"context"
	"fmt"

	"github.com/fenilsonani/savesync/internal/cartspi"
)

// CartridgeStore is the physical-cartridge kind (spec §4.3): the save is
// the cartridge's full save-chip image, read and written through CartSpi.
// A write shorter than the chip's full size is padded with 0xFF by
// CartSpi.WriteFull.
type CartridgeStore struct {
	spi      *cartspi.CartSpi
	detected cartspi.ChipType // zero value (Unknown) until the first Detect
}

// NewCartridgeStore returns a store backed by spi. The chip type is
// detected lazily on first use and cached for the lifetime of this store,
// since detection followed by read/write must be atomic relative to
// cartridge removal (spec §5) — re-detecting between a read and a write in
// the same logical operation would reintroduce that race.
func NewCartridgeStore(spi *cartspi.CartSpi) *CartridgeStore {
	return &CartridgeStore{spi: spi}
}

func (s *CartridgeStore) chipType(ctx context.Context) (cartspi.ChipType, error) {
	if s.detected != cartspi.Unknown {
		return s.detected, nil
	}
	chipType, err := s.spi.Detect(ctx)
	if err != nil {
		return cartspi.Unknown, fmt.Errorf("savestore: detect cartridge chip: %w", err)
	}
	s.detected = chipType
	return chipType, nil
}

func (s *CartridgeStore) ReadSave(ctx context.Context) (FileList, error) {
	chipType, err := s.chipType(ctx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, cartspi.SizeOf(chipType))
	if err := s.spi.ReadFull(ctx, chipType, buf); err != nil {
		return nil, fmt.Errorf("savestore: read cartridge: %w", err)
	}
	return FileList{{Path: saveDatName, Data: buf}}, nil
}

func (s *CartridgeStore) WriteSave(ctx context.Context, files FileList) error {
	chipType, err := s.chipType(ctx)
	if err != nil {
		return err
	}
	if err := s.spi.WriteFull(ctx, chipType, dataOf(files)); err != nil {
		return fmt.Errorf("savestore: write cartridge: %w", err)
	}
	return nil
}

// HasSave always reports true for an inserted cartridge: a chip image is
// always "a save" to this engine, even if blank.
func (s *CartridgeStore) HasSave(ctx context.Context) (bool, error) {
	_, err := s.chipType(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}
