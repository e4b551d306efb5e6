package memcard

import "testing"

type fixedTime struct{ t uint64 }

func (f fixedTime) Now() uint64 { return f.t }

func TestFormatProducesValidCard(t *testing.T) {
	c := &Card{}
	opts := &OpenOptions{TimeSource: fixedTime{t: 123456789}}
	if err := c.Format(opts, MemCard59Mb, EncodingASCII); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !c.IsValid() {
		t.Fatal("formatted card should be valid")
	}
	if c.GetNumFiles() != 0 {
		t.Errorf("GetNumFiles = %d, want 0", c.GetNumFiles())
	}
	wantFree := uint16(int(MemCard59Mb)*MbitToBlocks - McFstBlocks)
	if c.GetFreeBlocks() != wantFree {
		t.Errorf("GetFreeBlocks = %d, want %d", c.GetFreeBlocks(), wantFree)
	}
	if len(c.dataBlocks) != int(MemCard59Mb)*MbitToBlocks-McFstBlocks {
		t.Errorf("wrong data block count: %d", len(c.dataBlocks))
	}
}

func TestFormatRejectsInvalidSize(t *testing.T) {
	c := &Card{}
	if err := c.Format(&OpenOptions{}, 7, EncodingASCII); err != ErrInvalidSize {
		t.Errorf("Format with bad size: got %v, want ErrInvalidSize", err)
	}
}

func TestFormatSerialRoundTripsWithFlashID(t *testing.T) {
	c := &Card{}
	flashID := [12]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	opts := &OpenOptions{
		TimeSource: fixedTime{t: 42},
		SRAM:       DefaultSRAMSource{ID: flashID},
	}
	if err := c.Format(opts, MemCard59Mb, EncodingASCII); err != nil {
		t.Fatalf("Format: %v", err)
	}
	id1, id2, id3 := c.FlashID()
	var got [12]byte
	copy(got[0:4], id1[:])
	copy(got[4:8], id2[:])
	copy(got[8:12], id3[:])
	if got != flashID {
		t.Errorf("FlashID round-trip = %v, want %v", got, flashID)
	}
}

func TestFormatDirAndBatTieBreakPicksSlotA(t *testing.T) {
	c := &Card{}
	if err := c.Format(&OpenOptions{}, MemCard59Mb, EncodingASCII); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if c.currentDir != slotA {
		t.Errorf("currentDir = %v, want slotA on equal update counters", c.currentDir)
	}
	if c.currentBat != slotA {
		t.Errorf("currentBat = %v, want slotA on equal update counters", c.currentBat)
	}
}
