package memcard

import "testing"

func sampleEntry(gameCode, fileName string) DirectoryEntry {
	var e DirectoryEntry
	copy(e.GameCode[:], gameCode)
	copy(e.MakerCode[:], "01")
	copy(e.FileName[:], fileName)
	e.BIFlags = 0
	e.ImageOffset = 0xFFFFFFFF
	e.CommentsAddr = 0xFFFFFFFF
	return e
}

func sampleBlocks(n int, fill byte) [][]byte {
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = make([]byte, BlockSize)
		for j := range blocks[i] {
			blocks[i][j] = fill
		}
	}
	return blocks
}

func TestImportFileAllocatesAndCommits(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	freeBefore := c.GetFreeBlocks()

	entry := sampleEntry("GAFE", "save1")
	blocks := sampleBlocks(2, 0xAB)
	if err := c.ImportFile(entry, blocks); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	if c.GetNumFiles() != 1 {
		t.Fatalf("GetNumFiles = %d, want 1", c.GetNumFiles())
	}
	if c.GetFreeBlocks() != freeBefore-2 {
		t.Errorf("GetFreeBlocks = %d, want %d", c.GetFreeBlocks(), freeBefore-2)
	}

	got, err := c.GetDEntry(0)
	if err != nil {
		t.Fatalf("GetDEntry: %v", err)
	}
	if got.BlockCount != 2 {
		t.Errorf("BlockCount = %d, want 2", got.BlockCount)
	}
	if got.FirstBlock < McFstBlocks {
		t.Errorf("FirstBlock = %d, should be >= %d", got.FirstBlock, McFstBlocks)
	}
}

func TestImportFileRejectsDuplicateTitle(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	entry := sampleEntry("GAFE", "save1")
	if err := c.ImportFile(entry, sampleBlocks(1, 1)); err != nil {
		t.Fatalf("first ImportFile: %v", err)
	}
	if err := c.ImportFile(entry, sampleBlocks(1, 2)); err != ErrTitlePresent {
		t.Errorf("second import: got %v, want ErrTitlePresent", err)
	}
}

func TestImportFileRejectsWhenOutOfBlocks(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	huge := int(c.GetFreeBlocks()) + 1
	entry := sampleEntry("GAFE", "toobig")
	if err := c.ImportFile(entry, sampleBlocks(huge, 1)); err != ErrOutOfBlocks {
		t.Errorf("expected ErrOutOfBlocks, got %v", err)
	}
}

func TestRemoveFileFreesBlocksAndClearsSlot(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	entry := sampleEntry("GAFE", "save1")
	if err := c.ImportFile(entry, sampleBlocks(3, 7)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	freeAfterImport := c.GetFreeBlocks()

	if err := c.RemoveFile(0); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if c.GetNumFiles() != 0 {
		t.Errorf("GetNumFiles = %d, want 0", c.GetNumFiles())
	}
	if c.GetFreeBlocks() != freeAfterImport+3 {
		t.Errorf("GetFreeBlocks = %d, want %d", c.GetFreeBlocks(), freeAfterImport+3)
	}
	e, _ := c.GetDEntry(0)
	if !e.IsEmpty() {
		t.Error("removed slot should be empty")
	}
}

func TestRemoveFileOnEmptySlotFails(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	if err := c.RemoveFile(0); err == nil {
		t.Fatal("expected an error removing an already-empty slot")
	}
}

func TestImportThenGetSaveDataRoundTrips(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	entry := sampleEntry("GAFE", "roundtrip")
	blocks := sampleBlocks(2, 0x42)
	if err := c.ImportFile(entry, blocks); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	gotEntry, gotBlocks, err := c.GetSaveData(0)
	if err != nil {
		t.Fatalf("GetSaveData: %v", err)
	}
	if gotEntry.FileNameString() != "roundtrip" {
		t.Errorf("filename = %q, want roundtrip", gotEntry.FileNameString())
	}
	if len(gotBlocks) != 2 || gotBlocks[0][0] != 0x42 {
		t.Error("exported data blocks do not match imported content")
	}
}

func TestResizeShrinkRefusesWhenContentDoesNotFit(t *testing.T) {
	c := newFormattedCard(t, MemCard507Mb)
	entry := sampleEntry("GAFE", "big")
	// A single 300-block import occupies blocks 5-304, far past the 68
	// blocks a 59-block card holds.
	if err := c.ImportFile(entry, sampleBlocks(300, 9)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if err := c.Resize(MemCard59Mb); err == nil {
		t.Error("expected shrink below content's minimum fit size to fail")
	}
}

func TestResizeGrowZeroExtendsDataBlocks(t *testing.T) {
	c := newFormattedCard(t, MemCard59Mb)
	oldLen := len(c.dataBlocks)
	if err := c.Resize(MemCard123Mb); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(c.dataBlocks) <= oldLen {
		t.Fatalf("expected more data blocks after growing, got %d (was %d)", len(c.dataBlocks), oldLen)
	}
	for _, b := range c.dataBlocks[oldLen:] {
		for _, by := range b {
			if by != 0 {
				t.Fatal("newly added blocks should be zero-filled")
			}
		}
	}
}
