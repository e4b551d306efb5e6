package memcard

import (
	"testing"

	"github.com/go-test/deep"
)

func init() {
	// directory and blockAlloc are all-unexported-field structs; without
	// this, deep.Equal would silently compare nothing.
	deep.CompareUnexportedFields = true
}

func blankDirectory() *directory {
	d := &directory{updateCounter: 3}
	for i := range d.entries {
		d.entries[i] = emptyDirectoryEntry
	}
	return d
}

func TestDirectoryEntryIsEmpty(t *testing.T) {
	if !emptyDirectoryEntry.IsEmpty() {
		t.Fatal("an all-0xFF entry must report empty")
	}
	var e DirectoryEntry
	copy(e.GameCode[:], "GAFE")
	if e.IsEmpty() {
		t.Fatal("an entry with a real game code must not report empty")
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	d := blankDirectory()
	copy(d.entries[5].GameCode[:], "GAFE")
	copy(d.entries[5].FileName[:], "SAVE01")
	d.entries[5].BlockCount = 3

	b := d.toBytes()
	if !checksumOK(b, dirChecksumWords) {
		t.Fatal("serialized directory must validate its own checksum")
	}

	back, err := directoryFromBytes(b)
	if err != nil {
		t.Fatalf("directoryFromBytes: %v", err)
	}
	if back.entries[5].FileNameString() != "SAVE01" {
		t.Errorf("filename = %q, want SAVE01", back.entries[5].FileNameString())
	}
	if back.numFiles() != 1 {
		t.Errorf("numFiles = %d, want 1", back.numFiles())
	}
	// A structural diff catches a field-level regression (e.g. an offset
	// shifting one entry's bytes into another's) that the spot checks
	// above would miss.
	if diff := deep.Equal(d, back); diff != nil {
		t.Errorf("round-tripped directory differs from the original: %v", diff)
	}
}

func TestDirectoryFileIndexAndTitlePresent(t *testing.T) {
	d := blankDirectory()
	copy(d.entries[2].GameCode[:], "GAFE")
	copy(d.entries[2].FileName[:], "A")
	copy(d.entries[9].GameCode[:], "GAFE")
	copy(d.entries[9].FileName[:], "B")

	if got := d.fileIndex(0); got != 2 {
		t.Errorf("fileIndex(0) = %d, want 2", got)
	}
	if got := d.fileIndex(1); got != 9 {
		t.Errorf("fileIndex(1) = %d, want 9", got)
	}
	if got := d.fileIndex(2); got != DirLen {
		t.Errorf("fileIndex(2) = %d, want DirLen (not present)", got)
	}

	var query DirectoryEntry
	copy(query.GameCode[:], "GAFE")
	copy(query.FileName[:], "B")
	if got := d.titlePresent(query); got != 9 {
		t.Errorf("titlePresent = %d, want 9", got)
	}
}

func TestDirectoryFirstEmptySlotWhenFull(t *testing.T) {
	d := blankDirectory()
	for i := range d.entries {
		copy(d.entries[i].GameCode[:], "GAFE")
	}
	if got := d.firstEmptySlot(); got != DirLen {
		t.Errorf("firstEmptySlot on a full directory = %d, want DirLen", got)
	}
}
