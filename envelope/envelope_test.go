package envelope

import (
	"bytes"
	"testing"
)

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		"save.gci": GCI,
		"save.GCS": GCS,
		"save.sav": SAV,
	}
	for name, want := range cases {
		got, err := DetectKind(name)
		if err != nil {
			t.Fatalf("DetectKind(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("DetectKind(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := DetectKind("save.bin"); err != ErrUnknownExtension {
		t.Errorf("expected ErrUnknownExtension, got %v", err)
	}
}

func TestCheckMagic(t *testing.T) {
	if err := CheckMagic(GCS, []byte("GCSAVE\x00\x00")); err != nil {
		t.Errorf("valid GCS magic rejected: %v", err)
	}
	if err := CheckMagic(GCS, []byte("gcsave\x00\x00")); err == nil {
		t.Error("lowercase GCS magic should be rejected")
	}
	if err := CheckMagic(SAV, []byte("DATELGC_SAVE")); err != nil {
		t.Errorf("valid SAV magic rejected: %v", err)
	}
	if err := CheckMagic(GCI, nil); err != nil {
		t.Errorf("GCI should never fail magic check: %v", err)
	}
}

func TestSwapSAVEntryIsInvolution(t *testing.T) {
	entry := make([]byte, entrySize)
	for i := range entry {
		entry[i] = byte(i)
	}
	original := append([]byte(nil), entry...)

	SwapSAVEntry(entry)
	if bytes.Equal(entry, original) {
		t.Fatal("expected swap to change the buffer")
	}
	SwapSAVEntry(entry)
	if !bytes.Equal(entry, original) {
		t.Error("applying SwapSAVEntry twice should restore the original bytes")
	}
}

func TestPatchGCSBlockCount(t *testing.T) {
	entry := make([]byte, entrySize)
	PatchGCSBlockCount(entry, 3*8192, 8192)
	got := uint16(entry[entryBlockCountOffset])<<8 | uint16(entry[entryBlockCountOffset+1])
	if got != 3 {
		t.Errorf("BlockCount = %d, want 3", got)
	}
}
