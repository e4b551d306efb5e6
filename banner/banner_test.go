package banner

import "testing"

type recordingDecoder struct {
	ci8Calls  int
	rgb5Calls int
}

func (r *recordingDecoder) DecodeCI8(dst []byte, srcIdx []byte, palette []uint16, w, h int) {
	r.ci8Calls++
	dst[0] = 0xAA
}

func (r *recordingDecoder) Decode5A3(dst []byte, srcU16 []uint16, w, h int) {
	r.rgb5Calls++
	dst[0] = 0xBB
}

func TestBannerFormatNoneReturnsFalse(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)
	if _, ok := Banner(dec, 0, 0, block); ok {
		t.Fatal("format 0 should report no banner")
	}
}

func TestBannerCI8DecodesWithPalette(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)
	rgba, ok := Banner(dec, 1, 0, block)
	if !ok {
		t.Fatal("expected CI8 banner to decode")
	}
	if dec.ci8Calls != 1 {
		t.Errorf("expected 1 CI8 decode call, got %d", dec.ci8Calls)
	}
	if len(rgba) != bannerWidth*bannerHeight*4 {
		t.Errorf("rgba length = %d, want %d", len(rgba), bannerWidth*bannerHeight*4)
	}
}

func TestBannerRGB5A3Decodes(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)
	_, ok := Banner(dec, 2, 0, block)
	if !ok {
		t.Fatal("expected RGB5A3 banner to decode")
	}
	if dec.rgb5Calls != 1 {
		t.Errorf("expected 1 RGB5A3 decode call, got %d", dec.rgb5Calls)
	}
}

func TestAnimatedIconFrameCount(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)

	var iconFmt, animSpeed uint16
	// Slot 0: CI8 shared, delay 1. Slot 1: delay 0 terminates.
	iconFmt |= uint16(fmtCI8Shared) << 0
	animSpeed |= uint16(1) << 0

	frames, delays := AnimatedIcon(dec, 0, iconFmt, animSpeed, 0, block)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if delays[0] != 1 {
		t.Errorf("delays[0] = %d, want 1", delays[0])
	}
	if delays[1] != 0 {
		t.Errorf("delays[1] = %d, want 0 (terminator)", delays[1])
	}
}

func TestAnimatedIconBlankFrameRepeatsNext(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)

	var iconFmt, animSpeed uint16
	// Slot 0: blank (format 0) but delay set. Slot 1: CI8 shared, delay set.
	iconFmt |= uint16(fmtNone) << 0
	iconFmt |= uint16(fmtCI8Shared) << 2
	animSpeed |= uint16(2) << 0
	animSpeed |= uint16(3) << 2

	frames, _ := AnimatedIcon(dec, 0, iconFmt, animSpeed, 0, block)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames (blank + real), got %d", len(frames))
	}
	if dec.ci8Calls != 2 {
		t.Errorf("expected blank frame to decode slot 1's image too, got %d CI8 calls", dec.ci8Calls)
	}
}

func TestAnimatedIconNoFramesWhenFirstDelayZero(t *testing.T) {
	dec := &recordingDecoder{}
	block := make([]byte, 8192)
	frames, _ := AnimatedIcon(dec, 0, 0, 0, 0, block)
	if frames != nil {
		t.Errorf("expected nil frames when first slot has delay 0, got %d", len(frames))
	}
}
