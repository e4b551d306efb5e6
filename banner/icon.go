package banner

// AnimatedIcon decodes an entry's up to 8-frame animated icon (spec.md
// §4.9). biFlags is the entry's raw BIFlags with no 0xFB hack applied — the
// original disables that hack for the animated icon path. iconFmt and
// animSpeed are IconFmt/AnimSpeed decoded as big-endian u16 already.
//
// It returns one 32x32 RGBA8 frame per slot, from slot 0 up to (not
// including) the first slot whose delay is 0, and the per-slot delay values
// read up to and including that slot. A slot with delay != 0 but format 0 is a "blank
// frame": it repeats the next non-blank frame's pixels rather than
// decoding anything of its own.
func AnimatedIcon(dec PixelDecoder, biFlags byte, iconFmt, animSpeed uint16, imageOffset uint32, block []byte) (frames [][]byte, delays [iconSlots]byte) {
	if imageOffset == 0xFFFFFFFF || int(imageOffset) >= len(block) {
		return nil, delays
	}

	bnrFormat := int(biFlags & 3)
	cursor := int(imageOffset)
	switch bnrFormat {
	case 1:
		cursor += bannerWidth*bannerHeight + 2*sharedPaletteEntries
	case 2:
		cursor += bannerWidth * bannerHeight * 2
	}

	var fmts [iconSlots]int
	var dataStart [iconSlots]int
	count := 0
	for i := 0; i < iconSlots; i++ {
		fmts[i] = int(iconFmt>>(2*uint(i))) & 3
		delays[i] = byte(animSpeed>>(2*uint(i))) & 3
		dataStart[i] = cursor
		if delays[i] == 0 {
			break
		}
		count++
		switch fmts[i] {
		case fmtCI8Shared:
			cursor += iconWidth * iconHeight
		case fmtRGB5A3:
			cursor += iconWidth * iconHeight * 2
		case fmtCI8Own:
			cursor += iconWidth*iconHeight + 2*sharedPaletteEntries
		}
	}
	if count == 0 {
		return nil, delays
	}
	if cursor+2*sharedPaletteEntries > len(block) {
		return nil, delays
	}
	sharedPal := bytesToU16BE(block[cursor : cursor+2*sharedPaletteEntries])

	decodeSlot := func(i int) []byte {
		frame := make([]byte, iconWidth*iconHeight*4)
		start := dataStart[i]
		switch fmts[i] {
		case fmtCI8Shared:
			end := start + iconWidth*iconHeight
			if end > len(block) {
				return frame
			}
			dec.DecodeCI8(frame, block[start:end], sharedPal, iconWidth, iconHeight)
		case fmtRGB5A3:
			end := start + iconWidth*iconHeight*2
			if end > len(block) {
				return frame
			}
			dec.Decode5A3(frame, bytesToU16BE(block[start:end]), iconWidth, iconHeight)
		case fmtCI8Own:
			palStart := start + iconWidth*iconHeight
			palEnd := palStart + 2*sharedPaletteEntries
			if palEnd > len(block) {
				return frame
			}
			own := bytesToU16BE(block[palStart:palEnd])
			dec.DecodeCI8(frame, block[start:start+iconWidth*iconHeight], own, iconWidth, iconHeight)
		}
		return frame
	}

	frames = make([][]byte, 0, count)
	for i := 0; i < iconSlots; i++ {
		if delays[i] == 0 {
			break
		}
		if fmts[i] != fmtNone {
			frames = append(frames, decodeSlot(i))
			continue
		}
		// Blank frame: repeat the next non-blank slot's pixels.
		repeated := false
		for j := i; j < iconSlots && delays[j] != 0; j++ {
			if fmts[j] != fmtNone {
				frames = append(frames, decodeSlot(j))
				repeated = true
				break
			}
		}
		if !repeated {
			frames = append(frames, make([]byte, iconWidth*iconHeight*4))
		}
	}
	return frames, delays
}
