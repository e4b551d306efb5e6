package memcard

import (
	"fmt"

	"github.com/gcmemcard/gcmemcard/banner"
)

// ReadBannerRGBA8 decodes entry index's static 96x32 banner, applying the
// 0xFB BIFlags inversion hack (spec.md §4.9). dec supplies the CI8/RGB5A3
// pixel decoders, which are out of this library's scope.
func (c *Card) ReadBannerRGBA8(index int, dec banner.PixelDecoder) ([]byte, error) {
	e, err := c.GetDEntry(index)
	if err != nil {
		return nil, err
	}
	if e.FirstBlock < McFstBlocks {
		return nil, fmt.Errorf("memcard: entry %d has no banner", index)
	}
	dataBlock := int(e.FirstBlock) - McFstBlocks
	if dataBlock < 0 || dataBlock >= len(c.dataBlocks) {
		return nil, fmt.Errorf("memcard: entry %d references block out of range", index)
	}
	flags := e.BIFlags
	if flags == 0xFB {
		flags = ^flags
	}
	rgba, ok := banner.Banner(dec, flags, e.ImageOffset, c.dataBlocks[dataBlock])
	if !ok {
		return nil, fmt.Errorf("memcard: entry %d has no banner", index)
	}
	return rgba, nil
}

// ReadAnimRGBA8 decodes entry index's animated icon frames (spec.md §4.9).
// Unlike ReadBannerRGBA8, the 0xFB hack is never applied here, matching
// the original's disabled hack on this path.
func (c *Card) ReadAnimRGBA8(index int, dec banner.PixelDecoder) (frames [][]byte, delays [8]byte, err error) {
	e, err := c.GetDEntry(index)
	if err != nil {
		return nil, delays, err
	}
	if e.FirstBlock < McFstBlocks {
		return nil, delays, nil
	}
	dataBlock := int(e.FirstBlock) - McFstBlocks
	if dataBlock < 0 || dataBlock >= len(c.dataBlocks) {
		return nil, delays, nil
	}
	frames, delays = banner.AnimatedIcon(dec, e.BIFlags, e.IconFmt, e.AnimSpeed, e.ImageOffset, c.dataBlocks[dataBlock])
	return frames, delays, nil
}
