package memcard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readFullBlock reads exactly n bytes from the start of path.
func readFullBlock(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFileAtomic writes data to path via a temp-file-and-rename, so a
// crash mid-write never leaves a half-written file in path's place
// (grounded on distr1-distri's use of renameio for install targets).
func writeFileAtomic(path string, data []byte) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer t.Cleanup()
	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// imageBytes serializes the full on-disk card image: header, both
// directory copies, both BAT copies, then every data block, in that fixed
// physical order regardless of which copy is currently primary (spec.md
// §2 dataflow, §9's "two owned buffers" note).
func (c *Card) imageBytes() []byte {
	var buf bytes.Buffer
	buf.Write(c.hdr.toBytes())
	buf.Write(c.dirs[slotA].toBytes())
	buf.Write(c.dirs[slotB].toBytes())
	buf.Write(c.bats[slotA].toBytes())
	buf.Write(c.bats[slotB].toBytes())
	for _, blk := range c.dataBlocks {
		buf.Write(blk)
	}
	return buf.Bytes()
}

// Save rewrites the card to its original filename, preserving whatever MCI
// envelope it was opened with (spec.md §4.3: "Saves are full-file
// rewrites").
func (c *Card) Save() error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	return c.writeTo(c.filename, c.mciOffset > 0)
}

// SaveAs writes the card to a new path, choosing the MCI envelope by the
// new filename's extension rather than the card's original one (spec.md
// §4.3's SaveAs extension-based header set/clear).
func (c *Card) SaveAs(path string) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	wantMCI := strings.EqualFold(filepath.Ext(path), ".mci")
	if err := c.writeTo(path, wantMCI); err != nil {
		return err
	}
	c.filename = path
	if wantMCI {
		c.mciOffset = MciHdrSize
	} else {
		c.mciOffset = 0
	}
	return nil
}

func (c *Card) writeTo(path string, withMCI bool) error {
	body := c.imageBytes()

	var out []byte
	if withMCI {
		mci := newMCIHeader(c.maxBlock)
		out = append(out, mci.toBytes()...)
		c.mci = mci
	}
	out = append(out, body...)

	if err := writeFileAtomic(path, out); err != nil {
		return err
	}
	if c.log != nil {
		c.log.WithField("session", c.sessionID).WithField("path", path).Info("memcard: saved card")
	}
	return nil
}
