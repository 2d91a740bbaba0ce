// Package flashmem wraps the non-volatile memory driver (page_erase,
// write) with the chunk-aligned erase and write operations the OTA state
// machine needs, plus the non-secure flash region layout.
//
// Grounded on ota/ota.go's driver shape: hardcoded region-offset
// constants, explicit erase-before-write discipline, and a driver surface
// kept deliberately small. ota.go talks to the RP2350 bootrom via cgo;
// SwarmIT targets a dual-core part whose non-secure flash is erased and
// written through ordinary memory-mapped NVMC registers, so the real
// driver (nvm_tinygo.go) is plain TinyGo register pokes instead of ROM
// calls — see that file's doc comment.
package flashmem

import "fmt"

// NVM is the non-volatile memory driver interface: erase a page, write a
// buffer, and (for test hooks) read a range back.
type NVM interface {
	PageErase(pageIndex uint32) error
	Write(addr uint32, buf []byte) error
	Read(addr uint32, buf []byte) error
	PageSize() uint32
	Size() uint32
}

// NonSecureBase is the offset, from the device's flash base, at which the
// non-secure (user image) region begins: 16 KiB, immediately after the
// secure flash region.
const NonSecureBase = 16 * 1024

// Writer performs chunk-aligned erase/write against an NVM, relative to the
// non-secure flash base.
type Writer struct {
	nvm  NVM
	base uint32
}

// NewWriter returns a Writer for the non-secure region of nvm, starting at
// base (normally flashmem.NonSecureBase).
func NewWriter(nvm NVM, base uint32) *Writer {
	return &Writer{nvm: nvm, base: base}
}

// EraseForImage erases every page covering [base, base+imageSize), the
// precondition that the non-secure flash region must have been fully
// erased before the first chunk write.
func (w *Writer) EraseForImage(imageSize uint32) error {
	if imageSize == 0 {
		return nil
	}
	pageSize := w.nvm.PageSize()
	if pageSize == 0 {
		return fmt.Errorf("flashmem: NVM reports zero page size")
	}
	first := w.base / pageSize
	last := (w.base + imageSize - 1) / pageSize
	for p := first; p <= last; p++ {
		if err := w.nvm.PageErase(p); err != nil {
			return fmt.Errorf("flashmem: erase page %d: %w", p, err)
		}
	}
	return nil
}

// WriteChunk writes the first chunkSize bytes of chunk at the address for
// chunk index — base + index*chunkStride. Re-writing the same index is
// idempotent because the region was pre-erased to all-ones and each index
// maps to a disjoint address range.
func (w *Writer) WriteChunk(index uint32, chunkStride uint32, chunkSize uint8, chunk []byte) error {
	if int(chunkSize) > len(chunk) {
		return fmt.Errorf("flashmem: chunk_size %d exceeds supplied buffer of %d bytes", chunkSize, len(chunk))
	}
	addr := w.base + index*chunkStride
	return w.nvm.Write(addr, chunk[:chunkSize])
}

// ReadRange reads length bytes starting at base+offset, the "read a byte
// range of non-secure flash" test hook.
func (w *Writer) ReadRange(offset, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if err := w.nvm.Read(w.base+offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
