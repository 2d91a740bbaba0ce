package otacore

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const chunkSize = 128

func chunksOf(image []byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(image); i += chunkSize {
		end := i + chunkSize
		if end > len(image) {
			end = len(image)
		}
		chunks = append(chunks, image[i:end])
	}
	return chunks
}

func padChunk(c []byte) [128]byte {
	var out [128]byte
	copy(out[:], c)
	return out
}

func TestSessionHappyPath(t *testing.T) {
	image := make([]byte, 384)
	for i := range image {
		image[i] = byte(i)
	}
	expectedHash := sha256.Sum256(image)
	chunks := chunksOf(image)

	s := NewSession(uint32(len(image)), uint32(len(chunks)), expectedHash, nil)

	for i, c := range chunks {
		padded := padChunk(c)
		isLast, err := s.ApplyChunk(uint32(i), padded[:len(c)])
		assert.NoError(t, err)
		assert.Equal(t, i == len(chunks)-1, isLast)
	}

	assert.Equal(t, MatchYes, s.HashesMatch)
}

// Re-acking an already-applied chunk must not change the running hash.
func TestSessionDuplicateChunkDoesNotChangeHash(t *testing.T) {
	image := make([]byte, 384)
	for i := range image {
		image[i] = byte(i)
	}
	expectedHash := sha256.Sum256(image)
	chunks := chunksOf(image)

	s := NewSession(uint32(len(image)), uint32(len(chunks)), expectedHash, nil)

	c0 := padChunk(chunks[0])
	_, err := s.ApplyChunk(0, c0[:])
	assert.NoError(t, err)

	c1 := padChunk(chunks[1])
	_, err = s.ApplyChunk(1, c1[:])
	assert.NoError(t, err)

	// Resend chunk 1 (duplicate of LastChunkAcked).
	_, err = s.ApplyChunk(1, c1[:])
	assert.NoError(t, err)

	c2 := padChunk(chunks[2])
	isLast, err := s.ApplyChunk(2, c2[:])
	assert.NoError(t, err)
	assert.True(t, isLast)
	assert.Equal(t, MatchYes, s.HashesMatch)
}

// Corrupting one chunk still reaches the final chunk (caller's job to
// transition to Ready) with HashesMatch = no.
func TestSessionHashMismatch(t *testing.T) {
	image := make([]byte, 384)
	for i := range image {
		image[i] = byte(i)
	}
	expectedHash := sha256.Sum256(image)
	chunks := chunksOf(image)
	corrupted := append([]byte(nil), chunks[1]...)
	corrupted[0] ^= 0xFF

	s := NewSession(uint32(len(image)), uint32(len(chunks)), expectedHash, nil)

	c0 := padChunk(chunks[0])
	s.ApplyChunk(0, c0[:])
	c1 := padChunk(corrupted)
	s.ApplyChunk(1, c1[:])
	c2 := padChunk(chunks[2])
	isLast, err := s.ApplyChunk(2, c2[:])

	assert.NoError(t, err)
	assert.True(t, isLast)
	assert.Equal(t, MatchNo, s.HashesMatch)
}

func TestApplyChunkRejectsOutOfRange(t *testing.T) {
	s := NewSession(384, 3, [32]byte{}, nil)
	_, err := s.ApplyChunk(3, make([]byte, chunkSize))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

// Property: for arbitrary images applied in order, resending the chunk just
// applied never changes the running hash digest.
func TestDuplicateChunkHashStableProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "numChunks")
		image := rapid.SliceOfN(rapid.Byte(), n*chunkSize, n*chunkSize).Draw(t, "image")
		var zeroHash [32]byte

		s := NewSession(uint32(len(image)), uint32(n), zeroHash, nil)
		chunks := chunksOf(image)

		dupIdx := rapid.IntRange(0, n-1).Draw(t, "dupIdx")
		for i, c := range chunks {
			padded := padChunk(c)
			s.ApplyChunk(uint32(i), padded[:])
			if i == dupIdx {
				hashBefore := s.hash.Sum(nil)
				s.ApplyChunk(uint32(i), padded[:])
				hashAfter := s.hash.Sum(nil)
				assert.Equal(t, hashBefore, hashAfter)
			}
		}
	})
}
