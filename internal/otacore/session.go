// Package otacore implements OTA session bookkeeping: the running-hash
// accumulator handle and the idempotent-per-index chunk application rule.
// It does not touch flash — that is internal/flashmem's job, orchestrated
// by internal/supervisor — so a Session can be exercised and tested
// without any hardware dependency, the same split kept between
// ota_server.go (session/transfer logic) and a cgo-backed flash/partition
// package.
package otacore

import (
	"bytes"
	"crypto/sha256"
	"errors"
)

// HashAccumulator is the minimal shape of an incremental hash: write bytes
// as they arrive, read the digest once at the end. crypto/sha256.New()
// satisfies it directly (hash.Hash is a structural superset). Kept on the
// standard library deliberately — see DESIGN.md.
type HashAccumulator interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

// NewSHA256Accumulator returns a fresh SHA-256 accumulator.
func NewSHA256Accumulator() HashAccumulator {
	return sha256.New()
}

// MatchState is the tri-state hash-comparison result of a completed OTA
// session.
type MatchState uint8

const (
	MatchUnknown MatchState = iota
	MatchYes
	MatchNo
)

func (m MatchState) String() string {
	switch m {
	case MatchYes:
		return "yes"
	case MatchNo:
		return "no"
	default:
		return "unknown"
	}
}

// noChunkAcked is the "none" sentinel for LastChunkAcked.
const noChunkAcked = int64(-1)

// Session is the OTA session state that exists only while the supervisor is
// in the Programming status.
type Session struct {
	ImageSize      uint32
	ChunkCount     uint32
	ExpectedHash   [32]byte
	LastChunkAcked int64
	HashesMatch    MatchState

	hash HashAccumulator
}

// NewSession starts a session for an image of imageSize bytes split into
// chunkCount chunks, verified against expectedHash. Panics are never used;
// callers that got a chunkCount inconsistent with imageSize get a session
// that will simply never report a match (the supervisor is expected to have
// validated chunkCount itself).
func NewSession(imageSize, chunkCount uint32, expectedHash [32]byte, hash HashAccumulator) *Session {
	if hash == nil {
		hash = NewSHA256Accumulator()
	}
	return &Session{
		ImageSize:      imageSize,
		ChunkCount:     chunkCount,
		ExpectedHash:   expectedHash,
		LastChunkAcked: noChunkAcked,
		HashesMatch:    MatchUnknown,
		hash:           hash,
	}
}

// ErrIndexOutOfRange is returned by ApplyChunk for an index beyond the
// session's declared ChunkCount.
var ErrIndexOutOfRange = errors.New("otacore: chunk index out of range")

// ApplyChunk updates the running hash with data (the chunk's ChunkSize
// meaningful bytes) unless idx is the same index already applied. It
// reports whether idx is the final chunk of the image; on the final chunk
// the accumulated hash is finalized and compared against ExpectedHash,
// populating HashesMatch regardless of the outcome — status transitions
// to Ready exactly when the last chunk arrives, whether or not the hash
// matches.
func (s *Session) ApplyChunk(idx uint32, data []byte) (isLast bool, err error) {
	if s.ChunkCount > 0 && idx >= s.ChunkCount {
		return false, ErrIndexOutOfRange
	}

	if int64(idx) != s.LastChunkAcked {
		s.hash.Write(data)
		s.LastChunkAcked = int64(idx)
	}

	isLast = idx == s.ChunkCount-1
	if isLast {
		sum := s.hash.Sum(nil)
		if bytes.Equal(sum, s.ExpectedHash[:]) {
			s.HashesMatch = MatchYes
		} else {
			s.HashesMatch = MatchNo
		}
	}
	return isLast, nil
}
