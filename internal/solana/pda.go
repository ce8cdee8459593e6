package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetadataProgram is the Metaplex Token Metadata program ID.
const MetadataProgram = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

const (
	pubkeyLen    = 32
	maxSeedLen   = 32
	pdaMarker    = "ProgramDerivedAddress"
	metadataSeed = "metadata"
)

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != pubkeyLen {
		return nil, fmt.Errorf("pubkey %q: invalid length %d", s, len(b))
	}
	return b, nil
}

// FindProgramAddress derives a program address from seeds, trying bumps from 255 down.
// Returns the base58 address and the bump that produced it.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, err
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return "", 0, fmt.Errorf("seed exceeds %d bytes", maxSeedLen)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		addr := createProgramAddress(seeds, uint8(bump), program)
		if !isOnCurve(addr) {
			return base58.Encode(addr), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// createProgramAddress hashes seeds || bump || programID || marker.
func createProgramAddress(seeds [][]byte, bump uint8, program []byte) []byte {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program)
	h.Write([]byte(pdaMarker))
	return h.Sum(nil)
}

// isOnCurve reports whether b decodes to a valid ed25519 point.
func isOnCurve(b []byte) bool {
	if len(b) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// MetadataAddress derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metadata_program_id, mint].
func MetadataAddress(mint string) (string, error) {
	mintKey, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	program, err := DecodePubkey(MetadataProgram)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{[]byte(metadataSeed), program, mintKey}, MetadataProgram)
	return addr, err
}
