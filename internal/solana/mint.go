package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL Token mint account layout (82 bytes):
//   - mintAuthority:   COption<Pubkey> (4 + 32)
//   - supply:          u64 (8)
//   - decimals:        u8 (1)
//   - isInitialized:   bool (1)
//   - freezeAuthority: COption<Pubkey> (4 + 32)
const (
	MintAccountSize = 82

	mintAuthorityOffset   = 0
	supplyOffset          = 36
	decimalsOffset        = 44
	isInitializedOffset   = 45
	freezeAuthorityOffset = 46
)

// ParseMint decodes SPL Token mint account data.
// Token-2022 mints carry extensions after the base layout; those bytes are ignored.
func ParseMint(data []byte) (*MintState, error) {
	if len(data) < MintAccountSize {
		return nil, fmt.Errorf("mint data too short: %d", len(data))
	}

	mintAuthority, err := parseCOptionPubkey(data[mintAuthorityOffset : mintAuthorityOffset+36])
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freezeAuthority, err := parseCOptionPubkey(data[freezeAuthorityOffset : freezeAuthorityOffset+36])
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}

	return &MintState{
		Supply:          binary.LittleEndian.Uint64(data[supplyOffset : supplyOffset+8]),
		Decimals:        data[decimalsOffset],
		IsInitialized:   data[isInitializedOffset] == 1,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}, nil
}

// parseCOptionPubkey decodes a 4-byte tag followed by a 32-byte key.
func parseCOptionPubkey(b []byte) (*string, error) {
	switch tag := binary.LittleEndian.Uint32(b[:4]); tag {
	case 0:
		return nil, nil
	case 1:
		key := base58.Encode(b[4:36])
		return &key, nil
	default:
		return nil, fmt.Errorf("invalid option tag %d", tag)
	}
}
