package solana

import (
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeMint(supply uint64, decimals uint8, mintAuth, freezeAuth []byte) []byte {
	data := make([]byte, MintAccountSize)
	if mintAuth != nil {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		copy(data[4:36], mintAuth)
	}
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	if freezeAuth != nil {
		binary.LittleEndian.PutUint32(data[46:50], 1)
		copy(data[50:82], freezeAuth)
	}
	return data
}

func TestParseMint_WithAuthorities(t *testing.T) {
	mintAuth := make([]byte, 32)
	mintAuth[0] = 7
	freezeAuth := make([]byte, 32)
	freezeAuth[31] = 9

	state, err := ParseMint(encodeMint(1_000_000_000_000, 6, mintAuth, freezeAuth))
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000_000_000), state.Supply)
	assert.Equal(t, uint8(6), state.Decimals)
	assert.True(t, state.IsInitialized)
	require.NotNil(t, state.MintAuthority)
	require.NotNil(t, state.FreezeAuthority)
	assert.Equal(t, base58.Encode(mintAuth), *state.MintAuthority)
	assert.Equal(t, base58.Encode(freezeAuth), *state.FreezeAuthority)
}

func TestParseMint_RevokedAuthorities(t *testing.T) {
	state, err := ParseMint(encodeMint(42, 9, nil, nil))
	require.NoError(t, err)

	assert.Nil(t, state.MintAuthority)
	assert.Nil(t, state.FreezeAuthority)
	assert.Equal(t, uint64(42), state.Supply)
}

func TestParseMint_Token2022Extensions(t *testing.T) {
	data := append(encodeMint(5, 0, nil, nil), make([]byte, 100)...)

	state, err := ParseMint(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), state.Supply)
}

func TestParseMint_Errors(t *testing.T) {
	_, err := ParseMint(make([]byte, 10))
	assert.Error(t, err)

	data := encodeMint(1, 0, nil, nil)
	binary.LittleEndian.PutUint32(data[0:4], 5)
	_, err = ParseMint(data)
	assert.Error(t, err)
}
