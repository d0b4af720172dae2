package substrate

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload(t *testing.T, metadataHash bool) *SigningPayload {
	t.Helper()
	var genesis Hash
	for i := range genesis {
		genesis[i] = byte(i)
	}
	call := &Call{Dest: alice(t), Amount: big.NewInt(1500000), Data: []byte{0x05, 0x00, 0x00}}
	call.Data = append(call.Data, call.Dest[:]...)
	call.Data = AppendCompact(call.Data, call.Amount)
	return &SigningPayload{
		Address:            aliceSS58,
		Signer:             alice(t),
		Call:               call,
		Nonce:              7,
		Tip:                new(big.Int),
		SpecVersion:        1300,
		TransactionVersion: 2,
		GenesisHash:        genesis,
		BlockHash:          genesis,
		MetadataHash:       metadataHash,
	}
}

func TestSigningPayloadBytes(t *testing.T) {
	p := testPayload(t, false)
	msg := p.Bytes()

	want := append([]byte(nil), p.Call.Data...)
	want = append(want, 0x00, 7<<2, 0x00)       // era, nonce, tip
	want = append(want, 0x14, 0x05, 0x00, 0x00) // spec 1300
	want = append(want, 0x02, 0x00, 0x00, 0x00) // tx version
	want = append(want, p.GenesisHash[:]...)    // genesis
	want = append(want, p.BlockHash[:]...)      // block hash
	assert.Equal(t, want, msg)

	withMode := testPayload(t, true).Bytes()
	assert.Len(t, withMode, len(msg)+2)
}

func TestSigningPayloadHashedWhenLong(t *testing.T) {
	p := testPayload(t, false)
	p.Call.Data = append(p.Call.Data, bytes.Repeat([]byte{0xaa}, 300)...)
	assert.Len(t, p.Bytes(), 32)
}

func TestExtrinsicLayout(t *testing.T) {
	p := testPayload(t, false)
	sig := MultiSignature{Kind: SigEcdsa, Bytes: bytes.Repeat([]byte{0x11}, 65)}
	ext := p.Extrinsic(sig)

	n, off, err := DecodeCompact(ext)
	require.NoError(t, err)
	body := ext[off:]
	require.Equal(t, int(n.Int64()), len(body))

	assert.Equal(t, byte(0x84), body[0])
	assert.Equal(t, byte(0x00), body[1])
	assert.Equal(t, p.Signer[:], body[2:34])
	assert.Equal(t, byte(SigEcdsa), body[34])
	assert.Equal(t, sig.Bytes, body[35:100])
	assert.Equal(t, []byte{0x00, 7 << 2, 0x00}, body[100:103])
	assert.Equal(t, p.Call.Data, body[103:])
}

func TestPayloadJSON(t *testing.T) {
	p := testPayload(t, true)
	j := p.JSON()
	assert.Equal(t, aliceSS58, j.Address)
	assert.Equal(t, "0x00000007", j.Nonce)
	assert.Equal(t, "0x00000514", j.SpecVersion)
	assert.Equal(t, "0x00", j.Era)
	assert.Equal(t, p.GenesisHash.Hex(), j.BlockHash)
	assert.Equal(t, 4, j.Version)
	assert.Contains(t, j.SignedExtensions, "CheckMetadataHash")
	assert.Equal(t, "0x"+"00000000000000000000000000000000", j.Tip)
}

func TestParseMultiSignature(t *testing.T) {
	raw := append([]byte{byte(SigSr25519)}, bytes.Repeat([]byte{1}, 64)...)
	sig, err := ParseMultiSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, SigSr25519, sig.Kind)
	assert.Equal(t, raw, sig.Encode())

	_, err = ParseMultiSignature(append([]byte{byte(SigEcdsa)}, bytes.Repeat([]byte{1}, 64)...))
	assert.Error(t, err)
	_, err = ParseMultiSignature([]byte{9, 1, 2})
	assert.Error(t, err)
	_, err = ParseMultiSignature(nil)
	assert.Error(t, err)

	assert.Len(t, EmptySignature(SigEcdsa).Bytes, 65)
	assert.Len(t, EmptySignature(SigEd25519).Bytes, 64)
}
