package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"WS_URL", "TOKEN_DECIMALS", "ESTIMATOR", "TRANSFER_CALL_INDEX", "SS58_PREFIX", "SUBMIT_PACE_MS", "FEE_PLACEHOLDER", "KEY_SCHEME", "key_scheme"} {
		t.Setenv(k, "")
	}
	st := Load()
	assert.Equal(t, "wss://mainnet.ternoa.network", st.WSURL)
	assert.Equal(t, int32(6), st.TokenDecimals)
	assert.Equal(t, "fixed", st.Estimator)
	assert.Equal(t, [2]byte{0x05, 0x00}, st.TransferCallIndex)
	assert.Equal(t, uint16(42), st.SS58Prefix)
	assert.Equal(t, time.Duration(0), st.SubmitPace)
	assert.Equal(t, "0.001", st.FeePlaceholder.String())
	assert.Equal(t, "sr25519", st.KeyScheme)
}

func TestLoadLowerAndUpperKeys(t *testing.T) {
	t.Setenv("ws_url", "ws://127.0.0.1:9944")
	t.Setenv("TOKEN_DECIMALS", "18")
	t.Setenv("transfer_call_index", "0x0607")
	t.Setenv("SUBMIT_PACE_MS", "250")
	t.Setenv("METADATA_HASH", "yes")
	t.Setenv("SS58_PREFIX", "not-a-number")
	t.Setenv("key_scheme", "ECDSA")

	st := Load()
	assert.Equal(t, "ws://127.0.0.1:9944", st.WSURL)
	assert.Equal(t, int32(18), st.TokenDecimals)
	assert.Equal(t, [2]byte{0x06, 0x07}, st.TransferCallIndex)
	assert.Equal(t, 250*time.Millisecond, st.SubmitPace)
	assert.True(t, st.MetadataHash)
	assert.Equal(t, uint16(42), st.SS58Prefix)
	assert.Equal(t, "ecdsa", st.KeyScheme)
}

func TestParseCallIndex(t *testing.T) {
	ci, ok := ParseCallIndex("5, 3")
	require.True(t, ok)
	assert.Equal(t, [2]byte{5, 3}, ci)

	ci, ok = ParseCallIndex("0x0a00")
	require.True(t, ok)
	assert.Equal(t, [2]byte{10, 0}, ci)

	for _, bad := range []string{"", "0x05", "300,1", "zz00"} {
		_, ok := ParseCallIndex(bad)
		assert.False(t, ok, bad)
	}
}
