package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Settings keeps all configuration options.
// Keys are read in both lower_case and UPPER_CASE form.
type Settings struct {
	WSURL             string
	TokenSymbol       string
	TokenDecimals     int32
	FeePlaceholder    decimal.Decimal
	Estimator         string // "fixed" or "dryrun"
	SS58Prefix        uint16
	TransferCallIndex [2]byte
	MetadataHash      bool
	SignerProviderURL string
	AppName           string
	Account           string
	Mnemonic          string
	KeyScheme         string // local key scheme: "sr25519" or "ecdsa"
	SubmitPace        time.Duration
	RPCTimeout        time.Duration
	OutOK             string
	OutBad            string
	LogLevel          string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
func Load() Settings {
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(keys []string, def int) int {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return def
	}
	getBool := func(keys []string, def bool) bool {
		s := strings.ToLower(get(keys, ""))
		if s == "" {
			return def
		}
		return s == "1" || s == "true" || s == "yes" || s == "on"
	}
	getMillis := func(keys []string, def time.Duration) time.Duration {
		n := getInt(keys, -1)
		if n < 0 {
			return def
		}
		return time.Duration(n) * time.Millisecond
	}

	st := Settings{}
	st.WSURL = get([]string{"ws_url", "WS_URL"}, "wss://mainnet.ternoa.network")
	st.TokenSymbol = get([]string{"token_symbol", "TOKEN_SYMBOL"}, "CAPS")
	st.TokenDecimals = int32(getInt([]string{"token_decimals", "TOKEN_DECIMALS"}, 6))
	st.FeePlaceholder = decimal.RequireFromString("0.001")
	if d, err := decimal.NewFromString(get([]string{"fee_placeholder", "FEE_PLACEHOLDER"}, "")); err == nil && !d.IsNegative() {
		st.FeePlaceholder = d
	}
	st.Estimator = strings.ToLower(get([]string{"estimator", "ESTIMATOR"}, "fixed"))
	st.SS58Prefix = 42
	if n := getInt([]string{"ss58_prefix", "SS58_PREFIX"}, -1); n >= 0 && n < 16384 {
		st.SS58Prefix = uint16(n)
	}
	st.TransferCallIndex = [2]byte{0x05, 0x00}
	if ci, ok := ParseCallIndex(get([]string{"transfer_call_index", "TRANSFER_CALL_INDEX"}, "")); ok {
		st.TransferCallIndex = ci
	}
	st.MetadataHash = getBool([]string{"metadata_hash", "METADATA_HASH"}, false)
	st.SignerProviderURL = get([]string{"signer_provider_url", "SIGNER_PROVIDER_URL"}, "http://127.0.0.1:9955")
	st.AppName = get([]string{"app_name", "APP_NAME"}, "Ternoa CAPS Transfer")
	st.Account = get([]string{"signer_account", "SIGNER_ACCOUNT"}, "")
	st.Mnemonic = get([]string{"mnemonic", "MNEMONIC"}, "")
	st.KeyScheme = strings.ToLower(get([]string{"key_scheme", "KEY_SCHEME"}, "sr25519"))
	st.SubmitPace = getMillis([]string{"submit_pace_ms", "SUBMIT_PACE_MS"}, 0)
	st.RPCTimeout = getMillis([]string{"rpc_timeout_ms", "RPC_TIMEOUT_MS"}, 30*time.Second)
	st.OutOK = get([]string{"out_ok", "OUT_OK"}, "transfers_ok.csv")
	st.OutBad = get([]string{"out_bad", "OUT_BAD"}, "transfers_bad.csv")
	st.LogLevel = get([]string{"log_level", "LOG_LEVEL"}, "info")
	return st
}

// ParseCallIndex parses "0x0500" or "5,0" into [pallet, call].
func ParseCallIndex(s string) ([2]byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return [2]byte{}, false
	}
	if a, b, ok := strings.Cut(s, ","); ok {
		p, err1 := strconv.ParseUint(strings.TrimSpace(a), 10, 8)
		c, err2 := strconv.ParseUint(strings.TrimSpace(b), 10, 8)
		if err1 != nil || err2 != nil {
			return [2]byte{}, false
		}
		return [2]byte{byte(p), byte(c)}, true
	}
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 4 {
		return [2]byte{}, false
	}
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return [2]byte{}, false
	}
	return [2]byte{byte(n >> 8), byte(n)}, true
}
