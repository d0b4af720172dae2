package substrate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

var ss58Pre = []byte("SS58PRE")

// ErrBadAddress is returned for addresses that are neither SS58 nor 0x-hex account ids.
var ErrBadAddress = errors.New("invalid account address")

// EncodeSS58 renders an account id with the given network prefix.
func EncodeSS58(id AccountID, prefix uint16) string {
	payload := ss58PrefixBytes(prefix)
	payload = append(payload, id[:]...)
	sum := ss58Checksum(payload)
	return base58.Encode(append(payload, sum[:2]...))
}

// DecodeSS58 parses an SS58 address and verifies its checksum.
func DecodeSS58(addr string) (AccountID, uint16, error) {
	var id AccountID
	raw := base58.Decode(strings.TrimSpace(addr))
	if len(raw) == 0 {
		return id, 0, fmt.Errorf("%w: not base58", ErrBadAddress)
	}
	prefix, plen, err := parseSS58Prefix(raw)
	if err != nil {
		return id, 0, err
	}
	if len(raw) != plen+len(id)+2 {
		return id, 0, fmt.Errorf("%w: unexpected length %d", ErrBadAddress, len(raw))
	}
	body := raw[:plen+len(id)]
	sum := ss58Checksum(body)
	if !bytes.Equal(sum[:2], raw[len(body):]) {
		return id, 0, fmt.Errorf("%w: checksum mismatch", ErrBadAddress)
	}
	copy(id[:], body[plen:])
	return id, prefix, nil
}

// ParseAccountID accepts an SS58 address or a 0x-prefixed 32-byte hex id.
func ParseAccountID(addr string) (AccountID, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return AccountID{}, fmt.Errorf("%w: empty", ErrBadAddress)
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		var id AccountID
		raw, err := hexutil.Decode("0x" + addr[2:])
		if err != nil || len(raw) != len(id) {
			return id, fmt.Errorf("%w: bad hex account id", ErrBadAddress)
		}
		copy(id[:], raw)
		return id, nil
	}
	id, _, err := DecodeSS58(addr)
	return id, err
}

func ss58PrefixBytes(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	first := byte((prefix&0b1111_1100)>>2) | 0b0100_0000
	second := byte(prefix>>8) | byte((prefix&0b11)<<6)
	return []byte{first, second}
}

func parseSS58Prefix(raw []byte) (uint16, int, error) {
	switch {
	case raw[0] < 64:
		return uint16(raw[0]), 1, nil
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, 0, fmt.Errorf("%w: truncated prefix", ErrBadAddress)
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0b0011_1111
		return uint16(lower) | uint16(upper)<<8, 2, nil
	}
	return 0, 0, fmt.Errorf("%w: reserved prefix byte %d", ErrBadAddress, raw[0])
}

func ss58Checksum(body []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte(nil), ss58Pre...), body...))
}
