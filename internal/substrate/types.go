package substrate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountID is the 32-byte on-chain account identifier.
type AccountID [32]byte

func (a AccountID) Hex() string { return hexutil.Encode(a[:]) }

// Hash is a 32-byte blake2b-256 digest (block, genesis or extrinsic hash).
type Hash [32]byte

func (h Hash) Hex() string    { return hexutil.Encode(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool   { return h == Hash{} }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(b []byte) error {
	raw, err := hexutil.Decode(string(b))
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("hash: want %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return nil
}

// SignatureKind is the MultiSignature variant index.
type SignatureKind byte

const (
	SigEd25519 SignatureKind = 0
	SigSr25519 SignatureKind = 1
	SigEcdsa   SignatureKind = 2
)

func (k SignatureKind) size() int {
	if k == SigEcdsa {
		return 65
	}
	return 64
}

func (k SignatureKind) String() string {
	switch k {
	case SigEd25519:
		return "ed25519"
	case SigSr25519:
		return "sr25519"
	case SigEcdsa:
		return "ecdsa"
	}
	return fmt.Sprintf("unknown(%d)", byte(k))
}

// MultiSignature is a typed signature as carried by a signed extrinsic.
type MultiSignature struct {
	Kind  SignatureKind
	Bytes []byte
}

// Encode returns the SCALE enum encoding: variant byte then raw signature.
func (s MultiSignature) Encode() []byte {
	out := make([]byte, 0, 1+len(s.Bytes))
	out = append(out, byte(s.Kind))
	return append(out, s.Bytes...)
}

// ParseMultiSignature decodes a variant-prefixed signature and checks its size.
func ParseMultiSignature(b []byte) (MultiSignature, error) {
	if len(b) == 0 {
		return MultiSignature{}, errors.New("signature: empty")
	}
	kind := SignatureKind(b[0])
	if kind > SigEcdsa {
		return MultiSignature{}, fmt.Errorf("signature: unknown variant %d", b[0])
	}
	if len(b)-1 != kind.size() {
		return MultiSignature{}, fmt.Errorf("signature: %s wants %d bytes, got %d", kind, kind.size(), len(b)-1)
	}
	return MultiSignature{Kind: kind, Bytes: append([]byte(nil), b[1:]...)}, nil
}

// EmptySignature is a zero signature of the right size, used for fee queries.
func EmptySignature(kind SignatureKind) MultiSignature {
	return MultiSignature{Kind: kind, Bytes: make([]byte, kind.size())}
}

// RuntimeVersion is the subset of state_getRuntimeVersion needed for signing.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// Call is an encoded balances transfer instruction, ready to be signed.
type Call struct {
	Dest   AccountID
	Amount *big.Int
	Data   []byte
}
