package substrate

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	extrinsicVersion = 4
	signedBit        = 0x80
	immortalEra      = 0x00
	multiAddressID   = 0x00
)

// SigningPayload carries everything a signer needs to produce a signature
// for one call, and assembles the signed extrinsic afterwards.
type SigningPayload struct {
	Address            string
	Signer             AccountID
	Call               *Call
	Nonce              uint64
	Tip                *big.Int
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        Hash
	BlockHash          Hash // equals GenesisHash for immortal transactions
	MetadataHash       bool // CheckMetadataHash extension present (mode disabled)
}

// extra is the signed-extension data that travels inside the extrinsic.
func (p *SigningPayload) extra() []byte {
	out := []byte{immortalEra}
	out = AppendCompactUint64(out, p.Nonce)
	out = AppendCompact(out, p.Tip)
	if p.MetadataHash {
		out = append(out, 0x00)
	}
	return out
}

// additional is the implicit data that is signed but not transmitted.
func (p *SigningPayload) additional() []byte {
	out := appendU32(nil, p.SpecVersion)
	out = appendU32(out, p.TransactionVersion)
	out = append(out, p.GenesisHash[:]...)
	out = append(out, p.BlockHash[:]...)
	if p.MetadataHash {
		out = append(out, 0x00)
	}
	return out
}

// Bytes returns the message to sign. Payloads over 256 bytes are replaced by
// their blake2b-256 hash.
func (p *SigningPayload) Bytes() []byte {
	msg := append([]byte(nil), p.Call.Data...)
	msg = append(msg, p.extra()...)
	msg = append(msg, p.additional()...)
	if len(msg) > 256 {
		h := blake2b.Sum256(msg)
		return h[:]
	}
	return msg
}

// Extrinsic assembles the length-prefixed v4 signed extrinsic.
func (p *SigningPayload) Extrinsic(sig MultiSignature) []byte {
	body := []byte{signedBit | extrinsicVersion, multiAddressID}
	body = append(body, p.Signer[:]...)
	body = append(body, sig.Encode()...)
	body = append(body, p.extra()...)
	body = append(body, p.Call.Data...)
	out := AppendCompactUint64(nil, uint64(len(body)))
	return append(out, body...)
}

// PayloadJSON is the signer payload shape understood by browser-style
// signing extensions.
type PayloadJSON struct {
	Address            string   `json:"address"`
	BlockHash          string   `json:"blockHash"`
	BlockNumber        string   `json:"blockNumber"`
	Era                string   `json:"era"`
	GenesisHash        string   `json:"genesisHash"`
	Method             string   `json:"method"`
	Nonce              string   `json:"nonce"`
	SignedExtensions   []string `json:"signedExtensions"`
	SpecVersion        string   `json:"specVersion"`
	Tip                string   `json:"tip"`
	TransactionVersion string   `json:"transactionVersion"`
	Version            int      `json:"version"`
	Mode               int      `json:"mode"`
}

// JSON renders the payload for an external signer.
func (p *SigningPayload) JSON() PayloadJSON {
	tip := p.Tip
	if tip == nil {
		tip = new(big.Int)
	}
	exts := []string{
		"CheckNonZeroSender", "CheckSpecVersion", "CheckTxVersion", "CheckGenesis",
		"CheckMortality", "CheckNonce", "CheckWeight", "ChargeTransactionPayment",
	}
	if p.MetadataHash {
		exts = append(exts, "CheckMetadataHash")
	}
	return PayloadJSON{
		Address:            p.Address,
		BlockHash:          p.BlockHash.Hex(),
		BlockNumber:        "0x00000000",
		Era:                hexutil.Encode([]byte{immortalEra}),
		GenesisHash:        p.GenesisHash.Hex(),
		Method:             hexutil.Encode(p.Call.Data),
		Nonce:              fmt.Sprintf("0x%08x", p.Nonce),
		SignedExtensions:   exts,
		SpecVersion:        fmt.Sprintf("0x%08x", p.SpecVersion),
		Tip:                fmt.Sprintf("0x%032x", tip),
		TransactionVersion: fmt.Sprintf("0x%08x", p.TransactionVersion),
		Version:            extrinsicVersion,
	}
}

// ExtrinsicHash is the blake2b-256 of the encoded extrinsic, as returned by
// author_submitExtrinsic.
func ExtrinsicHash(ext []byte) Hash {
	return Hash(blake2b.Sum256(ext))
}
