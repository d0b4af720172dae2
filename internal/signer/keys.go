package signer

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// DevPhrase is the well-known development mnemonic used when a secret URI
// starts with a derivation path ("//Alice").
const DevPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

var (
	errEmptyPhrase  = errors.New("empty secret phrase")
	errSoftJunction = errors.New("soft derivation is not supported for ecdsa keys")
)

type junction struct {
	name string
	hard bool
}

type secretURI struct {
	phrase    string
	password  string
	junctions []junction
}

// parseSecretURI splits "phrase//hard/soft///password".
func parseSecretURI(s string) (secretURI, error) {
	var u secretURI
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "///"); i >= 0 {
		u.password = s[i+3:]
		s = s[:i]
	}
	path := ""
	if i := strings.Index(s, "/"); i >= 0 {
		path = s[i:]
		s = s[:i]
	}
	u.phrase = strings.Join(strings.Fields(s), " ")
	if u.phrase == "" {
		if path == "" {
			return u, errEmptyPhrase
		}
		u.phrase = DevPhrase
	}
	for path != "" {
		j := junction{hard: strings.HasPrefix(path, "//")}
		if j.hard {
			path = path[2:]
		} else {
			path = path[1:]
		}
		j.name = path
		if k := strings.Index(path, "/"); k >= 0 {
			j.name, path = path[:k], path[k:]
		} else {
			path = ""
		}
		if j.name == "" {
			return u, errors.New("empty derivation junction")
		}
		u.junctions = append(u.junctions, j)
	}
	return u, nil
}

// String renders the normalized URI, with the dev phrase made explicit.
func (u secretURI) String() string {
	var b strings.Builder
	b.WriteString(u.phrase)
	for _, j := range u.junctions {
		if j.hard {
			b.WriteString("//")
		} else {
			b.WriteString("/")
		}
		b.WriteString(j.name)
	}
	if u.password != "" {
		b.WriteString("///")
		b.WriteString(u.password)
	}
	return b.String()
}

// checkPhrase accepts a valid BIP-39 mnemonic or a 0x 32-byte seed.
func checkPhrase(phrase string) error {
	if strings.HasPrefix(phrase, "0x") {
		seed, err := hexutil.Decode(phrase)
		if err != nil || len(seed) != 32 {
			return errors.New("hex seed must be 32 bytes")
		}
		wipe(seed)
		return nil
	}
	if !bip39.IsMnemonicValid(phrase) {
		return errors.New("invalid mnemonic phrase")
	}
	return nil
}

// miniSecret turns a phrase (or 0x hex seed) into the 32-byte secret seed.
func miniSecret(phrase, password string) ([]byte, error) {
	if err := checkPhrase(phrase); err != nil {
		return nil, err
	}
	if strings.HasPrefix(phrase, "0x") {
		return hexutil.Decode(phrase)
	}
	entropy, err := bip39.EntropyFromMnemonic(phrase)
	if err != nil {
		return nil, fmt.Errorf("mnemonic entropy: %w", err)
	}
	defer wipe(entropy)
	seed := pbkdf2.Key(entropy, []byte("mnemonic"+password), 2048, 64, sha512.New)
	out := append([]byte(nil), seed[:32]...)
	wipe(seed)
	return out, nil
}

func junctionChainCode(j string) [32]byte {
	var enc []byte
	if n, err := strconv.ParseUint(j, 10, 64); err == nil {
		enc = binary.LittleEndian.AppendUint64(nil, n)
	} else {
		enc = substrate.AppendString(nil, j)
	}
	var cc [32]byte
	if len(enc) > len(cc) {
		return blake2b.Sum256(enc)
	}
	copy(cc[:], enc)
	return cc
}

func hardDerive(seed []byte, cc [32]byte) []byte {
	msg := substrate.AppendString(nil, "Secp256k1HDKD")
	msg = append(msg, seed...)
	msg = append(msg, cc[:]...)
	out := blake2b.Sum256(msg)
	wipe(msg)
	return out[:]
}

// deriveSeed resolves a secret URI into the final 32-byte secp256k1 seed.
func deriveSeed(u secretURI) ([]byte, error) {
	for _, j := range u.junctions {
		if !j.hard {
			return nil, errSoftJunction
		}
	}
	seed, err := miniSecret(u.phrase, u.password)
	if err != nil {
		return nil, err
	}
	for _, j := range u.junctions {
		next := hardDerive(seed, junctionChainCode(j.name))
		wipe(seed)
		seed = next
	}
	return seed, nil
}

// AccountIDFromPublicKey hashes a compressed secp256k1 key into an account id.
// sr25519 public keys are account ids as they are.
func AccountIDFromPublicKey(compressed []byte) substrate.AccountID {
	return substrate.AccountID(blake2b.Sum256(compressed))
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func wipeKey(k *ecdsa.PrivateKey) {
	if k == nil || k.D == nil {
		return
	}
	words := k.D.Bits()
	for i := range words {
		words[i] = 0
	}
	k.D.SetInt64(0)
}

func newKey(seed []byte) (*ecdsa.PrivateKey, error) {
	key, err := gethcrypto.ToECDSA(seed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 key: %w", err)
	}
	return key, nil
}
