package signer

import (
	"crypto/ecdsa"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	subkey "github.com/vedhavyas/go-subkey/v2"
	"github.com/vedhavyas/go-subkey/v2/sr25519"
	"golang.org/x/crypto/blake2b"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// keyPair is the local key material behind a LocalKeySigner.
type keyPair interface {
	kind() substrate.SignatureKind
	publicKey() []byte
	accountID() substrate.AccountID
	// sign signs the payload bytes exactly as the runtime verifies them.
	sign(msg []byte) ([]byte, error)
	wipe()
}

func newKeyPair(kind substrate.SignatureKind, u secretURI) (keyPair, error) {
	switch kind {
	case substrate.SigSr25519:
		return newSr25519Pair(u)
	case substrate.SigEcdsa:
		return newEcdsaPair(u)
	}
	return nil, fmt.Errorf("local keys do not support %s", kind)
}

// sr25519Pair is the scheme substrate wallets use by default.
type sr25519Pair struct {
	kp  subkey.KeyPair
	pub []byte
}

func newSr25519Pair(u secretURI) (*sr25519Pair, error) {
	if err := checkPhrase(u.phrase); err != nil {
		return nil, err
	}
	kp, err := subkey.DeriveKeyPair(sr25519.Scheme{}, u.String())
	if err != nil {
		return nil, fmt.Errorf("sr25519 key: %w", err)
	}
	pub := kp.Public()
	if len(pub) != len(substrate.AccountID{}) {
		return nil, fmt.Errorf("sr25519 key: public key is %d bytes", len(pub))
	}
	return &sr25519Pair{kp: kp, pub: pub}, nil
}

func (p *sr25519Pair) kind() substrate.SignatureKind { return substrate.SigSr25519 }
func (p *sr25519Pair) publicKey() []byte             { return p.pub }

func (p *sr25519Pair) accountID() substrate.AccountID {
	var id substrate.AccountID
	copy(id[:], p.pub)
	return id
}

func (p *sr25519Pair) sign(msg []byte) ([]byte, error) {
	if p.kp == nil {
		return nil, errClosed
	}
	return p.kp.Sign(msg)
}

// wipe drops the keypair. The library keeps the secret in unexported
// fields, so it cannot be zeroed in place.
func (p *sr25519Pair) wipe() { p.kp = nil }

// ecdsaPair is substrate's secp256k1 scheme: signatures over
// blake2b-256(payload), account id = blake2b-256(compressed key).
type ecdsaPair struct {
	key  *ecdsa.PrivateKey
	seed []byte
	pub  []byte
}

func newEcdsaPair(u secretURI) (*ecdsaPair, error) {
	seed, err := deriveSeed(u)
	if err != nil {
		return nil, err
	}
	key, err := newKey(seed)
	if err != nil {
		wipe(seed)
		return nil, err
	}
	return &ecdsaPair{key: key, seed: seed, pub: gethcrypto.CompressPubkey(&key.PublicKey)}, nil
}

func (p *ecdsaPair) kind() substrate.SignatureKind  { return substrate.SigEcdsa }
func (p *ecdsaPair) publicKey() []byte              { return p.pub }
func (p *ecdsaPair) accountID() substrate.AccountID { return AccountIDFromPublicKey(p.pub) }

func (p *ecdsaPair) sign(msg []byte) ([]byte, error) {
	if p.key == nil {
		return nil, errClosed
	}
	digest := blake2b.Sum256(msg)
	return gethcrypto.Sign(digest[:], p.key)
}

func (p *ecdsaPair) wipe() {
	wipeKey(p.key)
	wipe(p.seed)
	p.key, p.seed = nil, nil
}
