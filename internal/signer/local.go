package signer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ligun0805/caps-transfer/internal/substrate"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// Chain is the part of the chain client that signers need.
type Chain interface {
	PrepareSigning(ctx context.Context, address string, call *substrate.Call) (*substrate.SigningPayload, error)
	Submit(ctx context.Context, ext []byte) (substrate.Hash, error)
	Address(id substrate.AccountID) string
}

var errClosed = errors.New("signer is disconnected")

// LocalOption tunes NewLocal.
type LocalOption func(*localOptions)

type localOptions struct {
	kind substrate.SignatureKind
}

// WithScheme selects the key scheme. sr25519 is the default; SigEcdsa
// derives a secp256k1 key from the same phrase.
func WithScheme(kind substrate.SignatureKind) LocalOption {
	return func(o *localOptions) { o.kind = kind }
}

// ParseScheme maps a config value to a local key scheme. Empty means sr25519.
func ParseScheme(s string) (substrate.SignatureKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sr25519":
		return substrate.SigSr25519, true
	case "ecdsa":
		return substrate.SigEcdsa, true
	}
	return 0, false
}

// LocalKeySigner holds a key derived from a secret phrase and signs
// in-process before broadcasting.
type LocalKeySigner struct {
	chain Chain

	mu      sync.Mutex
	pair    keyPair
	pub     []byte
	kind    substrate.SignatureKind
	account substrate.AccountID
	address string
}

// NewLocal derives the key from suri: a BIP-39 mnemonic or 0x seed,
// optionally followed by //hard and /soft junctions and ///password.
// "//Alice" uses the development phrase.
func NewLocal(chain Chain, suri string, opts ...LocalOption) (*LocalKeySigner, error) {
	o := localOptions{kind: substrate.SigSr25519}
	for _, opt := range opts {
		opt(&o)
	}
	u, err := parseSecretURI(suri)
	if err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "local key", err)
	}
	pair, err := newKeyPair(o.kind, u)
	if err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "local key", err)
	}
	id := pair.accountID()
	return &LocalKeySigner{
		chain:   chain,
		pair:    pair,
		pub:     append([]byte(nil), pair.publicKey()...),
		kind:    o.kind,
		account: id,
		address: chain.Address(id),
	}, nil
}

// LocalFactory defers NewLocal until the session accepts a connection.
func LocalFactory(chain Chain, suri string, opts ...LocalOption) transfercore.SignerFactory {
	return func(context.Context) (transfercore.Signer, error) {
		s, err := NewLocal(chain, suri, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (l *LocalKeySigner) Address() string                { return l.address }
func (l *LocalKeySigner) AccountID() substrate.AccountID { return l.account }
func (l *LocalKeySigner) Kind() substrate.SignatureKind  { return l.kind }

// PublicKey returns the raw public key: 32 bytes for sr25519, 33 compressed
// bytes for ecdsa.
func (l *LocalKeySigner) PublicKey() []byte { return append([]byte(nil), l.pub...) }

// SignMessage signs msg with the signer's scheme.
func (l *LocalKeySigner) SignMessage(msg []byte) (substrate.MultiSignature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pair == nil {
		return substrate.MultiSignature{}, errClosed
	}
	sig, err := l.pair.sign(msg)
	if err != nil {
		return substrate.MultiSignature{}, err
	}
	return substrate.MultiSignature{Kind: l.kind, Bytes: sig}, nil
}

// Sign returns the encoded signed extrinsic for call without submitting it.
func (l *LocalKeySigner) Sign(ctx context.Context, call *substrate.Call) ([]byte, error) {
	payload, err := l.chain.PrepareSigning(ctx, l.address, call)
	if err != nil {
		return nil, err
	}
	sig, err := l.SignMessage(payload.Bytes())
	if err != nil {
		return nil, err
	}
	return payload.Extrinsic(sig), nil
}

func (l *LocalKeySigner) SignAndSend(ctx context.Context, call *substrate.Call) (substrate.Hash, error) {
	ext, err := l.Sign(ctx, call)
	if err != nil {
		return substrate.Hash{}, err
	}
	return l.chain.Submit(ctx, ext)
}

// Close discards the key material. The signer is unusable afterwards.
func (l *LocalKeySigner) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pair != nil {
		l.pair.wipe()
		l.pair = nil
	}
	return nil
}
