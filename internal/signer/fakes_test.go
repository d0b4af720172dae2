package signer

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

const (
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bobSS58   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

type fakeChain struct {
	mu        sync.Mutex
	prepared  []string
	submitted [][]byte
	submitErr error
}

func (c *fakeChain) PrepareSigning(_ context.Context, address string, call *substrate.Call) (*substrate.SigningPayload, error) {
	id, err := substrate.ParseAccountID(address)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.prepared = append(c.prepared, address)
	c.mu.Unlock()
	return &substrate.SigningPayload{
		Address:            address,
		Signer:             id,
		Call:               call,
		Nonce:              3,
		Tip:                new(big.Int),
		SpecVersion:        1300,
		TransactionVersion: 2,
	}, nil
}

func (c *fakeChain) Submit(_ context.Context, ext []byte) (substrate.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return substrate.Hash{}, c.submitErr
	}
	c.submitted = append(c.submitted, append([]byte(nil), ext...))
	return substrate.ExtrinsicHash(ext), nil
}

func (c *fakeChain) Address(id substrate.AccountID) string { return substrate.EncodeSS58(id, 42) }

func (c *fakeChain) BuildTransfer(dest string, amount *big.Int) (*substrate.Call, error) {
	id, err := substrate.ParseAccountID(dest)
	if err != nil {
		return nil, err
	}
	return &substrate.Call{Dest: id, Amount: amount, Data: []byte{0x05, 0x00}}, nil
}

func (c *fakeChain) Close() {}

func transferCall() *substrate.Call {
	return &substrate.Call{Amount: big.NewInt(1500000), Data: []byte{0x05, 0x00, 0x00, 0x01}}
}

type fakeRemote struct {
	mu       sync.Mutex
	payloads []substrate.PayloadJSON
	err      error
}

func (r *fakeRemote) SignPayload(_ context.Context, p substrate.PayloadJSON) (substrate.MultiSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return substrate.MultiSignature{}, r.err
	}
	r.payloads = append(r.payloads, p)
	sig := make([]byte, 64)
	sig[0] = 0xaa
	return substrate.MultiSignature{Kind: substrate.SigSr25519, Bytes: sig}, nil
}

type fakeProvider struct {
	exts       []string
	accounts   []Account
	discoverEr error
	listErr    error
	remote     *fakeRemote
	boundTo    string
	app        string
}

func (p *fakeProvider) Discover(_ context.Context, app string) ([]string, error) {
	p.app = app
	return p.exts, p.discoverEr
}

func (p *fakeProvider) ListAccounts(context.Context) ([]Account, error) {
	return p.accounts, p.listErr
}

func (p *fakeProvider) SignerFor(_ context.Context, address string) (PayloadSigner, error) {
	p.boundTo = address
	if p.remote == nil {
		p.remote = &fakeRemote{}
	}
	return p.remote, nil
}

var errUnavailable = errors.New("provider unavailable")
