package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ligun0805/caps-transfer/internal/substrate"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// Account is one account exposed by a signing provider.
type Account struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
}

// PayloadSigner signs a rendered payload on the provider side.
type PayloadSigner interface {
	SignPayload(ctx context.Context, payload substrate.PayloadJSON) (substrate.MultiSignature, error)
}

// Provider is an external key holder (browser-style extension, remote vault).
type Provider interface {
	// Discover asks the provider to authorize appName and returns the names
	// of the extensions that accepted. Empty means nothing was detected.
	Discover(ctx context.Context, appName string) ([]string, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SignerFor(ctx context.Context, address string) (PayloadSigner, error)
}

var (
	errNoExtension = errors.New("signing extension not detected")
	errNoAccounts  = errors.New("no accounts available in signing extension")
)

// DelegatedSigner never sees key material: the provider signs and the
// signer only assembles and broadcasts the extrinsic.
type DelegatedSigner struct {
	chain   Chain
	account Account

	mu     sync.Mutex
	remote PayloadSigner
}

// NewDelegated authorizes appName with provider and binds the requested
// account, or the first one when account is empty.
func NewDelegated(ctx context.Context, chain Chain, provider Provider, appName, account string) (*DelegatedSigner, error) {
	exts, err := provider.Discover(ctx, appName)
	if err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "discover extensions", err)
	}
	if len(exts) == 0 {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "", errNoExtension)
	}
	accounts, err := provider.ListAccounts(ctx)
	if err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "list accounts", err)
	}
	if len(accounts) == 0 {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "", errNoAccounts)
	}
	acct, ok := accounts[0], true
	if account = strings.TrimSpace(account); account != "" {
		acct, ok = findAccount(accounts, account)
	}
	if !ok {
		return nil, transfercore.NewError(transfercore.KindSignerInit, fmt.Sprintf("account %s not offered by extension", account))
	}
	if _, err := substrate.ParseAccountID(acct.Address); err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "extension account", err)
	}
	remote, err := provider.SignerFor(ctx, acct.Address)
	if err != nil {
		return nil, transfercore.WrapError(transfercore.KindSignerInit, "extension signer", err)
	}
	return &DelegatedSigner{chain: chain, account: acct, remote: remote}, nil
}

// DelegatedFactory defers NewDelegated until the session accepts a connection.
func DelegatedFactory(chain Chain, provider Provider, appName, account string) transfercore.SignerFactory {
	return func(ctx context.Context) (transfercore.Signer, error) {
		s, err := NewDelegated(ctx, chain, provider, appName, account)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func findAccount(accounts []Account, want string) (Account, bool) {
	wantID, err := substrate.ParseAccountID(want)
	for _, a := range accounts {
		if a.Address == want {
			return a, true
		}
		if err != nil {
			continue
		}
		if id, e := substrate.ParseAccountID(a.Address); e == nil && id == wantID {
			return a, true
		}
	}
	return Account{}, false
}

func (d *DelegatedSigner) Address() string  { return d.account.Address }
func (d *DelegatedSigner) Account() Account { return d.account }

func (d *DelegatedSigner) Sign(ctx context.Context, call *substrate.Call) ([]byte, error) {
	d.mu.Lock()
	remote := d.remote
	d.mu.Unlock()
	if remote == nil {
		return nil, errClosed
	}
	payload, err := d.chain.PrepareSigning(ctx, d.account.Address, call)
	if err != nil {
		return nil, err
	}
	sig, err := remote.SignPayload(ctx, payload.JSON())
	if err != nil {
		return nil, fmt.Errorf("extension sign: %w", err)
	}
	return payload.Extrinsic(sig), nil
}

func (d *DelegatedSigner) SignAndSend(ctx context.Context, call *substrate.Call) (substrate.Hash, error) {
	ext, err := d.Sign(ctx, call)
	if err != nil {
		return substrate.Hash{}, err
	}
	return d.chain.Submit(ctx, ext)
}

// Close forgets the provider binding.
func (d *DelegatedSigner) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remote = nil
	return nil
}

// SignatureKindOf maps a provider account type to its signature variant.
// Unknown types default to sr25519.
func SignatureKindOf(accountType string) substrate.SignatureKind {
	switch strings.ToLower(strings.TrimSpace(accountType)) {
	case "ed25519":
		return substrate.SigEd25519
	case "ecdsa":
		return substrate.SigEcdsa
	}
	return substrate.SigSr25519
}
