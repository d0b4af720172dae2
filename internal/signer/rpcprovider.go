package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// RPCProvider talks to an external signing service over JSON-RPC
// (signer_enable, signer_accounts, signer_signPayload).
type RPCProvider struct {
	rc *rpc.Client
}

// DialProvider connects to a signing service at url.
func DialProvider(ctx context.Context, url string) (*RPCProvider, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial signer %s: %w", url, err)
	}
	return NewRPCProvider(rc), nil
}

func NewRPCProvider(rc *rpc.Client) *RPCProvider { return &RPCProvider{rc: rc} }

func (p *RPCProvider) Close() { p.rc.Close() }

func (p *RPCProvider) Discover(ctx context.Context, appName string) ([]string, error) {
	var names []string
	if err := p.rc.CallContext(ctx, &names, "signer_enable", appName); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *RPCProvider) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := p.rc.CallContext(ctx, &accounts, "signer_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) SignerFor(_ context.Context, address string) (PayloadSigner, error) {
	return &rpcPayloadSigner{rc: p.rc, address: address}, nil
}

// SignResult is the signer_signPayload response.
type SignResult struct {
	ID        uint64        `json:"id"`
	Signature hexutil.Bytes `json:"signature"`
}

type rpcPayloadSigner struct {
	rc      *rpc.Client
	address string
}

func (s *rpcPayloadSigner) SignPayload(ctx context.Context, payload substrate.PayloadJSON) (substrate.MultiSignature, error) {
	if payload.Address != s.address {
		return substrate.MultiSignature{}, fmt.Errorf("payload for %s, signer bound to %s", payload.Address, s.address)
	}
	var res SignResult
	if err := s.rc.CallContext(ctx, &res, "signer_signPayload", payload); err != nil {
		return substrate.MultiSignature{}, err
	}
	return substrate.ParseMultiSignature(res.Signature)
}
