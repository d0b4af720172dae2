package transfercore

import (
	"context"
	"math/big"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// ChainClient is what the core needs from a chain connection.
type ChainClient interface {
	BuildTransfer(dest string, amount *big.Int) (*substrate.Call, error)
	Close()
}

// Signer turns a transfer call into a signed (and optionally submitted)
// extrinsic. Callers never depend on the concrete variant.
type Signer interface {
	Address() string
	Sign(ctx context.Context, call *substrate.Call) ([]byte, error)
	SignAndSend(ctx context.Context, call *substrate.Call) (substrate.Hash, error)
	// Close discards any secret material held by the signer.
	Close() error
}

// SignerFactory builds a signer once the session accepts a new connection.
type SignerFactory func(ctx context.Context) (Signer, error)
