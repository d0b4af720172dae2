package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Options tunes how transfers are encoded for a particular runtime.
type Options struct {
	// CallIndex is [pallet index, call index] of the balances transfer call.
	CallIndex [2]byte
	// SS58Prefix is used when rendering account ids back to addresses.
	SS58Prefix uint16
	// MetadataHash adds the CheckMetadataHash signed extension (mode disabled).
	MetadataHash bool
	// CallTimeout bounds every RPC call. Zero means 30s.
	CallTimeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.CallTimeout > 0 {
		return o.CallTimeout
	}
	return 30 * time.Second
}

// Client is a thin JSON-RPC client for a substrate node.
type Client struct {
	rc      *rpc.Client
	opts    Options
	genesis Hash
	runtime RuntimeVersion
}

// Dial connects to a node (ws://, wss://, http:// or https://) and reads the
// genesis hash and runtime version needed for signing.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("dial: empty endpoint url")
	}
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c, err := NewClient(ctx, rc, opts)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an already connected rpc client.
func NewClient(ctx context.Context, rc *rpc.Client, opts Options) (*Client, error) {
	c := &Client{rc: rc, opts: opts}
	if err := c.call(ctx, &c.genesis, "chain_getBlockHash", 0); err != nil {
		return nil, fmt.Errorf("genesis hash: %w", err)
	}
	if err := c.call(ctx, &c.runtime, "state_getRuntimeVersion"); err != nil {
		return nil, fmt.Errorf("runtime version: %w", err)
	}
	return c, nil
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout())
	defer cancel()
	return c.rc.CallContext(ctx, result, method, args...)
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rc.Close() }

func (c *Client) GenesisHash() Hash       { return c.genesis }
func (c *Client) Runtime() RuntimeVersion { return c.runtime }
func (c *Client) Options() Options        { return c.opts }

// Address renders an account id with the client's network prefix.
func (c *Client) Address(id AccountID) string { return EncodeSS58(id, c.opts.SS58Prefix) }

// BuildTransfer encodes a balances transfer of amount minimal units to dest.
// The destination is decoded (and its checksum verified) here.
func (c *Client) BuildTransfer(dest string, amount *big.Int) (*Call, error) {
	id, err := ParseAccountID(dest)
	if err != nil {
		return nil, fmt.Errorf("destination %q: %w", dest, err)
	}
	if err := checkBalance(amount); err != nil {
		return nil, err
	}
	data := []byte{c.opts.CallIndex[0], c.opts.CallIndex[1], multiAddressID}
	data = append(data, id[:]...)
	data = AppendCompact(data, amount)
	return &Call{Dest: id, Amount: new(big.Int).Set(amount), Data: data}, nil
}

// AccountNextIndex returns the next nonce for address, pool transactions included.
func (c *Client) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	if err := c.call(ctx, &nonce, "system_accountNextIndex", address); err != nil {
		return 0, fmt.Errorf("account nonce: %w", err)
	}
	return nonce, nil
}

// PrepareSigning fetches the nonce for address and returns an immortal,
// zero-tip signing payload for call.
func (c *Client) PrepareSigning(ctx context.Context, address string, call *Call) (*SigningPayload, error) {
	id, err := ParseAccountID(address)
	if err != nil {
		return nil, fmt.Errorf("signer %q: %w", address, err)
	}
	nonce, err := c.AccountNextIndex(ctx, address)
	if err != nil {
		return nil, err
	}
	return &SigningPayload{
		Address:            address,
		Signer:             id,
		Call:               call,
		Nonce:              nonce,
		Tip:                new(big.Int),
		SpecVersion:        c.runtime.SpecVersion,
		TransactionVersion: c.runtime.TransactionVersion,
		GenesisHash:        c.genesis,
		BlockHash:          c.genesis,
		MetadataHash:       c.opts.MetadataHash,
	}, nil
}

// Submit broadcasts a signed extrinsic and returns its hash.
func (c *Client) Submit(ctx context.Context, ext []byte) (Hash, error) {
	var h Hash
	if err := c.call(ctx, &h, "author_submitExtrinsic", hexutil.Encode(ext)); err != nil {
		return Hash{}, fmt.Errorf("submit extrinsic: %w", err)
	}
	return h, nil
}

type runtimeDispatchInfo struct {
	Class      string          `json:"class"`
	PartialFee json.RawMessage `json:"partialFee"`
}

// QueryFee asks the node for the partial fee of ext in minimal units. The
// extrinsic is only inspected, never submitted.
func (c *Client) QueryFee(ctx context.Context, ext []byte) (*big.Int, error) {
	var info runtimeDispatchInfo
	if err := c.call(ctx, &info, "payment_queryInfo", hexutil.Encode(ext)); err != nil {
		return nil, fmt.Errorf("query fee: %w", err)
	}
	return parseBalance(info.PartialFee)
}

// parseBalance accepts a JSON number, a decimal string or a 0x-hex string.
func parseBalance(raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, errors.New("query fee: missing partialFee")
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("query fee: bad partialFee %q", s)
	}
	return v, nil
}
