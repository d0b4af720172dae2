package transfercore

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

type fakeChain struct {
	mu      sync.Mutex
	built   []string
	closed  bool
	badDest map[string]bool
}

func (c *fakeChain) BuildTransfer(dest string, amount *big.Int) (*substrate.Call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.badDest[dest] {
		return nil, substrate.ErrBadAddress
	}
	c.built = append(c.built, dest)
	return &substrate.Call{Amount: new(big.Int).Set(amount), Data: []byte(dest)}, nil
}

func (c *fakeChain) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

type sendCall struct {
	dest   string
	amount string
}

type fakeSigner struct {
	mu     sync.Mutex
	calls  []sendCall
	closed bool
	// fail maps a destination to the error SignAndSend returns for it.
	fail map[string]error
	// panicOn makes SignAndSend panic for a destination.
	panicOn string
	// onSend runs before every submission.
	onSend func(n int)
}

func (s *fakeSigner) Address() string { return "5SIGNER" }

func (s *fakeSigner) Sign(context.Context, *substrate.Call) ([]byte, error) {
	return []byte{0x01}, nil
}

func (s *fakeSigner) SignAndSend(_ context.Context, call *substrate.Call) (substrate.Hash, error) {
	s.mu.Lock()
	dest := string(call.Data)
	s.calls = append(s.calls, sendCall{dest: dest, amount: call.Amount.String()})
	n := len(s.calls)
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if dest == s.panicOn {
		panic("signer exploded")
	}
	if err := s.fail[dest]; err != nil {
		return substrate.Hash{}, err
	}
	var h substrate.Hash
	h[0] = byte(n)
	return h, nil
}

func (s *fakeSigner) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSigner) sent() []sendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sendCall(nil), s.calls...)
}

func factoryFor(s Signer) SignerFactory {
	return func(context.Context) (Signer, error) { return s, nil }
}

var errRejected = errors.New("1010: Invalid Transaction")
