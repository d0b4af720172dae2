package transfercore

import (
	"context"
	"errors"
	"sync"
)

// Session owns the chain connection and at most one active signer.
// Switching signers requires Disconnect first.
type Session struct {
	mu     sync.Mutex
	chain  ChainClient
	signer Signer
}

// NewSession takes ownership of an established chain connection.
func NewSession(chain ChainClient) *Session {
	return &Session{chain: chain}
}

// DialSession establishes the chain connection through dial.
// Failures are reported as connection errors.
func DialSession(ctx context.Context, dial func(context.Context) (ChainClient, error)) (*Session, error) {
	chain, err := dial(ctx)
	if err != nil {
		return nil, WrapError(KindConnection, "connect to chain", err)
	}
	return NewSession(chain), nil
}

func (s *Session) Chain() ChainClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain
}

func (s *Session) Signer() Signer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer
}

func (s *Session) Connected() bool {
	return s.Signer() != nil
}

// Connect builds a signer with factory and makes it the active one. On
// failure the session stays unconnected. The factory runs without the
// session lock, so a signer that lost a race to another Connect is closed.
func (s *Session) Connect(ctx context.Context, factory SignerFactory) error {
	if err := s.checkConnectable(); err != nil {
		return err
	}
	sg, err := factory(ctx)
	if err != nil {
		if IsKind(err, KindSignerInit) {
			return err
		}
		return WrapError(KindSignerInit, "connect signer", err)
	}
	if sg == nil {
		return NewError(KindSignerInit, "connect signer: no signer returned")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectableLocked(); err != nil {
		sg.Close()
		return err
	}
	s.signer = sg
	return nil
}

func (s *Session) checkConnectable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectableLocked()
}

func (s *Session) connectableLocked() error {
	if s.signer != nil {
		return ErrAlreadyConnected
	}
	if s.chain == nil {
		return WrapError(KindConnection, "connect signer", errors.New("no chain connection"))
	}
	return nil
}

// Disconnect zeroes and drops the active signer. It is a no-op when
// nothing is connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signer == nil {
		return nil
	}
	err := s.signer.Close()
	s.signer = nil
	return err
}

// Close disconnects and releases the chain connection.
func (s *Session) Close() error {
	err := s.Disconnect()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chain != nil {
		s.chain.Close()
		s.chain = nil
	}
	return err
}
