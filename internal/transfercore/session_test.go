package transfercore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConnectDisconnect(t *testing.T) {
	chain := &fakeChain{}
	s := NewSession(chain)
	assert.False(t, s.Connected())

	sg := &fakeSigner{}
	require.NoError(t, s.Connect(context.Background(), factoryFor(sg)))
	assert.True(t, s.Connected())
	assert.Equal(t, sg, s.Signer())

	err := s.Connect(context.Background(), factoryFor(&fakeSigner{}))
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Equal(t, sg, s.Signer())

	require.NoError(t, s.Disconnect())
	assert.True(t, sg.closed)
	assert.False(t, s.Connected())
	require.NoError(t, s.Disconnect())

	require.NoError(t, s.Close())
	assert.True(t, chain.closed)
	assert.Nil(t, s.Chain())
}

func TestSessionConnectFailureStaysUnconnected(t *testing.T) {
	s := NewSession(&fakeChain{})
	err := s.Connect(context.Background(), func(context.Context) (Signer, error) {
		return nil, errors.New("invalid mnemonic phrase")
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSignerInit))
	assert.False(t, s.Connected())

	err = s.Connect(context.Background(), func(context.Context) (Signer, error) { return nil, nil })
	assert.True(t, IsKind(err, KindSignerInit))
	assert.False(t, s.Connected())
}

func TestSessionKeepsSignerInitKind(t *testing.T) {
	s := NewSession(&fakeChain{})
	orig := WrapError(KindSignerInit, "local key", errors.New("empty secret phrase"))
	err := s.Connect(context.Background(), func(context.Context) (Signer, error) { return nil, orig })
	assert.Same(t, orig, err)
}

func TestDialSession(t *testing.T) {
	_, err := DialSession(context.Background(), func(context.Context) (ChainClient, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	assert.True(t, IsKind(err, KindConnection))

	s, err := DialSession(context.Background(), func(context.Context) (ChainClient, error) {
		return &fakeChain{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, s.Chain())
}

func TestSessionWithoutChain(t *testing.T) {
	s := NewSession(nil)
	err := s.Connect(context.Background(), factoryFor(&fakeSigner{}))
	assert.True(t, IsKind(err, KindConnection))
}

func TestSessionFactoryMayQuerySession(t *testing.T) {
	s := NewSession(&fakeChain{})
	done := make(chan error, 1)
	go func() {
		done <- s.Connect(context.Background(), func(context.Context) (Signer, error) {
			assert.False(t, s.Connected())
			assert.NotNil(t, s.Chain())
			return &fakeSigner{}, nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Connect blocked while the factory used the session")
	}
	assert.True(t, s.Connected())
}

func TestSessionConnectRaceClosesLoser(t *testing.T) {
	s := NewSession(&fakeChain{})
	winner, loser := &fakeSigner{}, &fakeSigner{}

	err := s.Connect(context.Background(), func(ctx context.Context) (Signer, error) {
		require.NoError(t, s.Connect(ctx, factoryFor(winner)))
		return loser, nil
	})
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Same(t, winner, s.Signer())
	assert.True(t, loser.closed)
	assert.False(t, winner.closed)
}
