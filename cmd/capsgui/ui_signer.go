package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/ligun0805/caps-transfer/internal/signer"
	"github.com/ligun0805/caps-transfer/internal/substrate"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

const (
	modeExtension = "Extension"
	modeMnemonic  = "Mnemonic"
)

type signerRequest struct {
	mode     string
	phrase   string
	scheme   string
	account  string
	provider string
}

// connectChain dials the node and builds a fresh session and orchestrator.
// A previously imported list is loaded into the new orchestrator.
func connectChain(a fyne.App, url string) {
	if o := currentOrchestrator(); o != nil && o.State() == transfercore.StateSubmitting {
		dialog.ShowError(errors.New("a batch is being submitted"), mainWin)
		return
	}
	closeChain()
	statusLbl.SetText("[chain] connecting to " + url + " …")
	settings.WSURL = url

	var c *substrate.Client
	s, err := transfercore.DialSession(context.Background(), func(ctx context.Context) (transfercore.ChainClient, error) {
		cl, err := substrate.Dial(ctx, url, substrate.Options{
			CallIndex:    settings.TransferCallIndex,
			SS58Prefix:   settings.SS58Prefix,
			MetadataHash: settings.MetadataHash,
			CallTimeout:  settings.RPCTimeout,
		})
		if err != nil {
			return nil, err
		}
		c = cl
		return cl, nil
	})
	if err != nil {
		statusLbl.SetText("[chain] not connected")
		appendLogLine(a, err.Error())
		dialog.ShowError(err, mainWin)
		return
	}

	o := transfercore.NewOrchestrator(s, transfercore.Config{
		Decimals:  settings.TokenDecimals,
		Estimator: transfercore.FixedFee{Fee: settings.FeePlaceholder},
		Confirm:   confirmDialog,
		Pace:      settings.SubmitPace,
		Logf:      func(f string, args ...any) { appendLogLine(a, fmt.Sprintf(f, args...)) },
		OnOutcome: func(r transfercore.TransferOutcome) { onOutcome(a, r) },
	})

	chainMu.Lock()
	sess, client, orch = s, c, o
	set := loaded
	chainMu.Unlock()
	if set != nil {
		_ = o.Load(set)
		resetRows(set)
	}

	rt := c.Runtime()
	statusLbl.SetText(fmt.Sprintf("[chain] %s · %s spec=%d tx=%d · genesis %s",
		url, rt.SpecName, rt.SpecVersion, rt.TransactionVersion, short(c.GenesisHash().Hex())))
	signerLbl.SetText("No signer connected")
	appendLogLine(a, "connected to "+url)
}

// closeChain drops the session, the signer and the provider connection.
func closeChain() {
	chainMu.Lock()
	s, p := sess, provider
	sess, client, orch, provider = nil, nil, nil, nil
	chainMu.Unlock()
	if s != nil {
		_ = s.Close()
	}
	if p != nil {
		p.Close()
	}
}

func connectSigner(a fyne.App, req signerRequest) {
	chainMu.Lock()
	s, c := sess, client
	chainMu.Unlock()
	if s == nil {
		dialog.ShowError(errors.New("connect to a node first"), mainWin)
		return
	}
	ctx := context.Background()

	var (
		factory transfercore.SignerFactory
		kind    substrate.SignatureKind
		p       *signer.RPCProvider
	)
	switch req.mode {
	case modeMnemonic:
		scheme, ok := signer.ParseScheme(req.scheme)
		if !ok {
			dialog.ShowError(fmt.Errorf("unknown key scheme %q", req.scheme), mainWin)
			return
		}
		kind = scheme
		factory = signer.LocalFactory(c, req.phrase, signer.WithScheme(scheme))
	default:
		var err error
		p, err = signer.DialProvider(ctx, req.provider)
		if err != nil {
			err = transfercore.WrapError(transfercore.KindSignerInit, "signing provider", err)
			appendLogLine(a, err.Error())
			dialog.ShowError(err, mainWin)
			return
		}
		factory = func(ctx context.Context) (transfercore.Signer, error) {
			d, err := signer.NewDelegated(ctx, c, p, settings.AppName, req.account)
			if err != nil {
				return nil, err
			}
			kind = signer.SignatureKindOf(d.Account().Type)
			return d, nil
		}
	}

	if err := s.Connect(ctx, factory); err != nil {
		if p != nil {
			p.Close()
		}
		appendLogLine(a, "signer: "+err.Error())
		dialog.ShowError(err, mainWin)
		return
	}
	chainMu.Lock()
	if provider != nil {
		provider.Close()
	}
	provider, sigKind = p, kind
	chainMu.Unlock()

	addr := s.Signer().Address()
	signerLbl.SetText(fmt.Sprintf("%s (%s)", addr, req.mode))
	appendLogLine(a, fmt.Sprintf("signer connected: %s via %s", addr, req.mode))
}

func disconnectSigner(a fyne.App) {
	chainMu.Lock()
	s, o, p := sess, orch, provider
	chainMu.Unlock()
	if s == nil {
		return
	}
	if o != nil && (o.State() == transfercore.StateSubmitting || o.State() == transfercore.StateConfirming) {
		dialog.ShowError(errors.New("cannot disconnect while a batch is running"), mainWin)
		return
	}
	if err := s.Disconnect(); err != nil {
		appendLogLine(a, "disconnect: "+err.Error())
	}
	if p != nil {
		p.Close()
		chainMu.Lock()
		provider = nil
		chainMu.Unlock()
	}
	signerLbl.SetText("No signer connected")
	appendLogLine(a, "signer disconnected")
}

func fileExt(name string) string { return filepath.Ext(name) }
