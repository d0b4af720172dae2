package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ligun0805/caps-transfer/internal/config"
	"github.com/ligun0805/caps-transfer/internal/signer"
	"github.com/ligun0805/caps-transfer/internal/substrate"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// cliOptions is config.Settings overridden by command line flags.
type cliOptions struct {
	settings config.Settings

	input     string
	from      string
	extension bool
	mnemonic  string // name of the env var holding the phrase
	yes       bool
	paceMS    int

	provider *signer.RPCProvider
}

func (o *cliOptions) bindGlobal(cmd *cobra.Command) {
	st := &o.settings
	f := cmd.PersistentFlags()
	f.StringVarP(&o.input, FlagInput, "i", "", "Recipient list (.csv with address,amount header, or .json)")
	f.StringVar(&st.WSURL, FlagWS, st.WSURL, "Node endpoint (ws://, wss://, http://)")
	f.Int32Var(&st.TokenDecimals, FlagDecimals, st.TokenDecimals, "Token decimals used to scale amounts")
	f.StringVar(&st.Estimator, FlagEstimator, st.Estimator, "Fee estimator: fixed or dryrun")
	f.StringVar(&st.LogLevel, FlagLogLevel, st.LogLevel, "Log level (debug, info, warn, error)")
}

func (o *cliOptions) bindSigner(cmd *cobra.Command) {
	st := &o.settings
	f := cmd.Flags()
	f.BoolVar(&o.extension, FlagExtension, false, "Sign through the external signing provider")
	f.StringVar(&o.mnemonic, FlagMnemonic, "", "Read the secret phrase from this env var instead of prompting")
	f.StringVar(&st.KeyScheme, FlagKeyScheme, st.KeyScheme, "Local key scheme: sr25519 or ecdsa")
	f.StringVar(&st.Account, FlagAccount, st.Account, "Provider account to use (default: first)")
	f.StringVar(&st.SignerProviderURL, "provider", st.SignerProviderURL, "Signing provider JSON-RPC endpoint")
}

func (o *cliOptions) logf(format string, a ...any) { log.Infof(format, a...) }

func (o *cliOptions) chainOptions() substrate.Options {
	return substrate.Options{
		CallIndex:    o.settings.TransferCallIndex,
		SS58Prefix:   o.settings.SS58Prefix,
		MetadataHash: o.settings.MetadataHash,
		CallTimeout:  o.settings.RPCTimeout,
	}
}

// loadRecipients reads --input. Any failure is fatal for the run.
func (o *cliOptions) loadRecipients() (*transfercore.RecipientSet, error) {
	if strings.TrimSpace(o.input) == "" {
		return nil, withCode(1, fmt.Errorf("missing --%s (recipient list)", FlagInput))
	}
	set, err := transfercore.LoadFile(o.input)
	if err != nil {
		return nil, withCode(1, err)
	}
	total, bad := set.Total(o.settings.TokenDecimals)
	fmt.Printf("Loaded %d recipients, total %s %s", set.Len(), transfercore.FormatUnits(total, o.settings.TokenDecimals), o.settings.TokenSymbol)
	if bad > 0 {
		fmt.Printf(" (%d rows with invalid amount)", bad)
	}
	fmt.Println()
	return set, nil
}

// dial opens the chain session. The concrete client is returned as well
// because signers and the dry-run estimator need more than ChainClient.
func (o *cliOptions) dial(ctx context.Context) (*transfercore.Session, *substrate.Client, error) {
	var client *substrate.Client
	sess, err := transfercore.DialSession(ctx, func(ctx context.Context) (transfercore.ChainClient, error) {
		c, err := substrate.Dial(ctx, o.settings.WSURL, o.chainOptions())
		if err != nil {
			return nil, err
		}
		client = c
		return c, nil
	})
	if err != nil {
		return nil, nil, withCode(1, err)
	}
	rt := client.Runtime()
	log.Infof("connected to %s (%s spec=%d tx=%d genesis=%s)", o.settings.WSURL, rt.SpecName, rt.SpecVersion, rt.TransactionVersion, client.GenesisHash().Hex())
	return sess, client, nil
}

// connect activates a signer on sess: the external provider with
// --extension, otherwise a local key from --mnemonic-env or a prompt.
func (o *cliOptions) connect(ctx context.Context, sess *transfercore.Session, client *substrate.Client) (substrate.SignatureKind, error) {
	if o.extension {
		p, err := signer.DialProvider(ctx, o.settings.SignerProviderURL)
		if err != nil {
			return 0, withCode(1, transfercore.WrapError(transfercore.KindSignerInit, "signing provider", err))
		}
		var kind substrate.SignatureKind
		err = sess.Connect(ctx, func(ctx context.Context) (transfercore.Signer, error) {
			s, err := signer.NewDelegated(ctx, client, p, o.settings.AppName, o.settings.Account)
			if err != nil {
				return nil, err
			}
			kind = signer.SignatureKindOf(s.Account().Type)
			return s, nil
		})
		if err != nil {
			p.Close()
			return 0, withCode(1, err)
		}
		o.provider = p
		return kind, nil
	}

	scheme, ok := signer.ParseScheme(o.settings.KeyScheme)
	if !ok {
		return 0, withCode(1, fmt.Errorf("unknown key scheme %q (want sr25519 or ecdsa)", o.settings.KeyScheme))
	}
	phrase := o.settings.Mnemonic
	if o.mnemonic != "" {
		phrase = getenv(o.mnemonic, "")
	}
	if phrase == "" {
		phrase = readPassword("Secret phrase (mnemonic or 0x seed, optional //path): ")
	}
	err := sess.Connect(ctx, signer.LocalFactory(client, phrase, signer.WithScheme(scheme)))
	if err != nil {
		return 0, withCode(1, err)
	}
	return scheme, nil
}

// estimator picks the fee estimator; from is the fee payer for dry runs.
func (o *cliOptions) estimator(client *substrate.Client, from string, kind substrate.SignatureKind) (transfercore.FeeEstimator, error) {
	switch o.settings.Estimator {
	case "", "fixed":
		return transfercore.FixedFee{Fee: o.settings.FeePlaceholder}, nil
	case "dryrun", "dry-run":
		if from == "" {
			return nil, fmt.Errorf("dry-run estimator needs a fee payer (--%s or a connected signer)", FlagFrom)
		}
		return transfercore.DryRunFee{Chain: client, From: from, Decimals: o.settings.TokenDecimals, SigKind: kind}, nil
	}
	return nil, fmt.Errorf("unknown estimator %q", o.settings.Estimator)
}

func (o *cliOptions) orchestratorConfig() transfercore.Config {
	return transfercore.Config{
		Decimals: o.settings.TokenDecimals,
		Pace:     time.Duration(o.paceMS) * time.Millisecond,
		Logf:     o.logf,
	}
}

// release closes the session and the signing provider, if any.
func (o *cliOptions) release(sess *transfercore.Session) {
	if err := sess.Close(); err != nil {
		log.WithError(err).Warn("close session")
	}
	if o.provider != nil {
		o.provider.Close()
		o.provider = nil
	}
}
