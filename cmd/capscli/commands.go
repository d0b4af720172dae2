package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ligun0805/caps-transfer/internal/signer"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

func simulateCmd(o *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Load recipients and print the estimated fee per transfer",
		Long: `Load the recipient list and estimate fees without signing anything.

The fixed estimator quotes FEE_PLACEHOLDER per recipient. The dryrun
estimator asks the node (payment_queryInfo) and needs --from.

Example:
  capscli simulate -i recipients.csv --estimator dryrun --from 5Grwva...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			set, err := o.loadRecipients()
			if err != nil {
				return err
			}
			sess, client, err := o.dial(ctx)
			if err != nil {
				return err
			}
			defer o.release(sess)

			est, err := o.estimator(client, o.from, signer.SignatureKindOf(""))
			if err != nil {
				return withCode(1, err)
			}
			orch := transfercore.NewOrchestrator(sess, o.orchestratorConfig())
			if err := orch.SetEstimator(est); err != nil {
				return err
			}
			if err := orch.Load(set); err != nil {
				return err
			}
			quotes, err := orch.Simulate(ctx)
			if err != nil {
				return withCode(1, err)
			}
			printQuotes(quotes, o.settings.TokenSymbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.from, FlagFrom, "", "Fee payer address for the dryrun estimator")
	return cmd
}

func sendCmd(o *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Estimate, confirm and submit one transfer per recipient",
		Long: `Load the recipient list, connect a signer, estimate fees, ask for
confirmation and submit transfers in file order.

Exit code is 1 when loading or connecting fails and 2 when at least one
transfer failed.

Example:
  capscli send -i recipients.csv --mnemonic-env MNEMONIC
  capscli send -i recipients.json --extension --account 5Grwva...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSend(ctx, o)
		},
	}
	o.bindSigner(cmd)
	cmd.Flags().BoolVarP(&o.yes, FlagYes, "y", false, "Submit without the confirmation prompt")
	cmd.Flags().StringVar(&o.settings.OutOK, FlagOutOK, o.settings.OutOK, "CSV for successful transfers")
	cmd.Flags().StringVar(&o.settings.OutBad, FlagOutBad, o.settings.OutBad, "CSV for failed transfers")
	cmd.Flags().IntVar(&o.paceMS, FlagPaceMS, int(o.settings.SubmitPace/time.Millisecond), "Minimum gap between submissions (ms)")
	return cmd
}

func runSend(ctx context.Context, o *cliOptions) error {
	set, err := o.loadRecipients()
	if err != nil {
		return err
	}
	sess, client, err := o.dial(ctx)
	if err != nil {
		return err
	}
	defer o.release(sess)

	kind, err := o.connect(ctx, sess, client)
	if err != nil {
		return err
	}
	from := sess.Signer().Address()
	log.Infof("signer connected: %s", from)

	est, err := o.estimator(client, from, kind)
	if err != nil {
		return withCode(1, err)
	}

	out, err := openOutputs(o.settings.OutOK, o.settings.OutBad)
	if err != nil {
		return withCode(1, fmt.Errorf("open outputs: %w", err))
	}
	defer out.Close()

	cfg := o.orchestratorConfig()
	cfg.Estimator = est
	cfg.OnOutcome = func(r transfercore.TransferOutcome) {
		out.Write(r)
		printOutcome(r)
	}
	cfg.Confirm = confirmPrompt(o.settings.TokenSymbol)
	if o.yes {
		cfg.Confirm = transfercore.AlwaysConfirm
	}
	orch := transfercore.NewOrchestrator(sess, cfg)
	if err := orch.Load(set); err != nil {
		return err
	}
	quotes, err := orch.Simulate(ctx)
	if err != nil {
		return withCode(1, err)
	}
	printQuotes(quotes, o.settings.TokenSymbol)

	outcomes, err := orch.Send(ctx)
	if errors.Is(err, transfercore.ErrDeclined) {
		fmt.Println("Cancelled, nothing was submitted.")
		return nil
	}
	if err != nil {
		return withCode(1, err)
	}
	r := transfercore.Summarize(outcomes)
	fmt.Printf("Done. %d of %d transfers submitted, %d failed. OK => %s  BAD => %s\n",
		r.Succeeded, r.Total, r.Failed, o.settings.OutOK, o.settings.OutBad)
	if r.Failed > 0 {
		return withCode(2, fmt.Errorf("%d transfers failed", r.Failed))
	}
	return nil
}

// confirmPrompt shows the run summary and waits for y/N on stdin.
func confirmPrompt(symbol string) transfercore.ConfirmFunc {
	return func(_ context.Context, s transfercore.Summary) bool {
		fmt.Println("=== CONFIRM ===")
		fmt.Println("Run           :", s.RunID)
		fmt.Println("Signer        :", s.Signer)
		fmt.Println("Recipients    :", s.Recipients)
		fmt.Println("Total amount  :", transfercore.FormatUnits(s.Total, s.Decimals), symbol)
		if s.Unscalable > 0 {
			fmt.Println("Invalid rows  :", s.Unscalable, "(will fail)")
		}
		fmt.Println("Estimated fee :", s.EstimatedFee.String(), symbol)
		fmt.Println("===============")
		return yes(readLine(bufio.NewReader(os.Stdin), "Send these transfers? [y/N]: "))
	}
}

func accountsCmd(o *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts exposed by the signing provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := signer.DialProvider(ctx, o.settings.SignerProviderURL)
			if err != nil {
				return withCode(1, err)
			}
			defer p.Close()
			exts, err := p.Discover(ctx, o.settings.AppName)
			if err != nil {
				return withCode(1, err)
			}
			if len(exts) == 0 {
				return withCode(1, errors.New("signing extension not detected"))
			}
			accounts, err := p.ListAccounts(ctx)
			if err != nil {
				return withCode(1, err)
			}
			for i, a := range accounts {
				fmt.Printf("%2d. %s  %s  %s\n", i+1, a.Address, a.Type, a.Name)
			}
			if len(accounts) == 0 {
				fmt.Println("no accounts")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&o.settings.SignerProviderURL, "provider", o.settings.SignerProviderURL, "Signing provider JSON-RPC endpoint")
	return cmd
}
