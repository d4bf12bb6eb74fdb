// Command ledger-tool runs maintenance tasks against the ledger database
// without the web server.
//
// Usage:
//
//	ledger-tool [-db PATH] recalc
//	ledger-tool [-db PATH] export -o FILE
//	ledger-tool [-db PATH] list
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"samplace/internal/cli"
	"samplace/internal/config"
	"samplace/internal/export"
	"samplace/internal/log"
	"samplace/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	flags := flag.NewFlagSet("ledger-tool", flag.ExitOnError)
	dbPath := flags.String("db", cfg.SQLiteDBPath, "path to the SQLite database")
	flags.Usage = func() { usage(flags) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() < 1 {
		usage(flags)
		os.Exit(2)
	}

	logger := cli.SetupLogger(cfg, log.ComponentCLI)
	store := cli.InitSQLite(logger, *dbPath)
	defer store.Close()
	ledger := services.NewLedgerService(store, services.WithLogger(logger.WithComponent(log.ComponentLedger)))

	ctx := context.Background()
	var err error
	switch cmd, args := flags.Arg(0), flags.Args()[1:]; cmd {
	case "recalc":
		err = runRecalc(ctx, ledger, os.Stdout)
	case "export":
		err = runExport(ctx, ledger, args)
	case "list":
		err = runList(ctx, ledger, cfg.CurrencyLabel, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(flags)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", log.FieldError, err, "command", flags.Arg(0))
		os.Exit(1)
	}
}

func usage(flags *flag.FlagSet) {
	fmt.Fprintf(flags.Output(), "Usage: ledger-tool [-db PATH] <recalc|export -o FILE|list>\n\n")
	flags.PrintDefaults()
}

func runRecalc(ctx context.Context, ledger *services.LedgerService, out io.Writer) error {
	txs, repaired, err := ledger.Recalculate(ctx)
	if err != nil {
		return err
	}
	if repaired {
		fmt.Fprintf(out, "repaired balances of %d transactions\n", len(txs))
	} else {
		fmt.Fprintf(out, "balances already consistent (%d transactions)\n", len(txs))
	}
	return nil
}

func runExport(ctx context.Context, ledger *services.LedgerService, args []string) error {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	output := flags.String("o", export.FileName, "output file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	data, err := ledger.Export(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *output, len(data))
	return nil
}

func runList(ctx context.Context, ledger *services.LedgerService, label string, out io.Writer) error {
	txs, err := ledger.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tINCOME\tEXPENSES\tBALANCE\t")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			t.ID, t.Date, t.Description,
			t.Income.Format(label), t.Expenses.Format(label), t.Balance.Format(label))
	}
	summary, err := ledger.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t%s\t%s\t\n",
		summary.TotalIncome.Format(label), summary.TotalExpenses.Format(label), summary.CurrentBalance.Format(label))
	return tw.Flush()
}
