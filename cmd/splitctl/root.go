package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

var version = "dev"

type allocateFlags struct {
	total        string
	currency     string
	participants []string
	payer        string
	method       string
	weights      map[string]string
	amounts      map[string]string
	format       string
}

// lineRow is the table, JSON and CSV shape of one split line.
type lineRow struct {
	Participant string `csv:"participant" json:"participant"`
	Amount      string `csv:"amount" json:"amount"`
	Settled     bool   `csv:"settled" json:"settled"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "splitctl",
		Short:        "Split expense totals between participants",
		SilenceUsage: true,
	}
	root.AddCommand(newAllocateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the splitctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newAllocateCmd() *cobra.Command {
	var f allocateFlags
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate a total between participants",
		Long: `Allocate a total between participants using an equal, percentage or manual split.

Examples:
  splitctl allocate --total 100 --participants a,b,c --payer a
  splitctl allocate --total 100 --participants a,b --method percentage --weights a=60,b=40
  splitctl allocate --total 5000 --currency JPY --participants a,b --method manual --amounts a=3000,b=2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocate(cmd.OutOrStdout(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.total, "total", "", "expense total, e.g. 100 or 1.234,56")
	flags.StringVar(&f.currency, "currency", money.DefaultCurrency, "ISO 4217 currency code")
	flags.StringSliceVar(&f.participants, "participants", nil, "participant ids in order")
	flags.StringVar(&f.payer, "payer", "", "id of the participant who paid (defaults to the first)")
	flags.StringVar(&f.method, "method", string(models.SplitEqual), "equal, percentage or manual")
	flags.StringToStringVar(&f.weights, "weights", nil, "percentage weights, e.g. a=50,b=50")
	flags.StringToStringVar(&f.amounts, "amounts", nil, "manual amounts, e.g. a=30,b=70")
	flags.StringVar(&f.format, "format", "table", "output format: table, json or csv")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("participants")

	return cmd
}

func runAllocate(w io.Writer, f allocateFlags) error {
	total, err := money.ParseAmount(f.total)
	if err != nil {
		return err
	}
	weights, err := parseAmounts("weights", f.weights)
	if err != nil {
		return err
	}
	amounts, err := parseAmounts("amounts", f.amounts)
	if err != nil {
		return err
	}
	method, err := calculator.NewMethod(f.method, weights, amounts)
	if err != nil {
		return err
	}

	currency := strings.ToUpper(strings.TrimSpace(f.currency))
	payer := f.payer
	if payer == "" && len(f.participants) > 0 {
		payer = f.participants[0]
	}

	alloc, err := calculator.Allocate(models.ExpenseTotal{Amount: total, Currency: currency}, f.participants, method, payer)
	if err != nil {
		return err
	}

	places := money.MinorUnits(currency)
	rows := make([]lineRow, len(alloc.Lines))
	for i, l := range alloc.Lines {
		rows[i] = lineRow{Participant: l.ParticipantID, Amount: l.Amount.StringFixed(places), Settled: l.IsSettled}
	}
	return writeRows(w, f.format, rows, money.Format(alloc.Total(), currency))
}

func parseAmounts(flag string, raw map[string]string) (map[string]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for id, v := range raw {
		amount, err := money.ParseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("--%s %s: %w", flag, id, err)
		}
		out[id] = amount
	}
	return out, nil
}

func writeRows(w io.Writer, format string, rows []lineRow, total string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		return gocsv.Marshal(rows, w)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PARTICIPANT\tAMOUNT\tSETTLED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", r.Participant, r.Amount, r.Settled)
		}
		fmt.Fprintf(tw, "TOTAL\t%s\t\n", total)
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q, want table, json or csv", format)
}
