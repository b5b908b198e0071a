package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"github.com/jmerrifield20/reportledger/pkg/client"
	"github.com/spf13/cobra"
)

// errTampered makes verify exit non-zero without repeating the report.
var errTampered = errors.New("ledger has been tampered")

// ── add ──────────────────────────────────────────────────────────────────────

var (
	addMath    string
	addScience string
	addEnglish string
	addToken   string
)

var addCmd = &cobra.Command{
	Use:   "add <student name>",
	Short: "Record a report card as a new block",
	Example: `  reportledger add "Ana" --math A --science B --english A
  reportledger add "Ana" --math A --science B --english A --server http://localhost:8080 --token $TOKEN`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addMath, "math", "", "Math grade (A-F)")
	addCmd.Flags().StringVar(&addScience, "science", "", "Science grade (A-F)")
	addCmd.Flags().StringVar(&addEnglish, "english", "", "English grade (A-F)")
	addCmd.Flags().StringVar(&addToken, "token", "", "registrar token (only with --server)")
	for _, f := range []string{"math", "science", "english"} {
		_ = addCmd.MarkFlagRequired(f)
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	raw := map[string]string{"Math": addMath, "Science": addScience, "English": addEnglish}
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if serverURL != "" {
		c, err := newClient(addToken)
		if err != nil {
			return err
		}
		res, err := c.AddReportCard(ctx, name, raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)
		fmt.Fprintf(out, "Block %d  %s\n", res.Block.Index, res.Block.Hash)
		return nil
	}

	grades := make(map[string]reportcard.Grade, len(raw))
	for subject, v := range raw {
		g, err := reportcard.ParseGrade(v)
		if err != nil {
			return fmt.Errorf("%s: %w", subject, err)
		}
		grades[subject] = g
	}

	l, _, closeStore, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	block, err := reportcard.NewService(l, logger).AddReportCard(ctx, name, grades)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Report card for %s added.\n", name)
	fmt.Fprintf(out, "Block %d  %s\n", block.Index, block.Hash)
	return nil
}

// ── list ─────────────────────────────────────────────────────────────────────

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every block in the ledger",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	var blocks []client.Block

	if serverURL != "" {
		c, err := newClient("")
		if err != nil {
			return err
		}
		if blocks, err = c.ListBlocks(ctx); err != nil {
			return err
		}
	} else {
		l, _, closeStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		for _, v := range reportcard.NewService(l, logger).ListBlocks() {
			blocks = append(blocks, client.Block(v))
		}
	}

	if listFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	}
	return printBlocksText(cmd.OutOrStdout(), blocks)
}

func printBlocksText(out io.Writer, blocks []client.Block) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tTIMESTAMP\tSTUDENT\tGRADES\tHASH\tPREVIOUS")
	for _, b := range blocks {
		student, grades := "-", "-"
		if rc, ok := reportcard.Decode(b.Data); ok {
			student = rc.StudentName
			parts := make([]string, 0, len(reportcard.Subjects))
			for _, s := range reportcard.Subjects {
				parts = append(parts, fmt.Sprintf("%s=%s", s, rc.Grades[s]))
			}
			grades = strings.Join(parts, " ")
		} else if b.Index == 0 {
			student = "(genesis)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.Index, b.Timestamp, student, grades, short(b.Hash), short(b.PreviousHash))
	}
	return w.Flush()
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the ledger for tampering",
	Long: `verify recomputes every block hash and checks each link to the previous
block. It exits non-zero and names the first offending block when the
ledger has been tampered with.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	var res ledger.VerifyResult

	if serverURL != "" {
		c, err := newClient("")
		if err != nil {
			return err
		}
		v, err := c.CheckIntegrity(ctx)
		if err != nil {
			return err
		}
		res = ledger.VerifyResult{Valid: v.Valid, Index: v.Index, Reason: ledger.Reason(v.Reason)}
	} else {
		l, _, closeStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		res = reportcard.NewService(l, logger).CheckIntegrity()
	}

	out := cmd.OutOrStdout()
	if res.Valid {
		fmt.Fprintln(out, "Ledger is valid.")
		return nil
	}
	fmt.Fprintf(out, "Ledger has been tampered: block %d (%s)\n", res.Index, res.Reason)
	return errTampered
}

func newClient(token string) (*client.Client, error) {
	var opts []client.Option
	if token == "" {
		token = os.Getenv("REPORTLEDGER_TOKEN")
	}
	if token != "" {
		opts = append(opts, client.WithBearerToken(token))
	}
	return client.New(serverURL, opts...)
}
