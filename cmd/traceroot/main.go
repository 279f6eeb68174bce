package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rafsan3051/TraceRoot-sub000/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	timeout   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "traceroot",
	Short: "TraceRoot product traceability CLI",
	Long: `traceroot is the command-line interface for a TraceRoot server.

It registers products, records custody transfers and status changes,
inspects on-ledger trace history, and manages reconciled prices.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.traceroot")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.traceroot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "TraceRoot server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(timeout))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── register ─────────────────────────────────────────────────────────────────

var (
	registerDescription string
	registerCategory    string
	registerOrigin      string
	registerPrice       string
)

var registerCmd = &cobra.Command{
	Use:   "register <name> <owner>",
	Short: "Register a new product on the ledger",
	Long: `Register creates a product, records its creation event on the active
ledger backend, and prints the assigned ID and transaction reference:

  traceroot register "Single-origin coffee" acme-roasters --price 12.50 --origin "Huila, Colombia"`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerDescription, "description", "", "Product description")
	registerCmd.Flags().StringVar(&registerCategory, "category", "", "Product category")
	registerCmd.Flags().StringVar(&registerOrigin, "origin", "", "Product origin")
	registerCmd.Flags().StringVar(&registerPrice, "price", "", "Registration price (decimal, e.g. 12.50)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	product, err := newClient().RegisterProduct(ctx, client.RegisterProductRequest{
		Name:        args[0],
		Owner:       args[1],
		Description: registerDescription,
		Category:    registerCategory,
		Origin:      registerOrigin,
		Price:       registerPrice,
	})
	if err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", product.ID)
	fmt.Printf("Name:    %s\n", product.Name)
	fmt.Printf("Owner:   %s\n", product.Owner)
	fmt.Printf("Status:  %s\n", product.Status)
	fmt.Printf("Tx:      %s (%s)\n", product.LedgerTxID, product.LedgerSource)
	return nil
}

// ── show ─────────────────────────────────────────────────────────────────────

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "Output format: text or json")
}

func runShow(cmd *cobra.Command, args []string) error {
	product, err := newClient().GetProduct(context.Background(), args[0])
	if err != nil {
		return err
	}

	if showFormat == "json" {
		return printJSON(product)
	}
	fmt.Printf("ID:          %s\n", product.ID)
	fmt.Printf("Name:        %s\n", product.Name)
	if product.Description != "" {
		fmt.Printf("Description: %s\n", product.Description)
	}
	if product.Origin != "" {
		fmt.Printf("Origin:      %s\n", product.Origin)
	}
	fmt.Printf("Owner:       %s\n", product.Owner)
	fmt.Printf("Status:      %s\n", product.Status)
	fmt.Printf("Price:       %s (registered at %s)\n", product.CurrentPrice, product.RegistrationPrice)
	fmt.Printf("Tx:          %s (%s)\n", product.LedgerTxID, product.LedgerSource)
	return nil
}

// ── transfer ─────────────────────────────────────────────────────────────────

var (
	transferLocation string
	transferNotes    string
	transferActor    string
)

var transferCmd = &cobra.Command{
	Use:   "transfer <product-id> <new-owner>",
	Short: "Record a custody transfer",
	Args:  cobra.ExactArgs(2),
	RunE:  runTransfer,
}

func init() {
	transferCmd.Flags().StringVar(&transferLocation, "location", "", "Handoff location")
	transferCmd.Flags().StringVar(&transferNotes, "notes", "", "Free-text notes")
	transferCmd.Flags().StringVar(&transferActor, "actor", "", "Acting party (defaults to the new owner)")
}

func runTransfer(cmd *cobra.Command, args []string) error {
	actor := transferActor
	if actor == "" {
		actor = args[1]
	}
	c := newClient()
	if err := c.Transfer(context.Background(), args[0], args[1], transferLocation, transferNotes, actor); err != nil {
		return err
	}
	fmt.Printf("Custody of %s transferred to %s\n", args[0], args[1])
	return nil
}

// ── status ───────────────────────────────────────────────────────────────────

var (
	statusNotes string
	statusActor string
)

var statusCmd = &cobra.Command{
	Use:   "status <product-id> <registered|in_transit|delivered|sold|recalled>",
	Short: "Record a lifecycle status change",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusNotes, "notes", "", "Free-text notes")
	statusCmd.Flags().StringVar(&statusActor, "actor", "cli", "Acting party")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := newClient().UpdateStatus(context.Background(), args[0], args[1], statusNotes, statusActor); err != nil {
		return err
	}
	fmt.Printf("Status of %s set to %s\n", args[0], args[1])
	return nil
}

// ── trace ────────────────────────────────────────────────────────────────────

var traceFormat string

var traceCmd = &cobra.Command{
	Use:   "trace <product-id>",
	Short: "Show a product's on-ledger history",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceFormat, "format", "text", "Output format: text or json")
}

func runTrace(cmd *cobra.Command, args []string) error {
	records, err := newClient().Trace(context.Background(), args[0])
	if err != nil {
		return err
	}

	if traceFormat == "json" {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("No ledger records.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTYPE\tACTOR\tSOURCE\tTX")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Type, r.Actor, r.Source, r.TxID)
	}
	return w.Flush()
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <tx-id>",
	Short: "Verify a ledger transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	conf, err := newClient().Verify(context.Background(), args[0])
	if err != nil {
		return err
	}
	if conf.Verified {
		fmt.Printf("VERIFIED at %s (%s)\n", conf.Timestamp.Format(time.RFC3339), conf.Source)
	} else {
		fmt.Println("NOT VERIFIED")
	}
	return nil
}

// ── price ────────────────────────────────────────────────────────────────────

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Inspect and update reconciled prices",
}

var priceHistoryFlag bool

var priceGetCmd = &cobra.Command{
	Use:   "get <product-id>",
	Short: "Show the reconciled current price (or full history with --history)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPriceGet,
}

var (
	priceSetNotes string
	priceSetActor string
)

var priceSetCmd = &cobra.Command{
	Use:   "set <product-id> <price>",
	Short: "Record a new price for a product",
	Args:  cobra.ExactArgs(2),
	RunE:  runPriceSet,
}

func init() {
	priceGetCmd.Flags().BoolVar(&priceHistoryFlag, "history", false, "Show the full price history")
	priceSetCmd.Flags().StringVar(&priceSetNotes, "notes", "", "Free-text notes")
	priceSetCmd.Flags().StringVar(&priceSetActor, "actor", "cli", "Acting party")
	priceCmd.AddCommand(priceGetCmd)
	priceCmd.AddCommand(priceSetCmd)
}

func runPriceGet(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := context.Background()

	if !priceHistoryFlag {
		point, err := c.LatestPrice(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s, %s)\n", point.Price, point.Source, point.Timestamp.Format(time.RFC3339))
		return nil
	}

	points, err := c.PriceHistory(ctx, args[0])
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("No price history.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tPRICE\tSOURCE\tNOTES")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.Timestamp.Format(time.RFC3339), p.Price, p.Source, p.Notes)
	}
	return w.Flush()
}

func runPriceSet(cmd *cobra.Command, args []string) error {
	res, err := newClient().UpdatePrice(context.Background(), args[0], args[1], priceSetNotes, priceSetActor)
	if err != nil {
		return err
	}
	fmt.Printf("Updated: %v\n", res.Updated)
	fmt.Printf("Tx:      %s (%s)\n", res.TxHash, res.Source)
	return nil
}

// ── probe ────────────────────────────────────────────────────────────────────

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the server's active ledger backend",
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	res, err := newClient().Probe(context.Background())
	if err != nil {
		return err
	}
	state := "UNREACHABLE"
	if res.Reachable {
		state = "REACHABLE"
	}
	fmt.Printf("%s: %s", res.Backend, state)
	if res.HTTPStatus != 0 {
		fmt.Printf(" (HTTP %d)", res.HTTPStatus)
	}
	if res.ErrorClass != "" {
		fmt.Printf(" (%s)", res.ErrorClass)
	}
	fmt.Println()
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("traceroot %s\n", version)
	},
}
