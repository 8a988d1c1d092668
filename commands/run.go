package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lune-climate/spreadsheet-offset-tool/lune"
	"github.com/lune-climate/spreadsheet-offset-tool/offset"
	"github.com/lune-climate/spreadsheet-offset-tool/sheet"
)

func runCmd() *cobra.Command {
	cfg := Config{}
	settingsPath := ""
	portfolio := ""

	cmd := cobra.Command{
		Use:   "run",
		Short: "Reconciles a spreadsheet of offset recipients against the Lune API",
		Long: `Reads recipients from the input CSV file, ensures every distinct recipient has
a client account and a sustainability page, places one idempotent offset order
per row and writes progress to the output CSV file after every row. Re-running
with the same input and output picks up where the previous run left off.`,
		Example: `  ` + APP + ` run --input recipients.csv --output orders.csv \
                              --beneficiary "Acme Corporation's customers" \
                              --logo acme.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// ... check parameters
			if strings.TrimSpace(cfg.Input) == "" {
				return fmt.Errorf("--input is a required option")
			}

			if strings.TrimSpace(cfg.Output) == "" {
				return fmt.Errorf("--output is a required option")
			}

			if strings.TrimSpace(cfg.Beneficiary) == "" {
				return fmt.Errorf("--beneficiary is a required option")
			}

			if err := cfg.load(settingsPath); err != nil {
				return err
			}

			if cmd.Flags().Changed("portfolio") {
				cfg.Portfolio = portfolio
			}

			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.Input, "input", "i", "", "The CSV spreadsheet file to read recipients from")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "The CSV file to write results to, also the resume source")
	cmd.Flags().StringVarP(&cfg.Logo, "logo", "l", "", "The path to a file with the company logo (.jpg, .jpeg or .png)")
	cmd.Flags().StringVarP(&cfg.Beneficiary, "beneficiary", "b", "", "The aggregate name to use for purchasing and retiring of carbon offsets")
	cmd.Flags().StringVar(&portfolio, "portfolio", offset.DefaultPortfolioLabel, "The label of the bundle portfolio to order against")
	cmd.Flags().BoolVar(&cfg.AllowLive, "allow-live", false, "Allows running this application against live API keys and live accounts. Disabled by default.")
	cmd.Flags().StringVar(&settingsPath, "config", "", "Optional YAML settings file")

	return &cmd
}

func run(cfg Config) error {
	logger := log.WithField("run_id", uuid.NewString())
	client := lune.NewClient(cfg.APIKey, cfg.APIURL, logger)

	account, err := client.GetAccount().Expect()
	if err != nil {
		return err
	}

	// The main safety check - it has to pass before any row or account work.
	if err := checkLiveGuard(account, cfg.AllowLive); err != nil {
		return err
	}

	logger.Infof("The main account: %v (%v %v, currency %v)", account.Name, account.Type, account.ID, account.Currency)

	table, err := sheet.Resume(cfg.Input, cfg.Output)
	if err != nil {
		return err
	}

	accounts, err := offset.EnsureClientAccounts(client, offset.RecipientNames(table), cfg.Logo, account.Currency, cfg.Beneficiary, logger)
	if err != nil {
		return err
	}

	portfolio, err := offset.PortfolioByLabel(client, cfg.Portfolio)
	if err != nil {
		return err
	}

	logger.Infof("Found portfolio: %v (%v)", portfolio.Label, portfolio.Identifier)

	driver := offset.Driver{
		Client:    client,
		Accounts:  accounts,
		Portfolio: portfolio,
		Output:    cfg.Output,
		Log:       logger,
	}

	if err := driver.Run(table); err != nil {
		return err
	}

	logger.Infof("Success! Find your results in %v.", cfg.Output)

	return nil
}

func checkLiveGuard(account lune.Account, allowLive bool) error {
	if account.Type == "live" && !allowLive {
		return fmt.Errorf("live Lune API key detected but live mode not permitted. " +
			"This is a safety mechanism. Use --allow-live to enable live mode. " +
			"This will allow you to interact with live accounts and place real, live orders.")
	}

	return nil
}
