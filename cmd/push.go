package main

import (
	"fmt"

	gosalesforce "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/export"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/pkg/notion"
	"github.com/sells-group/signals-cli/pkg/salesforce"
)

var (
	pushTarget   string
	pushRunID    string
	pushStatus   string
	pushMinScore float64
	pushLimit    int
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Deliver stored leads to Notion or Salesforce",
	Long: `Pushes leads matching the given filters to an external target. Existing
records are matched by domain and updated; everything else is created.
Individual record failures are reported but do not stop the push.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("push"); err != nil {
			return err
		}
		if pushStatus != "" && !model.LeadStatus(pushStatus).Valid() {
			return eris.Errorf("invalid lead status %q", pushStatus)
		}

		target, err := initPushTarget()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			RunID:    pushRunID,
			Status:   model.LeadStatus(pushStatus),
			MinScore: pushMinScore,
			Limit:    pushLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			fmt.Println("No leads matched the filter; nothing pushed.")
			return nil
		}

		res, err := target.Push(ctx, leads)
		if err != nil {
			return eris.Wrapf(err, "push to %s", target.Name())
		}

		zap.L().Info("push complete",
			zap.String("target", target.Name()),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("failed", len(res.Errors)),
		)

		fmt.Printf("%s: %d created, %d updated.\n", target.Name(), res.Created, res.Updated)
		if len(res.Errors) > 0 {
			for _, e := range res.Errors {
				fmt.Printf("  - %s\n", e)
			}
			return eris.Errorf("push finished with %d failed record(s)", len(res.Errors))
		}
		return nil
	},
}

// initPushTarget builds the requested CRM target from config.
func initPushTarget() (export.Target, error) {
	switch pushTarget {
	case "notion":
		if cfg.Notion.Token == "" || cfg.Notion.LeadDB == "" {
			return nil, eris.New("notion push requires notion.token and notion.lead_db")
		}
		return export.NewNotionTarget(notion.NewClient(cfg.Notion.Token), cfg.Notion.LeadDB), nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return export.NewSalesforceTarget(client), nil
	default:
		return nil, eris.Errorf("unknown push target %q (want notion or salesforce)", pushTarget)
	}
}

// initSalesforce authenticates via the client-credentials flow.
func initSalesforce() (salesforce.Client, error) {
	sc := cfg.Salesforce
	if sc.Domain == "" || sc.ConsumerKey == "" || sc.ConsumerSecret == "" {
		return nil, eris.New("salesforce push requires salesforce.domain, consumer_key, and consumer_secret")
	}

	sf, err := gosalesforce.Init(gosalesforce.Creds{
		Domain:         sc.Domain,
		ConsumerKey:    sc.ConsumerKey,
		ConsumerSecret: sc.ConsumerSecret,
	})
	if err != nil {
		return nil, eris.Wrap(err, "salesforce auth")
	}
	return salesforce.NewClient(sf), nil
}

func init() {
	pushCmd.Flags().StringVar(&pushTarget, "target", "", "notion or salesforce (required)")
	pushCmd.Flags().StringVar(&pushRunID, "run", "", "only leads from this run")
	pushCmd.Flags().StringVar(&pushStatus, "status", "", "only leads with this status")
	pushCmd.Flags().Float64Var(&pushMinScore, "min-score", 0, "minimum score")
	pushCmd.Flags().IntVar(&pushLimit, "limit", 0, "max leads to push (0 uses the store default)")
	_ = pushCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(pushCmd)
}
