package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/cascade"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/db"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
)

func newLeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Lead management commands",
	}

	cmd.AddCommand(newLeadCreateCmd())
	cmd.AddCommand(newLeadAdvanceCmd())
	cmd.AddCommand(newLeadShowCmd())
	return cmd
}

func newLeadCreateCmd() *cobra.Command {
	var (
		configPath  string
		category    string
		description string
		clientName  string
		clientPhone string
		city        string
		wave        bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead and start its cascade",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}
			lead, res, err := cascade.Intake(gormDB, notify.NewAlerter(cfg.Alerts), cascade.NewLeadOpts{
				Category:    category,
				Description: description,
				ClientName:  clientName,
				ClientPhone: clientPhone,
				City:        city,
			}, policyFromConfig(cfg), wave)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lead %s created\n", lead.ID)
			printAdvanceResult(out, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().StringVar(&category, "category", "plumbing", "job category")
	cmd.Flags().StringVar(&description, "description", "", "job description")
	cmd.Flags().StringVar(&clientName, "client-name", "", "client name")
	cmd.Flags().StringVar(&clientPhone, "client-phone", "", "client phone (required)")
	cmd.Flags().StringVar(&city, "city", "", "client city")
	cmd.Flags().BoolVar(&wave, "wave", false, "offer to several artisans at once")
	_ = cmd.MarkFlagRequired("client-phone")
	return cmd
}

func newLeadAdvanceCmd() *cobra.Command {
	var (
		configPath    string
		expireOfferID string
		wave          bool
	)

	cmd := &cobra.Command{
		Use:   "advance <lead-id>",
		Short: "Run one cascade step for a lead",
		Long: `Expires the lead's overdue offers and, if no live offer remains, issues
the next round. Safe to repeat: a lead that is already settled or still
waiting reports so instead of double-advancing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}
			res, err := cascade.Advance(gormDB, notify.NewAlerter(cfg.Alerts), args[0], policyFromConfig(cfg), cascade.AdvanceOpts{
				ExpireOfferID: expireOfferID,
				Wave:          wave,
			})
			if err != nil {
				return err
			}
			printAdvanceResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().StringVar(&expireOfferID, "expire-offer", "", "offer whose timer elapsed")
	cmd.Flags().BoolVar(&wave, "wave", false, "offer to several artisans at once")
	return cmd
}

func newLeadShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Show a lead and its offer history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}

			var lead models.Lead
			if err := gormDB.Where("id = ?", args[0]).First(&lead).Error; err != nil {
				return fmt.Errorf("lead %s not found", args[0])
			}
			offers, err := ledger.ListOffers(gormDB, lead.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lead %s  [%s]\n", lead.ID, lead.Status)
			fmt.Fprintf(out, "  category: %s  city: %s  rounds used: %d\n", lead.Category, lead.City, lead.CascadeCount)
			if lead.Description != "" {
				fmt.Fprintf(out, "  %s\n", lead.Description)
			}
			if len(offers) == 0 {
				fmt.Fprintln(out, "No offers issued")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OFFER\tARTISAN\tROUND\tSTATUS\tEXPIRES")
			for _, o := range offers {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					o.ID, o.ArtisanID, o.Round, o.Status, o.ExpiresAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	return cmd
}

func printAdvanceResult(out io.Writer, res *cascade.Result) {
	fmt.Fprintf(out, "Round %d: %s (lead %s is %s)\n", res.Round, res.Outcome, res.LeadID, res.LeadStatus)
	for _, n := range res.Offers {
		fmt.Fprintf(out, "  offered to %s (%s), expires %s\n",
			n.Artisan.Name, n.Offer.ID, n.Offer.ExpiresAt.Format(time.RFC3339))
	}
}

func loadAndConnect(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}
