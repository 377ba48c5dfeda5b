package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ids"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

func newArtisanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artisan",
		Short: "Artisan management commands",
	}

	cmd.AddCommand(newArtisanAddCmd())
	cmd.AddCommand(newArtisanListCmd())
	cmd.AddCommand(newArtisanTopupCmd())
	cmd.AddCommand(newArtisanVerifyCmd())
	cmd.AddCommand(newArtisanSuspendCmd())
	return cmd
}

func newArtisanAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
		phone      string
		category   string
		balance    int
		lat, lng   float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new artisan",
		Long:  "Registers an artisan in the candidate pool. New artisans start active but unverified; verify them before they can accept leads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}
			id, err := ids.New("art")
			if err != nil {
				return err
			}
			a := models.Artisan{
				ID:       id,
				Name:     name,
				Phone:    phone,
				Category: category,
				Active:   true,
				Balance:  balance,
			}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				a.Latitude = &lat
				a.Longitude = &lng
			}
			if err := gormDB.Create(&a).Error; err != nil {
				return fmt.Errorf("create artisan: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Artisan %s registered (balance %d, unverified)\n", a.ID, a.Balance)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().StringVar(&name, "name", "", "artisan name (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "artisan phone")
	cmd.Flags().StringVar(&category, "category", "plumbing", "job category served")
	cmd.Flags().Float64Var(&lat, "lat", 0, "workshop latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "workshop longitude")
	cmd.Flags().IntVar(&balance, "balance", 0, "initial credit balance")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newArtisanListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artisans",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}
			var artisans []models.Artisan
			if err := gormDB.Order("created_at ASC").Find(&artisans).Error; err != nil {
				return fmt.Errorf("list artisans: %w", err)
			}
			if len(artisans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No artisans registered")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tBALANCE\tSTATE")
			for _, a := range artisans {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					a.ID, a.Name, a.Category, a.Balance, artisanState(a))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	return cmd
}

func artisanState(a models.Artisan) string {
	switch {
	case a.Suspended:
		return "suspended"
	case !a.Active:
		return "inactive"
	case !a.Verified:
		return "unverified"
	default:
		return "active"
	}
}

func newArtisanTopupCmd() *cobra.Command {
	var (
		configPath string
		amount     int
	)

	cmd := &cobra.Command{
		Use:   "topup <artisan-id>",
		Short: "Add credits to an artisan's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount < 1 {
				return fmt.Errorf("amount must be >= 1")
			}
			_, gormDB, err := loadAndConnect(configPath)
			if err != nil {
				return err
			}

			// Arithmetic in the database, same as the debit on acceptance;
			// a topup racing a debit never loses either update.
			result := gormDB.Model(&models.Artisan{}).
				Where("id = ?", args[0]).
				Update("balance", gorm.Expr("balance + ?", amount))
			if result.Error != nil {
				return fmt.Errorf("topup: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("artisan %s not found", args[0])
			}

			var a models.Artisan
			if err := gormDB.Where("id = ?", args[0]).First(&a).Error; err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Artisan %s balance is now %d\n", a.ID, a.Balance)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().IntVar(&amount, "amount", 1, "credits to add")
	return cmd
}

func newArtisanVerifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "verify <artisan-id>",
		Short: "Mark an artisan's credentials as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setArtisanFlag(cmd, configPath, args[0], "verified", true, "verified")
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	return cmd
}

func newArtisanSuspendCmd() *cobra.Command {
	var (
		configPath string
		lift       bool
	)

	cmd := &cobra.Command{
		Use:   "suspend <artisan-id>",
		Short: "Suspend an artisan (or lift the suspension with --lift)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := "suspended"
			if lift {
				label = "reinstated"
			}
			return setArtisanFlag(cmd, configPath, args[0], "suspended", !lift, label)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().BoolVar(&lift, "lift", false, "lift the suspension instead")
	return cmd
}

func setArtisanFlag(cmd *cobra.Command, configPath, artisanID, column string, value bool, label string) error {
	_, gormDB, err := loadAndConnect(configPath)
	if err != nil {
		return err
	}
	result := gormDB.Model(&models.Artisan{}).
		Where("id = ?", artisanID).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("update artisan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("artisan %s not found", artisanID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Artisan %s %s\n", artisanID, label)
	return nil
}
