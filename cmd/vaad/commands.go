package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yairkad/vaad-bayit-sub000/api"
	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/export"
	"github.com/Yairkad/vaad-bayit-sub000/invite"
)

// =============================================================================
// MATERIALIZE
// =============================================================================

func materializeCmd(flags *globalFlags) *cobra.Command {
	var building, month string

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Create the month's payment rows for a building",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := adminScope(building)
			if err != nil {
				return err
			}
			m, err := monthOrCurrent(month)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := billing.NewMaterializer(store).Materialize(cmd.Context(), scope, m)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			for _, t := range report.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "  skipped: %s (apartment %s)\n", t.FullName, t.Apartment)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&building, "building", "", "building ID")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")

	return cmd
}

// =============================================================================
// EXPORT
// =============================================================================

func exportCmd(flags *globalFlags) *cobra.Command {
	var building, month, kind, format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a month's payments or expenses as CSV or printable HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := adminScope(building)
			if err != nil {
				return err
			}
			m, err := monthOrCurrent(month)
			if err != nil {
				return err
			}
			if kind != "payments" && kind != "expenses" {
				return fmt.Errorf("--kind must be payments or expenses, got %q", kind)
			}
			if format != "csv" && format != "html" {
				return fmt.Errorf("--format must be csv or html, got %q", format)
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var buf bytes.Buffer
			if err := writeExport(cmd.Context(), &buf, store, scope.BuildingID, m, kind, format); err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&building, "building", "", "building ID")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&kind, "kind", "payments", "payments or expenses")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func writeExport(ctx context.Context, buf *bytes.Buffer, store billing.Store, buildingID billing.BuildingID, month billing.Month, kind, format string) error {
	building, err := store.GetBuilding(ctx, buildingID)
	if err != nil {
		return fmt.Errorf("failed to get building %s: %w", buildingID, err)
	}
	header := export.HeaderOf(*building)

	if kind == "expenses" {
		expenses, err := store.ListExpenses(ctx, buildingID)
		if err != nil {
			return err
		}
		rows := export.ExpenseRows(billing.DueExpenses(expenses, month))
		if format == "html" {
			return export.ExpensesPrintHTML(buf, header, month, rows)
		}
		return export.ExpensesCSV(buf, rows)
	}

	payments, err := store.ListPayments(ctx, buildingID, billing.PaymentFilter{Month: &month})
	if err != nil {
		return err
	}
	tenants, err := store.ListTenants(ctx, buildingID)
	if err != nil {
		return err
	}
	rows := export.PaymentRows(payments, tenants)
	if format == "html" {
		return export.PaymentsPrintHTML(buf, header, month, rows)
	}
	return export.PaymentsCSV(buf, rows)
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "seed <scenario>",
		Short:     "Reset the database and load a demo scenario",
		Args:      cobra.ExactArgs(1),
		ValidArgs: api.ScenarioIDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			handler := api.NewHandler(store, invite.NewService(store, cfg.InviteTTL))
			buildingID, err := handler.Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s into building %s\n", args[0], buildingID)
			return nil
		},
	}
	return cmd
}

// =============================================================================
// TOKEN
// =============================================================================

func tokenCmd(flags *globalFlags) *cobra.Command {
	var building, user, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a JWT for a building scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := billing.BuildingScope{
				BuildingID: billing.BuildingID(building),
				UserID:     billing.UserID(user),
				Role:       billing.Role(role),
			}
			switch scope.Role {
			case billing.RoleAdmin, billing.RoleCommittee, billing.RoleTenant:
			default:
				return fmt.Errorf("--role must be admin, committee or tenant, got %q", role)
			}
			if scope.Role != billing.RoleAdmin {
				if err := scope.Validate(); err != nil {
					return fmt.Errorf("--building is required for role %s", role)
				}
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			token, err := auth.NewToken(scope, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&building, "building", "", "building ID (optional for admin)")
	cmd.Flags().StringVar(&user, "user", "cli", "user ID (token subject)")
	cmd.Flags().StringVar(&role, "role", "committee", "admin, committee or tenant")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func monthOrCurrent(s string) (billing.Month, error) {
	if s == "" {
		return billing.MonthOf(time.Now().UTC()), nil
	}
	return billing.ParseMonth(s)
}
