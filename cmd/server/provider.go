package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/clinic-booking/internal/service"
)

func newProviderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage providers",
	}
	cmd.AddCommand(newProviderCreateCmd())
	return cmd
}

func newProviderCreateCmd() *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a provider account",
		Example: `  clinic-booking provider create --name "Dr. Sam" --slug dr-sam --whatsapp +963912345678
  PROVIDER_PASSWORD=secret clinic-booking provider create --name Salon --slug salon --phone 0912345678`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("PROVIDER_PASSWORD")
			}
			if in.Password == "" {
				return errors.New("--password or PROVIDER_PASSWORD is required")
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.providers.Register(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created provider %d (%s)\n", p.ID, p.Slug)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Slug, "slug", "", "booking page slug")
	f.StringVar(&in.Phone, "phone", "", "SMS contact number")
	f.StringVar(&in.WhatsAppNumber, "whatsapp", "", "WhatsApp number; confirmations use WhatsApp when set")
	f.StringVar(&in.Password, "password", "", "login password (or PROVIDER_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}
