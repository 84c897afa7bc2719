package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/server"
	"github.com/indieinfra/plaza/server/auth"
)

func main() {
	log.SetPrefix("plaza: ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile | log.Lmsgprefix)

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "plaza",
		Short:         "Media asset service for the plaza app",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			log.Println("starting http server...")
			return server.StartServer(cfg)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "config.yml", "Path to the configuration file (i.e., /etc/plaza.yaml)")
	root.AddCommand(newTokenCmd(&configFile))

	return root
}

func newTokenCmd(configFile *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(subject) == "" {
				return errors.New("--subject is required")
			}

			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			token, err := auth.IssueAccessToken(&cfg.Auth, subject, ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "User id the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func loadConfig(file string) (*config.Config, error) {
	if strings.TrimSpace(file) == "" {
		return nil, errors.New("--config must not be empty")
	}

	log.Println("loading configuration...")
	cfg, err := config.LoadConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}
