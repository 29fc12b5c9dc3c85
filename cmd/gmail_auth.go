package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fmuoria/resume-analyzer/internal/ingestion"
)

var gmailAuthCmd = &cobra.Command{
	Use:   "gmail-auth",
	Short: "Authorise Gmail access and store the OAuth token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.close()

		if err := ingestion.AuthorizeGmail(cmd.Context(), c.cfg.Gmail.Credentials, c.cfg.Gmail.Token,
			cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", c.cfg.Gmail.Token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gmailAuthCmd)

	gmailAuthCmd.Flags().String("credentials", "", "OAuth client credentials file (default credentials.json)")
	gmailAuthCmd.Flags().String("token", "", "where to store the token (default token.json)")

	mustBind(viper.BindPFlag("gmail.credentials", gmailAuthCmd.Flags().Lookup("credentials")))
	mustBind(viper.BindPFlag("gmail.token", gmailAuthCmd.Flags().Lookup("token")))
}
