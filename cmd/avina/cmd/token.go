package cmd

import (
	"fmt"

	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/spf13/cobra"
)

var tokenUser uint32

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := st.Users.GetByID(ctx, tokenUser)
		if err != nil {
			return fmt.Errorf("get user %d: %w", tokenUser, err)
		}
		a := auth.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
		token, err := a.GenerateAccessToken(user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Uint32Var(&tokenUser, "user", 0, "id of the user the token is issued for")
	tokenCmd.MarkFlagRequired("user")
}
