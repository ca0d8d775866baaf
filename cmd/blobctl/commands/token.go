package commands

import (
	"fmt"
	"time"

	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	var subject string
	var ttl time.Duration
	var scopes []string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AuthSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not configured")
			}
			for _, s := range scopes {
				if s != auth.ScopeRead && s != auth.ScopeWrite {
					return fmt.Errorf("unknown scope %q: use %s or %s", s, auth.ScopeRead, auth.ScopeWrite)
				}
			}

			tokens, err := auth.NewTokenService(a.cfg.AuthSecret, a.logger)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(subject, scopes, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. a service or user name")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeRead}, "granted scopes: "+auth.ScopeRead+", "+auth.ScopeWrite)
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
