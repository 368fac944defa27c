package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/microloan/pkg/auth"
	"github.com/bibbank/microloan/pkg/tlsutil"
)

// devCmd groups local development helpers. None of them talk to a server.
func devCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dev", Short: "Development credentials"}
	cmd.AddCommand(tokenCmd(), keysCmd(), certsCmd())
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret     string
		privateKey string
		issuer     string
		ttl        time.Duration
		roles      []string
	)
	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Mint a bearer token for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			cfg := auth.JWTConfig{Secret: secret, Issuer: issuer, Expiration: ttl}
			if privateKey != "" {
				pem, err := auth.LoadKeyFromFile(privateKey)
				if err != nil {
					return err
				}
				cfg.PrivateKeyPEM, cfg.Secret = pem, ""
			}
			svc, err := auth.NewJWTService(cfg)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(identity, roles...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 shared secret (JWT_SECRET of the server)")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "RS256 private key file, instead of --secret")
	cmd.Flags().StringVar(&issuer, "issuer", "bib-gateway", "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Roles to embed")
	return cmd
}

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print a fresh RSA key pair for RS256 tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			private, public, err := auth.GenerateKeyPair()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), private, public)
			return err
		},
	}
}

func certsCmd() *cobra.Command {
	var (
		dir   string
		hosts []string
	)
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Write a throwaway CA and server certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := tlsutil.GenerateDevCertificates(hosts, dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GRPC_TLS_CERT_FILE=%s\n", files.CertFile)
			fmt.Fprintf(out, "GRPC_TLS_KEY_FILE=%s\n", files.KeyFile)
			fmt.Fprintf(out, "ca_file: %s\n", files.CAFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "certs", "Output directory")
	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "Certificate hosts")
	return cmd
}
