// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/report"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
)

// probeFlags are shared by the UDP probe commands.
type probeFlags struct {
	noOperatorName bool
	noFragment     bool
}

func (p *probeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.noOperatorName, "no-operator-name", false, "do not send the Operator-Name attribute")
	cmd.Flags().BoolVar(&p.noFragment, "no-fragment", false, "do not pad the first request to force IP fragmentation")
}

func (a *app) reachabilityCommand() *cobra.Command {
	var (
		index int
		all   bool
		pf    probeFlags
	)

	cmd := &cobra.Command{
		Use:   "reachability",
		Short: "Check that configured RADIUS servers answer EAP",
		Long: `Sends an EAP conversation with made-up credentials and the reachability
client certificate. An immediate or conversation reject proves the server
and the path to it are alive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, true)
			if err != nil {
				return err
			}

			var results []*diag.Result
			if all || index < 0 {
				results, err = s.ReachabilityAll(cmd.Context(), !pf.noOperatorName, !pf.noFragment)
			} else {
				var res *diag.Result
				res, err = s.Reachability(cmd.Context(), index, !pf.noOperatorName, !pf.noFragment)
				results = append(results, res)
			}
			if err != nil {
				return err
			}
			return report.Results(cmd.OutOrStdout(), a.outputFormat(), results)
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", -1, "probe only the server at this index")
	cmd.Flags().BoolVar(&all, "all", false, "probe every configured server (default without --index)")
	pf.register(cmd)
	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var (
		l              session.Login
		method         string
		clientCertFile string
		pf             probeFlags
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run an EAP login with real credentials",
		Long: `Authenticates against one configured RADIUS server, classifies how the
conversation ended and inspects the server certificate chain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := eap.Lookup(method)
			if err != nil {
				return fmt.Errorf("%w: %q", err, method)
			}
			l.Method = m

			if clientCertFile != "" {
				if l.ClientCert, err = os.ReadFile(clientCertFile); err != nil {
					return fmt.Errorf("failed to read client certificate: %w", err)
				}
			}
			l.OperatorName = !pf.noOperatorName
			l.Fragment = !pf.noFragment

			s, err := a.session(cmd, false)
			if err != nil {
				return err
			}
			res, err := s.UDPLogin(cmd.Context(), l)
			if err != nil {
				return err
			}
			return report.Results(cmd.OutOrStdout(), a.outputFormat(), []*diag.Result{res})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&l.Index, "index", "i", 0, "index of the configured server")
	flags.StringVarP(&method, "eap", "e", "", "EAP method, e.g. EAP-TLS, PEAP-MSCHAPv2, TTLS-PAP")
	flags.StringVar(&l.Inner, "inner", "", "inner (real) identity")
	flags.StringVar(&l.Outer, "outer", "", "outer identity or realm, derived when empty")
	flags.StringVar(&l.Password, "password", "", "password of the inner identity")
	flags.StringVar(&clientCertFile, "client-cert", "", "PKCS#12 or PEM client certificate and key")
	flags.StringVar(&l.ClientCertPassword, "client-cert-password", "", "password of the client certificate key")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("eap")
	_ = cmd.MarkFlagRequired("inner")
	return cmd
}

func (a *app) tlsCACommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tls-ca HOST:PORT",
		Short: "Verify a TLS server certificate against the configured CA path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, false)
			if err != nil {
				return err
			}
			res, err := s.CAPathCheck(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.CAPath(cmd.OutOrStdout(), a.outputFormat(), res)
		},
	}
}

func (a *app) tlsClientsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tls-clients HOST:PORT",
		Short: "Check which configured client certificates a TLS server accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, false)
			if err != nil {
				return err
			}
			res, err := s.ClientCertCheck(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.ClientCerts(cmd.OutOrStdout(), a.outputFormat(), res)
		},
	}
}

func (a *app) analyzeCommand() *cobra.Command {
	var serverNames []string

	cmd := &cobra.Command{
		Use:   "analyze CHAIN.pem",
		Short: "Analyse a server certificate chain without a probe",
		Long: `Runs the chain checks over a PEM bundle as a server would present it.
Trust checks need a profile with CA files; hostname checks need expected
server names from the profile or --server-name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read chain: %w", err)
			}

			s, err := a.session(cmd, false, serverNames...)
			if err != nil {
				return err
			}
			as, err := s.AnalyzeChain(cmd.Context(), bundle)
			if err != nil {
				return err
			}
			return report.Assessment(cmd.OutOrStdout(), a.outputFormat(), as)
		},
	}

	cmd.Flags().StringSliceVar(&serverNames, "server-name", nil, "expected server name (repeatable)")
	return cmd
}
