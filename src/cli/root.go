// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/report"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// ErrRealmRequired is returned when neither --realm nor the profile names
// the realm under test.
var ErrRealmRequired = errors.New("cli: realm is required (--realm or profile)")

// SessionFactory builds the session a command runs in.
type SessionFactory func(ctx context.Context, cfg *config.Config, run config.Run) (*session.Session, error)

// Option customises the command tree.
type Option func(*app)

// WithSessionFactory replaces [config.Config.NewSession].
func WithSessionFactory(f SessionFactory) Option {
	return func(a *app) { a.newSession = f }
}

// app carries the global flags and collaborators of one invocation.
type app struct {
	version string
	log     logger.Logger

	configPath  string
	profilePath string
	realm       string
	format      string
	debug       bool

	newSession SessionFactory
	crlCache   *x509chain.CRLCache
}

// Execute builds the command tree and runs it with the process arguments.
// Errors are returned, not printed.
func Execute(ctx context.Context, version string, log logger.Logger, opts ...Option) error {
	return NewRootCommand(version, log, opts...).ExecuteContext(ctx)
}

// NewRootCommand returns the root command with every subcommand attached.
func NewRootCommand(version string, log logger.Logger, opts ...Option) *cobra.Command {
	a := &app{
		version: version,
		log:     log,
		newSession: func(ctx context.Context, cfg *config.Config, run config.Run) (*session.Session, error) {
			return cfg.NewSession(ctx, run)
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           posix.GetExecutableName(),
		Short:         "EAP/RADIUS server diagnostics",
		Long:          "Probes RADIUS servers with EAP logins and TLS connections and reports what is wrong with them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := report.ParseFormat(a.format); err != nil {
				return err
			}
			if d, ok := a.log.(interface{ SetDebug(bool) }); ok {
				d.SetDebug(a.debug)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.crlCache != nil {
				a.log.Debugf("%s", a.crlCache.Stats())
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (JSON or YAML), defaults to $"+config.EnvConfigFile)
	flags.StringVarP(&a.profilePath, "profile", "p", "", "profile with realm, CA files and expected server names")
	flags.StringVarP(&a.realm, "realm", "r", "", "realm under test, defaults to the profile realm")
	flags.StringVarP(&a.format, "format", "f", string(report.FormatTable), "output format: json, table or tree")
	flags.BoolVar(&a.debug, "debug", false, "log redacted handshake traces and tool output")

	root.AddCommand(
		a.reachabilityCommand(),
		a.loginCommand(),
		a.tlsCACommand(),
		a.tlsClientsCommand(),
		a.analyzeCommand(),
	)

	return root
}

// session loads the configuration and profile and builds the session.
// serverNames, when given, replace the profile's expected names.
func (a *app) session(cmd *cobra.Command, needRealm bool, serverNames ...string) (*session.Session, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}

	var profile *diag.Profile
	if a.profilePath != "" {
		if profile, err = config.LoadProfile(a.profilePath); err != nil {
			return nil, err
		}
	}
	if len(serverNames) > 0 {
		if profile == nil {
			profile = &diag.Profile{}
		}
		profile.ServerNames = serverNames
	}

	realm := a.realm
	if realm == "" && profile != nil {
		realm = profile.Realm
	}
	if needRealm && realm == "" {
		return nil, ErrRealmRequired
	}

	a.crlCache = cfg.NewCRLCache()
	return a.newSession(cmd.Context(), cfg, config.Run{
		Realm:    realm,
		Profile:  profile,
		Logger:   a.log,
		Version:  a.version,
		CRLCache: a.crlCache,
	})
}

func (a *app) outputFormat() report.Format {
	f, _ := report.ParseFormat(a.format)
	return f
}
