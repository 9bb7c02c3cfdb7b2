// Package cli implements the smcli command tree.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/config"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/logging"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	exitOK        = 0
	exitGeneric   = 1
	exitUsage     = 2
	exitNetwork   = 3
	exitHTTP      = 4
	exitCancelled = 5
)

type rootFlags struct {
	ConfigPath string
	Secure     bool
	Timeout    time.Duration
	LogLevel   string
	JQ         string
	DryRun     bool
	Compact    bool
}

type app struct {
	flags  rootFlags
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	// transport overrides the net/http transport when set.
	transport transport.HTTPClient
	store     *config.CredentialStore
}

// Execute runs smcli with args.
func Execute(ctx context.Context, args []string) error {
	a := &app{
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     os.Stdin,
		store:  config.NewCredentialStore(),
	}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) error {
	a.errOut = logging.SyncWriter(a.errOut)
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetIn(a.in)
	return root.ExecuteContext(ctx)
}

func (a *app) newRootCmd() *cobra.Command {
	a.flags = rootFlags{}

	root := &cobra.Command{
		Use:           "smcli",
		Short:         "Send requests to a StackMob application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.ConfigPath, "config", "c", "", "YAML config file (env STACKMOB_* overrides it)")
	pf.BoolVar(&a.flags.Secure, "secure", false, "Use https")
	pf.DurationVar(&a.flags.Timeout, "timeout", 0, "Per-request timeout (e.g. 10s)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&a.flags.JQ, "jq", "", "jq expression applied to the response")
	pf.BoolVar(&a.flags.DryRun, "dry-run", false, "Print the resolved request instead of sending it")
	pf.BoolVar(&a.flags.Compact, "compact", false, "Print compact JSON")

	root.AddCommand(
		a.newRequestCmd(),
		a.newPushCmd(),
		a.newBatchCmd(),
		a.newAuthCmd(),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (a *app) loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(a.flags.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("secure") {
		cfg.Secure = a.flags.Secure
	}
	if a.flags.Timeout > 0 {
		cfg.Timeout = a.flags.Timeout
	}
	if a.flags.LogLevel != "" {
		cfg.Log.Level = a.flags.LogLevel
	}
	return cfg, nil
}

// newClient builds a client from the configuration. The returned function
// closes the client and the log file.
func (a *app) newClient(cmd *cobra.Command) (*stackmob.Client, func(), error) {
	cfg, err := a.loadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := a.store.FillPrivateKey(&cfg); err != nil && !errors.Is(err, config.ErrNoCredentials) {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	session, err := stackmob.NewOAuthSession(cfg.SessionConfig())
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log, a.errOut)
	if err != nil {
		return nil, nil, err
	}

	opts := []stackmob.Option{
		stackmob.WithLogger(logger),
		stackmob.WithTimeout(cfg.Timeout),
		stackmob.WithSecure(cfg.Secure),
	}
	if a.transport != nil {
		opts = append(opts, stackmob.WithHTTPClient(a.transport))
	}
	client := stackmob.NewClient(session, opts...)

	return client, func() {
		client.Close()
		_ = logCloser.Close()
	}, nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, sdkerr.ErrConfiguration),
		errors.Is(err, sdkerr.ErrValidation),
		errors.Is(err, sdkerr.ErrMisuse),
		errors.Is(err, sdkerr.ErrSerialization),
		errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, sdkerr.ErrTransport), errors.Is(err, sdkerr.ErrTimeout):
		return exitNetwork
	case errors.Is(err, sdkerr.ErrHTTP), errors.Is(err, sdkerr.ErrResponseParse):
		return exitHTTP
	case errors.Is(err, sdkerr.ErrCancelled), errors.Is(err, context.Canceled):
		return exitCancelled
	default:
		return exitGeneric
	}
}
