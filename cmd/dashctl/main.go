package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"routinedash/internal/apiclient"
	"routinedash/internal/mockdata"
	"routinedash/pkg/config"
	"routinedash/pkg/logger"
)

var Version = "dev"

// globalOpts 所有子命令共享的连接参数
type globalOpts struct {
	apiURL  string
	userID  string
	token   string
	timeout time.Duration
	verbose bool
}

func (o *globalOpts) client() (*apiclient.Client, *zap.Logger) {
	log := logger.NewCLILogger(o.verbose)
	opts := []apiclient.Option{apiclient.WithLogger(log)}
	if o.token != "" {
		opts = append(opts, apiclient.WithToken(o.token))
	}
	return apiclient.New(o.apiURL, o.timeout, opts...), log
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	rootCmd := &cobra.Command{
		Use:           "dashctl",
		Short:         "dashctl - command line access to the routine dashboard backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", config.GetEnv("API_BASE_URL", "http://localhost:8000"), "Backend base URL")
	flags.StringVarP(&opts.userID, "user", "u", config.GetEnv("DEMO_USER_ID", mockdata.DefaultUser), "User id")
	flags.StringVar(&opts.token, "token", os.Getenv("API_TOKEN"), "Bearer token")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(tasksCmd(opts))
	rootCmd.AddCommand(toggleCmd(opts))
	rootCmd.AddCommand(progressCmd(opts))
	rootCmd.AddCommand(planCmd(opts))
	rootCmd.AddCommand(insightCmd(opts))

	return rootCmd
}
