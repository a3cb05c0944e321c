package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"socialprobe/internal/analysis"
	"socialprobe/internal/config"
	"socialprobe/internal/logging"
	"socialprobe/internal/pipeline"
	"socialprobe/pkg/models"
	"socialprobe/pkg/utils"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

const (
	exitFailed   = 1
	exitBadInput = 2
)

// options holds the parsed command line
type options struct {
	ConfigPath string
	Providers  []string
	JSON       bool
	SkipCache  bool
	Verbose    bool
	Handle     string
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command and returns its exit code, so deferred cleanup
// finishes before the process exits.
func execute(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		return exitBadInput
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		pterm.Error.Printfln("Failed to load configuration: %v", err)
		return exitFailed
	}
	if !opts.Verbose {
		cfg.Logging.Level = "warn"
	}
	if err := logging.InitializeLogging(cfg); err != nil {
		pterm.Error.Printfln("Failed to initialize logging: %v", err)
		return exitFailed
	}
	defer logging.CloseLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, opts)
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	fs.StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "Path to configuration file")
	fs.StringSliceVar(&opts.Providers, "providers", nil, "Provider ids to try, in order (overrides providers.order)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the account record as JSON")
	fs.BoolVar(&opts.SkipCache, "skip-cache", false, "Ignore cached results")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log provider attempts")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "USAGE:\n")
		fmt.Fprintf(os.Stderr, "  probe [flags] <handle or profile url>\n\n")
		fmt.Fprintf(os.Stderr, "FLAGS:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  probe nasa\n")
		fmt.Fprintf(os.Stderr, "  probe --providers brightdata-profile --json https://instagram.com/nasa/\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, fmt.Errorf("expected exactly one handle, got %d", fs.NArg())
	}
	opts.Handle = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, cfg *config.Config, opts options) int {
	logger := logging.GetGlobalLogger()

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		pterm.Error.Printfln("Failed to build provider pipeline: %v", err)
		return exitFailed
	}

	var cache analysis.Cache
	if cfg.Cache.Enabled {
		client := utils.NewRedisClient(cfg)
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			pterm.Warning.Printfln("Cache unavailable, continuing without it: %v", err)
		} else {
			cache = client
		}
	}

	var spinner *pterm.SpinnerPrinter
	if !opts.JSON {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Fetching %s", opts.Handle))
	}

	outcome, err := analysis.NewService(p, cache, logger).Analyze(ctx, analysis.Request{
		Handle:    opts.Handle,
		Providers: opts.Providers,
		SkipCache: opts.SkipCache,
	})
	if spinner != nil {
		if err != nil {
			spinner.Fail("No provider returned a usable record")
		} else {
			spinner.Success(fmt.Sprintf("Fetched @%s", outcome.Handle))
		}
	}

	if err != nil {
		printFailure(err, opts.JSON)
		if pipeline.IsBadInput(err) {
			return exitBadInput
		}
		return exitFailed
	}

	if opts.JSON {
		account := *outcome.Account
		account.RawData = nil
		data, err := json.MarshalIndent(account, "", "  ")
		if err != nil {
			pterm.Error.Printfln("Failed to encode result: %v", err)
			return exitFailed
		}
		fmt.Println(string(data))
		return 0
	}

	printAccount(outcome)
	return 0
}

func printFailure(err error, asJSON bool) {
	var failed *pipeline.AllProvidersFailedError
	if !errors.As(err, &failed) {
		pterm.Error.Println(err.Error())
		return
	}

	if asJSON {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"error":    failed.Class().Error(),
			"attempts": failed.Attempts,
		}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	rows := pterm.TableData{{"Provider", "Reason", "Duration", "Error"}}
	for _, a := range failed.Attempts {
		rows = append(rows, []string{a.Provider, string(a.Reason), utils.FormatDuration(a.Duration), a.Error})
	}
	pterm.Error.Println(failed.Class().Error())
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printAccount(outcome *analysis.Outcome) {
	a := outcome.Account

	source := a.Provider
	if outcome.Cached {
		source += " (cached)"
	}
	pterm.DefaultSection.Printfln("@%s", a.Username)

	rows := pterm.TableData{
		{"Field", "Value"},
		{"Name", a.FullName},
		{"Verified", fmt.Sprintf("%t", a.Verified)},
		{"Private", fmt.Sprintf("%t", a.IsPrivate)},
		{"Business", fmt.Sprintf("%t", a.IsBusiness)},
		{"Followers", fmt.Sprintf("%d", a.Followers)},
		{"Following", fmt.Sprintf("%d", a.Following)},
		{"Posts", fmt.Sprintf("%d", a.Posts)},
		{"Avg likes", metricText(a.AvgLikes, "")},
		{"Avg comments", metricText(a.AvgComments, "")},
		{"Engagement rate", metricText(a.EngagementRate, "%")},
		{"Bot score", fmt.Sprintf("%d", a.BotScore)},
		{"Niche", a.Niche},
		{"Provider", source},
		{"Fetched at", a.FetchedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if len(a.SuspiciousPatterns) > 0 {
		rows = append(rows, []string{"Patterns", strings.Join(a.SuspiciousPatterns, ", ")})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	if a.HasWarning() {
		pterm.Warning.Println(*a.DataFetchWarning)
	}
	for _, attempt := range outcome.Attempts {
		pterm.Info.Printfln("%s failed first: %s", attempt.Provider, attempt.Reason)
	}
}

func metricText(m models.Metric, unit string) string {
	if !m.IsKnown() {
		return "unknown"
	}
	return m.String() + unit
}
