package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lazyprep/adapters/loader"
	"lazyprep/adapters/runstore"
	"lazyprep/app"
	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/internal"
	"lazyprep/internal/config"
	"lazyprep/internal/report"
)

// globalFlags are shared by every command
type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "lazyprep",
		Short:         "Adaptive preprocessing for tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (default from config or LOG_LEVEL)")

	rootCmd.AddCommand(
		newRunCmd(g),
		newAnalyzeCmd(g),
		newReportCmd(g),
		newRunsCmd(g),
		newConfigCmd(),
	)
	return rootCmd
}

// setup loads the configuration and builds the logger it names
func (g *globalFlags) setup() (*config.Config, *internal.Logger, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, err
	}
	level := g.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = cfg.Pipeline.LogLevel
	}
	logger := internal.NewLogger(internal.ParseLogLevel(level))
	internal.DefaultLogger = logger
	return cfg, logger, nil
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var target, output, metadataOut, storeDSN string
	var stages []string

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Clean, analyze and transform a CSV or Excel file",
		Long: `Run the full preprocessing pipeline: load, analyze, then the configured stages
(cleaner, text_processor, outlier, imputer, normalizer by default).

Example: lazyprep run weather.csv --target WeatherType --output out/weather.csv --metadata out/meta.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if len(stages) > 0 {
				cfg.Pipeline.Stages = stages
			}
			if output == "" {
				output = cfg.Pipeline.Output
			}
			if storeDSN == "" {
				storeDSN = cfg.Pipeline.StoreDSN
			}

			p, err := app.New(args[0], target, app.WithConfig(cfg), app.WithLogger(logger))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out, err := p.Run(ctx)
			if err != nil {
				return err
			}

			if output != "" {
				if err := loader.Write(out, output); err != nil {
					return err
				}
				logger.Info("Wrote %d rows x %d columns to %s", out.NumRows(), out.NumCols(), output)
			}
			if err := writeMetadata(cmd.OutOrStdout(), p, metadataOut); err != nil {
				return err
			}
			if storeDSN != "" {
				if err := storeRun(ctx, storeDSN, logger, p.Metadata(), out.NumRows(), out.NumCols()); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d rows x %d columns, %d warnings\n",
				p.Metadata().RunID, out.NumRows(), out.NumCols(), len(p.Metadata().Warnings))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target column (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the transformed table to this .csv or .xlsx path")
	cmd.Flags().StringVar(&metadataOut, "metadata", "", "Write metadata JSON to this path (- for stdout)")
	cmd.Flags().StringVar(&storeDSN, "store", "", "Persist the run: postgres://... or a SQLite path")
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "Override the stage order, e.g. cleaner,outlier,imputer")
	return cmd
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Classify columns and fit distributions, printing metadata JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			p, err := app.New(args[0], target, app.WithConfig(cfg), app.WithLogger(logger))
			if err != nil {
				return err
			}
			if _, err := p.Analyze(cmd.Context()); err != nil {
				return err
			}
			body, err := p.MetadataJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target column (default from config)")
	return cmd
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var format, out, storeDSN, runID string

	cmd := &cobra.Command{
		Use:   "report [metadata.json]",
		Short: "Render run metadata as Markdown or HTML",
		Long: `Render a metadata JSON file, or a stored run selected with --store and --run.

Example: lazyprep report out/meta.json --format html --out out/report.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			md, err := loadMetadata(cmd.Context(), args, storeDSN, runID, logger)
			if err != nil {
				return err
			}
			body, err := report.Render(md, f)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return writeFile(out, body)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default stdout)")
	cmd.Flags().StringVar(&storeDSN, "store", "", "Run store DSN")
	cmd.Flags().StringVar(&runID, "run", "", "Run id to render from the store")
	return cmd
}

func newRunsCmd(g *globalFlags) *cobra.Command {
	var storeDSN string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if storeDSN == "" {
				storeDSN = cfg.Pipeline.StoreDSN
			}
			if storeDSN == "" {
				return fmt.Errorf("no run store: pass --store or set pipeline.store_dsn")
			}

			s, err := runstore.Open(cmd.Context(), storeDSN, logger)
			if err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCREATED\tSOURCE\tTARGET\tROWS\tCOLS\tWARNINGS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.SourcePath, r.TargetColumn, r.RowCount, r.ColumnCount, r.WarningCount)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&storeDSN, "store", "", "Run store DSN (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "lazyprep.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

func writeMetadata(w io.Writer, p *app.Pipeline, path string) error {
	if path == "" {
		return nil
	}
	body, err := p.MetadataJSON()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = fmt.Fprintln(w, string(body))
		return err
	}
	return writeFile(path, body)
}

func storeRun(ctx context.Context, dsn string, logger *internal.Logger, md *metadata.Pipeline, rows, cols int) error {
	s, err := runstore.Open(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(ctx, md, rows, cols)
}

func loadMetadata(ctx context.Context, args []string, dsn, runID string, logger *internal.Logger) (*metadata.Pipeline, error) {
	if runID != "" {
		if dsn == "" {
			return nil, fmt.Errorf("--run needs --store")
		}
		id, err := core.ParseRunID(runID)
		if err != nil {
			return nil, err
		}
		s, err := runstore.Open(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.GetMetadata(ctx, id)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("pass a metadata JSON file or --store with --run")
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	md, err := metadata.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", args[0], err)
	}
	return md, nil
}

func writeFile(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(string(body), "\n") {
		body = append(body, '\n')
	}
	return os.WriteFile(path, body, 0o644)
}
