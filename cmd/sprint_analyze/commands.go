package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/config"
	"github.com/lucasjlepore/sprint-analyzer/curve"
	"github.com/lucasjlepore/sprint-analyzer/llmexport"
	"github.com/lucasjlepore/sprint-analyzer/pipeline"
	"github.com/lucasjlepore/sprint-analyzer/store"
)

type globalFlags struct {
	configPath string
	logLevel   string
	workers    int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "sprint_analyze",
		Short: "Detects sprint end times in recorded acceleration curves",
		Long: `Analyze .sprintzero exports or session-document dumps: locate where each
sprint effort ended, and write results, per-sprint series, charts and a FIT
activity.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	cmd.PersistentFlags().IntVar(&g.workers, "workers", 0, "Concurrent record analyses (0 = config or one per CPU)")

	cmd.AddCommand(analyzeCmd(g), notesCmd(g), exportCmd(g), inspectCmd(), runsCmd())
	return cmd
}

// load resolves the configuration and logger shared by every subcommand.
func (g *globalFlags) load(stderr io.Writer) (*config.Config, *logrus.Logger, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, nil, err
		}
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.workers > 0 {
		cfg.Workers = g.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log, stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func analyzeCmd(g *globalFlags) *cobra.Command {
	var (
		outDir       string
		format       string
		charts       bool
		storePath    string
		sessions     bool
		sessionLimit int
		overwrite    bool
		copySource   bool
	)
	cmd := &cobra.Command{
		Use:     "analyze <input>",
		Short:   "Analyze a .sprintzero file and write all artifacts",
		Example: `sprint_analyze analyze export.sprintzero --out results --format csv --store runs.db`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = cfg.Output.Format
			}
			if !cmd.Flags().Changed("charts") {
				charts = cfg.Output.Charts
			}

			res, err := pipeline.Run(cmd.Context(), pipeline.Options{
				InputPath:    args[0],
				Sessions:     sessions,
				SessionLimit: sessionLimit,
				OutDir:       outDir,
				Format:       format,
				Charts:       charts,
				StorePath:    storePath,
				Overwrite:    overwrite,
				CopySource:   copySource,
				Config:       cfg,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sprint_analyze complete\n")
			fmt.Fprintf(out, "Output dir:      %s\n", res.OutputDir)
			fmt.Fprintf(out, "Analyzed:        %d (skipped %d)\n", res.Analyzed, res.Skipped)
			fmt.Fprintf(out, "results.json:    %s\n", res.ResultsPath)
			fmt.Fprintf(out, "summary.txt:     %s\n", res.SummaryPath)
			fmt.Fprintf(out, "sprints.jsonl:   %s\n", res.RecordsPath)
			if res.FITPath != "" {
				fmt.Fprintf(out, "sprints.fit:     %s\n", res.FITPath)
			}
			if len(res.ChartPaths) > 0 {
				fmt.Fprintf(out, "charts:          %d files\n", len(res.ChartPaths))
			}
			if res.RunID != "" {
				fmt.Fprintf(out, "run id:          %s\n", res.RunID)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning:         %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	cmd.Flags().StringVar(&format, "format", "parquet", "Series format: parquet|csv")
	cmd.Flags().BoolVar(&charts, "charts", true, "Write an HTML chart per sprint")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database to record the run in")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "Input is a session-document JSON array")
	cmd.Flags().IntVar(&sessionLimit, "limit", 0, "Newest sessions to analyze with --sessions (0 = all)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", true, "Allow writing into non-empty output directories")
	cmd.Flags().BoolVar(&copySource, "copy-source", true, "Copy the input into the output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func notesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <file.sprintzero>",
		Short: "Print the detection table for a .sprintzero file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			batch, err := sprintzero.AnalyzeFile(cmd.Context(), args[0], sprintzero.Options{
				Params:  &cfg.Detection,
				Workers: cfg.Workers,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sprintzero.BuildNotes(batch.Results))
			return nil
		},
	}
}

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		outDir     string
		overwrite  bool
		copySource bool
	)
	cmd := &cobra.Command{
		Use:   "export <file.sprintzero>",
		Short: "Write only the LLM bundle (manifest.json + sprints.jsonl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := llmexport.ExportFile(cmd.Context(), args[0], outDir, llmexport.ExportOptions{
				Overwrite:      overwrite,
				CopySourceFile: copySource,
				Params:         &cfg.Detection,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Export complete\n")
			fmt.Fprintf(out, "Output dir:   %s\n", res.OutputDir)
			fmt.Fprintf(out, "Manifest:     %s\n", res.ManifestPath)
			fmt.Fprintf(out, "Records:      %s\n", res.RecordsPath)
			if res.SourceCopyPath != "" {
				fmt.Fprintf(out, "Source copy:  %s\n", res.SourceCopyPath)
			}
			fmt.Fprintf(out, "Records:      %d (skipped %d)\n", res.RecordCount, res.SkippedCount)
			fmt.Fprintf(out, "Source SHA256: %s\n", res.SourceSHA256)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Allow writing into a non-empty output directory")
	cmd.Flags().BoolVar(&copySource, "copy-source", true, "Copy the source file into the output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func inspectCmd() *cobra.Command {
	var (
		raw    bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <payload>",
		Short: "Decode a CompactCurvePayload blob and describe it",
		Long: `Decode a stored curve blob. By default the file holds the raw-DEFLATE
compressed form; pass --raw for an already inflated payload.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			if !raw {
				if data, err = curve.Inflate(data); err != nil {
					return err
				}
			}
			decode := curve.Decode
			if strict {
				decode = curve.DecodeStrict
			}
			p, err := decode(data)
			if err != nil {
				return err
			}
			return describePayload(cmd.OutOrStdout(), p, len(data))
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Input is not DEFLATE-compressed")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject payloads with trailing bytes")
	return cmd
}

func describePayload(w io.Writer, p *curve.Payload, size int) error {
	accel := curve.Load(curve.Acceleration, p.Acceleration)
	gyro := curve.Load(curve.Gyroscope, p.Gyroscope)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "version\t%d\n", p.Version)
	fmt.Fprintf(tw, "size\t%d bytes\n", size)
	fmt.Fprintf(tw, "acceleration\t%d samples, %.2fs\n", accel.Len(), accel.Duration())
	fmt.Fprintf(tw, "gyroscope\t%d samples, %.2fs\n", gyro.Len(), gyro.Duration())
	if p.Version >= 3 {
		fmt.Fprintf(tw, "smoothed acceleration\t%d samples\n", len(p.SmoothedAcceleration))
		fmt.Fprintf(tw, "cycle amplitudes\t%d\n", len(p.CycleAmplitudes))
	}
	if p.TrailingBytes > 0 {
		fmt.Fprintf(tw, "trailing bytes\t%d\n", p.TrailingBytes)
	}
	return tw.Flush()
}

func runsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored analysis runs, or show one run's sprints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(args) == 0 {
				runs, err := s.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tANALYZED\tSKIPPED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
						r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.Analyzed, r.Skipped)
				}
				return tw.Flush()
			}

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := s.Results(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "run %s (%s, threshold ratio %.2f)\n", run.ID, run.Source, run.Params.ThresholdRatio)
			fmt.Fprintln(tw, "#\tDATE\tDIST\tFORWARD\tBACKWARD\tDECISION\tFINAL")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%dm\t%.2fs\t%.2fs\t%s\t%.2fs\n",
					r.Index, r.Date, r.Distance, r.ForwardDuration, r.BackwardDuration,
					strings.ToUpper(r.Decision.String()), r.FinalDuration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "store", "sprints.db", "SQLite database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Most recent runs to list (0 = all)")
	return cmd
}
