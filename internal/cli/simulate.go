package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/efreitasn/stocksim/internal/catalog"
	"github.com/efreitasn/stocksim/internal/config"
	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/efreitasn/stocksim/internal/events"
	"github.com/efreitasn/stocksim/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type simulateOptions struct {
	ticks  int
	format string
}

func newSimulateCommand(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the price walk headless and print the final market",
		Long: `Load the catalog, apply a number of ticks back to back and print the
resulting instruments. Nothing is served and no time passes between ticks.

Example:
  stocksim simulate --ticks 100 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ticks < 0 {
				return fmt.Errorf("--ticks must be >= 0")
			}
			switch opts.format {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown --format %q (table, json or yaml)", opts.format)
			}

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, sync, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			defer func() { _ = sync() }()

			entries, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}

			e := engine.New(engine.Config{
				Interval:      cfg.TickInterval,
				Points:        cfg.HistoryPoints(),
				InitialCash:   cfg.InitialCash,
				CommandBuffer: cfg.CommandBuffer,
			}, engine.NewSeededWalker(cfg.Seed), events.NewLogNotifier(logger), logger)

			snap, err := simulate(cmd.Context(), e, entries, opts.ticks)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.format, newReport(snap, opts.ticks))
		},
	}
	cmd.Flags().IntVar(&opts.ticks, "ticks", 10, "number of ticks to apply after loading")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, json or yaml")
	return cmd
}

// simulate runs e just long enough to load entries and apply ticks.
func simulate(ctx context.Context, e *engine.Engine, entries []domain.CatalogEntry, ticks int) (*engine.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-e.Done()
	}()
	go e.Run(ctx)

	if _, err := e.Load(ctx, entries); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for i := 0; i < ticks; i++ {
		if err := e.Tick(ctx); err != nil {
			return nil, fmt.Errorf("tick %d: %w", i+1, err)
		}
	}
	return e.Snapshot(), nil
}

type report struct {
	Ticks       int                `json:"ticks" yaml:"ticks"`
	Cash        string             `json:"cash" yaml:"cash"`
	Instruments []reportInstrument `json:"instruments" yaml:"instruments"`
}

type reportInstrument struct {
	Name       string  `json:"name" yaml:"name"`
	Price      string  `json:"price" yaml:"price"`
	Change     string  `json:"change" yaml:"change"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Quantity   int64   `json:"quantity" yaml:"quantity"`
}

func newReport(snap *engine.Snapshot, ticks int) report {
	r := report{Ticks: ticks, Cash: snap.Cash.String()}
	for _, inst := range snap.Instruments() {
		r.Instruments = append(r.Instruments, reportInstrument{
			Name:       inst.Name,
			Price:      inst.Price.String(),
			Change:     inst.Change.Round(2).String(),
			Volatility: inst.Volatility,
			Quantity:   inst.Quantity,
		})
	}
	return r
}

func render(w io.Writer, format string, r report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPRICE\tCHANGE%\tVOLATILITY\tQUANTITY")
	for _, inst := range r.Instruments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%d\n", inst.Name, inst.Price, inst.Change, inst.Volatility, inst.Quantity)
	}
	fmt.Fprintf(tw, "\ncash: %s after %d ticks\n", r.Cash, r.Ticks)
	return tw.Flush()
}
