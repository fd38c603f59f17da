// Package main is the entry point for alannd, the attention and
// inference-control core's standalone daemon/CLI. It drives a Reasoner's
// cycle loop, persists its state across restarts, and surfaces the event
// bus to an operator the way the core itself never does internally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/normanking/alann/internal/bus"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/config"
	"github.com/normanking/alann/internal/cycle"
	"github.com/normanking/alann/internal/logging"
	"github.com/normanking/alann/internal/premise"
	"github.com/normanking/alann/internal/priority"
	"github.com/normanking/alann/internal/rules"
	"github.com/normanking/alann/internal/snapshot"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
)

var (
	version      = "0.1.0"
	cfgPath      string
	snapshotPath string
	verbose      bool
	log          *logging.Logger
	events       zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alannd",
		Short: "alannd - attention and inference-control core daemon",
		Long: `alannd drives the reasoning core's cycle loop outside of a test
harness: it loads a persisted snapshot, runs cycles, reports bus events, and
saves the snapshot back out.

Run continuously:  alannd run
Run N cycles:       alannd step -n 100
Inspect a snapshot: alannd snapshot load
Show configuration: alannd config show`,
		PersistentPreRunE: initLogging,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.alann/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "snapshot file path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("alannd v%s\n", version)
		},
	})

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(stepCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging mirrors the control core's own session-start convention: a
// timestamped file logger for operational output, plus a zerolog console
// writer dedicated to the event bus stream the core itself never prints.
func initLogging(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".alann", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to create log directory: %v\n", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("alannd_%s.log", timestamp))

	var logCfg *logging.Config
	if verbose {
		logCfg = logging.VerboseConfig()
	} else {
		logCfg = logging.DefaultConfig()
	}
	logCfg.FilePath = logFile

	log = logging.New(logCfg)
	logging.SetGlobal(log)
	log.Info("alannd session started, logging to %s", logFile)

	events = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false}).With().Timestamp().Logger()
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return nil
}

// cliTerm is the minimal concrete term.Term this daemon constructs on its
// own behalf. internal/term's own doc comment is explicit that term
// construction and parsing are out of the control core's scope, so this
// type exists only so the daemon has something to hand snapshot.Load as a
// reconstructed term — it never implements term.CompoundTerm, since a term
// loaded this way was never decomposed into components to begin with.
type cliTerm string

func (t cliTerm) Name() string { return string(t) }

// cliCodec satisfies snapshot.TermCodec using cliTerm. Term identity is
// defined entirely by Name() equality (see term.Equal), so round-tripping
// through the bare name string is sufficient for persistence.
type cliCodec struct{}

func (cliCodec) Encode(t term.Term) string          { return t.Name() }
func (cliCodec) Decode(s string) (term.Term, error) { return cliTerm(s), nil }

// cycleClock is the real-time stand-in for rules.Timable: the control
// core's "system clock" is the cycle counter itself, advanced once per
// completed Cycle call, not wall-clock time.
type cycleClock struct{ n atomic.Int64 }

func (c *cycleClock) Time() int64 { return c.n.Load() }
func (c *cycleClock) advance()    { c.n.Add(1) }

// reasonerHandle bundles everything initReasoner wires together, so the
// run/step commands share one construction path and one teardown.
type reasonerHandle struct {
	Reasoner *cycle.Reasoner
	Bus      *bus.Bus
	Store    *snapshot.Store
	Clock    *cycleClock
}

func loadParams() (*config.Parameters, error) {
	var params *config.Parameters
	var err error
	if cfgPath != "" {
		params, err = config.LoadFromPath(cfgPath)
	} else {
		params, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if snapshotPath != "" {
		params.SnapshotPath = snapshotPath
	}
	if err := params.Validate(); err != nil {
		// ParameterOutOfRange is fatal at construction time, not a
		// recoverable condition a caller retries with different input.
		logging.Fatal("invalid configuration: %v", err)
	}
	return params, nil
}

// initReasoner constructs a fresh Reasoner wired the way the core's own
// test suite wires one (rules.Collaborators{} zero-valued: rule reasoning
// is out of this core's scope, so a standalone daemon runs the same
// attention/control loop a RuleTable-equipped caller would embed it in),
// opens the configured snapshot store, and loads any prior state into it.
func initReasoner(params *config.Parameters) (*reasonerHandle, error) {
	eventBus := bus.NewBus()
	clock := &cycleClock{}

	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](params.ConceptBagSize))
	cyclingTasks := priority.NewMap[task.Key, *task.Task](params.TaskLinkBagSize)
	premiseQueue := priority.NewMap[premise.Key, *premise.Record](params.TaskLinkBagSize)

	cache, err := cycle.NewOverflowCache(params.OverflowCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create overflow cache: %w", err)
	}
	if params.OverflowCacheSize == 0 {
		cache = nil
	}

	narID := uuid.New()
	reasonerID := uint64(time.Now().UnixNano())

	r := cycle.NewReasoner(*params, rules.Collaborators{}, eventBus, clock, store, cyclingTasks, premiseQueue, cache, reasonerID, narID)

	snapStore, err := snapshot.Open(params.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	if err := snapshot.Load(context.Background(), snapStore, r, cliCodec{}); err != nil {
		snapStore.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	clock.n.Store(r.CycleNumber())

	return &reasonerHandle{Reasoner: r, Bus: eventBus, Store: snapStore, Clock: clock}, nil
}

func (h *reasonerHandle) save(ctx context.Context) error {
	return snapshot.Save(ctx, h.Store, h.Reasoner, cliCodec{})
}

// subscribeEventLog wires a wildcard bus subscription that prints every
// reportable event to the console logger, the surface the control core
// itself never provides since Bus is the one channel it reports through
// rather than anything it prints on its own.
func subscribeEventLog(h *reasonerHandle) {
	h.Bus.Subscribe(bus.EventType(""), func(e bus.Event) {
		if e.Type != bus.EventTaskAdd || e.Reportable {
			events.Info().
				Str("type", string(e.Type)).
				Int64("cycle", e.CycleNumber).
				Str("term", e.TermKey).
				Str("details", e.Details).
				Msg("event")
		}
	})
}

func runCmd() *cobra.Command {
	var saveEvery int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reasoning cycle continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams()
			if err != nil {
				return err
			}
			h, err := initReasoner(params)
			if err != nil {
				return err
			}
			defer h.Store.Close()
			subscribeEventLog(h)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			log.Info("entering cycle loop at cycle %d", h.Reasoner.CycleNumber())
			cycles := 0
			for {
				select {
				case <-ctx.Done():
					log.Info("interrupted, saving snapshot before exit")
					return h.save(logging.DetachContext(ctx))
				default:
				}
				if err := h.Reasoner.Cycle(ctx); err != nil {
					log.Error("cycle %d failed: %v", h.Reasoner.CycleNumber(), err)
				}
				h.Clock.advance()
				cycles++
				if saveEvery > 0 && cycles%saveEvery == 0 {
					if err := h.save(ctx); err != nil {
						log.Error("periodic snapshot save failed: %v", err)
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&saveEvery, "save-every", 100, "save the snapshot every N cycles (0 disables periodic saves)")
	return cmd
}

func stepCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run a fixed number of cycles and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams()
			if err != nil {
				return err
			}
			h, err := initReasoner(params)
			if err != nil {
				return err
			}
			defer h.Store.Close()
			subscribeEventLog(h)

			ctx := context.Background()
			for i := 0; i < n; i++ {
				if err := h.Reasoner.Cycle(ctx); err != nil {
					return fmt.Errorf("cycle %d: %w", h.Reasoner.CycleNumber(), err)
				}
				h.Clock.advance()
			}

			if err := h.save(ctx); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}

			fmt.Printf("ran %d cycles, now at cycle %d (%d concepts resident, %d cycling tasks, %d queued premises)\n",
				n, h.Reasoner.CycleNumber(), h.Reasoner.Concepts.Size(), h.Reasoner.CyclingTasks.Size(), h.Reasoner.PremiseQueue.Size())
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "cycles", "n", 1, "number of cycles to run")
	return cmd
}

func reportSnapshot(params *config.Parameters, h *reasonerHandle) {
	fmt.Printf("snapshot:       %s\n", params.SnapshotPath)
	fmt.Printf("cycle number:   %d\n", h.Reasoner.CycleNumber())
	fmt.Printf("premise seq:    %d\n", h.Reasoner.PremiseSeq())
	fmt.Printf("concepts:       %d\n", h.Reasoner.Concepts.Size())
	fmt.Printf("cycling tasks:  %d\n", h.Reasoner.CyclingTasks.Size())
	fmt.Printf("queued premises: %d\n", h.Reasoner.PremiseQueue.Size())
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Load or save a persisted reasoner snapshot directly",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Load a snapshot into a scratch reasoner and report its contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams()
			if err != nil {
				return err
			}
			h, err := initReasoner(params)
			if err != nil {
				return err
			}
			defer h.Store.Close()
			reportSnapshot(params, h)
			return nil
		},
	})

	// "save" loads whatever is already persisted and writes it straight
	// back out. Since Save always deletes and reinserts every table, this
	// is the one operation that can compact a snapshot file an operator
	// has been inspecting with sqlite3 directly, without driving any
	// cycles in between.
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Reload and rewrite a snapshot in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams()
			if err != nil {
				return err
			}
			h, err := initReasoner(params)
			if err != nil {
				return err
			}
			defer h.Store.Close()
			if err := h.save(context.Background()); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			reportSnapshot(params, h)
			return nil
		},
	})

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams()
			if err != nil {
				return err
			}
			fmt.Println("alannd configuration:")
			fmt.Println("─────────────────────")
			fmt.Printf("Concept bag size:     %d\n", params.ConceptBagSize)
			fmt.Printf("Task-link bag size:   %d\n", params.TaskLinkBagSize)
			fmt.Printf("Overflow cache size:  %d\n", params.OverflowCacheSize)
			fmt.Printf("Novelty horizon:      %d\n", params.NoveltyHorizon)
			fmt.Printf("Duration:             %d\n", params.Duration)
			fmt.Printf("Volume:               %d\n", params.Volume)
			fmt.Printf("Snapshot path:        %s\n", params.SnapshotPath)
			fmt.Printf("Log file:             %s\n", params.LogFile)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			if cfgPath != "" {
				fmt.Println(cfgPath)
				return
			}
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			fmt.Println(filepath.Join(home, ".alann", "config.yaml"))
		},
	})

	return cmd
}
