package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/contentscan/internal/log"
	"github.com/albertocavalcante/contentscan/pkg/content"
	"github.com/albertocavalcante/contentscan/pkg/watch"
)

var watchFlags struct {
	config        string
	debounce      int
	confirmWrites bool
	json          bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [pattern...]",
	Short: "Watch content patterns and report changed files",
	Long: `Resolves the patterns, performs an initial scan and then watches the
matching filesystem regions, printing each batch of changed files as it
settles.

Example output:

  $ contentscan watch 'src/**/*.html' '!src/vendor/**'

  contentscan: tracking 312 files across 2 specs
  contentscan: ready

  [14:32:15] ~ src/pages/index.html
  [14:32:15] ~ src/pages/pricing.html

Press Ctrl+C to stop watching.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.config, "config", "",
		"Resolve relative patterns against this config file's directory")
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 500,
		"Debounce window in milliseconds")
	watchCmd.Flags().BoolVar(&watchFlags.confirmWrites, "confirm-writes", false,
		"Hash written files and suppress writes that changed no bytes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")

	rootCmd.AddCommand(watchCmd)
}

// WatchEvent is the JSON line emitted per settled change batch.
type WatchEvent struct {
	Time  string   `json:"time"`
	Files []string `json:"files"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	tracker, err := newTracker(args, watchFlags.config)
	if err != nil {
		return err
	}

	// The initial pass seeds the watermarks so the watch loop reports
	// deltas only.
	marks := content.NewModTimes()
	initial, err := tracker.ChangedFiles(marks)
	if err != nil {
		return err
	}

	specs := tracker.Specs()
	if !watchFlags.json {
		fmt.Printf("contentscan: tracking %d files across %d specs\n", len(initial), len(specs))
	}

	// Triggers are advisory; every batch runs a watermark scan and only
	// its results are reported.
	onChange := newScanHandler(tracker, marks)

	w, err := watch.New(watch.Config{
		Specs:         specs,
		OnChange:      onChange,
		Debounce:      time.Duration(watchFlags.debounce) * time.Millisecond,
		ConfirmWrites: watchFlags.confirmWrites,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// Setup signal handling for graceful shutdown
	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if !watchFlags.json {
		fmt.Println("contentscan: ready")
	}
	return w.Run(ctx)
}

// newScanHandler returns the flush handler behind the watch loop. Flush
// batches can arrive while a slow scan is still running, and the watermark
// table takes one writer at a time, so the handler serializes.
func newScanHandler(tracker *content.Tracker, marks *content.ModTimes) func(paths []string) {
	logger := log.Component("cli")

	// scanMu prevents concurrent scans over the shared watermark table.
	var scanMu sync.Mutex
	return func(paths []string) {
		logger.Debug("change batch settled", "events", len(paths))

		scanMu.Lock()
		defer scanMu.Unlock()
		changed, err := tracker.ChangedFiles(marks)
		if err != nil {
			logger.Error("scan failed", "error", err)
			return
		}
		if len(changed) == 0 {
			return
		}
		reportChanges(changed.Sorted())
	}
}

func reportChanges(files []string) {
	if watchFlags.json {
		_ = outputJSON(WatchEvent{
			Time:  time.Now().Format(time.RFC3339),
			Files: files,
		})
		return
	}

	stamp := time.Now().Format("15:04:05")
	for _, file := range files {
		fmt.Printf("[%s] ~ %s\n", stamp, file)
	}
}
