package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/adapters/file"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <model-file>",
	Short: "Run a model headless",
	Long:  `Runs one process of the model locally and prints every snapshot as one JSON line on stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticks, _ := cmd.Flags().GetInt64("ticks")
		delay, _ := cmd.Flags().GetDuration("delay")
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = "warn"
		}
		lvl, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runHeadless(ctx, args[0], ticks, delay, cmd.OutOrStdout(), atsim.WithLogger(logging.New(lvl)))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int64("ticks", 10, "Number of ticks to compute")
	runCmd.Flags().Duration("delay", 0, "Pause between ticks")
}

func runHeadless(ctx context.Context, path string, ticks int64, delay time.Duration, out io.Writer, opts ...atsim.Option) error {
	model, err := file.ReadModel(path)
	if err != nil {
		return err
	}
	models, err := memory.NewModels(model)
	if err != nil {
		return err
	}
	if ticks <= 0 {
		return fmt.Errorf("%w: ticks must be positive", domain.ErrInvalidArgument)
	}

	// The buffer holds the whole run so no snapshot is dropped.
	opts = append(opts, atsim.WithStreamBuffer(int(ticks)+1))
	svc := atsim.New(models, opts...)
	defer svc.Shutdown(context.Background())

	p, err := svc.Create(ctx, model.OwnerID, model.ID, model.Name)
	if err != nil {
		return err
	}

	lines := newLineTransport(out)
	if _, err := svc.Subscribe(ctx, model.OwnerID, p.ID, lines); err != nil {
		return err
	}

	p, err = svc.Run(ctx, model.OwnerID, p.ID, atsim.RunRequest{Ticks: ticks, Delay: delay, Wait: true})
	if err != nil {
		return err
	}
	if err := lines.wait(ctx, p.CurrentTick); err != nil {
		return err
	}
	if p.State == domain.ProcessKilled {
		return fmt.Errorf("process killed at tick %d: %s", p.CurrentTick, p.FaultReason)
	}
	return lines.err()
}

// lineTransport writes each snapshot as one JSON line.
type lineTransport struct {
	out io.Writer

	mu      sync.Mutex
	last    int64
	sendErr error
	moved   chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newLineTransport(out io.Writer) *lineTransport {
	return &lineTransport{
		out:   out,
		last:  -1,
		moved: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (t *lineTransport) Send(snap *domain.TickSnapshot) error {
	data, err := stream.Encode(snap)
	if err == nil {
		_, err = fmt.Fprintf(t.out, "%s\n", data)
	}

	t.mu.Lock()
	t.last = snap.Tick
	t.sendErr = err
	t.mu.Unlock()

	select {
	case t.moved <- struct{}{}:
	default:
	}
	return err
}

func (t *lineTransport) Close(string) error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *lineTransport) Done() <-chan struct{} { return t.done }

func (t *lineTransport) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendErr
}

// wait blocks until the snapshot of tick was written.
func (t *lineTransport) wait(ctx context.Context, tick int64) error {
	for {
		t.mu.Lock()
		last, err := t.last, t.sendErr
		t.mu.Unlock()
		if last >= tick || err != nil {
			return err
		}
		select {
		case <-t.moved:
		case <-t.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
