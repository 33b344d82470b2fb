package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/battsim/core/scenario"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
)

var (
	carDuration time.Duration
	carScenario string
	carJSON     bool
	carAckAfter time.Duration
)

var carCmd = &cobra.Command{
	Use:   "car [preset]",
	Short: "Run one simulation headless and print its samples",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCarCmd,
}

func init() {
	carCmd.Flags().DurationVarP(&carDuration, "duration", "d", 35*time.Second, "how long to run")
	carCmd.Flags().StringVarP(&carScenario, "scenario", "s", "", "scenario file; its first simulation runs")
	carCmd.Flags().BoolVar(&carJSON, "json", false, "print full snapshots as JSON lines")
	carCmd.Flags().DurationVar(&carAckAfter, "ack-after", 0, "acknowledge an anomaly after this delay (0 keeps it)")
	rootCmd.AddCommand(carCmd)
}

func runCarCmd(cmd *cobra.Command, args []string) error {
	cfg, err := carConfig(args)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, carDuration)
	defer cancel()
	h, err := telemetry.Start(cfg, telemetry.WithLogger(logger.New("car")))
	if err != nil {
		return err
	}
	defer h.Stop()
	return streamCar(ctx, cmd.OutOrStdout(), h, carJSON, carAckAfter)
}

func carConfig(args []string) (telemetry.Config, error) {
	if carScenario != "" {
		f, err := scenario.LoadFile(carScenario)
		if err != nil {
			return telemetry.Config{}, err
		}
		sims, err := scenario.ResolveAll(f.Simulations)
		if err != nil {
			return telemetry.Config{}, err
		}
		if len(sims) == 0 {
			return telemetry.Config{}, fmt.Errorf("%s has no simulation", carScenario)
		}
		return sims[0], nil
	}
	name := scenario.PresetCar
	if len(args) == 1 {
		name = args[0]
	}
	return scenario.Entry{Preset: name}.Resolve()
}

// streamCar prints one line per snapshot until ctx is done.
func streamCar(ctx context.Context, out io.Writer, h *telemetry.Handle, asJSON bool, ackAfter time.Duration) error {
	sub := h.Subscribe()
	defer h.Unsubscribe(sub)
	enc := json.NewEncoder(out)
	var ackC <-chan time.Time
	emit := func(s telemetry.Snapshot) error {
		if asJSON {
			return enc.Encode(s)
		}
		_, err := fmt.Fprintln(out, formatLine(s))
		return err
	}
	if err := emit(h.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ackC:
			ackC = nil
			h.Acknowledge()
		case s, ok := <-sub:
			if !ok {
				return nil
			}
			if s.AnomalyActive && ackAfter > 0 && ackC == nil {
				ackC = time.After(ackAfter)
			}
			if err := emit(s); err != nil {
				return err
			}
		}
	}
}

func formatLine(s telemetry.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tick=%d phase=%s", s.Time.Format("15:04:05"), s.Ticks, s.Phase)
	for _, c := range s.Channels {
		if v, ok := c.Latest(); ok {
			fmt.Fprintf(&b, " %s=%.2f", c.Name, v)
		}
	}
	names := make([]string, 0, len(s.Derived))
	for n := range s.Derived {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, " %s=%.1f", n, s.Derived[n])
	}
	if s.AnomalyActive {
		fmt.Fprintf(&b, " ANOMALY(%s)", s.AnomalyID)
	}
	return b.String()
}
