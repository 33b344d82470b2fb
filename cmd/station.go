package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/infra/logger"
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Run the charging station and select vehicles by id from stdin",
	RunE:  runStationCmd,
}

func init() {
	rootCmd.AddCommand(stationCmd)
}

func runStationCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := cfg.Station
	sc.Enabled = true
	st, err := station.New(sc, station.Options{Logger: logger.New("station")})
	if err != nil {
		return err
	}
	defer st.Stop()
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return selectLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), st)
}

// selectLoop selects every id read from in until EOF. Empty lines print the
// current view.
func selectLoop(ctx context.Context, in io.Reader, out io.Writer, st *station.Station) error {
	printView(out, st.Snapshot())
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if id == "" {
				printView(out, st.Snapshot())
				continue
			}
			triggered, err := st.Select(id)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			if triggered {
				fmt.Fprintf(out, "ANOMALY DETECTED on vehicle %s\n", id)
			} else {
				fmt.Fprintf(out, "selected vehicle %s\n", id)
			}
			printView(out, st.Snapshot())
		}
	}
}

func printView(out io.Writer, s station.Snapshot) {
	fmt.Fprintf(out, "station %s tick=%d alerts=%d max=%.1f min=%.1f voltage=%.0f\n",
		s.Station, s.Ticks, s.Alerts, s.Battery.MaxTemp, s.Battery.MinTemp, s.Battery.Voltage)
	for _, v := range s.Vehicles {
		mark := " "
		if v.ID == s.Selected {
			mark = "*"
		}
		flag := ""
		if v.AnomalyDetected {
			flag = " anomaly"
		}
		fmt.Fprintf(out, "%s %-3s %-12s soc=%6.2f%% %s%s\n", mark, v.ID, v.Name, v.SoC, v.ChargeState, flag)
	}
}
