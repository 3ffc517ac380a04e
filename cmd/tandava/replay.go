package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/replay"
)

func newReplayCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FILE",
		Short: "Run recorded hand samples through the power toggle logic",
		Long: `Reads JSON lines of the form
  {"gesture":"CLOSED","x":0.5,"y":0.6,"z":0,"velocity":{"x":0,"y":0.1},"t_ms":66}
and prints every power toggle. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := fusion.DefaultConfig()
			if mgr, _, err := loadConfig(flags); err == nil {
				cfg = mgr.Config().FusionEngineConfig()
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return runReplay(in, cmd.OutOrStdout(), cfg)
		},
	}
}

func runReplay(in io.Reader, out io.Writer, cfg fusion.Config) error {
	records, err := replay.Read(in)
	if err != nil {
		return err
	}

	res := replay.Run(records, cfg)
	for _, t := range res.Toggles {
		state := "off"
		if t.PowerOn {
			state = "on"
		}
		fmt.Fprintf(out, "%8dms  sample %-4d y=%.3f  power %s\n", t.At.Milliseconds(), t.Line+1, t.Y, state)
	}
	fmt.Fprintf(out, "%d samples, %d toggles, power %v\n", res.Samples, len(res.Toggles), res.PowerOn)
	return nil
}
