package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledsim/internal/animations"
	"github.com/smazurov/ledsim/internal/director"
	"github.com/smazurov/ledsim/internal/logging"
	"github.com/smazurov/ledsim/internal/show"
	"github.com/smazurov/ledsim/internal/sink"
	"github.com/smazurov/ledsim/internal/strip"
)

// Render output formats.
const (
	FormatHex      = "hex"
	FormatTerminal = "terminal"
)

// RenderOptions configures a headless render.
type RenderOptions struct {
	ShowFile    string
	LEDs        int
	Frames      int // 0 renders until every scheduled animation has retired
	Format      string
	FaultPolicy director.FaultPolicy
	Terminal    []sink.TerminalOption
}

// Render ticks a director over the show without a wall clock and writes one
// line per frame to w. It returns the number of frames written.
func Render(w io.Writer, opts RenderOptions) (int, error) {
	var line func([]strip.Color) string
	switch opts.Format {
	case FormatHex, "":
		line = sink.HexLine
	case FormatTerminal:
		line = sink.NewTerminal(w, opts.Terminal...).Render
	default:
		return 0, fmt.Errorf("unknown format %q (want %s or %s)", opts.Format, FormatHex, FormatTerminal)
	}

	written := 0
	out := director.SinkFunc(func(colors []strip.Color) error {
		_, err := fmt.Fprintf(w, "%d %s\n", written, line(colors))
		written++
		return err
	})

	d, err := director.New(director.Config{LEDs: opts.LEDs, FaultPolicy: opts.FaultPolicy}, out)
	if err != nil {
		return 0, err
	}
	defer d.Close()

	loader := show.NewLoader(d, animations.Default(), nil, logging.GetLogger("show"))
	if _, err := loader.LoadFile(opts.ShowFile); err != nil {
		return 0, err
	}

	for opts.Frames <= 0 || written < opts.Frames {
		if err := d.Tick(); err != nil {
			return written, err
		}
		if snap := d.Snapshot(); opts.Frames <= 0 && snap.Active == 0 && snap.Pending == 0 {
			break
		}
	}
	return written, nil
}

// CreateRenderCmd creates the render command.
func CreateRenderCmd() *cobra.Command {
	var opts RenderOptions
	var policy string

	cmd := &cobra.Command{
		Use:   "render [show-file]",
		Short: "Render a show to stdout without a clock",
		Long: `Loads a show file, ticks the director as fast as possible and prints every ` +
			`composed frame, either as #rrggbb values or as colored terminal cells.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.GetLogger("main")
			opts.ShowFile = args[0]

			p, err := director.ParseFaultPolicy(policy)
			if err != nil {
				logger.Error("Invalid fault policy", "error", err)
				os.Exit(1)
			}
			opts.FaultPolicy = p

			n, err := Render(os.Stdout, opts)
			if err != nil {
				logger.Error("Render failed", "show", opts.ShowFile, "frames", n, "error", err)
				os.Exit(1)
			}
			logger.Debug("Render finished", "show", opts.ShowFile, "frames", n)
		},
	}

	cmd.Flags().IntVarP(&opts.LEDs, "leds", "n", 100, "Number of LEDs on the strip")
	cmd.Flags().IntVarP(&opts.Frames, "frames", "f", 0, "Frames to render, 0 until the show is exhausted")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", FormatHex, "Output format (hex, terminal)")
	cmd.Flags().StringVar(&policy, "fault-policy", "abort", "Animation fault handling (abort, isolate)")
	return cmd
}
