package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ayusman/mjolnir/internal/app"
	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/physics"
	"github.com/ayusman/mjolnir/internal/replay"
)

var (
	replayRealtime bool
	replaySave     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [session-file]",
	Short: "Run a recorded session through the tracker and print its throws",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0])
	},
}

func init() {
	RootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Play frames back at their recorded pace")
	replayCmd.Flags().BoolVar(&replaySave, "save", false, "Log the throws to the database")
}

func runReplay(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reader, err := replay.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()
	reader.SetRealtime(replayRealtime)

	world := physics.NewWorld(cfg.Physics, logger.Named("physics"))
	a := app.New(
		app.Config{Gesture: cfg.Gesture, Grip: cfg.Grip},
		grip.Collaborators{Spawner: world, Follower: world, Applier: world},
		logger.Named("app"),
	)

	if replaySave {
		st, err := openStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		a.Subscribe(app.LogThrows(st.Throws(), logger.Named("store")))
	}

	out := cmd.OutOrStdout()
	throws := 0
	a.Subscribe(func(e grip.Event) {
		switch e.Type {
		case grip.EventRelease:
			throws++
			printRelease(out, e)
		case grip.EventSpawnFailed:
			fmt.Fprintf(out, "%8.3fs  %-5s  spawn failed: %s\n", e.Timestamp, e.Side, e.Err)
		}
	})

	if err := a.Run(cmd.Context(), reader); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d frames, %d throws\n", a.Frames(), throws)
	return nil
}

func printRelease(w io.Writer, e grip.Event) {
	v := e.Handoff.Velocity
	fmt.Fprintf(w, "%8.3fs  %-5s  %-6s  %6.2f m/s  %5.2f rad/s  linear=(%.2f, %.2f, %.2f)\n",
		e.Timestamp, e.Side, e.Kind, v.Speed(), v.AngularSpeed(),
		v.Linear.X(), v.Linear.Y(), v.Linear.Z())
}
