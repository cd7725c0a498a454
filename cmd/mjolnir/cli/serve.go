package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mjolnir/internal/app"
	"github.com/ayusman/mjolnir/internal/capture"
	"github.com/ayusman/mjolnir/internal/config"
	"github.com/ayusman/mjolnir/internal/detector"
	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hook"
	"github.com/ayusman/mjolnir/internal/physics"
	"github.com/ayusman/mjolnir/internal/replay"
	"github.com/ayusman/mjolnir/internal/server"
	"github.com/ayusman/mjolnir/internal/store"
	"github.com/ayusman/mjolnir/internal/tray"
)

var (
	serveAddr  string
	recordPath string
	noTray     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Track hands from the camera and serve the API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVarP(&recordPath, "record", "r", "", "Record the tracked session to a file for replay")
	serveCmd.Flags().BoolVar(&noTray, "no-tray", false, "Do not show the tray menu")
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	world := physics.NewWorld(cfg.Physics, logger.Named("physics"))
	a := app.New(
		app.Config{Gesture: cfg.Gesture, Grip: cfg.Grip},
		grip.Collaborators{Spawner: world, Follower: world, Applier: world},
		logger.Named("app"),
	)
	if err := a.LoadSettings(st.Settings()); err != nil {
		return err
	}
	a.Subscribe(app.LogThrows(st.Throws(), logger.Named("store")))

	hub := server.NewHub(logger.Named("ws"))
	a.Subscribe(hub.Publish)

	dispatcher := newDispatcher(cfg.Hooks, logger.Named("hook"))
	a.Subscribe(func(e grip.Event) { dispatcher.Dispatch(e) })

	cameraSource := newCameraSource(cfg, logger)
	if err := cameraSource.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer cameraSource.Close()

	var source app.Source = cameraSource
	if recordPath != "" {
		w, err := replay.Create(recordPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("failed to close recording", zap.Error(err))
				return
			}
			logger.Info("session recorded", zap.String("path", recordPath), zap.Int("frames", w.Frames()))
		}()
		source = replay.NewRecorder(cameraSource, w)
	}

	srv := server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Bodies:    world,
		Settings:  a,
		Status:    a,
		Hub:       hub,
		Logger:    logger.Named("http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx, source) })
	g.Go(func() error { return world.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Server.Addr) })

	if cfg.Tray && !noTray {
		t := newTray(a, st, cfg.Server.Addr, stop, logger)
		a.Subscribe(t.ShowEvent)
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newDispatcher(cfg hook.Config, logger *zap.Logger) *hook.Dispatcher {
	manager := hook.NewManager(cfg.Dir, logger)
	if err := manager.Discover(); err != nil {
		logger.Warn("hook discovery failed", zap.String("dir", cfg.Dir), zap.Error(err))
	}
	return hook.NewDispatcher(manager, hook.NewExecutor(cfg.Timeout()), cfg, logger)
}

// newCameraSource pairs the camera with the MediaPipe detector. Without the
// detector script the service still starts, but no hands are ever found.
func newCameraSource(cfg config.Config, logger *zap.Logger) *app.CameraSource {
	camera := capture.NewCamera(cfg.Camera, logger.Named("camera"))

	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(cfg.Detector, logger.Named("detector"))
	if err != nil {
		logger.Warn("hand detection unavailable", zap.Error(err))
		det = detector.NewMockDetector()
	} else {
		det = mp
	}
	return app.NewCameraSource(camera, det, logger.Named("source"))
}

func newTray(a *app.App, st *store.Store, addr string, quit func(), logger *zap.Logger) *tray.Tray {
	t := tray.New(physics.Kinds(), a.Controller().ObjectKind())
	t.SetEnabled(a.IsEnabled())

	persist := func(key, value string) {
		if err := a.ApplySetting(key, value); err != nil {
			logger.Warn("invalid setting", zap.String("key", key), zap.Error(err))
			return
		}
		if err := st.Settings().Set(key, value); err != nil {
			logger.Error("failed to save setting", zap.String("key", key), zap.Error(err))
		}
	}
	t.OnToggle(func(enabled bool) {
		persist(store.SettingTracking, strconv.FormatBool(enabled))
	})
	t.OnKind(func(kind string) {
		persist(store.SettingObjectKind, kind)
	})
	t.OnDashboard(func() {
		url := dashboardURL(addr)
		if err := openBrowser(url); err != nil {
			logger.Warn("failed to open dashboard", zap.String("url", url), zap.Error(err))
		}
	})
	t.OnQuit(quit)
	return t
}
