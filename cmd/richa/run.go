package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/richa/internal/api"
	"github.com/banshee-data/richa/internal/config"
	"github.com/banshee-data/richa/internal/db"
	"github.com/banshee-data/richa/internal/feed"
	"github.com/banshee-data/richa/internal/render"
	"github.com/banshee-data/richa/internal/report"
	"github.com/banshee-data/richa/internal/session"
	"github.com/banshee-data/richa/internal/timeutil"
)

const dialTimeout = 10 * time.Second

type runOptions struct {
	root        *rootOptions
	label       string
	stage       string
	disableFeed bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{root: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record a session from the tracker feed",
		Long: `Connect to the tracker, record attention until the feed disconnects or
the process is interrupted, then save the report.

The operator API (stage, task, finish) is served on --listen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.String("listen", "", "operator API listen address")
	f.String("source", "", `intersection source, "Gaze" or "AI"`)
	f.Bool("filtered", false, "use the filtered intersection views")
	f.String("transport", "", "tracker feed transport: tcp, serial or replay")
	f.String("host", "", "tracker host for the tcp transport")
	f.Int("port", 0, "tracker port for the tcp transport")
	f.String("serial", "", "serial device for the serial transport")
	f.Int("baud", 0, "serial baud rate")
	f.String("replay", "", "recorded feed file for the replay transport")
	f.String("replay-rate", "", "interval between replayed samples, e.g. 16ms")
	f.String("output", "", "directory for saved reports")
	f.StringVar(&opts.label, "label", "", "participant or run label; names the report file and archive entry")
	f.StringVar(&opts.stage, "stage", "", "initial stage; nothing accrues until a stage is set")
	f.BoolVar(&opts.disableFeed, "disable-feed", false, "run without a tracker, for exercising the operator API")
	return cmd
}

// applyRunFlags copies explicitly set flags over cfg and revalidates it.
func applyRunFlags(cmd *cobra.Command, cfg *config.SessionConfig) error {
	f := cmd.Flags()
	str := func(name string, dst **string) {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			*dst = &v
		}
	}
	num := func(name string, dst **int) {
		if f.Changed(name) {
			v, _ := f.GetInt(name)
			*dst = &v
		}
	}

	str("listen", &cfg.Listen)
	str("source", &cfg.IntersectionSource)
	str("transport", &cfg.FeedTransport)
	str("host", &cfg.FeedHost)
	num("port", &cfg.FeedPort)
	str("serial", &cfg.SerialPort)
	num("baud", &cfg.BaudRate)
	str("replay", &cfg.ReplayFile)
	str("replay-rate", &cfg.ReplayRate)
	str("output", &cfg.OutputDir)
	if f.Changed("filtered") {
		v, _ := f.GetBool("filtered")
		cfg.IntersectionSourceFiltered = &v
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// openFeed connects to the tracker over the configured transport.
func openFeed(ctx context.Context, cfg *config.SessionConfig) (feed.LineMux, error) {
	switch cfg.GetFeedTransport() {
	case config.TransportSerial:
		return feed.OpenSerial(cfg.GetSerialPort(), feed.PortOptions{BaudRate: cfg.GetBaudRate()})
	case config.TransportReplay:
		return feed.OpenReplay(cfg.GetReplayFile(), timeutil.RealClock{}, cfg.GetReplayRate())
	default:
		return feed.DialTCP(ctx, cfg.FeedAddress(), dialTimeout)
	}
}

// reportDest turns the run label into a report file name.
func reportDest(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	if !strings.HasSuffix(label, ".txt") {
		label += ".txt"
	}
	return label
}

func (o *runOptions) run(ctx context.Context, cfg *config.SessionConfig) error {
	var m feed.LineMux
	if o.disableFeed {
		m = feed.NewDisabledMux()
	} else {
		var err error
		if m, err = openFeed(ctx, cfg); err != nil {
			return err
		}
	}
	defer m.Close()

	var archive *db.DB
	if cfg.GetDBPath() != "" {
		var err error
		if archive, err = openConfiguredDB(cfg); err != nil {
			return err
		}
		defer archive.Close()
	}

	sessOpts := session.Options{
		Selector: cfg.Selector(),
		Zones:    cfg.GetZones(),
	}
	if o.root.debug {
		sessOpts.Renderer = render.Log{}
	}
	sess, err := session.New(sessOpts)
	if err != nil {
		return err
	}
	log.Printf("session %s: recording %s on zones %s", sess.ID(), sessOpts.Selector, strings.Join(sess.Zones(), ", "))

	files := report.NewFileStore(cfg.GetOutputDir())
	rec := &recorder{
		sess:  sess,
		files: files,
		dest:  reportDest(o.label),
		label: strings.TrimSpace(o.label),
	}
	var store api.Archive
	if archive != nil {
		rec.archive = archive
		store = archive
	}

	ln, err := net.Listen("tcp", cfg.GetListen())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GetListen(), err)
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// session loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session stopped: %v", err)
		}
	}()

	if stage := strings.TrimSpace(o.stage); stage != "" {
		if err := sess.SetStage(stage); err != nil {
			ln.Close()
			return err
		}
	}

	// Subscribe before the monitor starts so no line is missed.
	id, lines := m.Subscribe()
	consumed := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(consumed)
		defer m.Unsubscribe(id)
		st, err := feed.Consume(ctx, lines, sess)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("feed consumer stopped: %v", err)
		}
		log.Printf("feed consumer: %d lines, %d samples, %d malformed", st.Lines, st.Samples, st.Malformed)
	}()

	// monitor: a tracker disconnect finishes and saves the session
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := m.Monitor(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("tracker feed failed: %v", err)
		} else {
			log.Print("tracker disconnected")
		}
		// Closing the mux ends the subscription; wait for queued samples.
		m.Close()
		<-consumed
		// An interrupt during the save must not abort it.
		if err := rec.save(context.WithoutCancel(ctx)); err != nil {
			log.Printf("failed to save session on disconnect: %v", err)
		}
	}()

	// HTTP server
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)
	if archive != nil {
		archive.AttachAdminRoutes(mux)
	}
	apiServer := api.NewServer(sess, m, files, store)
	apiServer.AttachAdminRoutes(mux)
	mux.Handle("/api/", apiServer.ServeMux())

	server := &http.Server{
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Println("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("operator API listening on http://%s", ln.Addr())
	serveErr := server.Serve(ln)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	cancel()
	wg.Wait()

	if err := rec.saveOnShutdown(context.Background()); err != nil {
		return errors.Join(serveErr, err)
	}
	log.Printf("Graceful shutdown complete")
	return serveErr
}

// recorder saves a session to the file store and, when configured, the
// archive.
type recorder struct {
	sess    *session.Session
	files   report.Store
	archive report.Store
	dest    string
	label   string

	mu        sync.Mutex
	attempted bool
	saved     bool
}

func (r *recorder) save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempted = true
	if err := r.sess.Save(ctx, r.files, r.dest); err != nil {
		return err
	}
	if r.archive != nil {
		if err := r.sess.Save(ctx, r.archive, r.label); err != nil {
			return err
		}
	}
	r.saved = true
	log.Printf("session %s saved", r.sess.ID())
	return nil
}

// saveOnShutdown saves a session nobody has saved yet. A session finished
// through the operator API was saved there; one whose disconnect save
// failed is retried.
func (r *recorder) saveOnShutdown(ctx context.Context) error {
	r.mu.Lock()
	attempted, saved := r.attempted, r.saved
	r.mu.Unlock()
	if saved {
		return nil
	}
	st, err := r.sess.State()
	if err != nil {
		return err
	}
	if st.Finished && !attempted {
		return nil
	}
	return r.save(ctx)
}
