package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/camera"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/connectivity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/offlinequeue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/remote"
	punchService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/punch"
)

const usage = `Usage: terminal <command> [flags]

Commands:
  run      keep connectivity fresh and sync queued punches until stopped
  punch    record a punch (-type to override the suggestion, -note to justify)
  sync     push queued punches now
  status   show connectivity, queue length and this month's balance
`

type terminal struct {
	cfg      *config.TerminalConfig
	client   *remote.Client
	monitor  *connectivity.Monitor
	queue    *offlinequeue.Queue
	syncer   *punchService.Syncer
	recorder *punchService.Recorder
	in       *bufio.Reader
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadTerminal()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := newTerminal(cfg)
	if err != nil {
		slog.Error("Failed to start terminal", "error", err)
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "run":
		err = t.run(ctx)
	case "punch":
		err = t.punch(ctx, args)
	case "sync":
		err = t.sync(ctx)
	case "status":
		err = t.status(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func newTerminal(cfg *config.TerminalConfig) (*terminal, error) {
	// queue entries and cached state share one root under their own prefixes
	dataStore, err := storage.NewLocalStorage(cfg.DataDir, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	client := remote.NewClient(cfg.APIURL, cfg.Token)
	monitor := connectivity.NewMonitor(client.Probe)
	queue := offlinequeue.New(dataStore)
	syncer := punchService.NewSyncer(queue, client, monitor)

	var coords *punch.Coordinates
	if cfg.Location.Latitude != nil {
		coords = &punch.Coordinates{Latitude: *cfg.Location.Latitude, Longitude: *cfg.Location.Longitude}
	}
	provider := geo.StaticProvider{Coordinates: coords, AccuracyMeters: cfg.Location.AccuracyMeters}

	t := &terminal{
		cfg:     cfg,
		client:  client,
		monitor: monitor,
		queue:   queue,
		syncer:  syncer,
		in:      bufio.NewReader(os.Stdin),
	}

	t.recorder = punchService.NewRecorder(punchService.RecorderDeps{
		Session: punch.StaticSession{UserID: cfg.UserID, CompanyID: cfg.CompanyID},
		Location: geo.NewValidator(provider,
			geo.WithTimeout(cfg.Location.Timeout),
			geo.WithMaxAccuracy(cfg.Location.MaxAccuracyMeters),
		),
		Camera: camera.NewCapture(camera.DirectoryDevice{FrontDir: cfg.Camera.FrontDir, Dir: cfg.Camera.Dir},
			camera.WithQuality(cfg.Camera.Quality),
			camera.WithMaxWidth(cfg.Camera.MaxWidth),
			camera.WithLocation(cfg.TimeZone),
		),
		Remote:              client,
		Context:             client,
		Queue:               queue,
		Connectivity:        monitor,
		Confirmer:           t,
		Cache:               dataStore,
		DefaultRadiusMeters: cfg.Location.DefaultRadiusMeters,
		TimeZone:            cfg.TimeZone,
	})
	return t, nil
}

// ConfirmExternal asks the operator on stdin.
func (t *terminal) ConfirmExternal(ctx context.Context, distanceMeters, radiusMeters float64) (bool, error) {
	fmt.Printf("You are %.0f m from the workplace (allowed %.0f m). Record an external punch? [y/N] ", distanceMeters, radiusMeters)
	answer, err := t.readLine()
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// probe updates the monitor once before a one-shot command.
func (t *terminal) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = t.monitor.Check(probeCtx)
}

func (t *terminal) run(ctx context.Context) error {
	scheduler := cron.NewScheduler(ctx)
	jobs := cron.NewTerminalJobs(t.monitor, t.syncer, t.cfg.ProbeInterval)
	if err := jobs.RegisterJobs(scheduler); err != nil {
		return err
	}

	t.probe(ctx)
	stopSync := t.syncer.Start(ctx)
	scheduler.Start()
	slog.Info("Terminal running", "user_id", t.cfg.UserID, "online", t.monitor.IsOnline())

	<-ctx.Done()
	scheduler.Stop()
	stopSync()
	slog.Info("Terminal stopped", "queued", t.syncer.Remaining())
	return nil
}

func (t *terminal) punch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("punch", flag.ContinueOnError)
	typeFlag := fs.String("type", "", "entrada, saida_almoco, volta_almoco or saida")
	note := fs.String("note", "", "justification text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var override punch.Type
	if *typeFlag != "" {
		parsed, err := punch.ParseType(*typeFlag)
		if err != nil {
			return err
		}
		override = parsed
	}

	t.probe(ctx)

	attempt, err := t.recorder.Begin(ctx)
	if err != nil {
		return err
	}

	typ := attempt.SuggestedType()
	if override != "" {
		typ = override
	}

	fmt.Printf("Photo captured at %s (%d bytes)\n", attempt.CapturedAt().In(t.cfg.TimeZone).Format("15:04:05"), len(attempt.Photo()))
	if d := attempt.DistanceMeters(); d != nil {
		fmt.Printf("Distance from workplace: %.0f m\n", *d)
	}
	fmt.Printf("Record %s? [Y/n] ", typ.Label())

	answer, err := t.readLine()
	if err != nil {
		_ = attempt.Cancel()
		return err
	}
	if answer == "n" || answer == "N" {
		_ = attempt.Cancel()
		fmt.Println("Cancelled")
		return nil
	}

	outcome, err := attempt.Confirm(ctx, punchService.ConfirmRequest{Type: typ, JustificationText: *note})
	if err != nil {
		_ = attempt.Cancel()
		return err
	}

	if outcome.Queued {
		fmt.Println(outcome.Message)
	} else {
		fmt.Printf("%s recorded\n", outcome.Punch.Type.Label())
	}
	return nil
}

func (t *terminal) sync(ctx context.Context) error {
	t.probe(ctx)
	if !t.monitor.IsOnline() {
		n, err := t.queue.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Offline, %d punches waiting\n", n)
		return nil
	}

	remaining, err := t.syncer.SyncNow(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Sync finished, %d punches waiting\n", remaining)
	return nil
}

func (t *terminal) status(ctx context.Context) error {
	t.probe(ctx)

	n, err := t.queue.Len(ctx)
	if err != nil {
		return err
	}
	online := "offline"
	if t.monitor.IsOnline() {
		online = "online"
	}
	fmt.Printf("Server: %s\nQueued punches: %d\n", online, n)

	if !t.monitor.IsOnline() {
		return nil
	}
	month := time.Now().In(t.cfg.TimeZone).Format("2006-01")
	b, err := t.client.GetMonthlyBalance(ctx, month)
	if err != nil {
		return err
	}
	fmt.Printf("Balance %s: %s\n", b.Month, b.Balance)
	return nil
}
