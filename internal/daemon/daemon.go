package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/obodeldog/cogni-living-daemon/internal/engine/energy"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/graph"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/health"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/security"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/tracker"
	"github.com/obodeldog/cogni-living-daemon/internal/httpapi"
	"github.com/obodeldog/cogni-living-daemon/internal/infra/datadir"
	"github.com/obodeldog/cogni-living-daemon/internal/roomcache"
	"github.com/obodeldog/cogni-living-daemon/internal/store"
)

// Daemon wires the five analytic brains, the shared room-temperature
// cache, persistence, and the dispatcher that routes stdio commands to
// them (spec §1, §5).
type Daemon struct {
	Config Config

	Graph    *graph.Engine
	Tracker  *tracker.Engine
	Security *security.Brain
	Energy   *energy.Brain
	PINN     *energy.PINN
	Health   *health.Brain
	Cache    *roomcache.Cache

	Store   *store.Store
	History *store.History

	dispatcher *Dispatcher
	httpServer *http.Server
	dataDir    *datadir.Checker
}

// New builds a Daemon from the default config path.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a Daemon from cfg: wires every engine, restores any
// persisted snapshot found in the data directory, and assembles the
// dispatcher. Nothing here blocks — Serve does the reading.
func NewWithConfig(cfg Config) (*Daemon, error) {
	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	history, err := store.OpenHistory(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	persistEvery, err := time.ParseDuration(cfg.Data.TrackerPersistEvery)
	if err != nil || persistEvery <= 0 {
		persistEvery = 60 * time.Second
	}

	securityCfg := security.Config{
		DefaultThreshold:  cfg.Security.DefaultThreshold,
		WhitelistCapacity: cfg.Security.WhitelistCapacity,
		MinSequenceLength: cfg.Security.MinSequenceLength,
		MaxSequenceLength: cfg.Security.MaxSequenceLength,
	}

	d := &Daemon{
		Config:   cfg,
		Graph:    graph.New(),
		Tracker:  tracker.New(cfg.Tracker.NumParticles, persistEvery),
		Security: security.New(securityCfg),
		Cache:    roomcache.New(),

		Store:   st,
		History: history,
	}

	solarRooms := make(map[string]bool, len(cfg.Energy.SolarSensitiveRooms))
	for _, room := range cfg.Energy.SolarSensitiveRooms {
		solarRooms[room] = true
	}

	d.PINN = energy.NewPINN(rand.Float64)
	d.Energy = energy.New(energy.Config{
		GradientFloor:       cfg.Energy.GradientFloor,
		GradientCeiling:     cfg.Energy.GradientCeiling,
		VentilationGradient: cfg.Energy.VentilationGradient,
		ValvePercent:        cfg.Energy.ValvePercent,
		SolarSensitiveRooms: solarRooms,
		DefaultTarget:       cfg.Energy.DefaultTarget,
	}, d.Cache, d.PINN)

	d.Health = health.New(health.Config{
		IsolationContamination:  cfg.Health.IsolationContamination,
		NightHighActivityRatio:  cfg.Health.NightHighActivityRatio,
		MorningLowActivityRatio: cfg.Health.MorningLowActivityRatio,
		DayLowActivityRatio:     cfg.Health.DayLowActivityRatio,
	})

	d.restoreSnapshots()

	d.dispatcher = &Dispatcher{
		Graph:    d.Graph,
		Tracker:  d.Tracker,
		Security: d.Security,
		Energy:   d.Energy,
		PINN:     d.PINN,
		Health:   d.Health,

		Store:   d.Store,
		History: d.History,
	}

	if cfg.Telemetry.Enabled {
		dd := datadir.NewChecker(cfg.Data.Dir, 30*time.Second)
		srv := httpapi.NewServer(dd)
		d.dataDir = dd
		d.httpServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Telemetry.Host, cfg.Telemetry.Port),
			Handler: srv.Handler(),
		}
	}

	return d, nil
}

// restoreSnapshots loads each engine's gob file if one exists. A missing
// file just means a fresh engine — not a restore failure (spec §6).
func (d *Daemon) restoreSnapshots() {
	var gs graph.Snapshot
	if ok, err := d.Store.Load(store.GraphFile, &gs); err != nil {
		log.Printf("[daemon] restore graph snapshot: %v", err)
	} else if ok {
		d.Graph.ImportSnapshot(gs)
	}

	var ts tracker.Snapshot
	if ok, err := d.Store.Load(store.TrackerFile, &ts); err != nil {
		log.Printf("[daemon] restore tracker snapshot: %v", err)
	} else if ok {
		d.Tracker.ImportSnapshot(ts)
	}

	var ss security.Snapshot
	if ok, err := d.Store.Load(store.SecurityFile, &ss); err != nil {
		log.Printf("[daemon] restore security snapshot: %v", err)
	} else if ok {
		d.Security.ImportSnapshot(ss)
	}

	var es energy.Snapshot
	if ok, err := d.Store.Load(store.EnergyFile, &es); err != nil {
		log.Printf("[daemon] restore energy snapshot: %v", err)
	} else if ok {
		d.Energy.ImportSnapshot(es)
	}

	var ps energy.PINNSnapshot
	if ok, err := d.Store.Load(store.PINNFile, &ps); err != nil {
		log.Printf("[daemon] restore PINN snapshot: %v", err)
	} else if ok {
		d.PINN.ImportSnapshot(ps)
	}

	var hs health.Snapshot
	if ok, err := d.Store.Load(store.HealthFile, &hs); err != nil {
		log.Printf("[daemon] restore health snapshot: %v", err)
	} else if ok {
		d.Health.ImportSnapshot(hs)
	}
}

// Serve reads newline-delimited JSON commands from stdin until EOF,
// dispatching each to the matching engine and writing response/log lines
// to stdout (spec §5-6). It blocks until the input stream closes or ctx is
// cancelled.
func (d *Daemon) Serve(ctx context.Context) error {
	if d.httpServer != nil {
		if d.dataDir != nil {
			go d.dataDir.Run(ctx)
		}
		go func() {
			log.Printf("[daemon] telemetry listening on %s", d.httpServer.Addr)
			if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[daemon] telemetry server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.readLoop(os.Stdin, os.Stdout)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	d.Close()
	return nil
}

func (d *Daemon) readLoop(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		d.dispatcher.Handle(cp, w)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[daemon] stdin read error: %v", err)
	}
}

// Close releases the daemon's persistence handles and telemetry listener.
func (d *Daemon) Close() {
	if d.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.httpServer.Shutdown(shutdownCtx)
	}
	if d.History != nil {
		_ = d.History.Close()
	}
}

