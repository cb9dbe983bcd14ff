package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tacmesh/meshnode/crypto"
	"github.com/tacmesh/meshnode/runtime"
	"github.com/tacmesh/meshnode/store"
	"github.com/tacmesh/meshnode/transport"
)

// positionEmitInterval is how often the static-position emitter rebroadcasts
// when gps-enabled is set.
const positionEmitInterval = 30 * time.Second

// bootstrap lays out the application root (store file, key file, attachments
// and logs directories), loads or creates the node identity, opens the
// store, constructs the enabled transports, and starts the node. The
// returned cleanup releases everything bootstrap acquired; call it after
// Node.Stop.
func bootstrap(cfg *bootConfig) (*runtime.Node, func(), error) {
	for _, dir := range []string{cfg.root, filepath.Join(cfg.root, "attachments"), filepath.Join(cfg.root, "logs")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	identity, err := crypto.LoadOrCreateIdentity(filepath.Join(cfg.root, "identity.json"))
	if err != nil {
		return nil, nil, err
	}

	db, err := store.Open(filepath.Join(cfg.root, "mesh.db"))
	if err != nil {
		identity.Wipe()
		return nil, nil, err
	}

	if cfg.geofenceSeed != "" {
		if err := db.SeedGeofencesFromFile(cfg.geofenceSeed); err != nil {
			db.Close()
			identity.Wipe()
			return nil, nil, err
		}
	}

	var links []transport.Transport
	if cfg.batmanEnabled {
		links = append(links, transport.NewUDPTransport(transport.UDPConfig{
			Interface: cfg.ipInterface,
			Port:      cfg.ipPort,
		}))
	}
	if cfg.loraEnabled {
		links = append(links, transport.NewSerialTransport(transport.SerialConfig{
			Port:     cfg.loraPort,
			BaudRate: cfg.loraBaudrate,
		}))
	}

	rcfg := runtime.DefaultConfig()
	rcfg.Callsign = cfg.callsign
	rcfg.Unit = cfg.unit
	rcfg.Rank = cfg.rank
	rcfg.Role = cfg.role
	rcfg.Clearance = cfg.clearance
	rcfg.ActiveWindow = cfg.activeWindow

	node := runtime.New(identity, db, links, rcfg)
	if err := node.Start(); err != nil {
		db.Close()
		identity.Wipe()
		return nil, nil, err
	}

	stopEmitter := func() {}
	if cfg.gpsEnabled {
		stopEmitter = startStaticPositionEmitter(node, cfg)
	}

	cleanup := func() {
		stopEmitter()
		db.Close()
		identity.Wipe()
	}

	logrus.WithFields(logrus.Fields{
		"node_id":    identity.NodeID,
		"callsign":   cfg.callsign,
		"transports": len(links),
	}).Info("node started")

	return node, cleanup, nil
}

// startStaticPositionEmitter periodically rebroadcasts the configured static
// position on the blue_force topic, standing in for real GPS hardware. It
// emits once immediately so peers learn the position without waiting a full
// interval.
func startStaticPositionEmitter(node *runtime.Node, cfg *bootConfig) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(positionEmitInterval)
		defer ticker.Stop()

		emit := func() {
			if err := node.UpdatePosition(cfg.posLat, cfg.posLon, cfg.posAlt, 0, 0, 0); err != nil {
				logrus.WithError(err).Warn("static position emission failed")
			}
		}

		emit()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				emit()
			}
		}
	}()
	return func() { close(done) }
}

// waitForShutdownSignal blocks until the process receives SIGINT or SIGTERM.
func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
