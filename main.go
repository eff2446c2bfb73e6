package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RedPaladin7/peerfleet/p2p"
	"github.com/sirupsen/logrus"
)

const (
	defaultVersion = "1.0.0"
	defaultP2PPort = "7777"
	defaultAPIPort = "8080"
)

func main() {
	var (
		role       = flag.String("role", "host", "Session role (host, join)")
		connectTo  = flag.String("connect", "127.0.0.1:"+defaultP2PPort, "Host address to join (e.g., localhost:7777)")
		p2pPort    = flag.String("p2p-port", defaultP2PPort, "P2P network port (host only)")
		apiPort    = flag.String("api-port", defaultAPIPort, "HTTP API port")
		maxPeers   = flag.Int("max-peers", 32, "Maximum number of connected peers (host only)")
		transition = flag.Duration("transition", 3*time.Second, "Length of the battle start transition")
		tickRate   = flag.Int("tick-rate", 60, "Game loop iterations per second")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		version    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Peer Fleet v%s\n", defaultVersion)
		os.Exit(0)
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", *logLevel)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	r, err := p2p.ParseRole(*role)
	if err != nil {
		logrus.Fatalf("Invalid role: %s", err)
	}

	apiAddr := fmt.Sprintf("localhost:%s", *apiPort)
	cfg := p2p.ServerConfig{
		Version:         defaultVersion,
		Role:            r,
		APIListenAddr:   apiAddr,
		MaxPeers:        *maxPeers,
		TickRate:        *tickRate,
		TransitionDelay: *transition,
	}
	if r == p2p.RoleHost {
		cfg.ListenAddr = ":" + *p2pPort
	} else {
		cfg.ConnectAddr = *connectTo
	}

	server, err := p2p.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("Failed to create server: %s", err)
	}

	logrus.Info("===========================================")
	logrus.Info("  Peer Fleet")
	logrus.Info("===========================================")
	logrus.Infof("Version:        %s", defaultVersion)
	logrus.Infof("Role:           %s", r)
	if r == p2p.RoleHost {
		logrus.Infof("P2P Address:    %s", cfg.ListenAddr)
	} else {
		logrus.Infof("Host Address:   %s", cfg.ConnectAddr)
	}
	logrus.Infof("API Address:    http://%s", apiAddr)
	logrus.Info("===========================================")
	logrus.Info("API Endpoints:")
	logrus.Infof("  Health:       GET  http://%s/api/health", apiAddr)
	logrus.Infof("  State:        GET  http://%s/api/state", apiAddr)
	logrus.Infof("  Place:        POST http://%s/api/place", apiAddr)
	logrus.Infof("  Orientation:  POST http://%s/api/orientation", apiAddr)
	logrus.Infof("  Attack:       POST http://%s/api/attack", apiAddr)
	logrus.Infof("  Exit:         POST http://%s/api/exit", apiAddr)
	logrus.Infof("  Live state:   WS   ws://%s/ws", apiAddr)
	logrus.Info("===========================================")

	if r == p2p.RoleHost {
		logrus.Info("Starting as host. To join, run:")
		logrus.Infof("   go run main.go -role=join -api-port=8081 -connect=localhost:%s", *p2pPort)
	}

	go func() {
		if err := p2p.NewAPIServer(apiAddr, server).Run(); err != nil {
			logrus.Errorf("API server stopped: %s", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.Run(ctx)
	switch {
	case errors.Is(err, p2p.ErrPeerDisconnected):
		logrus.Warn("Host closed the connection, session over")
	case err != nil:
		logrus.Fatalf("Session failed: %s", err)
	}
	logrus.Info("Server stopped")
}
