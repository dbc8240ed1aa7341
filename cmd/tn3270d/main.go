// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Command tn3270d drives the tn3270 controller against real TCP
// connections: it negotiates TELNET, assigns each connection a
// google/uuid session ID, loads the resource-file knobs (spec §6),
// and optionally serves the trace/scrollback viewer. Modeled on the
// cobra+pflag daemon entrypoints in rcornwell/S370 and both vibetunnel
// forks (spec SPEC_FULL.md AMBIENT STACK "CLI entrypoint").
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/go3270/coreterm/ctlr"
	"github.com/go3270/coreterm/internal/config"
	"github.com/go3270/coreterm/internal/logging"
	"github.com/go3270/coreterm/internal/traceserver"
	"github.com/go3270/coreterm/tn3270"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr   string
		resourceFile string
		traceAddr    string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "tn3270d",
		Short: "A tn3270 terminal emulator core controller daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(listenAddr, resourceFile, traceAddr, debug)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listenAddr, "listen", ":3270", "TCP address to accept tn3270 connections on")
	flags.StringVar(&resourceFile, "resource-file", "", "path to a resource file of configurable knobs (spec §6); empty uses defaults")
	flags.StringVar(&traceAddr, "trace-addr", "", "address to serve the trace/scrollback viewer on; empty disables it")
	flags.BoolVar(&debug, "debug", false, "enable verbose trace logging")

	return cmd
}

func run(listenAddr, resourceFile, traceAddr string, debug bool) error {
	log, err := logging.New(debug)
	if err != nil {
		return fmt.Errorf("starting logger: %w", err)
	}
	defer log.Sync()

	knobs := config.Default()
	var watcher *config.Watcher
	if resourceFile != "" {
		watcher, err = config.WatchFile(resourceFile, func(k config.Knobs) {
			knobs = k
		})
		if err != nil {
			return fmt.Errorf("loading resource file: %w", err)
		}
		defer watcher.Close()
		knobs = watcher.Current()
	}

	sessions := newSessionRegistry()

	var sink *traceserver.Server
	if traceAddr != "" {
		sink = traceserver.New(sessions.snapshot)
		go func() {
			if err := http.ListenAndServe(traceAddr, sink.Router()); err != nil {
				log.PopupError("trace server stopped: %v", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddr, err)
	}
	defer ln.Close()
	log.Trace("tn3270d: listening on %s", listenAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		sessionID := uuid.NewString()
		go serveConn(conn, sessionID, knobs, log, sink, sessions)
	}
}

// sessionRegistry tracks live sessions by ID so the trace server can
// look up a session's current Encoder to build a snapshot on demand.
type sessionRegistry struct {
	register   chan *sessionEntry
	unregister chan string
	snapshotCh chan snapshotRequest
}

type sessionEntry struct {
	id  string
	ctl *tn3270.Controller
}

type snapshotRequest struct {
	id     string
	result chan []byte
}

func newSessionRegistry() *sessionRegistry {
	r := &sessionRegistry{
		register:   make(chan *sessionEntry),
		unregister: make(chan string),
		snapshotCh: make(chan snapshotRequest),
	}
	go r.loop()
	return r
}

func (r *sessionRegistry) loop() {
	live := make(map[string]*tn3270.Controller)
	for {
		select {
		case e := <-r.register:
			live[e.id] = e.ctl
		case id := <-r.unregister:
			delete(live, id)
		case req := <-r.snapshotCh:
			ctl, ok := live[req.id]
			if !ok {
				req.result <- nil
				continue
			}
			req.result <- ctl.Encoder.Snapshot()
		}
	}
}

func (r *sessionRegistry) snapshot(id string) []byte {
	req := snapshotRequest{id: id, result: make(chan []byte, 1)}
	r.snapshotCh <- req
	return <-req.result
}

func serveConn(conn net.Conn, sessionID string, knobs config.Knobs, log *logging.Logger, sink *traceserver.Server, sessions *sessionRegistry) {
	defer conn.Close()

	if err := tn3270.NegotiateTelnet(conn); err != nil {
		log.PopupError("session %s: telnet negotiation failed: %v", sessionID, err)
		return
	}

	cb := &tn3270.CellCallbacks{
		SessionID:        sessionID,
		Log:              log,
		OnTaskHostOutput: func() {},
	}
	// Assigning a nil *traceserver.Server directly to the Sink interface
	// field would leave a non-nil, typed-nil interface value that still
	// panics on Server's pointer-receiver methods; only wire it when a
	// real server exists.
	if sink != nil {
		cb.ScreenSink = sink
	}

	ctl := tn3270.New(sessionID, 24, 80, 32, 80, knobs, cb)
	sessions.register <- &sessionEntry{id: sessionID, ctl: ctl}
	defer func() { sessions.unregister <- sessionID }()

	log.Trace("session %s: connected from %s", sessionID, conn.RemoteAddr())

	readBuf := make([]byte, 16384)
	var pending []byte
	for {
		n, err := conn.Read(readBuf)
		if err != nil {
			log.Trace("session %s: disconnected: %v", sessionID, err)
			ctl.Disconnect()
			return
		}
		pending = append(pending, readBuf[:n]...)

		records, remainder := tn3270.SplitTelnetRecords(pending)
		pending = remainder
		for _, rec := range records {
			if len(rec) == 0 {
				continue
			}
			dispatchRecord(conn, ctl, rec, log, sessionID)
		}
	}
}

// dispatchRecord routes one TELNET-record-framed chunk by the
// controller's current Mode: in NVT mode it goes to the NVT processor;
// in 3270 mode an RB/RM/RMA command is answered by writing the
// encoder's reply back to conn, and any other command goes to the order
// decoder. Nothing in this command switches Mode to NVT; negotiation of
// NVT mode happens out-of-band and is not this package's concern (see
// DESIGN.md).
func dispatchRecord(conn net.Conn, ctl *tn3270.Controller, rec []byte, log *logging.Logger, sessionID string) {
	if ctl.Mode == tn3270.ModeNVT {
		ctl.HandleNVTData(rec)
		return
	}

	switch rec[0] {
	case ctlr.CmdRB, ctlr.CmdRBSNA:
		conn.Write(ctl.ReadBuffer())
		return
	case ctlr.CmdRM, ctlr.CmdRMSNA:
		conn.Write(ctl.Encoder.ReadModified(ctl.OIA.AID(), false))
		return
	case ctlr.CmdRMA, ctlr.CmdRMASNA:
		conn.Write(ctl.Encoder.ReadModified(ctl.OIA.AID(), true))
		return
	}

	status := ctl.HandleHostWrite(rec, false)
	if status != ctlr.StatusOK {
		log.Protocol(sessionID, "write", fmt.Errorf("status %d", status))
	}
}
