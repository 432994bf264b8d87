// Copyright (c) 2024 Jerzy Dąbrowski
// Based on original work by Thomas Jager, 2009. All rights reserved.
//
// This project is a fork of the original go-ircevent library created by Thomas Jager.
// Redistribution and use in source and binary forms, with or without modification, are permitted provided
// that the following conditions are met:
//
//   - Redistributions of source code must retain the above copyright notice, this list of conditions,
//     and the following disclaimer.
//   - Redistributions in binary form must reproduce the above copyright notice, this list of conditions,
//     and the following disclaimer in the documentation and/or other materials provided with the distribution.
//   - Neither the name of the original authors nor the names of its contributors may be used to endorse
//     or promote products derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED "AS IS" WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT NOT
// LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE, AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE COPYRIGHT HOLDERS OR CONTRIBUTORS BE LIABLE FOR ANY CLAIM, DAMAGES, OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT, OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/rsr-chat/rsrserver/pkg/irc"
	"github.com/rsr-chat/rsrserver/pkg/metrics"
	"github.com/rsr-chat/rsrserver/pkg/netdiag"
	"github.com/rsr-chat/rsrserver/pkg/storage"
	"github.com/rsr-chat/rsrserver/pkg/tlsserver"
)

type options struct {
	addr         string
	cert         string
	key          string
	debug        bool
	metricsAddr  string
	idleTimeout  time.Duration
	pingDeadline time.Duration
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("rsrserver", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.cert, "c", "", "PEM-encoded certificate chain")
	fs.StringVar(&o.key, "k", "", "PEM-encoded private key")
	fs.BoolVar(&o.debug, "debug", false, "trace raw wire bytes at debug level")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	fs.DurationVar(&o.idleTimeout, "idle-timeout", irc.IdleTimeout, "idle timeout before a keepalive PING is sent")
	fs.DurationVar(&o.pingDeadline, "ping-deadline", irc.PingDeadlineSeconds, "deadline for a PONG after a keepalive PING")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() < 1 {
		return options{}, fmt.Errorf("usage: rsrserver <addr> -c <cert> -k <key>")
	}
	o.addr = fs.Arg(0)
	// Flags may also follow the positional address.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return options{}, err
	}
	if o.cert == "" || o.key == "" {
		return options{}, fmt.Errorf("-c and -k are required")
	}
	return o, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logrus.New()
	if opts.debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if opts.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	hub := irc.NewChannelHub()
	diag := netdiag.NewTable()
	collectors := metrics.Collectors{}
	store := storage.Nop{}

	srv, err := tlsserver.New(tlsserver.Config{
		Addr:     opts.addr,
		CertPath: opts.cert,
		KeyPath:  opts.key,
		NetDiag:  diag,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start server")
	}

	handler := tlsserver.HandlerFunc(func(conn net.Conn, sessionID string) {
		id, err := xid.FromString(sessionID)
		if err != nil {
			// sessionID is always minted by serveOne via xid.New().String();
			// a parse failure here would mean the two packages disagree.
			id = xid.New()
		}
		driver := irc.NewDriver(id, conn, store, hub, collectors, diag, log)
		driver.IdleTimeout = opts.idleTimeout
		driver.PingDeadline = opts.pingDeadline
		driver.Run()
	})

	log.WithField("addr", opts.addr).Info("listening")
	srv.Serve(handler)
}
