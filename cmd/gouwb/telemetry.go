// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net"
	"net/http"
	"strconv"
	"time"

	sse "github.com/alexandrevicenzi/go-sse"
	m "github.com/mkhts/gouwb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const CYCLE_CHANNEL = "/events/cycles"

// telemetry serves the Prometheus metrics and streams every cycle as an SSE event
type telemetry struct {
	metrics *m.Metrics
	events  *sse.Server
	srv     *http.Server
	addr    net.Addr
}

func startTelemetry(addr string) (*telemetry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	t := &telemetry{
		metrics: m.NewMetrics(reg),
		events: sse.NewServer(&sse.Options{
			Logger: stdlog.New(log.StandardLogger().WriterLevel(log.DebugLevel), "sse: ", 0),
		}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/events/", t.events)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.events.Shutdown()
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	t.addr = ln.Addr()
	t.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := t.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("telemetry server stopped")
		}
	}()
	log.WithField("addr", t.addr.String()).Info("telemetry listening")
	return t, nil
}

// Observe publishes res on the cycle channel
func (t *telemetry) Observe(res m.CycleResult) {
	b, err := json.Marshal(res)
	if err != nil {
		m.PrintD(1, "telemetry: %v", err)
		return
	}
	t.events.SendMessage(CYCLE_CHANNEL, sse.NewMessage(strconv.Itoa(res.Cycle), string(b), "cycle"))
}

func (t *telemetry) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	t.events.Shutdown()
	if err := t.srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("telemetry shutdown")
	}
}
