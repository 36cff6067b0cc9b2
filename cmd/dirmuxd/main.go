// File: cmd/dirmuxd/main.go
// dirmuxd is the directory protocol transport daemon: it accepts
// stream and datagram peers, decodes compare operations through the
// session filter chain and answers them.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/buffer"
	"github.com/momentics/dirmux/control"
	"github.com/momentics/dirmux/filter"
	"github.com/momentics/dirmux/logging"
	"github.com/momentics/dirmux/message"
	"github.com/momentics/dirmux/reactor"
	"github.com/momentics/dirmux/session"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "dirmuxd:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, v, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store := control.NewConfigStore()
	store.Merge(v.AllSettings())
	metrics := control.NewMetricsRegistry()
	registry := session.NewRegistry(0)
	pool := buffer.NewPool(cfg.Reactor.PoolPerClass)

	install := func(s api.Session) {
		chain := s.FilterChain()
		_ = chain.AddLast("codec", filter.NewCodec())
		_ = chain.AddLast("errors", errorCounter{metrics: metrics})
		_ = chain.AddLast("logging", filter.NewLogging(log))
		_ = chain.AddLast("compare", compareHandler{log: log})
	}

	opts := []reactor.Option{
		reactor.WithLogger(log),
		reactor.WithMetrics(metrics),
		reactor.WithRegistry(registry),
		reactor.WithBufferPool(pool),
		reactor.WithReadBufferSize(cfg.Reactor.ReadBufferSize),
		reactor.WithChainInstaller(install),
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-hup:
				reloadConfig(v, store, log)
			}
		}
	})

	if cfg.Listen.Stream != "" {
		poller, err := reactor.NewPoller()
		if err != nil {
			return err
		}
		demux := reactor.NewStreamDemux(poller, opts...)
		lis, err := reactor.Listen("tcp", cfg.Listen.Stream)
		if err != nil {
			return err
		}
		if err := demux.AddListener(lis); err != nil {
			return err
		}
		g.Go(func() error { return demux.Run(ctx) })
	}

	if cfg.Listen.Datagram != "" {
		pc, err := reactor.ListenPacket("udp", cfg.Listen.Datagram)
		if err != nil {
			return err
		}
		demux := reactor.NewDatagramDemux(pc, opts...)
		g.Go(func() error { return demux.Run(ctx) })
	}

	log.Info("dirmuxd started",
		zap.String("stream", cfg.Listen.Stream),
		zap.String("datagram", cfg.Listen.Datagram))

	err = g.Wait()
	if err == context.Canceled {
		err = nil
	}
	log.Info("dirmuxd stopped", zap.Any("counters", metrics.Snapshot()))
	return err
}

// reloadConfig re-reads the configuration source on SIGHUP and
// publishes the merged settings to the store's reload listeners.
func reloadConfig(v *viper.Viper, store *control.ConfigStore, log *zap.Logger) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			log.Warn("config reload failed", zap.Error(err))
			return
		}
	}
	store.Merge(v.AllSettings())
	log.Info("configuration reloaded")
}

// errorCounter sits above the codec and counts its decode failures
// before letting the exception continue towards the terminal close.
type errorCounter struct {
	filter.PassThrough
	metrics *control.MetricsRegistry
}

func (f errorCounter) OnExceptionCaught(ctx api.FilterContext, err error) {
	f.metrics.Inc(control.MetricDecodeErrors)
	ctx.NextException(err)
}

// compareHandler terminates the chain: it evaluates compare requests
// against the entry's attribute assertions and writes the response.
//
// The evaluation here is structural (the request carries its own
// assertion); a backing directory would slot in behind this filter.
type compareHandler struct {
	filter.PassThrough
	log *zap.Logger
}

func (h compareHandler) OnMessageReceived(ctx api.FilterContext, msg any) {
	req, ok := msg.(*message.CompareRequest)
	if !ok {
		ctx.NextMessage(msg)
		return
	}
	resp := &message.CompareResponse{
		ResultCode: message.ResultCompareTrue,
		MatchedDN:  req.Entry,
	}
	if len(req.AssertionValue) == 0 {
		resp.ResultCode = message.ResultCompareFalse
	}
	ctx.Session().Write(resp)
}
