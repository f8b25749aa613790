// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package daemon wires the allocator, buffer chain, iterator, message, and
// router packages into a running process: a fixed worker pool that drains
// submitted deliveries, an HTTP surface for metrics and the router-table
// dump, and the logger/reload admin routes.
package daemon

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/dispatchd/allocagent"
	"github.com/packetd/dispatchd/buffer"
	"github.com/packetd/dispatchd/common"
	"github.com/packetd/dispatchd/confengine"
	"github.com/packetd/dispatchd/internal/alloc"
	"github.com/packetd/dispatchd/internal/fasttime"
	"github.com/packetd/dispatchd/internal/pubsub"
	"github.com/packetd/dispatchd/internal/sigs"
	"github.com/packetd/dispatchd/iterator"
	"github.com/packetd/dispatchd/logger"
	"github.com/packetd/dispatchd/router"
	"github.com/packetd/dispatchd/server"
)

// Config is the daemon's own `config:"daemon"` section. Area and Router
// give this process's router-address identity (see iterator.SetAddress);
// Workers overrides the default common.Concurrency() worker count, mostly
// useful for tests.
type Config struct {
	Area    string `config:"area"`
	Router  string `config:"router"`
	Workers int    `config:"workers"`
}

func (c Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return common.Concurrency()
}

// Daemon is the process: a pool of delivery-draining workers plus the HTTP
// admin/metrics surface.
type Daemon struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       Config
	buildInfo common.BuildInfo

	pool  *buffer.Pool
	table *router.Table
	svr   *server.Server

	changes *pubsub.PubSub

	workers []chan Job
}

// allocCollectorOnce guards allocagent.Register: exactly one Daemon per
// process registers the allocator collector with Prometheus's default
// registerer, so constructing a second Daemon (as daemon's own tests do)
// must not retry a registration that would collide on descriptor name.
var (
	allocCollectorOnce sync.Once
	allocCollectorErr  error
)

func registerAllocCollector() error {
	allocCollectorOnce.Do(func() {
		allocCollectorErr = allocagent.Register(alloc.Default)
	})
	return allocCollectorErr
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "dispatchd.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New builds a Daemon from conf, registering the allocator's Prometheus
// collector and installing the process's router-address identity. It does
// not start the worker pool or HTTP listener; call Start for that.
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Daemon, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("daemon", &cfg); err != nil {
		return nil, err
	}
	iterator.SetAddress(cfg.Area, cfg.Router)

	if err := registerAllocCollector(); err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		pool:      buffer.NewPool(),
		table:     router.NewTable(),
		svr:       svr,
		changes:   pubsub.New(),
	}, nil
}

// Start spins up the worker pool and, if the server section is enabled,
// the HTTP listener. It returns once both are running; ListenAndServe
// itself runs in its own goroutine so Start doesn't block on it.
func (d *Daemon) Start() error {
	d.setupServer()

	workers := d.cfg.workerCount()
	d.workers = make([]chan Job, workers)
	for i := range d.workers {
		d.workers[i] = make(chan Job, common.Concurrency())
		go d.runWorker(d.workers[i])
	}

	if d.svr != nil {
		go func() {
			if err := d.svr.ListenAndServe(); err != nil {
				logger.Errorf("failed to start server: %v", err)
			}
		}()
	}

	return nil
}

// Stop cancels every worker's context. It does not drain in-flight jobs;
// callers that need a clean drain should stop submitting new Jobs first.
func (d *Daemon) Stop() {
	d.cancel()
}

// Reload re-reads conf's daemon section and applies the settings safe to
// change without restarting: router-address identity and log level. The
// worker count and HTTP listener are fixed for the process's lifetime.
// Both settings are attempted even if one fails, the errors aggregated
// with go-multierror so a broken daemon section doesn't hide a broken
// logger section.
func (d *Daemon) Reload(conf *confengine.Config) error {
	var errs *multierror.Error

	var cfg Config
	if err := conf.UnpackChild("daemon", &cfg); err != nil {
		errs = multierror.Append(errs, err)
	} else {
		iterator.SetAddress(cfg.Area, cfg.Router)
		d.cfg.Area, d.cfg.Router = cfg.Area, cfg.Router
	}

	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		errs = multierror.Append(errs, err)
	} else {
		logger.SetLoggerLevel(opts.Level)
	}

	return errs.ErrorOrNil()
}

// Table returns the router's address-to-link directory, for callers that
// need read-only access (the HTTP /router/table route, tests) without
// going through the change-notifying Bind/Unbind below.
func (d *Daemon) Table() *router.Table {
	return d.table
}

// BindLink binds link to address and publishes the change to every
// /router/watch subscriber.
func (d *Daemon) BindLink(address string, link router.LinkID) {
	d.table.Bind(address, link)
	d.changes.Publish(routerChange{Address: address, Link: link, Bound: true})
}

// UnbindLink unbinds link from address and publishes the change to every
// /router/watch subscriber.
func (d *Daemon) UnbindLink(address string, link router.LinkID) {
	d.table.Unbind(address, link)
	d.changes.Publish(routerChange{Address: address, Link: link, Bound: false})
}

// Pool returns the Daemon's own buffer pool, for composing messages outside
// the workers. Each worker receives deliveries into a pool of its own.
func (d *Daemon) Pool() *buffer.Pool {
	return d.pool
}

func (d *Daemon) setupServer() {
	if d.svr == nil {
		return
	}

	d.svr.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		d.recordMetrics()
		promhttp.Handler().ServeHTTP(w, r)
	})
	d.svr.RegisterGetRoute("/router/table", d.table.ServeHTTP)
	d.svr.RegisterGetRoute("/router/watch", d.routeWatch)
	d.svr.RegisterPostRoute("/-/logger", d.routeLogger)
	d.svr.RegisterPostRoute("/-/reload", d.routeReload)
}

func (d *Daemon) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

func (d *Daemon) routeReload(w http.ResponseWriter, r *http.Request) {
	if err := sigs.SelfReload(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
}

// routerChange is one Bind/Unbind notification published to /router/watch
// subscribers.
type routerChange struct {
	Address string        `json:"address"`
	Link    router.LinkID `json:"link"`
	Bound   bool          `json:"bound"`
}

// routeWatch streams BindLink/UnbindLink notifications as newline-delimited
// JSON until maxMessage lines have been sent or timeout elapses without a
// new one.
func (d *Daemon) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	maxMessage, _ := strconv.Atoi(r.URL.Query().Get("max_message"))
	if maxMessage <= 0 {
		maxMessage = 100
	}
	timeout, _ := time.ParseDuration(r.URL.Query().Get("timeout"))
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	queue := d.changes.Subscribe(10)
	defer d.changes.Unsubscribe(queue)

	for i := 0; i < maxMessage; i++ {
		data, ok := queue.PopTimeout(timeout)
		if !ok {
			return
		}
		change, ok := data.(routerChange)
		if !ok {
			continue
		}
		b, err := json.Marshal(change)
		if err != nil {
			continue
		}
		w.Write(b)
		w.Write([]byte{'\n'})
		flusher.Flush()
	}
}

// recordMetrics refreshes the uptime/build-info gauges just before a
// scrape, using fasttime's cached clock rather than time.Now.
func (d *Daemon) recordMetrics() {
	uptime.Set(float64(fasttime.UnixTimestamp() - common.Started()))
	buildInfo.WithLabelValues(d.buildInfo.Version, d.buildInfo.GitHash, d.buildInfo.Time).Set(1)
	routerTableSize.Set(float64(d.table.Len()))
}
