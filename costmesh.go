// Package costmesh provides a high-level façade over the agent, routing and
// runloop packages for assembling the full multi-agent cost optimization
// system in one process. Most applications interact with this package by:
//  1. Creating a System via New() with the chat model of choice
//  2. Starting it with Start(), which serves every domain specialist over
//     the a2a protocol and wires the routing agent to the resolved roster
//  3. Submitting requests through Ask() and shutting down with Shutdown()
//
// All defaults are safe for local development: a synthetic cloud inventory,
// localhost listeners and a silent logger. Production deployments supply a
// real CloudClient and a structured logger.
package costmesh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/agent"
	"github.com/hupe1980/costmesh/analysis"
	"github.com/hupe1980/costmesh/capability"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/model"
	"github.com/hupe1980/costmesh/routing"
	"github.com/hupe1980/costmesh/runloop"
)

// Options configure a System.
type Options struct {
	Logger logging.Logger

	// Cloud is the inventory the specialists analyze. Defaults to the
	// synthetic StaticClient.
	Cloud analysis.CloudClient

	// Host is the base URL the specialists advertise in their cards,
	// without a port.
	Host string

	// BasePort is the first specialist's listen port; each subsequent
	// specialist listens one port higher.
	BasePort int

	// DelegationTimeout bounds how long the router waits for one delegated
	// sub-task to reach a terminal state.
	DelegationTimeout time.Duration

	// RemoteAgents lists base URLs of externally hosted specialists. When
	// set, no local specialists are served; the router delegates to these
	// addresses instead.
	RemoteAgents []string

	// EngineOptions are applied to every agent's run loop engine.
	EngineOptions []func(o *runloop.EngineOptions)
}

// System is the assembled mesh: the domain specialists served over the a2a
// protocol plus the routing agent delegating to them.
type System struct {
	mdl  model.Model
	opts Options

	addresses []string
	router    *routing.Agent
	group     *errgroup.Group
	stop      context.CancelFunc
}

// New creates a System around the given chat model. Nothing listens until
// Start is called.
func New(mdl model.Model, optFns ...func(o *Options)) *System {
	opts := Options{
		Logger:            logging.NoOpLogger{},
		Host:              "http://localhost",
		BasePort:          8001,
		DelegationTimeout: 2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Cloud == nil {
		opts.Cloud = analysis.NewStaticClient()
	}
	return &System{mdl: mdl, opts: opts}
}

// Start serves every specialist, waits for them to answer health checks and
// constructs the routing agent over the resolved roster. It returns once the
// router is ready; the servers keep running until Shutdown.
func (s *System) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel

	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	if len(s.opts.RemoteAgents) > 0 {
		s.addresses = s.opts.RemoteAgents
		return s.startRouter(gctx, cancel)
	}

	specialists := analysis.Specialists(s.opts.Cloud)
	s.addresses = make([]string, 0, len(specialists))

	for i, spec := range specialists {
		registry, err := capability.NewRegistry(spec.Capabilities, func(o *capability.RegistryOptions) {
			o.Logger = s.opts.Logger
		})
		if err != nil {
			cancel()
			return fmt.Errorf("registry for %s: %w", spec.Card.Name, err)
		}

		port := s.opts.BasePort + i
		card := spec.Card
		card.URL = fmt.Sprintf("%s:%d", s.opts.Host, port)
		s.addresses = append(s.addresses, card.URL)

		svc := runloop.NewLocalService(s.mdl, func(o *runloop.LocalServiceOptions) {
			o.Logger = s.opts.Logger
		})
		engine := runloop.NewEngine(svc, registry, s.engineOptions()...)
		exec := agent.NewSpecialist(card, spec.Instructions, engine, func(o *agent.SpecialistOptions) {
			o.Logger = s.opts.Logger
		})
		server := agent.NewServer(card, exec, func(o *agent.ServerOptions) {
			o.Logger = s.opts.Logger
		})

		listenAddr := fmt.Sprintf(":%d", port)
		g.Go(func() error {
			return server.ListenAndServe(gctx, listenAddr)
		})
	}

	s.waitReady(gctx)

	return s.startRouter(gctx, cancel)
}

func (s *System) startRouter(ctx context.Context, cancel context.CancelFunc) error {
	routerSvc := runloop.NewLocalService(s.mdl, func(o *runloop.LocalServiceOptions) {
		o.Logger = s.opts.Logger
	})
	router, err := routing.New(ctx, s.addresses, routerSvc, func(o *routing.Options) {
		o.Logger = s.opts.Logger
		o.EngineOptions = s.engineOptions()
		o.ClientOptions = []func(o *a2a.ClientOptions){func(o *a2a.ClientOptions) {
			o.Logger = s.opts.Logger
			o.WaitTimeout = s.opts.DelegationTimeout
		}}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start routing agent: %w", err)
	}
	s.router = router

	s.opts.Logger.Info("costmesh.ready", "specialists", len(router.AgentCards()))
	return nil
}

// Ask runs one user request through the routing agent and returns its
// terminal task.
func (s *System) Ask(ctx context.Context, text string) (*a2a.Task, error) {
	if s.router == nil {
		return nil, fmt.Errorf("system not started")
	}
	return s.router.ProcessMessage(ctx, text)
}

// Router returns the routing agent, or nil before Start.
func (s *System) Router() *routing.Agent { return s.router }

// Addresses returns the base URLs of the hosted specialists.
func (s *System) Addresses() []string { return s.addresses }

// Shutdown stops all servers and waits for them to drain.
func (s *System) Shutdown() error {
	if s.stop == nil {
		return nil
	}
	s.stop()
	if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *System) engineOptions() []func(o *runloop.EngineOptions) {
	base := func(o *runloop.EngineOptions) { o.Logger = s.opts.Logger }
	return append([]func(o *runloop.EngineOptions){base}, s.opts.EngineOptions...)
}

// waitReady polls each specialist's health endpoint so card resolution does
// not race server startup. Agents that never come up are left for the
// router's partial-failure handling.
func (s *System) waitReady(ctx context.Context) {
	hc := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for _, addr := range s.addresses {
		for {
			if ctx.Err() != nil {
				return
			}
			resp, err := hc.Get(addr + "/health")
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					break
				}
			}
			if time.Now().After(deadline) {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}
