// Package routing implements the orchestrating entry point: a routing agent
// whose model's only path to action is delegating sub-tasks to discovered
// specialist agents via the a2a protocol.
//
// At startup the agent resolves the cards of its configured specialists
// (partial-failure tolerant), builds one connection per card, and registers a
// single capability, send_message(agent_name, task). The instruction text
// handed to the model is rendered from the live card set, so the model only
// ever sees delegation targets that actually resolved.
package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/agent"
	"github.com/hupe1980/costmesh/capability"
	"github.com/hupe1980/costmesh/internal/util"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/runloop"
	"github.com/hupe1980/costmesh/task"
)

// ErrUnknownAgent reports a delegation target absent from the resolved card
// set. Always surfaced to the model as an error payload naming the valid
// agents, never out of the run loop.
var ErrUnknownAgent = errors.New("unknown agent")

// Agent is the routing orchestrator. The card set and connections are
// established once at startup and read-only thereafter; a specialist
// restarting means restarting the router.
type Agent struct {
	cards      map[string]*a2a.AgentCard
	conns      map[string]*a2a.Client
	specialist *agent.Specialist
	tasks      *task.Store
	contextID  string
	logger     logging.Logger

	remoteMu sync.Mutex
	remotes  map[string]remoteRef // local task id -> in-flight delegation
}

type remoteRef struct {
	agentName string
	taskID    string
}

// Options configure the routing agent.
type Options struct {
	Logger logging.Logger

	// Card is the identity the router itself publishes when served.
	Card a2a.AgentCard

	// Resolver overrides card resolution (tests).
	Resolver *a2a.CardResolver

	// ClientOptions are applied to every specialist connection.
	ClientOptions []func(o *a2a.ClientOptions)

	// EngineOptions are applied to the router's run loop engine.
	EngineOptions []func(o *runloop.EngineOptions)
}

// New resolves the given specialist addresses and constructs the routing
// agent on top of the run service. Unreachable specialists are dropped;
// construction succeeds with whatever subset resolved.
func New(ctx context.Context, addresses []string, svc runloop.RunService, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Card.Name == "" {
		opts.Card = a2a.AgentCard{
			Name:        "Cost Optimization Routing Agent",
			Description: "Routes cloud cost optimization requests to specialized analysis agents.",
		}
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = a2a.NewCardResolver(func(o *a2a.CardResolverOptions) { o.Logger = opts.Logger })
	}

	cards := resolver.ResolveAll(ctx, addresses)
	if len(cards) == 0 {
		opts.Logger.Warn("routing.no_agents_resolved", "addresses", strings.Join(addresses, ","))
	}

	conns := make(map[string]*a2a.Client, len(cards))
	for name, card := range cards {
		conns[name] = a2a.NewClient(*card, opts.ClientOptions...)
	}

	a := &Agent{
		cards:     cards,
		conns:     conns,
		tasks:     task.NewStore(),
		contextID: util.NewID(),
		logger:    opts.Logger.With("component", "routing"),
		remotes:   make(map[string]remoteRef),
	}

	registry, err := capability.NewRegistry(
		[]capability.Capability{a.sendMessageCapability()},
		func(o *capability.RegistryOptions) { o.Logger = opts.Logger },
	)
	if err != nil {
		return nil, err
	}

	instructions, err := buildInstructions(a.AgentCards())
	if err != nil {
		return nil, fmt.Errorf("render routing instructions: %w", err)
	}

	engine := runloop.NewEngine(svc, registry, opts.EngineOptions...)
	a.specialist = agent.NewSpecialist(opts.Card, instructions, engine, func(o *agent.SpecialistOptions) {
		o.Logger = opts.Logger
	})

	return a, nil
}

// AgentCards returns the resolved specialist cards, sorted by name.
func (a *Agent) AgentCards() []a2a.AgentCard {
	cards := make([]a2a.AgentCard, 0, len(a.cards))
	for _, card := range a.cards {
		cards = append(cards, *card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards
}

// Executor returns the router as an agent.Executor so it can be served over
// the a2a protocol like any specialist.
func (a *Agent) Executor() agent.Executor { return a }

// Execute implements agent.Executor.
func (a *Agent) Execute(ctx context.Context, mgr *task.Manager, msg a2a.Message) {
	ctx = withTaskID(ctx, mgr.ID())
	a.specialist.Execute(ctx, mgr, msg)
}

// CancelTask implements agent.Executor. Cancels the local run and fires a
// best-effort cancel at the delegated remote task, if one is in flight. The
// local task resolves regardless of the remote outcome.
func (a *Agent) CancelTask(taskID string) bool {
	ok := a.specialist.CancelTask(taskID)

	a.remoteMu.Lock()
	ref, inFlight := a.remotes[taskID]
	a.remoteMu.Unlock()

	if inFlight {
		if conn, exists := a.conns[ref.agentName]; exists {
			go func() {
				cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if _, err := conn.CancelTask(cancelCtx, ref.taskID); err != nil {
					a.logger.Warn("routing.remote_cancel.failed", "agent", ref.agentName, "task_id", ref.taskID, "error", err.Error())
				}
			}()
		}
	}
	return ok
}

// ProcessMessage runs one user request end to end: create a task, drive the
// run loop, return the terminal task. The returned task is completed, failed
// or canceled; it never hangs past the engine's bounds.
func (a *Agent) ProcessMessage(ctx context.Context, text string) (*a2a.Task, error) {
	mgr := task.NewManager(util.NewID(), a.contextID, func(o *task.ManagerOptions) {
		o.Logger = a.logger
	})
	if err := mgr.Submit(); err != nil {
		return nil, err
	}
	if err := a.tasks.Add(mgr); err != nil {
		return nil, err
	}
	defer a.tasks.Remove(mgr.ID())

	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	msg.TaskID = mgr.ID()
	msg.ContextID = a.contextID
	_ = mgr.AddMessage(msg)

	a.Execute(ctx, mgr, msg)

	return mgr.Task(), nil
}

// sendMessageCapability is the router's sole capability: delegate a sub-task
// to a named specialist and wait for its terminal result.
func (a *Agent) sendMessageCapability() capability.Capability {
	return capability.NewFunction(
		"send_message",
		"Send a task to a specialized cloud cost optimization agent and return its result. "+
			"This is the only way to analyze resources or produce recommendations.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_name": map[string]any{
					"type":        "string",
					"description": "Exact name of the agent to send the task to, as listed in the instructions.",
				},
				"task": map[string]any{
					"type":        "string",
					"description": "The user's request or question to be processed by the agent.",
				},
			},
			"required": []string{"agent_name", "task"},
		},
		a.sendMessage,
	)
}

func (a *Agent) sendMessage(ctx context.Context, args map[string]any) (any, error) {
	agentName, _ := args["agent_name"].(string)
	taskText, _ := args["task"].(string)

	conn, ok := a.conns[agentName]
	if !ok {
		return nil, fmt.Errorf("%w: %q; available agents: %s", ErrUnknownAgent, agentName, strings.Join(a.agentNames(), ", "))
	}

	msg := a2a.NewTextMessage(a2a.RoleUser, taskText)

	a.logger.Info("routing.delegate.send", "agent", agentName)

	remote, err := conn.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	localTaskID := taskIDFrom(ctx)
	a.trackRemote(localTaskID, remoteRef{agentName: agentName, taskID: remote.ID})
	defer a.untrackRemote(localTaskID)

	if !remote.Status.State.Terminal() {
		remote, err = conn.WaitForTerminal(ctx, remote.ID)
		if err != nil {
			return nil, err
		}
	}

	a.logger.Info("routing.delegate.done", "agent", agentName, "remote_task_id", remote.ID, "state", remote.Status.State)

	switch remote.Status.State {
	case a2a.TaskStateCompleted:
		return remote.ResultText(), nil
	case a2a.TaskStateCanceled:
		return nil, fmt.Errorf("agent %s canceled the task", agentName)
	default:
		reason := remote.ResultText()
		if reason == "" {
			reason = string(remote.Status.State)
		}
		return nil, fmt.Errorf("agent %s could not complete the task: %s", agentName, reason)
	}
}

func (a *Agent) agentNames() []string {
	names := make([]string, 0, len(a.conns))
	for name := range a.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Agent) trackRemote(localTaskID string, ref remoteRef) {
	if localTaskID == "" {
		return
	}
	a.remoteMu.Lock()
	defer a.remoteMu.Unlock()
	a.remotes[localTaskID] = ref
}

func (a *Agent) untrackRemote(localTaskID string) {
	if localTaskID == "" {
		return
	}
	a.remoteMu.Lock()
	defer a.remoteMu.Unlock()
	delete(a.remotes, localTaskID)
}

type ctxKey struct{}

func withTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, taskID)
}

func taskIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
