// Command costmesh starts the full multi-agent cost optimization system:
// every domain specialist as its own a2a server plus the routing agent, all
// in one process. Requests go in through a one-shot -message or an
// interactive prompt and come back as the routing agent's terminal task.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/costmesh"
	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/config"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/model"
	anthropicmodel "github.com/hupe1980/costmesh/model/anthropic"
	openaimodel "github.com/hupe1980/costmesh/model/openai"
	"github.com/hupe1980/costmesh/runloop"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML configuration file")
	message := flag.String("message", "", "process one request and exit instead of starting the interactive prompt")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "costmesh:", err)
		os.Exit(1)
	}

	logger := logging.NewSlogLogger(logging.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Format, false)

	if err := run(cfg, logger, *message); err != nil {
		logger.Error("costmesh.exit", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, message string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mdl, err := newModel(cfg.Model)
	if err != nil {
		return err
	}

	sys := costmesh.New(mdl, func(o *costmesh.Options) {
		o.Logger = logger
		o.Host = cfg.Server.Host
		o.BasePort = cfg.Server.BasePort
		o.DelegationTimeout = cfg.Routing.DelegationTimeout
		o.RemoteAgents = cfg.Routing.Agents
		o.EngineOptions = []func(o *runloop.EngineOptions){func(o *runloop.EngineOptions) {
			o.PollInitial = cfg.Run.PollInitial
			o.PollMax = cfg.Run.PollMax
			o.MaxPolls = cfg.Run.MaxPolls
			o.RunTimeout = cfg.Run.RunTimeout
		}}
	})

	if err := sys.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = sys.Shutdown() }()

	if message != "" {
		return ask(ctx, sys, message)
	}
	return repl(ctx, sys)
}

func newModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
		}), nil
	case "mock":
		return model.NewMockModel("mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func ask(ctx context.Context, sys *costmesh.System, text string) error {
	t, err := sys.Ask(ctx, text)
	if err != nil {
		return err
	}
	printTask(t)
	return nil
}

func repl(ctx context.Context, sys *costmesh.System) error {
	fmt.Println("costmesh interactive prompt. Type a request, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		t, err := sys.Ask(ctx, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		printTask(t)
	}
}

func printTask(t *a2a.Task) {
	switch t.Status.State {
	case a2a.TaskStateCompleted:
		fmt.Println(t.ResultText())
	default:
		fmt.Printf("[%s] %s\n", t.Status.State, t.ResultText())
	}
}
