package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/observability"
	"github.com/tailored-agentic-units/roundtable/scheduler"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

func newChatCmd() *cobra.Command {
	var (
		serverURL  string
		agentIDs   []string
		configFile string
		eventSinks []string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a terminal roundtable against a running proxy",
		Long:  "Reads questions from stdin and drives the turn scheduler: every agent answers, then up to two rounds of agent-to-agent discussion follow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(serverURL, agentIDs, configFile, eventSinks)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "base URL of the chat proxy")
	cmd.Flags().StringSliceVar(&agentIDs, "agents", nil, "agent IDs to seat (default: the first three in the catalog)")
	cmd.Flags().StringVar(&configFile, "config", "", "scheduler config JSON file")
	cmd.Flags().StringSliceVar(&eventSinks, "events", nil, `scheduler event sinks by registry name ("slog" logs to stderr; default: none)`)
	return cmd
}

// schedulerObserver resolves the requested sink names against the observer
// registry and fans out to all of them. With no names the scheduler stays
// silent, keeping the terminal free for the conversation itself.
func schedulerObserver(names []string) (observability.Observer, error) {
	observability.Register("slog", observability.NewSlogObserver(
		slog.New(slog.NewTextHandler(os.Stderr, nil))))

	sinks := make([]observability.Observer, 0, len(names))
	for _, name := range names {
		obs, err := observability.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(observability.Names(), ", "))
		}
		sinks = append(sinks, obs)
	}
	return observability.NewMultiObserver(sinks...), nil
}

func runChat(serverURL string, agentIDs []string, configFile string, eventSinks []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agents, err := pickAgents(ctx, serverURL, agentIDs)
	if err != nil {
		return err
	}

	cfg := scheduler.DefaultConfig()
	if configFile != "" {
		loaded, err := scheduler.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	observer, err := schedulerObserver(eventSinks)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(agents, completion.NewHTTPClient(serverURL), cfg,
		scheduler.WithObserver(observer))
	if err != nil {
		return err
	}

	var names []string
	for _, a := range agents {
		names = append(names, a.Name)
	}
	fmt.Printf("Roundtable with %s. Ask away (Ctrl+D to quit).\n", strings.Join(names, ", "))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		turn, err := sched.Ask(ctx, scanner.Text())
		if errors.Is(err, scheduler.ErrEmptyQuestion) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}

		for _, msg := range turn {
			if msg.Sender != transcript.SenderAgent {
				continue
			}
			name := msg.AgentName
			if name == "" {
				name = "roundtable"
			}
			fmt.Printf("%s: %s\n", name, msg.Text)
		}
	}

	fmt.Println("\nBye.")
	return scanner.Err()
}

// pickAgents fetches the catalog from the proxy and selects the requested
// agents, or the first three when none are named.
func pickAgents(ctx context.Context, serverURL string, agentIDs []string) ([]catalog.Agent, error) {
	available, err := fetchAgents(ctx, serverURL)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("the proxy has no agents in its catalog")
	}

	if len(agentIDs) == 0 {
		if len(available) > 3 {
			available = available[:3]
		}
		return available, nil
	}

	byID := make(map[string]catalog.Agent, len(available))
	for _, a := range available {
		byID[a.ID] = a
	}

	var picked []catalog.Agent
	for _, id := range agentIDs {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown agent %q; run `roundtable agents` to list the catalog", id)
		}
		picked = append(picked, a)
	}
	return picked, nil
}

func fetchAgents(ctx context.Context, serverURL string) ([]catalog.Agent, error) {
	url := strings.TrimRight(serverURL, "/") + "/api/agents"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the proxy at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy returned status %d for %s", resp.StatusCode, url)
	}

	var agents []catalog.Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, fmt.Errorf("failed to decode agent catalog: %w", err)
	}
	return agents, nil
}
