package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/costmesh/logging"
)

// CardResolver fetches agent cards from their well-known path.
type CardResolver struct {
	hc     *http.Client
	logger logging.Logger
}

// CardResolverOptions configure a CardResolver.
type CardResolverOptions struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// NewCardResolver constructs a resolver with a 30s default HTTP timeout.
func NewCardResolver(optFns ...func(o *CardResolverOptions)) *CardResolver {
	opts := CardResolverOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &CardResolver{hc: opts.HTTPClient, logger: opts.Logger}
}

// Resolve fetches and validates the agent card published at baseURL.
func (r *CardResolver) Resolve(ctx context.Context, baseURL string) (*AgentCard, error) {
	targetURL := strings.TrimRight(baseURL, "/") + AgentCardWellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, &DiscoveryError{URL: baseURL, Cause: err}
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: baseURL, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DiscoveryError{URL: baseURL, Cause: fmt.Errorf("unexpected status %d from %s", resp.StatusCode, targetURL)}
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, &DiscoveryError{URL: baseURL, Malformed: true, Cause: err}
	}
	if card.Name == "" {
		return nil, &DiscoveryError{URL: baseURL, Malformed: true, Cause: fmt.Errorf("card has no name")}
	}
	if card.URL == "" {
		// Fall back to the address the card was resolved from so name+url
		// always suffice to rebuild a connection.
		card.URL = baseURL
	}

	return &card, nil
}

// ResolveAll fans out over the given addresses concurrently and returns the
// cards that resolved, keyed by agent name. Discovery failures are dropped
// with a warning: unreachable specialists must not prevent the rest from
// being registered. Name collisions resolve last-wins and are logged.
func (r *CardResolver) ResolveAll(ctx context.Context, addresses []string) map[string]*AgentCard {
	var mu sync.Mutex
	cards := make(map[string]*AgentCard)

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addresses {
		addr := addr
		g.Go(func() error {
			card, err := r.Resolve(gctx, addr)
			if err != nil {
				r.logger.Warn("a2a.discovery.failed", "address", addr, "error", err.Error())
				return nil // partial failure tolerant
			}

			mu.Lock()
			defer mu.Unlock()
			if _, exists := cards[card.Name]; exists {
				r.logger.Warn("a2a.discovery.duplicate_name", "name", card.Name, "address", addr)
			}
			cards[card.Name] = card

			r.logger.Info("a2a.discovery.resolved", "name", card.Name, "url", card.URL, "skills", len(card.Skills))
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; Wait only synchronizes

	return cards
}
