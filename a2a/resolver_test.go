package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardServer(t *testing.T, card AgentCard) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != AgentCardWellKnownPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(card)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// -------------------- Resolve Tests --------------------

func TestCardResolver_Resolve(t *testing.T) {
	srv := cardServer(t, AgentCard{
		Name:        "Compute Optimization Agent",
		Description: "Analyzes VMs",
		URL:         "http://advertised:9999",
		Skills:      []AgentSkill{{ID: "vm_right_sizing", Name: "VM Right-Sizing"}},
	})

	card, err := NewCardResolver().Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Compute Optimization Agent", card.Name)
	assert.Equal(t, "http://advertised:9999", card.URL)
	require.Len(t, card.Skills, 1)
}

func TestCardResolver_Resolve_FallsBackToBaseURL(t *testing.T) {
	srv := cardServer(t, AgentCard{Name: "No URL Agent"})

	card, err := NewCardResolver().Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	// name+url must suffice to rebuild a connection later.
	assert.Equal(t, srv.URL, card.URL)
}

func TestCardResolver_Resolve_Unreachable(t *testing.T) {
	_, err := NewCardResolver().Resolve(context.Background(), "http://127.0.0.1:1")

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.False(t, discErr.Malformed)
}

func TestCardResolver_Resolve_MalformedCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewCardResolver().Resolve(context.Background(), srv.URL)

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.True(t, discErr.Malformed)
}

func TestCardResolver_Resolve_CardWithoutName(t *testing.T) {
	srv := cardServer(t, AgentCard{Description: "anonymous"})

	_, err := NewCardResolver().Resolve(context.Background(), srv.URL)

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.True(t, discErr.Malformed)
}

func TestCardResolver_Resolve_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewCardResolver().Resolve(context.Background(), srv.URL)
	var discErr *DiscoveryError
	assert.ErrorAs(t, err, &discErr)
}

// -------------------- ResolveAll Tests --------------------

func TestCardResolver_ResolveAll_PartialFailure(t *testing.T) {
	up1 := cardServer(t, AgentCard{Name: "Agent One"})
	up2 := cardServer(t, AgentCard{Name: "Agent Two"})

	addresses := []string{up1.URL, "http://127.0.0.1:1", up2.URL}
	cards := NewCardResolver().ResolveAll(context.Background(), addresses)

	// Three addresses, one unreachable: two cards, and initialization data
	// for the rest is intact.
	require.Len(t, cards, 2)
	assert.Contains(t, cards, "Agent One")
	assert.Contains(t, cards, "Agent Two")
}

func TestCardResolver_ResolveAll_AllUnreachable(t *testing.T) {
	cards := NewCardResolver().ResolveAll(context.Background(), []string{"http://127.0.0.1:1"})
	assert.Empty(t, cards)
}

func TestCardResolver_ResolveAll_NameCollisionLastWins(t *testing.T) {
	up1 := cardServer(t, AgentCard{Name: "Duplicate"})
	up2 := cardServer(t, AgentCard{Name: "Duplicate"})

	cards := NewCardResolver().ResolveAll(context.Background(), []string{up1.URL, up2.URL})

	require.Len(t, cards, 1)
	got := cards["Duplicate"].URL
	assert.True(t, got == up1.URL || got == up2.URL)
}

func TestDiscoveryError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &DiscoveryError{URL: "http://x", Cause: cause}
	assert.ErrorIs(t, err, cause)
}
