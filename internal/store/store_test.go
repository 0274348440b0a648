package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

func sampleConfig() domain.DebateConfig {
	return domain.DebateConfig{
		Topic:     "T",
		NumRounds: 1,
		Agents: []domain.AgentConfig{
			{AgentID: "a1", Name: "A", Role: domain.RoleDebater, MaxTokens: 100},
			{AgentID: "a2", Name: "B", Role: domain.RoleDebater, MaxTokens: 100},
		},
	}
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	s := New()
	id, err := s.Create(sampleConfig())
	require.NoError(t, err)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, got.Status)
	assert.Equal(t, "T", got.Config.Topic)
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get("missing")
	assert.Equal(t, enginerr.NotFound, enginerr.Of(err))
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	s := New()
	id, _ := s.Create(sampleConfig())

	first, _ := s.Get(id)
	first.History = append(first.History, domain.Message{Content: "mutated locally"})

	second, _ := s.Get(id)
	assert.Empty(t, second.History)
}

func TestUpdateAppendsUnderLock(t *testing.T) {
	s := New()
	id, _ := s.Create(sampleConfig())

	_, err := s.Update(id, func(d *domain.DebateState) error {
		d.History = append(d.History, domain.Message{AgentID: "a1", RoundNumber: 1, TurnNumber: 0})
		d.CurrentTurn = 1
		return nil
	})
	require.NoError(t, err)

	got, _ := s.Get(id)
	assert.Len(t, got.History, 1)
	assert.Equal(t, 1, got.CurrentTurn)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s := New()
	id, _ := s.Create(sampleConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(id, func(d *domain.DebateState) error {
				d.History = append(d.History, domain.Message{})
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get(id)
	assert.Len(t, got.History, 100)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := New()
	id, _ := s.Create(sampleConfig())
	require.NoError(t, s.Delete(id))

	_, err := s.Get(id)
	assert.Equal(t, enginerr.NotFound, enginerr.Of(err))
}

func TestListReturnsAllRecords(t *testing.T) {
	s := New()
	id1, _ := s.Create(sampleConfig())
	id2, _ := s.Create(sampleConfig())

	ids := make(map[string]bool)
	for _, snap := range s.List() {
		ids[snap.DebateID] = true
	}
	assert.True(t, ids[id1])
	assert.True(t, ids[id2])
}
