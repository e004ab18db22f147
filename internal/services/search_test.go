package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRanksExactAboveSubstringAboveDescription(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Create("alice", "deploy notes", "mentions foo in passing", nil)
	require.NoError(t, err)
	_, err = s.Create("alice", "foo rollout", "", nil)
	require.NoError(t, err)
	_, err = s.Create("alice", "foo", "", nil)
	require.NoError(t, err)
	_, err = s.Create("alice", "unrelated", "", nil)
	require.NoError(t, err)

	matches := s.Search("foo", 10)
	require.Len(t, matches, 3)
	assert.Equal(t, "foo", matches[0].Entry.Task.Title)
	assert.Equal(t, "foo rollout", matches[1].Entry.Task.Title)
	assert.Equal(t, "deploy notes", matches[2].Entry.Task.Title)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Greater(t, matches[1].Score, matches[2].Score)
}

func TestSearchRespectsLimitAndStableOrder(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Create("alice", "report alpha", "", nil)
	require.NoError(t, err)
	_, err = s.Create("alice", "report beta", "", nil)
	require.NoError(t, err)

	matches := s.Search("report", 1)
	require.Len(t, matches, 1)
	// Equal scores keep the scan order.
	assert.Equal(t, "report alpha", matches[0].Entry.Task.Title)
}

func TestSearchEmptyQuery(t *testing.T) {
	s, _ := newTestService(t)
	assert.Empty(t, s.Search("   ", 10))
}
