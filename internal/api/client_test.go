package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herostats/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{
		APIBaseURL:        srv.URL,
		APIKey:            "test-key",
		RequestsPerMinute: 7,
	})
}

func TestGetPlayerMatches(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.Header.Get("x-api-key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("X-Ratelimit-Remaining", "5")
		fmt.Fprint(w, `{"matches":[{"match_id":"m1","mode":"competitive","season":2,"timestamp":1700000000,
			"teams":[{"team_id":0,"won":true,"players":[{"username":"a","hero_id":1011,"hero_name":"Hulk","role":"Vanguard","kills":3,"damage":1520.5}]},
			         {"team_id":1,"won":false,"players":[{"username":"b","hero_id":1014,"hero_name":"Punisher","role":"Duelist","kills":null}]}]}]}`)
	})

	resp, err := c.GetPlayerMatches(context.Background(), "some player", 20, "competitive", 2)
	require.NoError(t, err)

	assert.Equal(t, "/players/some%20player/matches", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "limit=20&mode=competitive&season=2", gotQuery)
	assert.Equal(t, 5, c.GetRateLimitInfo().Remaining)

	require.Len(t, resp.Matches, 1)
	m := resp.Matches[0]
	assert.Equal(t, "m1", m.MatchID)
	assert.Equal(t, int64(1700000000), m.Timestamp)
	require.Len(t, m.Teams, 2)
	assert.True(t, m.Teams[0].Won)

	hulk := m.Teams[0].Players[0]
	require.NotNil(t, hulk.Kills)
	assert.Equal(t, 3, *hulk.Kills)
	assert.Nil(t, hulk.Deaths)
	require.NotNil(t, hulk.Damage)
	assert.Equal(t, 1520.5, *hulk.Damage)
	assert.Nil(t, m.Teams[1].Players[0].Kills)
}

func TestGetLeaderboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/leaderboard":
			fmt.Fprint(w, `{"players":[{"username":"a","rank_tier":"Gold 2","rank_score":3100}]}`)
		case "/heroes/1011/leaderboard":
			fmt.Fprint(w, `{"players":[{"username":"b","rank_tier":"Celestial I","rank_score":5400}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	entries, err := c.GetLeaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, LeaderboardEntry{Username: "a", RankTier: "Gold 2", RankScore: 3100}, entries[0])

	entries, err = c.GetHeroLeaderboard(context.Background(), 1011, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Username)
}

func TestErrorClassification(t *testing.T) {
	var status atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})

	tests := []struct {
		status    int
		notFound  bool
		transient bool
	}{
		{http.StatusNotFound, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusBadGateway, false, true},
		{http.StatusServiceUnavailable, false, true},
		{http.StatusUnauthorized, false, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			status.Store(int32(tt.status))
			_, err := c.GetPlayerMatches(context.Background(), "a", 10, "competitive", 1)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	c := NewClient(&config.Config{APIBaseURL: "http://127.0.0.1:1", APIKey: "k"})
	_, err := c.GetLeaderboard(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"players": [`)
	})
	_, err := c.GetLeaderboard(context.Background(), 1)
	assert.ErrorContains(t, err, "decode")
}
