package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/petrkubec/nearby/discovery"
	"gitea.kood.tech/petrkubec/nearby/filters"
	"gitea.kood.tech/petrkubec/nearby/presence"
)

var helsinki = discovery.Coordinate{Latitude: 60.1699, Longitude: 24.9384}

// fakeIndex serves fixed hits, optionally failing the first failures calls.
type fakeIndex struct {
	mu       sync.Mutex
	hits     []discovery.Hit
	failures int
	calls    int
}

func (f *fakeIndex) QueryNearby(_ context.Context, _ discovery.Coordinate, _ float64, _ filters.Predicate, _ int) ([]discovery.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures < 0 || f.calls <= f.failures {
		return nil, errors.New("index down")
	}
	return f.hits, nil
}

func (f *fakeIndex) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePresence is an in-memory heartbeat store.
type fakePresence struct {
	mu     sync.Mutex
	online map[int]bool
	err    error
}

func (f *fakePresence) Touch(_ context.Context, userID int) (presence.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return presence.Status{}, f.err
	}
	f.online[userID] = true
	return presence.Status{UserID: userID, Online: true, LastSeenAt: time.Now()}, nil
}

func (f *fakePresence) Statuses(_ context.Context, ids []int) (map[int]presence.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int]presence.Status)
	for _, id := range ids {
		if f.online[id] {
			out[id] = presence.Status{UserID: id, Online: true}
		}
	}
	return out, nil
}

type fakePrivacy map[int]presence.PrivacySettings

func (f fakePrivacy) Settings(context.Context, []int) (map[int]presence.PrivacySettings, error) {
	return f, nil
}

type testEnv struct {
	app      *app
	index    *fakeIndex
	presence *fakePresence
	server   http.Handler
}

func newTestEnv(t *testing.T, hits ...discovery.Hit) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := Config{
		JWTSecret:          []byte("test-secret-key-for-testing"),
		PresenceWindow:     time.Minute,
		DiscoverMaxRetries: 2,
		DiscoverRetryBase:  time.Millisecond,
	}
	index := &fakeIndex{hits: hits}
	pres := &fakePresence{online: map[int]bool{}}
	privacy := fakePrivacy{}

	a := &app{
		cfg:      cfg,
		log:      logger,
		beats:    pres,
		statuses: pres,
		privacy:  privacy,
		hub:      presence.NewHub(16),
		metrics:  newMetrics(prometheus.NewRegistry()),
		retry:    newDiscoverRetryPolicy(cfg),
	}
	a.ranker = discovery.NewRanker(index, pres, privacy, nil, logger)
	return &testEnv{app: a, index: index, presence: pres, server: a.routes()}
}

func (e *testEnv) token(t *testing.T, userID int) string {
	t.Helper()
	tok, err := e.app.issueToken(userID)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// north offsets c by meters due north.
func north(c discovery.Coordinate, meters float64) discovery.Coordinate {
	return discovery.Coordinate{Latitude: c.Latitude + meters/111195, Longitude: c.Longitude}
}
