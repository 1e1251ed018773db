package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse(t *testing.T) {
	t.Run("Hidden user is shown offline", func(t *testing.T) {
		raw := map[int]Status{1: {UserID: 1, Online: true}}
		privacy := map[int]PrivacySettings{1: {HideOnlineStatus: true}}

		got := Fuse(raw, privacy)
		assert.Equal(t, DisplayPresence{UserID: 1, Online: false}, got.For(1))
	})

	t.Run("Missing privacy record defaults to visible", func(t *testing.T) {
		raw := map[int]Status{2: {UserID: 2, Online: true}}

		got := Fuse(raw, map[int]PrivacySettings{})
		assert.True(t, got.For(2).Online)
	})

	t.Run("Missing raw presence is offline", func(t *testing.T) {
		got := Fuse(map[int]Status{}, map[int]PrivacySettings{3: {}})
		assert.Equal(t, DisplayPresence{UserID: 3}, got.For(3))
		assert.NotContains(t, got, 3)
	})

	t.Run("Offline raw stays offline when visible", func(t *testing.T) {
		got := Fuse(map[int]Status{4: {UserID: 4}}, nil)
		assert.False(t, got.For(4).Online)
	})

	t.Run("Concurrent calls over shared inputs agree", func(t *testing.T) {
		raw := map[int]Status{1: {UserID: 1, Online: true}, 2: {UserID: 2, Online: true}}
		privacy := map[int]PrivacySettings{2: {HideOnlineStatus: true}}

		var wg sync.WaitGroup
		results := make([]Display, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = Fuse(raw, privacy)
			}(i)
		}
		wg.Wait()
		for _, d := range results {
			assert.Equal(t, results[0], d)
		}
	})
}

func TestOfflineAndIsOnline(t *testing.T) {
	d := Offline([]int{1, 2})
	assert.Len(t, d, 2)
	assert.False(t, d.For(1).Online)

	now := time.Now()
	assert.True(t, IsOnline(now.Add(-30*time.Second), now, 90*time.Second))
	assert.False(t, IsOnline(now.Add(-2*time.Minute), now, 90*time.Second))
	assert.False(t, IsOnline(time.Time{}, now, 90*time.Second))
}

func TestHub(t *testing.T) {
	t.Run("Subscriber receives updates for watched users only", func(t *testing.T) {
		h := NewHub(4)
		ch, cancel := h.Subscribe([]int{1, 2})
		defer cancel()

		h.Publish(Status{UserID: 3, Online: true})
		h.Publish(Status{UserID: 2, Online: true})

		select {
		case s := <-ch:
			assert.Equal(t, 2, s.UserID)
		case <-time.After(time.Second):
			t.Fatal("expected an update for user 2")
		}
		assert.Empty(t, ch)
	})

	t.Run("Full buffer drops instead of blocking", func(t *testing.T) {
		h := NewHub(1)
		ch, cancel := h.Subscribe([]int{1})
		defer cancel()

		h.Publish(Status{UserID: 1, Online: true})
		h.Publish(Status{UserID: 1, Online: false})
		require.Len(t, ch, 1)
		assert.True(t, (<-ch).Online)
	})

	t.Run("Cancel removes the ids subscribed even if the caller reuses its slice", func(t *testing.T) {
		h := NewHub(1)
		ids := []int{1, 2}
		_, cancel := h.Subscribe(ids)
		ids[0], ids[1] = 3, 4

		cancel()
		assert.Equal(t, 0, h.Watchers(1))
		assert.Equal(t, 0, h.Watchers(2))
	})

	t.Run("Cancel closes the channel and removes watchers", func(t *testing.T) {
		h := NewHub(1)
		ch, cancel := h.Subscribe([]int{7, 7})
		assert.Equal(t, 1, h.Watchers(7))

		cancel()
		cancel()
		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, h.Watchers(7))

		h.Publish(Status{UserID: 7})
	})
}
