package gatenats

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNATS(t *testing.T) *NATS {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	n, err := New(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestPublishSubscribe(t *testing.T) {
	n := startNATS(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var got []byte
	sub, err := n.Subscribe("auth.login", func(data []byte) {
		got = data
		wg.Done()
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, n.Publish("auth.login", []byte(`{"ok":true}`)))
	wg.Wait()
	assert.JSONEq(t, `{"ok":true}`, string(got))
}

func TestEnsureStreamAndReplay(t *testing.T) {
	n := startNATS(t)

	cfg := StreamConfig{Name: "LOGINS", Subjects: []string{"auth.>"}, MaxMsgs: 10, MaxAge: time.Hour}
	require.NoError(t, n.EnsureStream(cfg))
	require.NoError(t, n.EnsureStream(cfg), "second call updates in place")

	require.NoError(t, n.Publish("auth.login", []byte("one")))
	require.NoError(t, n.Publish("auth.login", []byte("two")))
	require.NoError(t, n.nc.Flush())

	msgs, err := n.Replay("auth.login", 10)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, msgs)
}

func TestReplayKeepsNewestMessages(t *testing.T) {
	n := startNATS(t)
	require.NoError(t, n.EnsureStream(StreamConfig{Name: "LOGINS", Subjects: []string{"auth.>"}, MaxMsgs: 1000}))

	for i := 0; i < 150; i++ {
		require.NoError(t, n.Publish("auth.login", []byte(strconv.Itoa(i))))
	}
	require.NoError(t, n.nc.Flush())

	require.Eventually(t, func() bool {
		info, err := n.js.StreamInfo("LOGINS")
		return err == nil && info.State.Msgs == 150
	}, 5*time.Second, 20*time.Millisecond)

	msgs, err := n.Replay("auth.login", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 100)
	assert.Equal(t, "50", string(msgs[0]))
	assert.Equal(t, "149", string(msgs[99]))

	none, err := n.Replay("auth.login", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
