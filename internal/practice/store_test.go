package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	st := NewStore(&fakeJudge{}, Options{DefaultDifficulty: "hard"}, time.Hour, 0)
	defer st.Close()

	s := st.Create()
	require.NotEmpty(t, s.ID())
	assert.Equal(t, 1, st.Len())

	got, err := st.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, "hard", got.defaultDifficulty)

	other := st.Create()
	assert.NotEqual(t, s.ID(), other.ID())

	require.NoError(t, st.Delete(s.ID()))
	_, err = st.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, st.Delete(s.ID()), ErrSessionNotFound)

	assert.Equal(t, 1, st.GetStats()["active_sessions"])
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	st := NewStore(&fakeJudge{}, Options{}, time.Minute, 0)
	defer st.Close()

	idle := st.Create()
	fresh := st.Create()

	idle.mu.Lock()
	idle.lastUsed = time.Now().Add(-2 * time.Minute)
	idle.mu.Unlock()

	assert.Equal(t, 1, st.evictIdle(time.Now()))

	_, err := st.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestStoreCloseIsIdempotent(t *testing.T) {
	st := NewStore(&fakeJudge{}, Options{}, time.Minute, time.Millisecond)
	assert.NotPanics(t, func() {
		st.Close()
		st.Close()
	})
}
