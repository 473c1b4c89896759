package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/session"
	"github.com/agentscope-go/reactcore/session/backends/file"
	"github.com/agentscope-go/reactcore/state"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	backend, err := file.New(t.TempDir())
	require.NoError(t, err)
	return session.New(backend)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	components := map[string]state.Dict{
		"memory": {"messages": []any{"hello"}},
		"toolkit": {"suspended": []any{"search"}},
	}
	require.NoError(t, st.Save(ctx, "sess-1", components))

	loaded, err := st.Load(ctx, "sess-1", false)
	require.NoError(t, err)
	assert.Equal(t, components, loaded)
}

func TestStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	_, err := st.Load(ctx, "nope", false)
	assert.ErrorIs(t, err, reacterr.ErrSessionNotFound)

	loaded, err := st.Load(ctx, "nope", true)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_InvalidID(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	err := st.Save(ctx, "../escape", map[string]state.Dict{})
	assert.ErrorIs(t, err, reacterr.ErrBadInput)

	err = st.Save(ctx, "", map[string]state.Dict{})
	assert.ErrorIs(t, err, reacterr.ErrBadInput)
}

func TestStore_SaveModulesLoadModules(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	src := &fakeModule{name: "memory", dict: state.Dict{"n": float64(3)}}
	require.NoError(t, st.SaveModules(ctx, "sess-2", src))

	dst := &fakeModule{name: "memory"}
	require.NoError(t, st.LoadModules(ctx, "sess-2", false, dst))
	assert.Equal(t, state.Dict{"n": float64(3)}, dst.dict)
}

func TestStore_ExistsListDelete(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	ok, err := st.Exists(ctx, "sess-3")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Save(ctx, "sess-3", map[string]state.Dict{"memory": {}}))

	ok, err = st.Exists(ctx, "sess-3")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "sess-3")

	info, err := st.Info(ctx, "sess-3")
	require.NoError(t, err)
	assert.Equal(t, "sess-3", info.SessionID)
	assert.Equal(t, 1, info.ComponentCount)

	require.NoError(t, st.Delete(ctx, "sess-3"))
	ok, err = st.Exists(ctx, "sess-3")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeModule struct {
	name string
	dict state.Dict
}

func (m *fakeModule) ComponentName() string { return m.name }

func (m *fakeModule) StateDict() (state.Dict, error) {
	return m.dict, nil
}

func (m *fakeModule) LoadStateDict(dict state.Dict, _ bool) error {
	m.dict = dict
	return nil
}
