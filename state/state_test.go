package state_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/state"
)

type fakeModule struct {
	name string
	dict state.Dict
}

func (f *fakeModule) ComponentName() string { return f.name }
func (f *fakeModule) StateDict() (state.Dict, error) {
	return f.dict, nil
}
func (f *fakeModule) LoadStateDict(v state.Dict, strict bool) error {
	if strict {
		if unknown := state.UnknownKeys(v, map[string]struct{}{"x": {}}); len(unknown) > 0 {
			return &state.UnknownKeysError{Component: f.name, Keys: unknown}
		}
	}
	f.dict = v
	return nil
}

func TestAggregateAndRestore(t *testing.T) {
	a := &fakeModule{name: "a", dict: state.Dict{"x": 1}}
	b := &fakeModule{name: "b", dict: state.Dict{"x": 2}}

	doc, err := state.Aggregate(a, b)
	require.NoError(t, err)
	require.Equal(t, state.Dict{"x": 1}, doc["a"])
	require.Equal(t, state.Dict{"x": 2}, doc["b"])

	a2 := &fakeModule{name: "a"}
	b2 := &fakeModule{name: "b"}
	require.NoError(t, state.Restore(doc, true, a2, b2))
	require.Equal(t, a.dict, a2.dict)
	require.Equal(t, b.dict, b2.dict)
}

func TestRestoreStrictRejectsUnknownKeys(t *testing.T) {
	doc := map[string]state.Dict{"a": {"y": 1}}
	a := &fakeModule{name: "a"}
	err := state.Restore(doc, true, a)
	require.Error(t, err)
	require.True(t, errors.Is(err, state.ErrUnknownKeys))
}

func TestRestoreNonStrictIgnoresUnknownKeys(t *testing.T) {
	doc := map[string]state.Dict{"a": {"y": 1}}
	a := &fakeModule{name: "a"}
	require.NoError(t, state.Restore(doc, false, a))
}

func TestRestoreSkipsAbsentComponents(t *testing.T) {
	doc := map[string]state.Dict{}
	a := &fakeModule{name: "a", dict: state.Dict{"x": 1}}
	require.NoError(t, state.Restore(doc, true, a))
	require.Equal(t, state.Dict{"x": 1}, a.dict)
}
