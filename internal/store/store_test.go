package store

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func counterSlice(key string) Slice {
	return Define(key, 0, func(n int, a Action) int {
		if a.Type() == "INC" {
			return n + 1
		}
		return n
	})
}

func listSlice(key string) Slice {
	return Define(key, []string(nil), func(list []string, a Action) []string {
		act, ok := a.(Act)
		if !ok || act.Kind != "ADD" {
			return list
		}
		next := make([]string, 0, len(list)+1)
		next = append(next, list...)
		return append(next, act.Payload.(string))
	})
}

func untouchedSlice(key string) Slice {
	return Define(key, map[string]int{"seed": 7}, func(m map[string]int, _ Action) map[string]int {
		return m
	})
}

func newABC(t *testing.T, opts Options) *Store {
	t.Helper()
	reg, err := NewRegistry(counterSlice("A"), listSlice("B"), untouchedSlice("C"))
	require.NoError(t, err)
	s, err := New(reg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEndToEndScenario(t *testing.T) {
	s := newABC(t, Options{})
	initial := s.GetState()

	var seen []*State
	s.Subscribe(func(st *State) { seen = append(seen, st) })

	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	_, err = s.Dispatch(Act{Kind: "ADD", Payload: "x"})
	require.NoError(t, err)
	_, err = s.Dispatch(Act{Kind: "UNKNOWN"})
	require.NoError(t, err)

	final := s.GetState()
	require.Equal(t, 1, Select[int](final, "A"))
	require.Equal(t, []string{"x"}, Select[[]string](final, "B"))
	require.Equal(t, map[string]int{"seed": 7}, Select[map[string]int](final, "C"))
	require.Len(t, seen, 2)
	for _, st := range seen {
		require.NotSame(t, initial, st)
	}
	// C keeps its identity across every commit.
	require.Equal(t,
		fmt.Sprintf("%p", Select[map[string]int](initial, "C")),
		fmt.Sprintf("%p", Select[map[string]int](final, "C")))
}

func TestUnknownActionKeepsSnapshotIdentity(t *testing.T) {
	s := newABC(t, Options{})
	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	before := s.GetState()

	notified := 0
	s.Subscribe(func(*State) { notified++ })
	_, err = s.Dispatch(Act{Kind: "NOBODY_HANDLES_THIS"})
	require.NoError(t, err)

	require.Same(t, before, s.GetState())
	require.Zero(t, notified)
}

func TestStoresAreIsolated(t *testing.T) {
	one := newABC(t, Options{})
	two := newABC(t, Options{})

	for i := 0; i < 3; i++ {
		_, err := one.Dispatch(Act{Kind: "INC"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, Select[int](one.GetState(), "A"))
	require.Equal(t, 0, Select[int](two.GetState(), "A"))
}

func TestReplayMatchesLeftFold(t *testing.T) {
	s := newABC(t, Options{})
	rng := rand.New(rand.NewSource(42))
	var actions []Action
	for i := 0; i < 200; i++ {
		var a Action
		switch rng.Intn(3) {
		case 0:
			a = Act{Kind: "INC"}
		case 1:
			a = Act{Kind: "ADD", Payload: fmt.Sprintf("v%d", i)}
		default:
			a = Act{Kind: "NOISE"}
		}
		actions = append(actions, a)
		_, err := s.Dispatch(a)
		require.NoError(t, err)
	}

	folded := s.registry.InitialState()
	for _, a := range actions {
		var err error
		folded, err = s.registry.Reduce(folded, a)
		require.NoError(t, err)
	}
	require.Equal(t, folded.Map(), s.GetState().Map())
}

func TestSubscriberDispatchIsQueued(t *testing.T) {
	s := newABC(t, Options{})

	var order []string
	nested := false
	s.Subscribe(func(st *State) {
		if !nested {
			nested = true
			_, err := s.Dispatch(Act{Kind: "INC"})
			require.NoError(t, err)
			// The nested dispatch has not run yet.
			require.Equal(t, 1, Select[int](s.GetState(), "A"))
		}
	})
	s.Subscribe(func(st *State) {
		order = append(order, fmt.Sprintf("A=%d", Select[int](st, "A")))
	})

	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, []string{"A=1", "A=2"}, order)
	require.Equal(t, 2, Select[int](s.GetState(), "A"))
}

func TestUnsubscribeDuringNotificationKeepsPass(t *testing.T) {
	s := newABC(t, Options{})

	calls := map[string]int{}
	var unsubB func()
	s.Subscribe(func(*State) {
		calls["a"]++
		unsubB()
	})
	unsubB = s.Subscribe(func(*State) { calls["b"]++ })

	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	_, err = s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)

	require.Equal(t, 2, calls["a"])
	require.Equal(t, 1, calls["b"])
}

func TestReducerPanicFailsDispatchWithoutCommit(t *testing.T) {
	boom := errors.New("boom")
	reg, err := NewRegistry(
		counterSlice("A"),
		Define("bad", 0, func(n int, a Action) int {
			if a.Type() == "EXPLODE" {
				panic(boom)
			}
			return n
		}),
	)
	require.NoError(t, err)
	s, err := New(reg, Options{})
	require.NoError(t, err)

	_, err = s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	before := s.GetState()

	_, err = s.Dispatch(Act{Kind: "EXPLODE"})
	var rerr *ReducerError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "bad", rerr.Key)
	require.ErrorIs(t, err, boom)
	require.Same(t, before, s.GetState())

	// The store keeps working.
	_, err = s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, 2, Select[int](s.GetState(), "A"))
}

func TestConstructionErrors(t *testing.T) {
	_, err := NewRegistry()
	require.ErrorIs(t, err, ErrNoSlices)

	_, err = NewRegistry(counterSlice("A"), counterSlice("A"))
	var dup *DuplicateSliceError
	require.ErrorAs(t, err, &dup)

	_, err = NewRegistry(Slice{Key: "nil"})
	require.Error(t, err)

	reg, err := NewRegistry(counterSlice("A"))
	require.NoError(t, err)
	var missing *MissingSliceError
	require.ErrorAs(t, reg.Require("A", "B", "C"), &missing)
	require.Equal(t, []string{"B", "C"}, missing.Keys)

	_, err = New(nil, Options{})
	require.ErrorIs(t, err, ErrNoSlices)
}

type recordingStage struct {
	name string
	log  *[]string
}

func (r recordingStage) Name() string { return r.name }

func (r recordingStage) Handle(api API, a Action, next Next) (Action, error) {
	*r.log = append(*r.log, r.name+">"+a.Type())
	out, err := next.Dispatch(a)
	*r.log = append(*r.log, r.name+"<"+a.Type())
	return out, err
}

func TestStagesRunInOrderAroundUpdate(t *testing.T) {
	var log []string
	upper := StageFunc{Label: "rename", Fn: func(api API, a Action, next Next) (Action, error) {
		if a.Type() == "inc" {
			a = Act{Kind: "INC"}
		}
		return next.Dispatch(a)
	}}
	s := newABC(t, Options{Stages: []Stage{
		recordingStage{name: "first", log: &log},
		upper,
		recordingStage{name: "second", log: &log},
	}})
	s.Subscribe(func(*State) { log = append(log, "notify") })

	out, err := s.Dispatch(Act{Kind: "inc"})
	require.NoError(t, err)
	require.Equal(t, "INC", out.Type())
	require.Equal(t, 1, Select[int](s.GetState(), "A"))
	require.Equal(t, []string{"first>inc", "second>INC", "notify", "second<INC", "first<inc"}, log)
}

func TestDeferredActionReadsStateAndDispatches(t *testing.T) {
	s := newABC(t, Options{Stages: []Stage{DeferredStage{}}})

	incIfEven := Defer("incIfEven", func(api API) error {
		if Select[int](api.GetState(), "A")%2 == 0 {
			_, err := api.Dispatch(Act{Kind: "INC"})
			return err
		}
		return nil
	})
	_, err := s.Dispatch(incIfEven)
	require.NoError(t, err)
	require.Equal(t, 1, Select[int](s.GetState(), "A"))

	_, err = s.Dispatch(incIfEven)
	require.NoError(t, err)
	require.Equal(t, 1, Select[int](s.GetState(), "A"))

	failing := Defer("fail", func(API) error { return errors.New("nope") })
	_, err = s.Dispatch(failing)
	require.EqualError(t, err, "nope")
}

type lifecycleStage struct {
	started, stopped int
	failStart        bool
}

func (l *lifecycleStage) Name() string { return "lifecycle" }
func (l *lifecycleStage) Handle(api API, a Action, next Next) (Action, error) {
	return next.Dispatch(a)
}
func (l *lifecycleStage) Start(API) error {
	if l.failStart {
		return errors.New("cannot start")
	}
	l.started++
	return nil
}
func (l *lifecycleStage) Stop() error {
	l.stopped++
	return nil
}

func TestLifecycleAndClose(t *testing.T) {
	reg, err := NewRegistry(counterSlice("A"))
	require.NoError(t, err)

	ok := &lifecycleStage{}
	s, err := New(reg, Options{Stages: []Stage{ok}})
	require.NoError(t, err)
	require.Equal(t, 1, ok.started)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, 1, ok.stopped)
	_, err = s.Dispatch(Act{Kind: "INC"})
	require.ErrorIs(t, err, ErrClosed)

	first := &lifecycleStage{}
	broken := &lifecycleStage{failStart: true}
	_, err = New(reg, Options{Stages: []Stage{first, broken}})
	require.EqualError(t, err, "cannot start")
	require.Equal(t, 1, first.stopped)
}

func TestEnhancerWrapsPipeline(t *testing.T) {
	var log []string
	tap := func(p *Pipeline) *Pipeline {
		return p.Use(recordingStage{name: "tap", log: &log})
	}
	s := newABC(t, Options{Enhancers: []Enhancer{Identity, tap}})
	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, []string{"tap>INC", "tap<INC"}, log)
}

func TestConcurrentDispatchIsLinearizable(t *testing.T) {
	var reported []error
	var mu sync.Mutex
	s := newABC(t, Options{OnError: func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Dispatch(Act{Kind: "INC"})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return Select[int](s.GetState(), "A") == 50
	}, timeout, tick)
	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, reported)
}

func TestPreloadedState(t *testing.T) {
	reg, err := NewRegistry(counterSlice("A"), listSlice("B"))
	require.NoError(t, err)

	seed, err := reg.Reduce(reg.InitialState(), Act{Kind: "INC"})
	require.NoError(t, err)
	s, err := New(reg, Options{Preloaded: seed})
	require.NoError(t, err)
	require.Equal(t, 1, Select[int](s.GetState(), "A"))

	small, err := NewRegistry(counterSlice("A"))
	require.NoError(t, err)
	_, err = New(reg, Options{Preloaded: small.InitialState()})
	var missing *MissingSliceError
	require.ErrorAs(t, err, &missing)
}

func TestPanickingListenerDoesNotCutThePass(t *testing.T) {
	var reported []error
	s := newABC(t, Options{OnError: func(err error) { reported = append(reported, err) }})

	s.Subscribe(func(*State) { panic("boom") })
	var seen []int
	s.Subscribe(func(st *State) { seen = append(seen, Select[int](st, "A")) })

	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, 1, Select[int](s.GetState(), "A"))
	require.Equal(t, []int{1}, seen)

	require.Len(t, reported, 1)
	var perr *ListenerPanicError
	require.ErrorAs(t, reported[0], &perr)
	require.Equal(t, "INC", perr.Action)
	require.Equal(t, "boom", perr.Value)
}

func TestCloseReportsQueuedActions(t *testing.T) {
	var reported []error
	s := newABC(t, Options{OnError: func(err error) { reported = append(reported, err) }})

	once := false
	s.Subscribe(func(*State) {
		if once {
			return
		}
		once = true
		_, err := s.Dispatch(Act{Kind: "INC"})
		require.NoError(t, err)
		_, err = s.Dispatch(Act{Kind: "ADD", Payload: "x"})
		require.NoError(t, err)
		require.NoError(t, s.Close())
	})

	_, err := s.Dispatch(Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, 1, Select[int](s.GetState(), "A"))

	require.Len(t, reported, 2)
	for i, kind := range []string{"INC", "ADD"} {
		var derr *DroppedActionError
		require.ErrorAs(t, reported[i], &derr)
		require.Equal(t, kind, derr.Action)
		require.ErrorIs(t, reported[i], ErrClosed)
	}
}
