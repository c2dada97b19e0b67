package devtools

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/database"
	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/store"
)

type opaque struct {
	secret string
}

func (o opaque) ToSerializable() any { return map[string]any{"raw": o.secret} }

type holder struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Skip  any    `json:"-"`
}

func TestSerializeUsesConversion(t *testing.T) {
	require.Equal(t, map[string]any{"raw": "s3"}, Serialize(opaque{secret: "s3"}))

	got := Serialize(map[string]any{"a": 1, "b": opaque{secret: "x"}})
	require.Equal(t, map[string]any{"a": 1, "b": map[string]any{"raw": "x"}}, got)

	got = Serialize(&holder{Name: "h", Value: []any{opaque{secret: "y"}}, Skip: opaque{}})
	require.Equal(t, map[string]any{"name": "h", "value": []any{map[string]any{"raw": "y"}}}, got)
}

func TestSerializePassesPlainValuesThrough(t *testing.T) {
	plain := map[string]any{"a": []int{1, 2}, "b": "x"}
	got := Serialize(plain)
	require.Equal(t, plain, got)

	list := []string{"x"}
	out := Serialize(list).([]string)
	require.Same(t, &list[0], &out[0])

	h := &holder{Name: "n", Value: 3}
	require.Same(t, h, Serialize(h))
	require.Nil(t, Serialize(nil))
}

func TestSerializeConvertsStoreSnapshots(t *testing.T) {
	reg, err := store.NewRegistry(store.Define("counter", 0, func(n int, a store.Action) int { return n }))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"counter": 0}, Serialize(reg.InitialState()))
}

func counterStore(t *testing.T, enh store.Enhancer) *store.Store {
	t.Helper()
	reg, err := store.NewRegistry(
		store.Define("counter", 0, func(n int, a store.Action) int {
			switch a.Type() {
			case "INC":
				return n + 1
			case "BOOM":
				panic("boom")
			}
			return n
		}),
		store.Define("secret", opaque{secret: "init"}, func(o opaque, a store.Action) opaque {
			if a.Type() == "ROTATE" {
				return opaque{secret: "rotated"}
			}
			return o
		}),
	)
	require.NoError(t, err)
	s, err := store.New(reg, store.Options{Enhancers: []store.Enhancer{enh}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNilInspectorIsIdentity(t *testing.T) {
	p := store.NewPipeline(store.DeferredStage{})
	require.Same(t, p, Enhancer(nil)(p))
	require.Nil(t, Tee(nil, nil))
}

func TestTapRecordsSerializedSnapshots(t *testing.T) {
	rec := NewRecorder(0)
	s := counterStore(t, Enhancer(rec))

	require.Equal(t, map[string]any{"counter": 0, "secret": map[string]any{"raw": "init"}}, rec.Initial())

	_, err := s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)
	_, err = s.Dispatch(store.Act{Kind: "ROTATE"})
	require.NoError(t, err)
	_, err = s.Dispatch(store.Act{Kind: "BOOM"})
	require.Error(t, err)

	records := rec.Records()
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Seq)
	require.Equal(t, "INC", records[0].Type)
	require.Equal(t, map[string]any{"counter": 1, "secret": map[string]any{"raw": "init"}}, records[0].State)
	require.Equal(t, map[string]any{"counter": 1, "secret": map[string]any{"raw": "rotated"}}, records[1].State)
}

type failingInspector struct{ sends int }

func (f *failingInspector) Init(any) error { return errors.New("no devtools") }
func (f *failingInspector) Send(Record) error {
	f.sends++
	return errors.New("gone")
}

func TestInspectorFailuresDoNotChangeDispatch(t *testing.T) {
	f := &failingInspector{}
	s := counterStore(t, Enhancer(f))
	out, err := s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, "INC", out.Type())
	require.Equal(t, 1, store.Select[int](s.GetState(), "counter"))
	require.Equal(t, 1, f.sends)
}

func TestRecorderBoundsAndReplays(t *testing.T) {
	rec := NewRecorder(3)
	s := counterStore(t, Enhancer(rec))
	for i := 0; i < 5; i++ {
		_, err := s.Dispatch(store.Act{Kind: "INC"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, rec.Len())
	require.Equal(t, uint64(3), rec.Records()[0].Seq)

	replica := counterStore(t, store.Identity)
	require.NoError(t, rec.Replay(replica))
	require.Equal(t, 3, store.Select[int](replica.GetState(), "counter"))
}

func TestServerStreamsToLateClients(t *testing.T) {
	srv := NewServer(10, nil)
	defer srv.Close()
	s := counterStore(t, Enhancer(srv))
	_, err := s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MessageInit, msg["type"])
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MessageAction, msg["type"])

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	_, err = s.Dispatch(store.Act{Kind: "ROTATE"})
	require.NoError(t, err)
	msg = nil
	require.NoError(t, conn.ReadJSON(&msg))
	record := msg["record"].(map[string]any)
	require.Equal(t, "ROTATE", record["type"])
	require.Equal(t, map[string]any{"raw": "rotated"}, record["state"].(map[string]any)["secret"])
}

func TestJournalPersistsRecords(t *testing.T) {
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	j := NewJournal(db, 0)
	s := counterStore(t, Enhancer(Tee(j, NewRecorder(1))))
	_, err = s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)
	_, err = s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)

	recs, err := repository.NewJournalRepo(db).Records(context.Background(), j.Session())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "INC", recs[1].ActionType)
	require.JSONEq(t, `{"counter":2,"secret":{"raw":"init"}}`, string(recs[1].State))
}
