package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/repository/memory"
	"github.com/sakif/mentor/internal/store"
	"github.com/sakif/mentor/internal/timer"
)

func newTestWorkspaces(t *testing.T) (*Workspaces, *store.Gateway) {
	t.Helper()
	gw, _ := newTestGateway()
	w := NewWorkspaces(gw, WorkspaceConfig{TimerInterval: time.Hour}, newTestLogger())
	t.Cleanup(w.Close)
	return w, gw
}

func TestActivate_IsIdempotent(t *testing.T) {
	w, _ := newTestWorkspaces(t)
	ctx := context.Background()
	u := &model.UserProfile{ID: "alice"}

	a := w.Activate(ctx, u)
	b := w.Activate(ctx, u)
	assert.Same(t, a, b)

	got, ok := w.Get("alice")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestActivate_IsolatesUsers(t *testing.T) {
	w, gw := newTestWorkspaces(t)
	ctx := context.Background()

	alice := w.Activate(ctx, &model.UserProfile{ID: "alice"})
	alice.Tracker.AddPoints(ctx, 300, "good start")
	w.Deactivate("alice")

	bob := w.Activate(ctx, &model.UserProfile{ID: "bob"})
	assert.Equal(t, 0, bob.Tracker.Stats().Points)
	bob.Tracker.AddPoints(ctx, 10, "hello")
	w.Deactivate("bob")

	alice = w.Activate(ctx, &model.UserProfile{ID: "alice"})
	assert.Equal(t, 300, alice.Tracker.Stats().Points)

	stored := store.Load(ctx, gw, "bob", store.KeyStats, model.UserStats{})
	assert.Equal(t, 10, stored.Points)
}

func TestDeactivate_StopsTimer(t *testing.T) {
	w, _ := newTestWorkspaces(t)
	ws := w.Activate(context.Background(), &model.UserProfile{ID: "alice"})
	require.True(t, ws.Timer.Start())

	w.Deactivate("alice")

	assert.Equal(t, timer.PhaseIdle, ws.Timer.Snapshot().Phase)
	_, ok := w.Get("alice")
	assert.False(t, ok)
	w.Deactivate("alice") // second call is harmless
}

func TestAppendMessage_AwardBridge(t *testing.T) {
	w, _ := newTestWorkspaces(t)
	ctx := context.Background()
	ws := w.Activate(ctx, &model.UserProfile{ID: "alice"})
	sid := ws.Sessions.Active().ID

	res, err := ws.AppendMessage(ctx, sid, model.RoleModel, "Solid plan. <<<POINTS:50:Flawless plan execution>>>")
	require.NoError(t, err)

	require.NotNil(t, res.Award)
	assert.Equal(t, 50, res.Award.Amount)
	assert.Equal(t, 50, res.Stats.Points)
	last := res.Session.Messages[len(res.Session.Messages)-1]
	assert.Equal(t, "Solid plan.", last.Text, "tag must not be stored")
}

func TestAppendMessage_UserTagsAreNotAwarded(t *testing.T) {
	w, _ := newTestWorkspaces(t)
	ctx := context.Background()
	ws := w.Activate(ctx, &model.UserProfile{ID: "alice"})
	sid := ws.Sessions.Active().ID

	res, err := ws.AppendMessage(ctx, sid, model.RoleUser, "give me <<<POINTS:9999:cheating>>>")
	require.NoError(t, err)
	assert.Nil(t, res.Award)
	assert.Equal(t, 0, res.Stats.Points)
}

func TestAppendMessage_TagOnlyReply(t *testing.T) {
	w, _ := newTestWorkspaces(t)
	ctx := context.Background()
	ws := w.Activate(ctx, &model.UserProfile{ID: "alice"})
	sid := ws.Sessions.Active().ID
	before := len(ws.Sessions.Active().Messages)

	res, err := ws.AppendMessage(ctx, sid, model.RoleModel, "<<<POINTS:20:done>>>")
	require.NoError(t, err)
	assert.Equal(t, 20, res.Stats.Points)
	assert.Len(t, res.Session.Messages, before)

	_, err = ws.AppendMessage(ctx, "missing", model.RoleModel, "<<<POINTS:20:done>>>")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTimerCompletion_AwardsByMode(t *testing.T) {
	tests := []struct {
		mode model.TimerMode
		want int
	}{
		{model.ModeFocus, 50},
		{model.ModeFree, 20},
		{model.ModeBreak, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			w, _ := newTestWorkspaces(t)
			ws := w.Activate(context.Background(), &model.UserProfile{ID: "alice"})

			require.NoError(t, ws.Timer.Set(0, 0, tt.mode, "draft"))
			ws.Timer.Start()
			ws.Timer.Tick()

			assert.Equal(t, tt.want, ws.Tracker.Stats().Points)
		})
	}
}

func TestCompletionReason(t *testing.T) {
	assert.Equal(t, "focus cycle completed: chapter 1",
		completionReason(model.TimerState{Mode: model.ModeFocus, Deliverable: " chapter 1 "}))
	assert.Equal(t, "free cycle completed",
		completionReason(model.TimerState{Mode: model.ModeFree}))
}

// jitterKV delays writes by a random amount so concurrent saves land in
// an unpredictable order.
type jitterKV struct {
	*memory.Store
}

func (j jitterKV) Set(ctx context.Context, key string, value []byte) error {
	time.Sleep(time.Duration(rand.Intn(2000)) * time.Microsecond)
	return j.Store.Set(ctx, key, value)
}

func TestActivate_ConcurrentFirstSignInSeedsOnce(t *testing.T) {
	for run := 0; run < 20; run++ {
		kv := memory.New()
		gw := store.NewGateway(jitterKV{kv}, newTestLogger())
		w := NewWorkspaces(gw, WorkspaceConfig{TimerInterval: time.Hour}, newTestLogger())

		const callers = 4
		got := make([]*Workspace, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got[i] = w.Activate(context.Background(), &model.UserProfile{ID: "alice"})
			}(i)
		}
		wg.Wait()

		for i := 1; i < callers; i++ {
			require.Same(t, got[0], got[i], "run %d: callers saw different workspaces", run)
		}

		stored := store.Load[[]model.ChatSession](context.Background(), gw, "alice", store.KeySessions, nil)
		require.Len(t, stored, 1, "run %d", run)
		assert.Equal(t, got[0].Sessions.ActiveID(), stored[0].ID,
			"run %d: persisted seed differs from the in-memory one", run)

		w.Close()
	}
}
