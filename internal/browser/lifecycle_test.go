package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
)

// fakeController keeps a set of live processes. Quit removes them only when
// quitWorks is set; Kill removes the target unless it is stubborn.
type fakeController struct {
	live      map[int32]string
	quitWorks bool
	quitErr   error
	stubborn  map[int32]bool
	calls     []string
	launched  bool
}

func newFake(pids ...int32) *fakeController {
	f := &fakeController{live: map[int32]string{}, stubborn: map[int32]bool{}}
	for _, pid := range pids {
		f.live[pid] = "Orion"
	}
	return f
}

func (f *fakeController) Find(context.Context) ([]Process, error) {
	f.calls = append(f.calls, "find")
	var out []Process
	for pid, name := range f.live {
		out = append(out, Process{PID: pid, Name: name})
	}
	return out, nil
}

func (f *fakeController) Quit(context.Context) error {
	f.calls = append(f.calls, "quit")
	if f.quitWorks {
		f.live = map[int32]string{}
	}
	return f.quitErr
}

func (f *fakeController) Kill(_ context.Context, pid int32) error {
	f.calls = append(f.calls, "kill")
	if f.stubborn[pid] {
		return errors.New("operation not permitted")
	}
	delete(f.live, pid)
	return nil
}

func (f *fakeController) Launch(context.Context) error {
	f.calls = append(f.calls, "launch")
	f.launched = true
	f.live[999] = "Orion"
	return nil
}

func testLifecycle(t *testing.T, ctl Controller) (*Lifecycle, *[]time.Duration) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)

	var waits []time.Duration
	l := NewLifecycle(ctl, cfg.Browser, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithSleep(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		})
	return l, &waits
}

func TestClose_GracefulQuit(t *testing.T) {
	f := newFake(10)
	f.quitWorks = true
	l, waits := testLifecycle(t, f)

	require.NoError(t, l.Close(context.Background()))
	assert.Equal(t, []string{"quit", "find"}, f.calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, *waits)
}

func TestClose_EscalatesToKill(t *testing.T) {
	f := newFake(10, 11)
	f.quitErr = errors.New("osascript failed (exit code 1)")
	l, waits := testLifecycle(t, f)

	require.NoError(t, l.Close(context.Background()))
	assert.Empty(t, f.live)
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second}, *waits)
}

func TestClose_StillRunning(t *testing.T) {
	f := newFake(10)
	f.stubborn[10] = true
	l, _ := testLifecycle(t, f)

	err := l.Close(context.Background())
	assert.ErrorIs(t, err, ErrStillRunning)
}

func TestClose_Interrupted(t *testing.T) {
	f := newFake(10)
	l, _ := testLifecycle(t, f)
	l.WithSleep(func(ctx context.Context, _ time.Duration) error { return context.Canceled })

	assert.ErrorIs(t, l.Close(context.Background()), context.Canceled)
	assert.Contains(t, f.live, int32(10), "nothing killed after interrupt")
}

func TestForceKill(t *testing.T) {
	f := newFake(1, 2, 3)
	f.stubborn[3] = true
	l, waits := testLifecycle(t, f)

	killed, err := l.ForceKill(context.Background())
	require.NoError(t, err)
	assert.Len(t, killed, 2)
	assert.NotContains(t, f.calls, "quit")
	assert.Equal(t, []time.Duration{3 * time.Second}, *waits)
}

func TestForceKill_NothingRunning(t *testing.T) {
	l, waits := testLifecycle(t, newFake())

	killed, err := l.ForceKill(context.Background())
	require.NoError(t, err)
	assert.Empty(t, killed)
	assert.Empty(t, *waits, "no wait without victims")
}

func TestRelaunch(t *testing.T) {
	f := newFake()
	l, waits := testLifecycle(t, f)

	st, err := l.Relaunch(context.Background())
	require.NoError(t, err)
	assert.True(t, f.launched)
	assert.True(t, st.Running)
	assert.Equal(t, []time.Duration{5 * time.Second}, *waits)
}

func TestRunning(t *testing.T) {
	l, _ := testLifecycle(t, newFake(42))
	p, ok, err := l.Running(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(42), p.PID)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestSystem_MatchesExcludesSelf(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	s := NewSystem(cfg.Browser)

	assert.True(t, s.matches(s.self+1, "Orion Helper (Renderer)"))
	assert.True(t, s.matches(s.self+1, "orion"))
	assert.False(t, s.matches(s.self+1, "Safari"))
	assert.False(t, s.matches(s.self, "oriondoctor"))
}

func TestSystem_QuitAndLaunchCommands(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	s := NewSystem(cfg.Browser)

	var got [][]string
	s.run = func(_ context.Context, _ []byte, name string, args ...string) ([]byte, error) {
		got = append(got, append([]string{name}, args...))
		return nil, nil
	}

	require.NoError(t, s.Quit(context.Background()))
	require.NoError(t, s.Launch(context.Background()))
	assert.Equal(t, [][]string{
		{"osascript", "-e", `tell application "Orion" to quit`},
		{"open", "-a", "Orion"},
	}, got)
}
