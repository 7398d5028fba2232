package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

type fakeSource struct {
	mu           sync.Mutex
	subs         []chan<- Event
	plays        int
	pauses       int
	seeks        []time.Duration
	rates        []float64
	closed       int
	unsubscribed int
	subscribeErr error
	playErr      error
}

func (f *fakeSource) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++

	return f.playErr
}

func (f *fakeSource) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++

	return nil
}

func (f *fakeSource) Seek(pos time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pos)

	return nil
}

func (f *fakeSource) SetRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, rate)

	return nil
}

func (f *fakeSource) Subscribe(ch chan<- Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribeErr != nil {
		return f.subscribeErr
	}

	f.subs = append(f.subs, ch)

	return nil
}

func (f *fakeSource) Unsubscribe(ch chan<- Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subs {
		if sub == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			f.unsubscribed++

			return
		}
	}
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++

	return nil
}

func (f *fakeSource) emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		sub <- ev
	}
}

type levelSource struct {
	fakeSource
}

func (l *levelSource) Read() []int16 { return []int16{32767} }

func openerFor(src Source) Opener {
	return OpenerFunc(func(context.Context, string) (Source, error) {
		return src, nil
	})
}

// loaded creates a player and drives it through a successful load.
func loaded(t *testing.T, src *fakeSource, rate float64) *Model {
	t.Helper()

	m := New(openerFor(src), "http://svc/audio/ep.mp3", rate)

	cmd := m.Init()
	require.NotNil(t, cmd)

	_, attachCmd := m.Update(cmd())
	require.NotNil(t, attachCmd)
	require.True(t, m.Loaded())

	return m
}

// deliver emits ev from the source and feeds it through the player.
func deliver(t *testing.T, m *Model, src *fakeSource, ev Event) {
	t.Helper()

	wait := m.waitEvent()
	src.emit(ev)

	msg := wait()
	require.NotNil(t, msg)

	_, next := m.Update(msg)
	assert.NotNil(t, next, "player keeps waiting for events")
}

func TestModel_Load(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1.5)

	assert.Equal(t, []float64{1.5}, src.rates, "rate applied on load")
	assert.Len(t, src.subs, 1)
	assert.Nil(t, m.wave)
	assert.Equal(t, State{Rate: 1.5}, m.State())
}

func TestModel_LoadWithLevels(t *testing.T) {
	src := &levelSource{}
	m := New(openerFor(src), "u", 1)

	_, cmd := m.Update(m.Init()())
	require.NotNil(t, cmd)
	require.NotNil(t, m.wave)
	assert.Contains(t, m.View(), "█", "waveform drawn under the track bar")
}

func TestModel_Events(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)

	deliver(t, m, src, Event{Kind: EventDuration, Duration: 200 * time.Second})
	deliver(t, m, src, Event{Kind: EventTime, Position: 42 * time.Second})

	assert.Equal(t, 200*time.Second, m.State().Duration)
	assert.Equal(t, 42*time.Second, m.State().Position)
	assert.Contains(t, m.View(), "00:42 / 03:20")
}

func TestModel_Seek(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)

	t.Run("unknown duration is a no-op", func(t *testing.T) {
		require.NoError(t, m.Seek(0.5))
		assert.Empty(t, src.seeks)
		assert.Zero(t, m.State().Position)
	})

	deliver(t, m, src, Event{Kind: EventDuration, Duration: 200 * time.Second})

	t.Run("half way", func(t *testing.T) {
		require.NoError(t, m.Seek(0.5))
		assert.Equal(t, 100*time.Second, m.State().Position)
		assert.Equal(t, []time.Duration{100 * time.Second}, src.seeks)
	})

	t.Run("clamped", func(t *testing.T) {
		require.NoError(t, m.Seek(1.7))
		assert.Equal(t, 200*time.Second, m.State().Position)

		require.NoError(t, m.Seek(-1))
		assert.Zero(t, m.State().Position)
	})

	t.Run("relative", func(t *testing.T) {
		require.NoError(t, m.Seek(0.5))
		require.NoError(t, m.SeekBy(10*time.Second))
		assert.Equal(t, 110*time.Second, m.State().Position)
	})

	t.Run("pointer column", func(t *testing.T) {
		m.SetWidth(41)
		require.NoError(t, m.SeekAt(10))
		assert.Equal(t, 50*time.Second, m.State().Position)
	})

	t.Run("digit key", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
		assert.Equal(t, 60*time.Second, m.State().Position)
	})
}

func TestModel_Toggle(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)
	before := m.State()

	require.NoError(t, m.Toggle())
	assert.True(t, m.State().Playing)

	require.NoError(t, m.Toggle())
	assert.Equal(t, before, m.State())
	assert.Equal(t, 1, src.plays)
	assert.Equal(t, 1, src.pauses)

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, m.State().Playing)
}

func TestModel_ToggleFailureKeepsState(t *testing.T) {
	src := &fakeSource{playErr: errors.New("device busy")}
	m := loaded(t, src, 1)

	err := m.Toggle()
	require.Error(t, err)
	assert.False(t, m.State().Playing)

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "device busy")
}

func TestModel_Ended(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)

	deliver(t, m, src, Event{Kind: EventDuration, Duration: 200 * time.Second})
	require.NoError(t, m.Toggle())
	deliver(t, m, src, Event{Kind: EventTime, Position: 150 * time.Second})
	deliver(t, m, src, Event{Kind: EventEnded})

	st := m.State()
	assert.False(t, st.Playing)
	assert.Equal(t, 150*time.Second, st.Position)
	assert.Equal(t, 200*time.Second, st.Duration)
}

func TestModel_SetRate(t *testing.T) {
	t.Run("before load is applied on load", func(t *testing.T) {
		src := &fakeSource{}
		m := New(openerFor(src), "u", 1)

		require.NoError(t, m.SetRate(2))
		m.Update(m.Init()())

		assert.Equal(t, []float64{2}, src.rates)
	})

	t.Run("forwarded to the source", func(t *testing.T) {
		src := &fakeSource{}
		m := loaded(t, src, 1)

		require.NoError(t, m.SetRate(1.25))
		assert.Equal(t, 1.25, m.State().Rate)
		assert.Equal(t, []float64{1, 1.25}, src.rates)

		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
		assert.Equal(t, 1.5, m.State().Rate)
	})

	t.Run("rejects non-positive", func(t *testing.T) {
		m := New(openerFor(&fakeSource{}), "u", 1)
		require.Error(t, m.SetRate(0))
		assert.Equal(t, 1.0, m.State().Rate)
	})

	t.Run("rejects unbounded rates", func(t *testing.T) {
		src := &fakeSource{}
		m := loaded(t, src, 1)

		for _, rate := range []float64{math.NaN(), math.Inf(1), 1e12, MaxRate * 2} {
			require.Error(t, m.SetRate(rate), "rate %v", rate)
		}

		assert.Equal(t, 1.0, m.State().Rate)
		assert.Equal(t, []float64{1}, src.rates, "nothing reaches the source")
	})

	t.Run("invalid initial rate falls back to normal speed", func(t *testing.T) {
		for _, rate := range []float64{math.NaN(), math.Inf(1), 1e12, -2} {
			src := &fakeSource{}
			m := loaded(t, src, rate)
			assert.Equal(t, 1.0, m.State().Rate)
			assert.Equal(t, []float64{1}, src.rates)
		}
	})
}

func TestValidateRate(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{rate: 0.75},
		{rate: 1},
		{rate: MaxRate},
		{rate: 0, wantErr: true},
		{rate: -1, wantErr: true},
		{rate: MaxRate + 0.5, wantErr: true},
		{rate: 1e12, wantErr: true},
		{rate: math.NaN(), wantErr: true},
		{rate: math.Inf(1), wantErr: true},
		{rate: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		err := ValidateRate(tt.rate)
		if tt.wantErr {
			assert.Error(t, err, "rate %v", tt.rate)
		} else {
			assert.NoError(t, err, "rate %v", tt.rate)
		}
	}

	for _, r := range Rates {
		assert.NoError(t, ValidateRate(r), "offered rate %v", r)
	}
}

func TestModel_WithoutSource(t *testing.T) {
	m := New(openerFor(&fakeSource{}), "u", 0)

	assert.Equal(t, 1.0, m.State().Rate, "default rate")
	require.ErrorIs(t, m.Toggle(), ErrNoSource)
	require.ErrorIs(t, m.Seek(0.5), ErrNoSource)

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.NoError(t, m.Err(), "missing source is not surfaced from keys")
}

func TestModel_LoadFailureIsContained(t *testing.T) {
	m := New(OpenerFunc(func(context.Context, string) (Source, error) {
		return nil, errors.New("404 not found")
	}), "u", 1)

	_, cmd := m.Update(m.Init()())

	assert.Nil(t, cmd)
	assert.False(t, m.Loaded())
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "Playback unavailable")
}

func TestModel_SubscribeFailureClosesSource(t *testing.T) {
	src := &fakeSource{subscribeErr: errors.New("closed")}
	m := New(openerFor(src), "u", 1)

	m.Update(m.Init()())

	assert.False(t, m.Loaded())
	assert.Equal(t, 1, src.closed)
	assert.Error(t, m.Err())
}

func TestModel_Dispose(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)
	require.NoError(t, m.Toggle())

	wait := m.waitEvent()
	m.Dispose()
	m.Dispose()

	assert.Equal(t, 1, src.pauses)
	assert.Equal(t, 1, src.unsubscribed)
	assert.Equal(t, 1, src.closed)
	assert.Empty(t, src.subs)
	assert.False(t, m.Loaded())
	assert.False(t, m.State().Playing)
	assert.Nil(t, wait(), "pending wait ends once the channel is closed")
}

func TestModel_LateLoadIsReleased(t *testing.T) {
	t.Run("after dispose", func(t *testing.T) {
		src := &fakeSource{}
		m := New(openerFor(src), "u", 1)

		load := m.Init()
		m.Dispose()
		m.Update(load())

		assert.Equal(t, 1, src.closed)
		assert.Empty(t, src.subs)
		assert.False(t, m.Loaded())
	})

	t.Run("for another player", func(t *testing.T) {
		src := &fakeSource{}
		old := New(openerFor(src), "u", 1)
		current := loaded(t, &fakeSource{}, 1)

		current.Update(old.Init()())

		assert.Equal(t, 1, src.closed)
	})

	t.Run("with no player at all", func(t *testing.T) {
		src := &fakeSource{}
		m := New(openerFor(src), "u", 1)

		Release(m.Init()())

		assert.Equal(t, 1, src.closed)
	})
}

func TestModel_DisposeCancelsLoad(t *testing.T) {
	var seen context.Context

	m := New(OpenerFunc(func(ctx context.Context, _ string) (Source, error) {
		seen = ctx
		<-ctx.Done()

		return nil, ctx.Err()
	}), "u", 1)

	load := m.Init()
	m.Dispose()

	msg := load()
	require.ErrorIs(t, seen.Err(), context.Canceled)

	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
}

func TestModel_StaleEvents(t *testing.T) {
	src := &fakeSource{}
	m := loaded(t, src, 1)

	m.Update(eventMsg{id: m.id + 100, ev: Event{Kind: EventTime, Position: time.Minute}})

	assert.Zero(t, m.State().Position)
}

func TestRates(t *testing.T) {
	assert.Equal(t, 1.25, NextRate(1))
	assert.Equal(t, 2.0, NextRate(2))
	assert.Equal(t, 1.0, NextRate(0.9))
	assert.Equal(t, 0.75, PrevRate(1))
	assert.Equal(t, 0.75, PrevRate(0.75))
	assert.Equal(t, 1.5, PrevRate(1.6))
}

func TestSeekFraction(t *testing.T) {
	assert.InDelta(t, 0.0, SeekFraction(2, 2, 11), 1e-9)
	assert.InDelta(t, 0.5, SeekFraction(7, 2, 11), 1e-9)
	assert.InDelta(t, 1.0, SeekFraction(12, 2, 11), 1e-9)
	assert.InDelta(t, 1.0, SeekFraction(99, 2, 11), 1e-9)
	assert.InDelta(t, 0.0, SeekFraction(0, 2, 11), 1e-9)
	assert.InDelta(t, 0.0, SeekFraction(5, 0, 1), 1e-9)
}
