package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType)
	}
	return out
}

func TestNewEnvelope(t *testing.T) {
	ev := NewEnvelope("sim", EventWorldLoaded, []byte{1, 2})
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "sim", ev.Source)
	assert.Equal(t, EventWorldLoaded, ev.EventType)
	assert.Equal(t, 1, ev.Version)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())

	other := NewEnvelope("sim", EventWorldLoaded, nil)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var all, chunks collector
	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkResident, EventChunkUnloaded}}, chunks.handle)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", EventChunkResident, nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", EventSettingsChanged, nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", EventChunkUnloaded, nil)))

	require.Eventually(t, func() bool { return all.len() == 3 && chunks.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{EventChunkResident, EventChunkUnloaded}, chunks.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(5), stats.Consumed)
	assert.Zero(t, stats.Dropped)
}

func TestMemoryBus_SourceFilter(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{Sources: []string{"streamer"}}, c.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("api", EventSettingsChanged, nil)))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("streamer", EventChunkResident, nil)))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{EventChunkResident}, c.types())
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("sim", EventWorldLoaded, nil)))
	require.NoError(t, bus.Close())
	assert.Zero(t, c.len())
}

func TestMemoryBus_CloseDeliversAcceptedEvents(t *testing.T) {
	bus := NewMemoryBus(32)

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), NewEnvelope("sim", EventChunkResident, nil)))
	}
	require.NoError(t, bus.Close())
	assert.Equal(t, 10, c.len())

	assert.ErrorIs(t, bus.Publish(context.Background(), NewEnvelope("sim", EventChunkResident, nil)), ErrBusClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Init(nil) })

	Init(nil)
	assert.Nil(t, Global())
	assert.NoError(t, Publish(context.Background(), NewEnvelope("sim", EventWorldLoaded, nil)))

	bus := NewMemoryBus(4)
	defer bus.Close()
	Init(bus)
	assert.Same(t, bus, Global())

	require.NoError(t, Publish(context.Background(), NewEnvelope("sim", EventWorldLoaded, nil)))
	assert.Equal(t, uint64(1), bus.Metrics().Published)
}

type fixedStats struct {
	EventBus
	stats Stats
}

func (f *fixedStats) Metrics() Stats { return f.stats }

func TestMetricsExporter_Collect(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fixedStats{stats: Stats{Published: 5, Consumed: 4, Dropped: 1, InFlight: 2}}
	me := NewMetricsExporter(src, reg)

	me.collect()
	assert.Equal(t, float64(5), testutil.ToFloat64(me.published))
	assert.Equal(t, float64(4), testutil.ToFloat64(me.consumed))
	assert.Equal(t, float64(1), testutil.ToFloat64(me.dropped))
	assert.Equal(t, float64(2), testutil.ToFloat64(me.inflight))

	// Счётчики растут только на приращение
	src.stats = Stats{Published: 8, Consumed: 8, Dropped: 1}
	me.collect()
	assert.Equal(t, float64(8), testutil.ToFloat64(me.published))
	assert.Equal(t, float64(8), testutil.ToFloat64(me.consumed))
	assert.Equal(t, float64(1), testutil.ToFloat64(me.dropped))
	assert.Equal(t, float64(0), testutil.ToFloat64(me.inflight))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestMetricsExporter_StartStop(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fixedStats{stats: Stats{Published: 3}}
	me := NewMetricsExporter(src, reg)

	me.Start(5 * time.Millisecond)
	me.Stop()
	me.Stop()
	me.Wait()
	assert.Equal(t, float64(3), testutil.ToFloat64(me.published))
}

func TestJetStreamNaming(t *testing.T) {
	assert.Equal(t, "events.ChunkResident", Subject(EventChunkResident))
	assert.Equal(t, "events.*", Subject("*"))

	assert.Equal(t, "sub_all", durableName(Filter{}))
	assert.Equal(t, "sub_ChunkResident_WorldLoaded",
		durableName(Filter{Types: []string{EventWorldLoaded, EventChunkResident}}))
	assert.Equal(t, "sub_blockverse-sim", durableName(Filter{Sources: []string{"blockverse.sim"}}))
}

func TestMemoryBus_PreservesOrderPerSubscriber(t *testing.T) {
	bus := NewMemoryBus(4)

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	want := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		typ := EventChunkResident
		if i%2 == 1 {
			typ = EventChunkUnloaded
		}
		ev := NewEnvelope("sim", typ, nil)
		ev.Priority = PriorityCritical
		require.NoError(t, bus.Publish(context.Background(), ev))
		want = append(want, typ)
	}
	require.NoError(t, bus.Close())
	assert.Equal(t, want, c.types())
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	gate := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { <-gate })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ev := NewEnvelope("sim", EventChunkResident, nil)
		ev.Priority = PriorityBulk
		_ = bus.Publish(context.Background(), ev)
		return bus.Metrics().Dropped > 0
	}, 2*time.Second, time.Millisecond)

	// Критичное событие ждёт места, пока не истечёт контекст
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	critical := NewEnvelope("sim", EventWorldLoaded, nil)
	critical.Priority = PriorityCritical
	assert.ErrorIs(t, bus.Publish(ctx, critical), context.DeadlineExceeded)

	close(gate)
	require.NoError(t, bus.Close())
	_, err = bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}
