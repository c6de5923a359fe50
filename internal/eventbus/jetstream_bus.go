package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

const (
	// DefaultStream: стрим событий симуляции
	DefaultStream = "BLOCKVERSE_EVENTS"
	// SubjectPrefix: префикс subject'ов; полный subject: events.<EventType>
	SubjectPrefix = "events"

	defaultAckWait = 30 * time.Second
)

// JetStreamOptions задаёт подключение к NATS
type JetStreamOptions struct {
	URL        string        // nats://127.0.0.1:4222
	Stream     string        // по умолчанию DefaultStream
	Retention  time.Duration // MaxAge стрима, 0: без ограничения
	ClientName string        // имя соединения в мониторинге NATS
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// Subject возвращает subject JetStream для типа события
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его нет.
func NewJetStreamBus(opts JetStreamOptions) (*JetStreamBus, error) {
	if opts.Stream == "" {
		opts.Stream = DefaultStream
	}
	if opts.ClientName == "" {
		opts.ClientName = "blockverse"
	}

	nc, err := nats.Connect(opts.URL, nats.Name(opts.ClientName))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(opts.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      opts.Stream,
			Subjects:  []string{Subject("*")},
			Retention: nats.LimitsPolicy,
			MaxAge:    opts.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", opts.Stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: opts.Stream}, nil
}

// Publish сериализует Envelope в JSON и публикует в events.<type>.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := jb.js.Publish(Subject(ev.EventType), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт durable consumer. Имя consumer'а выводится из фильтра,
// поэтому перезапущенный подписчик продолжает с места остановки.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := Subject("*")
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.dropped.Add(1)
		} else if matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), nats.Durable(durableName(f)), nats.AckWait(defaultAckWait))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	return &jetSub{natSub}, nil
}

// durableName строит имя consumer'а: "sub_all" или "sub_ChunkResident_WorldLoaded"
func durableName(f Filter) string {
	if len(f.Types) == 0 && len(f.Sources) == 0 {
		return "sub_all"
	}
	parts := append(append([]string{}, f.Types...), f.Sources...)
	sort.Strings(parts)
	name := "sub_" + strings.Join(parts, "_")
	// Точки и пробелы недопустимы в имени consumer'а
	return strings.NewReplacer(".", "-", " ", "-", "*", "any", ">", "all").Replace(name)
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики шины. Очередь JetStream хранится на сервере, InFlight всегда 0.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
