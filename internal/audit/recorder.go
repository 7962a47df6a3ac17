package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

const (
	DefaultBuffer = 1024
	maxBatch      = 128
	flushEvery    = 500 * time.Millisecond
)

// Recorder desacopla los requests del sink con un canal acotado.
// Record nunca bloquea.
type Recorder struct {
	sink Sink
	ch   chan Entry
	log  *zap.Logger

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func NewRecorder(sink Sink, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Recorder{
		sink: sink,
		ch:   make(chan Entry, buffer),
		log:  logger.Named("audit"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Record encola e; si el buffer está lleno la descarta.
func (r *Recorder) Record(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case r.ch <- e:
	default:
		metrics.AuditDropped.Inc()
	}
}

// Start lanza el consumidor. Corre hasta Close o cancelación de ctx.
func (r *Recorder) Start(ctx context.Context) {
	if r.started.Swap(true) {
		return
	}
	go r.run(ctx)
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]Entry, 0, maxBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.Write(wctx, batch); err != nil {
			metrics.AuditDropped.Add(float64(len(batch)))
			r.log.Warn("audit sink write failed", logger.Count(len(batch)), logger.Err(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-r.ch:
			batch = append(batch, e)
			if len(batch) >= maxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stop:
			r.drain(&batch)
			flush()
			return
		case <-ctx.Done():
			r.drain(&batch)
			flush()
			return
		}
	}
}

func (r *Recorder) drain(batch *[]Entry) {
	for {
		select {
		case e := <-r.ch:
			*batch = append(*batch, e)
		default:
			return
		}
	}
}

// Close detiene el consumidor, vacía lo pendiente y cierra el sink.
func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
	return r.sink.Close()
}
