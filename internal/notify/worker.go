package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Worker sends messages from a buffered channel on one background
// goroutine.
type Worker struct {
	msgCh    chan Message
	sender   Sender
	recorder Recorder
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWorker creates a worker. recorder may be nil.
func NewWorker(sender Sender, bufferSize int, recorder Recorder) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		msgCh:    make(chan Message, bufferSize),
		sender:   sender,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the delivery loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining notifications before shutdown", "remaining", len(w.msgCh))
				for len(w.msgCh) > 0 {
					w.send(context.Background(), <-w.msgCh)
				}
				return
			case m := <-w.msgCh:
				w.send(w.ctx, m)
			}
		}
	}()
}

func (w *Worker) send(ctx context.Context, m Message) {
	if err := w.sender.Send(ctx, m); err != nil {
		slog.Error("failed to send notification", "error", err, "id", m.ID, "fund_id", m.Click.FundID)
		w.record(ResultFailed)
		return
	}
	w.record(ResultSent)
}

// Enqueue hands m to the worker without blocking. A full buffer drops m.
func (w *Worker) Enqueue(m Message) bool {
	select {
	case w.msgCh <- m:
		return true
	default:
		slog.Warn("notification channel full, dropping message", "id", m.ID, "fund_id", m.Click.FundID)
		w.record(ResultDropped)
		return false
	}
}

// Notify implements Dispatcher.
func (w *Worker) Notify(_ context.Context, recipients []string, title, body string, click Click) {
	if len(recipients) == 0 {
		return
	}
	w.Enqueue(NewMessage(recipients, title, body, WithFund(click.FundID), WithTransaction(click.TransactionID)))
}

// Shutdown stops the loop after delivering everything already queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) record(result string) {
	if w.recorder != nil {
		w.recorder.NotificationResult(result)
	}
}
