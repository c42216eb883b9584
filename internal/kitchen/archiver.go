package kitchen

import (
	"context"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
)

const archiveTimeout = 5 * time.Second

// Archiver copies closed tickets from the change feed into a TicketArchive.
// Failures are logged and dropped; they never reach the engine. When a slow
// archive makes it fall behind the feed, it resubscribes and reports how
// many events it missed.
type Archiver struct {
	engine  TicketService
	archive TicketArchive
	logger  logger.Logger

	cancel   context.CancelFunc
	finished chan struct{}
}

func NewArchiver(engine TicketService, archive TicketArchive, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Archiver{
		engine:  engine,
		archive: archive,
		logger:  log.With("component", "archiver"),
	}
}

func (a *Archiver) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	events, _ := a.engine.Subscribe(ctx)
	a.finished = make(chan struct{})
	go func() {
		defer close(a.finished)
		a.run(ctx, events)
	}()

	a.logger.Info("archiver started")
	return nil
}

// Stop ends archiving. Once the feed is closed, the tickets it still holds
// are saved first, bounded by ctx.
func (a *Archiver) Stop(ctx context.Context) error {
	if a.cancel == nil {
		return nil
	}
	select {
	case <-a.engine.Done():
		select {
		case <-a.finished:
		case <-ctx.Done():
		}
	default:
	}
	a.cancel()
	<-a.finished
	return nil
}

func (a *Archiver) run(ctx context.Context, events <-chan Event) {
	var lastSeq uint64
	resubscribed := false
	for {
		for evt := range events {
			if resubscribed && lastSeq > 0 && evt.Seq > lastSeq+1 {
				a.logger.Error("archiver missed feed events", "missed", evt.Seq-lastSeq-1)
			}
			resubscribed = false
			lastSeq = evt.Seq
			a.handle(ctx, evt)
		}

		select {
		case <-ctx.Done():
			return
		case <-a.engine.Done():
			return
		default:
		}

		a.logger.Info("archiver disconnected from feed, resubscribing", "last_seq", lastSeq)
		events, _ = a.engine.Subscribe(ctx)
		resubscribed = true
	}
}

func (a *Archiver) handle(ctx context.Context, evt Event) {
	if evt.Type != EventTicketCompleted && evt.Type != EventTicketCancelled {
		return
	}
	if evt.Ticket == nil || evt.Record == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	if err := a.archive.Save(saveCtx, newArchivedTicket(*evt.Ticket, *evt.Record)); err != nil {
		a.logger.Error("cannot archive ticket", "ticket_id", evt.Ticket.ID, "error", err)
	}
}
