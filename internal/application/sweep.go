package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Reconciler voids a member's reservations that collide with classes.
type Reconciler interface {
	Reconcile(ctx context.Context, ownerID string) (ReconcileResult, error)
}

// NoticeReconciler reconciles an owner and hands over the notice before the
// voided rows are removed. A deliver error leaves the rows in place.
type NoticeReconciler interface {
	ReconcileAndDeliver(ctx context.Context, ownerID string, deliver func(ReconcileResult) error) (ReconcileResult, error)
}

// NoticeStore keeps voided-reservation notices until the member next logs in.
type NoticeStore interface {
	SaveNotice(ctx context.Context, notice Notice) error
	TakePendingNotices(ctx context.Context, memberID string, deliveredAt time.Time) ([]Notice, error)
}

// Notifier publishes voided-reservation notices to an outside channel.
type Notifier interface {
	NotifyVoided(ctx context.Context, notice VoidedNotice) error
}

// ReconcileSweep runs Reconcile for every student so that voided bookings are
// noticed even when their owner does not log in.
type ReconcileSweep struct {
	members     MemberDirectory
	reconciler  NoticeReconciler
	notices     NoticeStore
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewReconcileSweep constructs a ReconcileSweep. notices and notifier are optional.
func NewReconcileSweep(members MemberDirectory, reconciler NoticeReconciler, notices NoticeStore, notifier Notifier, idGenerator func() string, now func() time.Time) *ReconcileSweep {
	return NewReconcileSweepWithLogger(members, reconciler, notices, notifier, idGenerator, now, nil)
}

// NewReconcileSweepWithLogger constructs a ReconcileSweep with a specified logger.
func NewReconcileSweepWithLogger(members MemberDirectory, reconciler NoticeReconciler, notices NoticeStore, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReconcileSweep {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReconcileSweep{
		members:     members,
		reconciler:  reconciler,
		notices:     notices,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ReconcileAll reconciles every student. Each notice is stored before the
// voided rows are removed, so a member whose notice could not be stored keeps
// the rows and is retried on the next pass or at login. A failure for one
// member is logged and counted; the sweep carries on with the rest.
func (s *ReconcileSweep) ReconcileAll(ctx context.Context) (result SweepResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReconcileSweep is nil")
		return
	}
	if s.members == nil || s.reconciler == nil {
		err = fmt.Errorf("reconcile sweep not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ReconcileSweep", "ReconcileAll")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reconcile sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("members", result.Members, "voided", result.Voided, "failed", result.Failed).InfoContext(ctx, "reconcile sweep completed")
	}()

	var members []Member
	members, err = s.members.ListMembers(ctx)
	if err != nil {
		err = fmt.Errorf("%w: list members: %v", ErrReadFailure, err)
		return
	}

	for _, member := range members {
		if member.Role == RoleTeacher {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			return
		}
		result.Members++

		at := s.now()
		var deliver func(ReconcileResult) error
		if s.notices != nil {
			memberID := member.ID
			deliver = func(rec ReconcileResult) error {
				return s.notices.SaveNotice(ctx, Notice{ID: s.idGenerator(), MemberID: memberID, Message: rec.Notice, CreatedAt: at})
			}
		}

		rec, rErr := s.reconciler.ReconcileAndDeliver(ctx, member.ID, deliver)
		if rErr != nil {
			result.Failed++
			logger.ErrorContext(ctx, "member reconcile failed", "member_id", member.ID, "error", rErr, "error_kind", ErrorKind(rErr))
			continue
		}
		if rec.Notice == "" {
			continue
		}
		result.Voided += len(rec.Voided)

		if s.notifier != nil {
			voided := VoidedNotice{MemberID: member.ID, Message: rec.Notice, Slots: rec.Messages, At: at}
			if nErr := s.notifier.NotifyVoided(ctx, voided); nErr != nil {
				logger.WarnContext(ctx, "notifier failed", "member_id", member.ID, "error", nErr)
			}
		}
	}
	return
}
