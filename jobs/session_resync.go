package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/hostelcore/hostelcore/internal/authz"
	jobmetrics "github.com/hostelcore/hostelcore/internal/jobs"
	"github.com/hostelcore/hostelcore/internal/shared"
)

const resyncConcurrency = 8

// OverrideSource resolves the override applying to a user when the snapshot
// is rebuilt.
type OverrideSource interface {
	ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error)
}

// SessionResyncJob walks every live session and rebuilds the authorization
// snapshot for sessions holding the changed role. Each rebuilt session is
// written back before the job reports success, so a running session observes
// the role change without re-login.
type SessionResyncJob struct {
	Sessions  *shared.SessionManager
	Catalog   *authz.Catalog
	Overrides OverrideSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewSessionResyncJob initialises the resync handler.
func NewSessionResyncJob(sessions *shared.SessionManager, catalog *authz.Catalog, overrides OverrideSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionResyncJob {
	return &SessionResyncJob{
		Sessions:  sessions,
		Catalog:   catalog,
		Overrides: overrides,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Handle executes the session resync logic.
func (j *SessionResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil || j.Catalog == nil || j.Overrides == nil {
		return errors.New("session resync: handler not configured")
	}
	var payload SessionResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	role, ok := authz.ParseRole(payload.Role)
	if !ok {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskSessionResync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("role", role.String()))
	logger.Info("starting session resync")

	ids, err := j.Sessions.SessionIDs(ctx)
	if err != nil {
		resultErr = err
		logger.Error("list sessions", slog.Any("error", err))
		return resultErr
	}

	var resynced atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			touched, err := j.resyncOne(gctx, id, role)
			if err != nil {
				return err
			}
			if touched {
				resynced.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("session resync failed", slog.Any("error", err))
		return resultErr
	}

	j.Metrics.AddResynced(role.String(), int(resynced.Load()))
	logger.Info("session resync complete",
		slog.Int("scanned", len(ids)),
		slog.Int64("resynced", resynced.Load()))
	return nil
}

func (j *SessionResyncJob) resyncOne(ctx context.Context, id string, role authz.Role) (bool, error) {
	sess, err := j.Sessions.LoadByID(ctx, id)
	if err != nil {
		// Sessions expire between listing and load; skip them.
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	snap, ok := authz.FromSession(sess)
	if !ok || snap.Role != role {
		return false, nil
	}

	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		j.logger().Warn("session without numeric user", slog.String("session_id", id))
		return false, nil
	}
	override, err := j.Overrides.ForUser(ctx, userID, role)
	if err != nil {
		return false, err
	}
	if _, err := authz.Sync(sess, j.Catalog, role, override); err != nil {
		return false, err
	}
	if err := j.Sessions.Save(ctx, sess); err != nil {
		return false, err
	}
	return true, nil
}

func (j *SessionResyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
