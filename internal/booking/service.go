package booking

import (
    "context"
    "errors"
    "strconv"
    "time"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/allocation"
    "github.com/campushq/campus-reservation/internal/lock"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/queue"
    "github.com/campushq/campus-reservation/internal/realtime"
    "github.com/campushq/campus-reservation/internal/repository"
)

// searchCachePrefix namespaces cached room search results; every
// booking commit and cancellation invalidates the whole namespace.
const searchCachePrefix = "search"

// allocationTimeout bounds the async allocation pass triggered after a
// commit.
const allocationTimeout = 30 * time.Second

// RoomStore is the slice of the room repository the service reads.
type RoomStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// TeacherStore resolves teachers during validation.
type TeacherStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Teacher, error)
}

// BookingStore is the durable record of bookings, including the
// transactional cancel/complete paths that release seats together with
// the room counters.
type BookingStore interface {
    Create(ctx context.Context, b *model.RoomBooking) error
    GetByID(ctx context.Context, id uint64) (*model.RoomBooking, error)
    ListByTeacher(ctx context.Context, teacherID uint64) ([]model.RoomBooking, error)
    ListDueForStart(ctx context.Context, now time.Time) ([]model.RoomBooking, error)
    ListDueForCompletion(ctx context.Context, now time.Time) ([]model.RoomBooking, error)
    UpdateStatus(ctx context.Context, id uint64, status string) error
    DeleteWithRelease(ctx context.Context, b *model.RoomBooking) (int, error)
    CompleteWithRelease(ctx context.Context, b *model.RoomBooking) (int, error)
}

// Allocator triggers the seat allocation engine after a commit.
type Allocator interface {
    Allocate(ctx context.Context, branch string, roomIDs []uint64) (*allocation.Result, error)
}

// Emitter announces lifecycle events on the realtime fan-out.
type Emitter interface {
    Emit(event string, payload any)
}

// Invalidator drops cached search results after bookings change.
type Invalidator interface {
    DeleteByPrefix(ctx context.Context, prefix string) error
}

// Publisher sends the durable booking.created message to the broker.
// May be nil when no broker is configured.
type Publisher func(ctx context.Context, ev queue.BookingCreatedEvent) error

// Service orchestrates the booking lifecycle.  Creation is an
// all-or-nothing sequence: lock → validate → commit → unlock; any
// failure anywhere releases the lock before returning.
type Service struct {
    locks    *lock.Manager
    rooms    RoomStore
    teachers TeacherStore
    bookings BookingStore
    detector *Detector
    alloc    Allocator
    events   Emitter
    cache    Invalidator
    publish  Publisher
    log      *zap.Logger

    now func() time.Time
}

// NewService wires a Service.  alloc, events, cache and publish accept
// the production implementations; tests pass fakes.
func NewService(
    locks *lock.Manager,
    rooms RoomStore,
    teachers TeacherStore,
    bookings BookingStore,
    detector *Detector,
    alloc Allocator,
    events Emitter,
    cache Invalidator,
    publish Publisher,
    log *zap.Logger,
) *Service {
    return &Service{
        locks:    locks,
        rooms:    rooms,
        teachers: teachers,
        bookings: bookings,
        detector: detector,
        alloc:    alloc,
        events:   events,
        cache:    cache,
        publish:  publish,
        log:      log,
        now:      time.Now,
    }
}

// CreateRequest carries a validated booking request from the route
// layer.
type CreateRequest struct {
    RoomID    uint64
    TeacherID uint64
    Branch    string
    Capacity  uint32
    StartsAt  time.Time
    EndsAt    time.Time
}

// Create runs the booking state machine.  The reservation lock shrinks
// the race window between the availability check and the insert; the
// conflict detector queries run inside the lock and remain the durable
// arbiter.  On commit the seat allocation engine is triggered
// asynchronously for (branch, room); its failure never rolls the
// booking back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.RoomBooking, error) {
    if !req.StartsAt.Before(req.EndsAt) {
        return nil, ErrInvalidWindow
    }

    key := lock.Key(req.RoomID, req.StartsAt, req.EndsAt)
    holder := lockHolder(req.TeacherID)
    if !s.locks.Acquire(key, holder) {
        s.events.Emit(realtime.EventBookingConflict, map[string]any{
            "room_id": req.RoomID,
            "reason":  "lock_contention",
        })
        return nil, ErrLockContention
    }
    // The lock must never outlive the request, success or failure.
    defer s.locks.Release(key)

    room, err := s.rooms.GetByID(ctx, req.RoomID)
    if err != nil {
        return nil, err
    }
    if req.Capacity == 0 || req.Capacity > room.Capacity {
        return nil, ErrInsufficientCapacity
    }
    if _, err := s.teachers.GetByID(ctx, req.TeacherID); err != nil {
        return nil, err
    }

    conflict, err := s.detector.TeacherConflict(ctx, req.TeacherID, req.StartsAt, req.EndsAt)
    if err != nil {
        return nil, err
    }
    if conflict != nil {
        s.events.Emit(realtime.EventBookingConflict, map[string]any{
            "room_id":    req.RoomID,
            "teacher_id": req.TeacherID,
            "reason":     "teacher_conflict",
        })
        return nil, &TeacherConflictError{Conflict: conflict}
    }

    overlap, err := s.detector.HasRoomOverlap(ctx, req.RoomID, req.StartsAt, req.EndsAt)
    if err != nil {
        return nil, err
    }
    if overlap {
        s.events.Emit(realtime.EventBookingConflict, map[string]any{
            "room_id": req.RoomID,
            "reason":  "room_overlap",
        })
        return nil, ErrRoomNotAvailable
    }

    b := &model.RoomBooking{
        RoomID:    req.RoomID,
        TeacherID: req.TeacherID,
        Branch:    req.Branch,
        Capacity:  req.Capacity,
        StartsAt:  req.StartsAt.UTC(),
        EndsAt:    req.EndsAt.UTC(),
    }
    if err := s.bookings.Create(ctx, b); err != nil {
        return nil, err
    }

    s.afterCommit(b, room)
    return b, nil
}

// afterCommit runs the non-fatal side effects of a successful commit:
// realtime event, durable broker message, search cache invalidation and
// the async allocation pass.
func (s *Service) afterCommit(b *model.RoomBooking, room *model.Room) {
    s.events.Emit(realtime.EventBookingCreated, b)

    bg := context.Background()
    if err := s.cache.DeleteByPrefix(bg, searchCachePrefix); err != nil {
        s.log.Warn("search cache invalidation failed", zap.Error(err))
    }

    if s.publish != nil {
        ev := queue.BookingCreatedEvent{
            BookingID: b.ID,
            RoomID:    b.RoomID,
            RoomName:  room.Name,
            TeacherID: b.TeacherID,
            Branch:    b.Branch,
            Capacity:  b.Capacity,
            StartsAt:  b.StartsAt.UTC().Format(time.RFC3339),
            EndsAt:    b.EndsAt.UTC().Format(time.RFC3339),
            CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
        }
        go func() {
            if err := s.publish(bg, ev); err != nil {
                s.log.Warn("booking.created publish failed", zap.Uint64("booking_id", ev.BookingID), zap.Error(err))
            }
        }()
    }

    go func() {
        actx, cancel := context.WithTimeout(bg, allocationTimeout)
        defer cancel()
        res, err := s.alloc.Allocate(actx, b.Branch, []uint64{b.RoomID})
        if err != nil {
            // A failed pass never rolls the booking back; re-running
            // the pass later picks up where this one stopped.
            s.log.Error("post-commit allocation failed",
                zap.Uint64("booking_id", b.ID),
                zap.Uint64("room_id", b.RoomID),
                zap.String("branch", b.Branch),
                zap.Error(err),
            )
            return
        }
        s.log.Info("post-commit allocation finished",
            zap.Uint64("booking_id", b.ID),
            zap.Int("allocated", res.AllocatedCount),
            zap.Int("unallocated", len(res.Unallocated)),
        )
    }()
}

// Cancel deletes a NOT_STARTED booking owned by the teacher.  The seat
// release, the room counter decrement and the row deletion commit in
// one transaction, so a partial deallocation is never observable.
func (s *Service) Cancel(ctx context.Context, bookingID, teacherID uint64) error {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return err
    }
    if b.TeacherID != teacherID {
        return ErrNotOwner
    }
    if b.Status != model.BookingNotStarted {
        return ErrCancelNotAllowed
    }
    released, err := s.bookings.DeleteWithRelease(ctx, b)
    if err != nil {
        // The sweep may have started the booking after the read above;
        // the guarded delete is the arbiter.
        if errors.Is(err, repository.ErrBookingStarted) {
            return ErrCancelNotAllowed
        }
        return err
    }
    s.events.Emit(realtime.EventBookingCanceled, map[string]any{
        "booking_id":     b.ID,
        "room_id":        b.RoomID,
        "branch":         b.Branch,
        "seats_released": released,
    })
    if err := s.cache.DeleteByPrefix(context.Background(), searchCachePrefix); err != nil {
        s.log.Warn("search cache invalidation failed", zap.Error(err))
    }
    s.log.Info("booking cancelled",
        zap.Uint64("booking_id", b.ID),
        zap.Uint64("room_id", b.RoomID),
        zap.Int("seats_released", released),
    )
    return nil
}

// Get returns a booking if it belongs to the teacher.
func (s *Service) Get(ctx context.Context, bookingID, teacherID uint64) (*model.RoomBooking, error) {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.TeacherID != teacherID {
        return nil, ErrNotOwner
    }
    return b, nil
}

// ListForTeacher returns the teacher's bookings, newest first.
func (s *Service) ListForTeacher(ctx context.Context, teacherID uint64) ([]model.RoomBooking, error) {
    return s.bookings.ListByTeacher(ctx, teacherID)
}

func lockHolder(teacherID uint64) string {
    return "teacher-" + strconv.FormatUint(teacherID, 10)
}

// errIs reports whether err is one of the repository not-found
// sentinels the route layer maps to 404.
func errIs(err error, targets ...error) bool {
    for _, t := range targets {
        if errors.Is(err, t) {
            return true
        }
    }
    return false
}

// IsNotFound reports whether err is a not-found outcome from any of the
// stores the service touches.
func IsNotFound(err error) bool {
    return errIs(err,
        repository.ErrRoomNotFound,
        repository.ErrTeacherNotFound,
        repository.ErrBookingNotFound,
    )
}
