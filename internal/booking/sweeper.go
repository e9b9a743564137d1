package booking

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/realtime"
)

// StartSweeper drives the clock-driven transitions on a fixed cadence
// (five minutes in the reference configuration) until the context is
// cancelled.  The sweep may run concurrently with request-triggered
// allocation against the same rooms; both sides go through the
// versioned writes, so neither can clobber the other.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if err := s.SweepOnce(ctx); err != nil {
                s.log.Error("booking sweep failed", zap.Error(err))
            }
        }
    }
}

// SweepOnce applies every due status transition: NOT_STARTED bookings
// whose window has opened become ONGOING, and active bookings whose
// window has closed become COMPLETED with their branch's seats in the
// room released transactionally.
func (s *Service) SweepOnce(ctx context.Context) error {
    now := s.now().UTC()

    started, err := s.bookings.ListDueForStart(ctx, now)
    if err != nil {
        return err
    }
    for _, b := range started {
        if err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingOngoing); err != nil {
            s.log.Warn("failed to start booking", zap.Uint64("booking_id", b.ID), zap.Error(err))
            continue
        }
        s.events.Emit(realtime.EventBookingStatusChanged, map[string]any{
            "booking_id": b.ID,
            "room_id":    b.RoomID,
            "status":     model.BookingOngoing,
        })
    }

    ended, err := s.bookings.ListDueForCompletion(ctx, now)
    if err != nil {
        return err
    }
    completed := 0
    for _, b := range ended {
        released, err := s.bookings.CompleteWithRelease(ctx, &b)
        if err != nil {
            s.log.Warn("failed to complete booking", zap.Uint64("booking_id", b.ID), zap.Error(err))
            continue
        }
        completed++
        s.events.Emit(realtime.EventBookingStatusChanged, map[string]any{
            "booking_id":     b.ID,
            "room_id":        b.RoomID,
            "status":         model.BookingCompleted,
            "seats_released": released,
        })
    }
    if completed > 0 {
        if err := s.cache.DeleteByPrefix(context.Background(), searchCachePrefix); err != nil {
            s.log.Warn("search cache invalidation failed", zap.Error(err))
        }
    }
    if len(started) > 0 || completed > 0 {
        s.log.Info("booking sweep applied transitions",
            zap.Int("started", len(started)),
            zap.Int("completed", completed),
        )
    }
    return nil
}
