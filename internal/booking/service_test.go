package booking

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/allocation"
    "github.com/campushq/campus-reservation/internal/lock"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/queue"
    "github.com/campushq/campus-reservation/internal/repository"
)

// fakeBookings is an in-memory booking store with the same half-open
// overlap semantics as the SQL queries. It doubles as the detector's
// OverlapStore.
type fakeBookings struct {
    mu     sync.Mutex
    nextID uint64
    rows   map[uint64]*model.RoomBooking

    releasedPerRoom map[uint64]int // seats DeleteWithRelease reports
}

func newFakeBookings() *fakeBookings {
    return &fakeBookings{rows: map[uint64]*model.RoomBooking{}, releasedPerRoom: map[uint64]int{}}
}

func overlaps(b *model.RoomBooking, start, end time.Time) bool {
    return b.Active() && b.StartsAt.Before(end) && b.EndsAt.After(start)
}

func (f *fakeBookings) Create(_ context.Context, b *model.RoomBooking) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.nextID++
    b.ID = f.nextID
    b.Status = model.BookingNotStarted
    b.CreatedAt = time.Now().UTC()
    cp := *b
    f.rows[b.ID] = &cp
    return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (*model.RoomBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (f *fakeBookings) ListByTeacher(_ context.Context, teacherID uint64) ([]model.RoomBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.RoomBooking
    for _, b := range f.rows {
        if b.TeacherID == teacherID {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (f *fakeBookings) ListDueForStart(_ context.Context, now time.Time) ([]model.RoomBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.RoomBooking
    for _, b := range f.rows {
        if b.Status == model.BookingNotStarted && !b.StartsAt.After(now) && b.EndsAt.After(now) {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (f *fakeBookings) ListDueForCompletion(_ context.Context, now time.Time) ([]model.RoomBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.RoomBooking
    for _, b := range f.rows {
        if b.Active() && !b.EndsAt.After(now) {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id uint64, status string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.rows[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    return nil
}

func (f *fakeBookings) DeleteWithRelease(_ context.Context, b *model.RoomBooking) (int, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    row, ok := f.rows[b.ID]
    if !ok {
        return 0, repository.ErrBookingNotFound
    }
    // Mirrors the guarded SQL delete: only NOT_STARTED rows go.
    if row.Status != model.BookingNotStarted {
        return 0, repository.ErrBookingStarted
    }
    delete(f.rows, b.ID)
    return f.releasedPerRoom[b.RoomID], nil
}

func (f *fakeBookings) CompleteWithRelease(_ context.Context, b *model.RoomBooking) (int, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    row, ok := f.rows[b.ID]
    if !ok {
        return 0, repository.ErrBookingNotFound
    }
    row.Status = model.BookingCompleted
    return f.releasedPerRoom[b.RoomID], nil
}

func (f *fakeBookings) HasOverlap(_ context.Context, roomID uint64, start, end time.Time) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, b := range f.rows {
        if b.RoomID == roomID && overlaps(b, start, end) {
            return true, nil
        }
    }
    return false, nil
}

func (f *fakeBookings) FirstTeacherConflict(_ context.Context, teacherID uint64, start, end time.Time) (*model.ConflictingBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, b := range f.rows {
        if b.TeacherID == teacherID && overlaps(b, start, end) {
            return &model.ConflictingBooking{
                Booking:      *b,
                RoomName:     "Lab 204",
                FloorName:    "Second Floor",
                BuildingName: "Engineering Block",
            }, nil
        }
    }
    return nil, nil
}

type fakeRoomStore struct{ rooms map[uint64]*model.Room }

func (f *fakeRoomStore) GetByID(_ context.Context, id uint64) (*model.Room, error) {
    r, ok := f.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    cp := *r
    return &cp, nil
}

type fakeTeacherStore struct{ teachers map[uint64]*model.Teacher }

func (f *fakeTeacherStore) GetByID(_ context.Context, id uint64) (*model.Teacher, error) {
    t, ok := f.teachers[id]
    if !ok {
        return nil, repository.ErrTeacherNotFound
    }
    cp := *t
    return &cp, nil
}

// fakeAllocator signals each pass over a channel so tests can wait for
// the async post-commit allocation.
type fakeAllocator struct{ calls chan string }

func (f *fakeAllocator) Allocate(_ context.Context, branch string, _ []uint64) (*allocation.Result, error) {
    select {
    case f.calls <- branch:
    default:
    }
    return &allocation.Result{}, nil
}

type recordingEmitter struct {
    mu     sync.Mutex
    events []string
}

func (r *recordingEmitter) Emit(event string, _ any) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, event)
}

func (r *recordingEmitter) has(event string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, e := range r.events {
        if e == event {
            return true
        }
    }
    return false
}

type fakeInvalidator struct {
    mu    sync.Mutex
    calls int
}

func (f *fakeInvalidator) DeleteByPrefix(_ context.Context, _ string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls++
    return nil
}

func (f *fakeInvalidator) count() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.calls
}

type fixture struct {
    svc      *Service
    locks    *lock.Manager
    bookings *fakeBookings
    alloc    *fakeAllocator
    events   *recordingEmitter
    cache    *fakeInvalidator
    publish  chan queue.BookingCreatedEvent
}

func newFixture() *fixture {
    bookings := newFakeBookings()
    locks := lock.NewManager()
    alloc := &fakeAllocator{calls: make(chan string, 8)}
    events := &recordingEmitter{}
    inv := &fakeInvalidator{}
    published := make(chan queue.BookingCreatedEvent, 8)
    rooms := &fakeRoomStore{rooms: map[uint64]*model.Room{
        1: {ID: 1, Name: "Lab 204", Capacity: 30},
        2: {ID: 2, Name: "Lecture Hall 1", Capacity: 120},
    }}
    teachers := &fakeTeacherStore{teachers: map[uint64]*model.Teacher{
        10: {ID: 10, Name: "T. Rivera"},
        11: {ID: 11, Name: "S. Okafor"},
    }}
    svc := NewService(
        locks, rooms, teachers, bookings, NewDetector(bookings),
        alloc, events, inv,
        func(_ context.Context, ev queue.BookingCreatedEvent) error {
            published <- ev
            return nil
        },
        zap.NewNop(),
    )
    return &fixture{svc: svc, locks: locks, bookings: bookings, alloc: alloc, events: events, cache: inv, publish: published}
}

func window(startHour, endHour int) (time.Time, time.Time) {
    day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
    return day.Add(time.Duration(startHour) * time.Hour), day.Add(time.Duration(endHour) * time.Hour)
}

func req(roomID, teacherID uint64, startHour, endHour int) CreateRequest {
    start, end := window(startHour, endHour)
    return CreateRequest{
        RoomID:    roomID,
        TeacherID: teacherID,
        Branch:    "CSE-2",
        Capacity:  25,
        StartsAt:  start,
        EndsAt:    end,
    }
}

func TestCreateBooking(t *testing.T) {
    f := newFixture()
    b, err := f.svc.Create(context.Background(), req(1, 10, 9, 11))
    if err != nil {
        t.Fatalf("Create: %v", err)
    }
    if b.ID == 0 || b.Status != model.BookingNotStarted {
        t.Errorf("booking = %+v, want persisted NOT_STARTED", b)
    }
    if !f.events.has("bookingCreated") {
        t.Error("bookingCreated event not emitted")
    }
    if f.cache.count() == 0 {
        t.Error("search cache not invalidated")
    }
    select {
    case branch := <-f.alloc.calls:
        if branch != "CSE-2" {
            t.Errorf("allocation pass for branch %q, want CSE-2", branch)
        }
    case <-time.After(time.Second):
        t.Error("allocation pass not triggered")
    }
    select {
    case ev := <-f.publish:
        if ev.BookingID != b.ID || ev.RoomName != "Lab 204" {
            t.Errorf("published event = %+v", ev)
        }
    case <-time.After(time.Second):
        t.Error("booking.created not published")
    }
}

func TestCreateValidation(t *testing.T) {
    f := newFixture()

    r := req(1, 10, 11, 9) // reversed window
    if _, err := f.svc.Create(context.Background(), r); !errors.Is(err, ErrInvalidWindow) {
        t.Errorf("reversed window: got %v, want ErrInvalidWindow", err)
    }

    r = req(1, 10, 9, 11)
    r.Capacity = 31 // room seats 30
    if _, err := f.svc.Create(context.Background(), r); !errors.Is(err, ErrInsufficientCapacity) {
        t.Errorf("oversized capacity: got %v, want ErrInsufficientCapacity", err)
    }

    r = req(99, 10, 9, 11)
    if _, err := f.svc.Create(context.Background(), r); !errors.Is(err, repository.ErrRoomNotFound) {
        t.Errorf("unknown room: got %v, want ErrRoomNotFound", err)
    }

    r = req(1, 99, 9, 11)
    if _, err := f.svc.Create(context.Background(), r); !errors.Is(err, repository.ErrTeacherNotFound) {
        t.Errorf("unknown teacher: got %v, want ErrTeacherNotFound", err)
    }
}

func TestCreateRoomOverlap(t *testing.T) {
    f := newFixture()
    if _, err := f.svc.Create(context.Background(), req(1, 10, 9, 11)); err != nil {
        t.Fatalf("first booking: %v", err)
    }
    if _, err := f.svc.Create(context.Background(), req(1, 11, 10, 12)); !errors.Is(err, ErrRoomNotAvailable) {
        t.Errorf("overlapping window: got %v, want ErrRoomNotAvailable", err)
    }
    if !f.events.has("bookingConflict") {
        t.Error("bookingConflict event not emitted on overlap")
    }
}

func TestCreateBackToBackWindowsDoNotConflict(t *testing.T) {
    f := newFixture()
    if _, err := f.svc.Create(context.Background(), req(1, 10, 9, 11)); err != nil {
        t.Fatalf("first booking: %v", err)
    }
    // [9,11) then [11,13): the shared instant belongs to the second
    // booking only.
    if _, err := f.svc.Create(context.Background(), req(1, 11, 11, 13)); err != nil {
        t.Errorf("back-to-back booking: %v", err)
    }
}

func TestCreateTeacherConflictAcrossRooms(t *testing.T) {
    f := newFixture()
    if _, err := f.svc.Create(context.Background(), req(1, 10, 9, 11)); err != nil {
        t.Fatalf("first booking: %v", err)
    }
    _, err := f.svc.Create(context.Background(), req(2, 10, 10, 12))
    var tc *TeacherConflictError
    if !errors.As(err, &tc) {
        t.Fatalf("got %v, want TeacherConflictError", err)
    }
    if tc.Conflict.RoomName != "Lab 204" {
        t.Errorf("conflict room = %q", tc.Conflict.RoomName)
    }
}

func TestCreateLockContention(t *testing.T) {
    f := newFixture()
    start, end := window(9, 11)
    if !f.locks.Acquire(lock.Key(1, start, end), "someone-else") {
        t.Fatal("setup: could not take the lock")
    }
    if _, err := f.svc.Create(context.Background(), req(1, 10, 9, 11)); !errors.Is(err, ErrLockContention) {
        t.Errorf("got %v, want ErrLockContention", err)
    }
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
    f := newFixture()
    var wg sync.WaitGroup
    errs := make([]error, 2)
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            _, errs[n] = f.svc.Create(context.Background(), req(1, uint64(10+n), 9, 11))
        }(i)
    }
    wg.Wait()

    wins := 0
    for _, err := range errs {
        if err == nil {
            wins++
            continue
        }
        if !errors.Is(err, ErrLockContention) && !errors.Is(err, ErrRoomNotAvailable) {
            t.Errorf("loser got unexpected error: %v", err)
        }
    }
    if wins != 1 {
        t.Fatalf("winners = %d, want exactly 1", wins)
    }
}

func TestCancel(t *testing.T) {
    f := newFixture()
    b, err := f.svc.Create(context.Background(), req(1, 10, 9, 11))
    if err != nil {
        t.Fatalf("Create: %v", err)
    }

    if err := f.svc.Cancel(context.Background(), b.ID, 11); !errors.Is(err, ErrNotOwner) {
        t.Errorf("foreign cancel: got %v, want ErrNotOwner", err)
    }

    f.bookings.rows[b.ID].Status = model.BookingOngoing
    if err := f.svc.Cancel(context.Background(), b.ID, 10); !errors.Is(err, ErrCancelNotAllowed) {
        t.Errorf("ongoing cancel: got %v, want ErrCancelNotAllowed", err)
    }

    f.bookings.rows[b.ID].Status = model.BookingNotStarted
    f.bookings.releasedPerRoom[1] = 3
    if err := f.svc.Cancel(context.Background(), b.ID, 10); err != nil {
        t.Fatalf("Cancel: %v", err)
    }
    if _, err := f.bookings.GetByID(context.Background(), b.ID); !errors.Is(err, repository.ErrBookingNotFound) {
        t.Error("booking row survived cancellation")
    }
    if !f.events.has("bookingCanceled") {
        t.Error("bookingCanceled event not emitted")
    }

    if err := f.svc.Cancel(context.Background(), 999, 10); !errors.Is(err, repository.ErrBookingNotFound) {
        t.Errorf("missing booking: got %v, want ErrBookingNotFound", err)
    }
}

// staleReadBookings returns a pre-transition snapshot from GetByID and
// then flips the row to ONGOING, reproducing a sweep that starts the
// booking between the cancel path's read and its delete.
type staleReadBookings struct {
    *fakeBookings
    flipped sync.Once
}

func (s *staleReadBookings) GetByID(ctx context.Context, id uint64) (*model.RoomBooking, error) {
    b, err := s.fakeBookings.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    s.flipped.Do(func() {
        s.mu.Lock()
        s.rows[id].Status = model.BookingOngoing
        s.mu.Unlock()
    })
    return b, nil
}

func TestCancelRacingSweepKeepsBooking(t *testing.T) {
    base := newFakeBookings()
    stale := &staleReadBookings{fakeBookings: base}
    rooms := &fakeRoomStore{rooms: map[uint64]*model.Room{
        1: {ID: 1, Name: "Lab 204", Capacity: 30},
    }}
    teachers := &fakeTeacherStore{teachers: map[uint64]*model.Teacher{
        10: {ID: 10, Name: "T. Rivera"},
    }}
    svc := NewService(
        lock.NewManager(), rooms, teachers, stale, NewDetector(base),
        &fakeAllocator{calls: make(chan string, 8)}, &recordingEmitter{}, &fakeInvalidator{},
        nil, zap.NewNop(),
    )
    b, err := svc.Create(context.Background(), req(1, 10, 9, 11))
    if err != nil {
        t.Fatalf("Create: %v", err)
    }

    // Cancel reads a NOT_STARTED snapshot, but by delete time the sweep
    // has moved the booking to ONGOING; the guarded delete must refuse.
    if err := svc.Cancel(context.Background(), b.ID, 10); !errors.Is(err, ErrCancelNotAllowed) {
        t.Fatalf("racing cancel: got %v, want ErrCancelNotAllowed", err)
    }
    got, err := base.GetByID(context.Background(), b.ID)
    if err != nil {
        t.Fatal("booking row was deleted despite being started")
    }
    if got.Status != model.BookingOngoing {
        t.Errorf("booking status = %s, want ONGOING", got.Status)
    }
}

func TestSweepOnce(t *testing.T) {
    f := newFixture()
    started, _ := f.svc.Create(context.Background(), req(1, 10, 9, 11))
    ended, _ := f.svc.Create(context.Background(), req(2, 11, 6, 8))
    f.bookings.releasedPerRoom[2] = 5

    // Freeze the clock inside the first window and after the second.
    now, _ := window(10, 0)
    f.svc.now = func() time.Time { return now }

    if err := f.svc.SweepOnce(context.Background()); err != nil {
        t.Fatalf("SweepOnce: %v", err)
    }
    if got, _ := f.bookings.GetByID(context.Background(), started.ID); got.Status != model.BookingOngoing {
        t.Errorf("first booking status = %s, want ONGOING", got.Status)
    }
    if got, _ := f.bookings.GetByID(context.Background(), ended.ID); got.Status != model.BookingCompleted {
        t.Errorf("second booking status = %s, want COMPLETED", got.Status)
    }
    if !f.events.has("bookingStatusChanged") {
        t.Error("bookingStatusChanged event not emitted")
    }

    // A second sweep at the same instant has nothing left to do.
    if err := f.svc.SweepOnce(context.Background()); err != nil {
        t.Fatalf("second SweepOnce: %v", err)
    }
    due, _ := f.bookings.ListDueForStart(context.Background(), now)
    if len(due) != 0 {
        t.Errorf("still %d bookings due for start", len(due))
    }
}
