package allocation

import (
    "context"
    "errors"
    "sort"
    "sync"
    "testing"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/repository"
)

// allocState is the shared in-memory campus the fake stores operate on.
// All versioned writes honor the same optimistic semantics as the real
// repositories so the engine's conflict handling is exercised for real.
type allocState struct {
    mu              sync.Mutex
    students        map[uint64]model.Student
    seats           map[uint64]*model.Seat
    rooms           map[uint64]*model.Room
    roomsByBuilding map[uint64][]uint64

    // seat ids whose next AllocateVersioned fails once, simulating a
    // concurrent writer winning the race.
    conflictOnce map[uint64]bool
}

func newAllocState() *allocState {
    return &allocState{
        students:        map[uint64]model.Student{},
        seats:           map[uint64]*model.Seat{},
        rooms:           map[uint64]*model.Room{},
        roomsByBuilding: map[uint64][]uint64{},
        conflictOnce:    map[uint64]bool{},
    }
}

func (st *allocState) addRoom(id uint64, branch *string) {
    st.rooms[id] = &model.Room{ID: id, BranchAllocated: branch}
}

func (st *allocState) addSeat(id, roomID uint64, row, col uint32, features ...string) {
    st.seats[id] = &model.Seat{ID: id, RoomID: roomID, Row: row, Col: col, Status: model.SeatAvailable, Features: features}
}

func (st *allocState) addStudent(id uint64, branch string, needs ...string) {
    st.students[id] = model.Student{ID: id, Branch: branch, AccessibilityNeeds: needs}
}

type fakeStudentStore struct{ st *allocState }

func (f *fakeStudentStore) GetByID(_ context.Context, id uint64) (*model.Student, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    s, ok := f.st.students[id]
    if !ok {
        return nil, repository.ErrStudentNotFound
    }
    return &s, nil
}

func (f *fakeStudentStore) ListUnseatedByBranch(_ context.Context, branch string) ([]model.Student, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    seated := map[uint64]bool{}
    for _, seat := range f.st.seats {
        if seat.Status == model.SeatAllocated && seat.StudentID != nil {
            seated[*seat.StudentID] = true
        }
    }
    var out []model.Student
    for _, s := range f.st.students {
        if s.Branch == branch && !seated[s.ID] {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

type fakeSeatStore struct{ st *allocState }

func (f *fakeSeatStore) ListAvailableByRooms(_ context.Context, roomIDs []uint64) ([]model.Seat, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    in := map[uint64]bool{}
    for _, id := range roomIDs {
        in[id] = true
    }
    var out []model.Seat
    for _, s := range f.st.seats {
        if in[s.RoomID] && s.Status == model.SeatAvailable {
            out = append(out, *s)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        a, b := out[i], out[j]
        if a.RoomID != b.RoomID {
            return a.RoomID < b.RoomID
        }
        if a.Row != b.Row {
            return a.Row < b.Row
        }
        return a.Col < b.Col
    })
    return out, nil
}

func (f *fakeSeatStore) AllocateVersioned(_ context.Context, seatID, studentID uint64, version uint32) error {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    if f.st.conflictOnce[seatID] {
        delete(f.st.conflictOnce, seatID)
        return repository.ErrVersionConflict
    }
    s, ok := f.st.seats[seatID]
    if !ok || s.Version != version || s.Status != model.SeatAvailable {
        return repository.ErrVersionConflict
    }
    s.Status = model.SeatAllocated
    sid := studentID
    s.StudentID = &sid
    s.Version++
    return nil
}

func (f *fakeSeatStore) UpdateStatusVersioned(_ context.Context, seatID uint64, status string, version uint32) error {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    s, ok := f.st.seats[seatID]
    if !ok || s.Version != version {
        return repository.ErrVersionConflict
    }
    s.Status = status
    s.StudentID = nil
    s.Version++
    return nil
}

func (f *fakeSeatStore) GetByStudent(_ context.Context, studentID uint64) (*model.Seat, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    for _, s := range f.st.seats {
        if s.Status == model.SeatAllocated && s.StudentID != nil && *s.StudentID == studentID {
            cp := *s
            return &cp, nil
        }
    }
    return nil, repository.ErrSeatNotFound
}

type fakeRoomStore struct{ st *allocState }

func (f *fakeRoomStore) GetByID(_ context.Context, id uint64) (*model.Room, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    r, ok := f.st.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    cp := *r
    return &cp, nil
}

func (f *fakeRoomStore) ListOpenToBranch(_ context.Context, branch string, roomIDs []uint64) ([]model.Room, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    var out []model.Room
    for _, id := range roomIDs {
        r, ok := f.st.rooms[id]
        if ok && r.OpenToBranch(branch) {
            out = append(out, *r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (f *fakeRoomStore) ClaimSeatVersioned(_ context.Context, roomID uint64, branch string, version uint32) error {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    r, ok := f.st.rooms[roomID]
    if !ok || r.Version != version || !r.OpenToBranch(branch) {
        return repository.ErrVersionConflict
    }
    r.Claimed++
    if r.BranchAllocated == nil {
        b := branch
        r.BranchAllocated = &b
    }
    r.Version++
    return nil
}

type fakeCampusStore struct{ st *allocState }

func (f *fakeCampusStore) ListRoomIDsByBuilding(_ context.Context, buildingID uint64) ([]uint64, error) {
    f.st.mu.Lock()
    defer f.st.mu.Unlock()
    ids := append([]uint64(nil), f.st.roomsByBuilding[buildingID]...)
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids, nil
}

type fakeEmitter struct {
    mu     sync.Mutex
    events []string
}

func (f *fakeEmitter) Emit(event string, _ any) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.events = append(f.events, event)
}

func newTestEngine(st *allocState) (*Engine, *fakeEmitter) {
    em := &fakeEmitter{}
    e := NewEngine(
        &fakeStudentStore{st: st},
        &fakeSeatStore{st: st},
        &fakeRoomStore{st: st},
        &fakeCampusStore{st: st},
        em,
        zap.NewNop(),
    )
    return e, em
}

func seatOf(t *testing.T, st *allocState, studentID uint64) *model.Seat {
    t.Helper()
    for _, s := range st.seats {
        if s.StudentID != nil && *s.StudentID == studentID {
            return s
        }
    }
    t.Fatalf("student %d has no seat", studentID)
    return nil
}

func TestAllocatePriorityGetsAccessibleSeat(t *testing.T) {
    // One wheelchair seat, one plain seat. Student B needs the
    // wheelchair seat and must be placed first even though A has the
    // lower id; A then takes the remaining plain seat.
    st := newAllocState()
    st.addRoom(1, nil)
    st.addSeat(1, 1, 0, 0, "wheelchair")
    st.addSeat(2, 1, 0, 1)
    st.addStudent(1, "CSE-2")               // A
    st.addStudent(2, "CSE-2", "wheelchair") // B

    eng, em := newTestEngine(st)
    res, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1})
    if err != nil {
        t.Fatalf("Allocate: %v", err)
    }
    if res.AllocatedCount != 2 || len(res.Unallocated) != 0 {
        t.Fatalf("got allocated=%d unallocated=%d, want 2/0", res.AllocatedCount, len(res.Unallocated))
    }
    em.mu.Lock()
    emitted := len(em.events)
    em.mu.Unlock()
    if emitted != 1 {
        t.Errorf("emitted %d events, want one per touched room", emitted)
    }
    if s := seatOf(t, st, 2); s.ID != 1 {
        t.Errorf("priority student on seat %d, want the wheelchair seat 1", s.ID)
    }
    if s := seatOf(t, st, 1); s.ID != 2 {
        t.Errorf("student A on seat %d, want seat 2", s.ID)
    }
    if st.rooms[1].Claimed != 2 {
        t.Errorf("room claimed = %d, want 2", st.rooms[1].Claimed)
    }
    if st.rooms[1].BranchAllocated == nil || *st.rooms[1].BranchAllocated != "CSE-2" {
        t.Errorf("room branch tag = %v, want CSE-2", st.rooms[1].BranchAllocated)
    }
}

func TestAllocateDeterministicOrder(t *testing.T) {
    // Without accessibility needs, students fill seats in (room, row,
    // col) order following ascending student id.
    st := newAllocState()
    st.addRoom(1, nil)
    st.addSeat(10, 1, 0, 0)
    st.addSeat(11, 1, 0, 1)
    st.addSeat(12, 1, 1, 0)
    st.addStudent(1, "MECH-1")
    st.addStudent(2, "MECH-1")
    st.addStudent(3, "MECH-1")

    eng, _ := newTestEngine(st)
    if _, err := eng.Allocate(context.Background(), "MECH-1", []uint64{1}); err != nil {
        t.Fatalf("Allocate: %v", err)
    }
    want := map[uint64]uint64{1: 10, 2: 11, 3: 12}
    for student, seat := range want {
        if s := seatOf(t, st, student); s.ID != seat {
            t.Errorf("student %d on seat %d, want %d", student, s.ID, seat)
        }
    }
}

func TestAllocateSkipsSeatLostToConcurrentWriter(t *testing.T) {
    st := newAllocState()
    st.addRoom(1, nil)
    st.addSeat(1, 1, 0, 0)
    st.addSeat(2, 1, 0, 1)
    st.addStudent(1, "CSE-2")
    st.conflictOnce[1] = true // someone else wins seat 1

    eng, _ := newTestEngine(st)
    res, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1})
    if err != nil {
        t.Fatalf("Allocate: %v", err)
    }
    if res.AllocatedCount != 1 {
        t.Fatalf("allocated = %d, want 1", res.AllocatedCount)
    }
    if s := seatOf(t, st, 1); s.ID != 2 {
        t.Errorf("student placed on seat %d, want fallback seat 2", s.ID)
    }
}

func TestAllocateExcludesRoomsClaimedByOtherBranch(t *testing.T) {
    other := "MECH-1"
    st := newAllocState()
    st.addRoom(1, &other)
    st.addSeat(1, 1, 0, 0)
    st.addStudent(1, "CSE-2")

    eng, _ := newTestEngine(st)
    res, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1})
    if err != nil {
        t.Fatalf("Allocate: %v", err)
    }
    if res.AllocatedCount != 0 || len(res.Unallocated) != 1 {
        t.Fatalf("got allocated=%d unallocated=%d, want 0/1", res.AllocatedCount, len(res.Unallocated))
    }
    if res.Unallocated[0].Reason != "No suitable seats available" {
        t.Errorf("reason = %q", res.Unallocated[0].Reason)
    }
}

func TestAllocateReportsStudentsWithoutCompatibleSeat(t *testing.T) {
    st := newAllocState()
    st.addRoom(1, nil)
    st.addSeat(1, 1, 0, 0)
    st.addStudent(1, "CSE-2", "wheelchair")

    eng, _ := newTestEngine(st)
    res, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1})
    if err != nil {
        t.Fatalf("Allocate: %v", err)
    }
    if res.AllocatedCount != 0 || len(res.Unallocated) != 1 {
        t.Fatalf("got allocated=%d unallocated=%d, want 0/1", res.AllocatedCount, len(res.Unallocated))
    }
    if res.Unallocated[0].Student.ID != 1 {
        t.Errorf("unallocated student = %d, want 1", res.Unallocated[0].Student.ID)
    }
}

func TestAllocateIsIdempotentAcrossPasses(t *testing.T) {
    st := newAllocState()
    st.addRoom(1, nil)
    st.addSeat(1, 1, 0, 0)
    st.addSeat(2, 1, 0, 1)
    st.addStudent(1, "CSE-2")

    eng, _ := newTestEngine(st)
    if _, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1}); err != nil {
        t.Fatalf("first pass: %v", err)
    }
    st.addStudent(2, "CSE-2")
    res, err := eng.Allocate(context.Background(), "CSE-2", []uint64{1})
    if err != nil {
        t.Fatalf("second pass: %v", err)
    }
    if res.AllocatedCount != 1 {
        t.Fatalf("second pass allocated = %d, want only the new student", res.AllocatedCount)
    }
    if st.rooms[1].Claimed != 2 {
        t.Errorf("room claimed = %d, want 2", st.rooms[1].Claimed)
    }
}

func TestReallocateStudent(t *testing.T) {
    t.Run("moves the student to a sibling room", func(t *testing.T) {
        st := newAllocState()
        st.addRoom(1, nil)
        st.addRoom(2, nil)
        st.roomsByBuilding[7] = []uint64{1, 2}
        st.addSeat(1, 2, 0, 0)
        st.addStudent(1, "CSE-2")

        eng, _ := newTestEngine(st)
        seat, err := eng.ReallocateStudent(context.Background(), 1, 7, 1)
        if err != nil {
            t.Fatalf("ReallocateStudent: %v", err)
        }
        if seat.RoomID != 2 {
            t.Errorf("placed in room %d, want 2", seat.RoomID)
        }
    })

    t.Run("excludes the room the seat was lost in", func(t *testing.T) {
        st := newAllocState()
        st.addRoom(1, nil)
        st.roomsByBuilding[7] = []uint64{1}
        st.addSeat(1, 1, 0, 0)
        st.addStudent(1, "CSE-2")

        eng, _ := newTestEngine(st)
        _, err := eng.ReallocateStudent(context.Background(), 1, 7, 1)
        if !errors.Is(err, ErrNoSeatAvailable) {
            t.Fatalf("got %v, want ErrNoSeatAvailable", err)
        }
    })

    t.Run("rejects a student who already holds a seat", func(t *testing.T) {
        st := newAllocState()
        st.addRoom(1, nil)
        st.roomsByBuilding[7] = []uint64{1}
        st.addSeat(1, 1, 0, 0)
        st.addStudent(1, "CSE-2")
        sid := uint64(1)
        st.seats[1].Status = model.SeatAllocated
        st.seats[1].StudentID = &sid

        eng, _ := newTestEngine(st)
        _, err := eng.ReallocateStudent(context.Background(), 1, 7, 2)
        if !errors.Is(err, ErrStudentAlreadySeated) {
            t.Fatalf("got %v, want ErrStudentAlreadySeated", err)
        }
    })

    t.Run("unknown student", func(t *testing.T) {
        st := newAllocState()
        eng, _ := newTestEngine(st)
        _, err := eng.ReallocateStudent(context.Background(), 99, 7, 0)
        if !errors.Is(err, repository.ErrStudentNotFound) {
            t.Fatalf("got %v, want ErrStudentNotFound", err)
        }
    })
}
