package search

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/cache"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/repository"
)

type fakeLocations struct {
    byRoom     map[uint64]*model.RoomLocation
    candidates []model.RoomLocation
}

func (f *fakeLocations) GetRoomLocation(_ context.Context, roomID uint64) (*model.RoomLocation, error) {
    loc, ok := f.byRoom[roomID]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    return loc, nil
}

func (f *fakeLocations) ListCandidateLocations(_ context.Context, minCapacity uint32, _ string) ([]model.RoomLocation, error) {
    var out []model.RoomLocation
    for _, c := range f.candidates {
        if c.Capacity >= minCapacity {
            out = append(out, c)
        }
    }
    return out, nil
}

type fakeProbe struct {
    booked map[uint64]bool
    calls  int
}

func (f *fakeProbe) HasRoomOverlap(_ context.Context, roomID uint64, _, _ time.Time) (bool, error) {
    f.calls++
    return f.booked[roomID], nil
}

type fakeStore struct{ entries map[string][]byte }

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
    b, ok := f.entries[key]
    if !ok {
        return nil, cache.ErrMiss
    }
    return b, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
    f.entries[key] = value
    return nil
}

func loc(roomID, floorID, buildingID, blockID uint64, room, floor, building, block float64) model.RoomLocation {
    return model.RoomLocation{
        RoomID: roomID, RoomDistance: room,
        FloorID: floorID, FloorDistance: floor,
        BuildingID: buildingID, BuildingDistance: building,
        BlockID: blockID, BlockDistance: block,
    }
}

func TestDistance(t *testing.T) {
    ref := loc(1, 10, 100, 1000, 2, 3, 5, 7)
    cases := []struct {
        name string
        ref  *model.RoomLocation
        cand model.RoomLocation
        want float64
    }{
        {"no reference", nil, loc(2, 10, 100, 1000, 4, 3, 5, 7), 0},
        {"same room", &ref, loc(1, 10, 100, 1000, 2, 3, 5, 7), 0},
        {"same floor", &ref, loc(2, 10, 100, 1000, 4, 3, 5, 7), 4},
        {"same building, other floor", &ref, loc(2, 11, 100, 1000, 4, 6, 5, 7), 10},
        {"same block, other building", &ref, loc(2, 11, 101, 1000, 4, 6, 9, 7), 19},
        {"other block", &ref, loc(2, 11, 101, 1001, 4, 6, 9, 8), 27},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := Distance(tc.ref, &tc.cand); got != tc.want {
                t.Errorf("Distance = %v, want %v", got, tc.want)
            }
        })
    }
}

func TestScore(t *testing.T) {
    cases := []struct {
        name      string
        requested uint32
        actual    uint32
        available bool
        distance  float64
        want      int
    }{
        {"exact fit, free, adjacent", 30, 30, true, 0, 100},
        {"two seats excess", 30, 32, true, 0, 96},
        {"capacity term floors at zero", 30, 90, true, 0, 60},
        {"busy room loses the availability term", 30, 30, false, 0, 70},
        {"distance eats proximity", 30, 30, true, 12, 88},
        {"beyond proximity range", 30, 30, true, 40, 70},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := score(tc.requested, tc.actual, tc.available, tc.distance); got != tc.want {
                t.Errorf("score = %d, want %d", got, tc.want)
            }
        })
    }
}

func newTestRanker(locs *fakeLocations, probe *fakeProbe, store *fakeStore) *Ranker {
    return NewRanker(locs, probe, store, 30*time.Second, zap.NewNop())
}

func baseCriteria() Criteria {
    start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
    return Criteria{Capacity: 30, Branch: "CSE-2", Start: start, End: start.Add(2 * time.Hour)}
}

func TestSearchRanksByScore(t *testing.T) {
    ref := loc(1, 10, 100, 1000, 0, 0, 0, 0)
    near := loc(2, 10, 100, 1000, 1, 0, 0, 0)
    near.Capacity = 30
    far := loc(3, 11, 101, 1001, 5, 5, 5, 5)
    far.Capacity = 30
    busy := loc(4, 10, 100, 1000, 1, 0, 0, 0)
    busy.Capacity = 30

    locs := &fakeLocations{
        byRoom:     map[uint64]*model.RoomLocation{1: &ref},
        candidates: []model.RoomLocation{far, busy, near},
    }
    probe := &fakeProbe{booked: map[uint64]bool{4: true}}
    r := newTestRanker(locs, probe, &fakeStore{entries: map[string][]byte{}})

    c := baseCriteria()
    c.FromRoomID = 1
    results, err := r.Search(context.Background(), c)
    if err != nil {
        t.Fatalf("Search: %v", err)
    }
    if len(results) != 3 {
        t.Fatalf("got %d results, want 3", len(results))
    }
    wantOrder := []uint64{2, 3, 4} // near free, far free, near busy
    for i, want := range wantOrder {
        if results[i].RoomID != want {
            t.Errorf("results[%d] = room %d, want %d", i, results[i].RoomID, want)
        }
    }
    if results[2].Available {
        t.Error("busy room reported available")
    }
}

func TestSearchTiesKeepDiscoveryOrder(t *testing.T) {
    a := loc(5, 10, 100, 1000, 0, 0, 0, 0)
    a.Capacity = 30
    b := loc(6, 10, 100, 1000, 0, 0, 0, 0)
    b.Capacity = 30
    locs := &fakeLocations{byRoom: map[uint64]*model.RoomLocation{}, candidates: []model.RoomLocation{a, b}}
    r := newTestRanker(locs, &fakeProbe{booked: map[uint64]bool{}}, &fakeStore{entries: map[string][]byte{}})

    results, err := r.Search(context.Background(), baseCriteria())
    if err != nil {
        t.Fatalf("Search: %v", err)
    }
    if len(results) != 2 || results[0].RoomID != 5 || results[1].RoomID != 6 {
        t.Fatalf("tie order broken: %+v", results)
    }
}

func TestSearchRejectsEmptyWindow(t *testing.T) {
    r := newTestRanker(&fakeLocations{}, &fakeProbe{}, &fakeStore{entries: map[string][]byte{}})
    c := baseCriteria()
    c.End = c.Start
    if _, err := r.Search(context.Background(), c); err == nil {
        t.Fatal("empty window accepted")
    }
}

func TestSearchServesCachedResults(t *testing.T) {
    c := baseCriteria()
    cached := []RankedRoom{{RoomID: 42, Score: 99}}
    payload, _ := json.Marshal(cached)
    store := &fakeStore{entries: map[string][]byte{c.cacheKey(): payload}}
    probe := &fakeProbe{}
    r := newTestRanker(&fakeLocations{}, probe, store)

    results, err := r.Search(context.Background(), c)
    if err != nil {
        t.Fatalf("Search: %v", err)
    }
    if len(results) != 1 || results[0].RoomID != 42 {
        t.Fatalf("cached result not served: %+v", results)
    }
    if probe.calls != 0 {
        t.Errorf("probe consulted %d times on a cache hit", probe.calls)
    }
}

func TestSearchWritesThroughToCache(t *testing.T) {
    a := loc(5, 10, 100, 1000, 0, 0, 0, 0)
    a.Capacity = 30
    store := &fakeStore{entries: map[string][]byte{}}
    locs := &fakeLocations{byRoom: map[uint64]*model.RoomLocation{}, candidates: []model.RoomLocation{a}}
    r := newTestRanker(locs, &fakeProbe{booked: map[uint64]bool{}}, store)

    c := baseCriteria()
    if _, err := r.Search(context.Background(), c); err != nil {
        t.Fatalf("Search: %v", err)
    }
    if _, ok := store.entries[c.cacheKey()]; !ok {
        t.Error("result not written to cache")
    }
}
