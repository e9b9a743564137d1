// Package search ranks candidate rooms for a query by capacity fit,
// live availability and hierarchical distance from a reference point.
package search

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sort"
    "time"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/cache"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/repository"
)

// Score terms.  Capacity fit dominates, availability and proximity
// split the rest.
const (
    capacityMax      = 40
    excessPenalty    = 2
    availabilityTerm = 30
    proximityMax     = 30
)

// LocationStore is the slice of the campus repository the ranker reads.
type LocationStore interface {
    GetRoomLocation(ctx context.Context, roomID uint64) (*model.RoomLocation, error)
    ListCandidateLocations(ctx context.Context, minCapacity uint32, branch string) ([]model.RoomLocation, error)
}

// AvailabilityProbe answers whether a room has a committed booking
// intersecting the requested window.  The booking detector satisfies
// it.
type AvailabilityProbe interface {
    HasRoomOverlap(ctx context.Context, roomID uint64, start, end time.Time) (bool, error)
}

// Store caches ranked results under a short TTL; the booking service
// invalidates the namespace on every create and cancel.
type Store interface {
    Get(ctx context.Context, key string) ([]byte, error)
    SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Criteria is one search query.  FromRoomID anchors the distance walk;
// zero means no reference point and every room scores full proximity.
type Criteria struct {
    Capacity   uint32
    Branch     string
    Start, End time.Time
    FromRoomID uint64
}

// cacheKey is stable for a given (capacity, branch, window, location)
// tuple.
func (c Criteria) cacheKey() string {
    return fmt.Sprintf("search:%d:%s:%d:%d:%d",
        c.Capacity, c.Branch, c.Start.UTC().Unix(), c.End.UTC().Unix(), c.FromRoomID)
}

// RankedRoom is one scored search result.
type RankedRoom struct {
    RoomID    uint64  `json:"room_id"`
    RoomName  string  `json:"room_name"`
    Capacity  uint32  `json:"capacity"`
    Distance  float64 `json:"distance"`
    Available bool    `json:"available"`
    Score     int     `json:"score"`
}

// Ranker scores and sorts candidate rooms.
type Ranker struct {
    locations LocationStore
    probe     AvailabilityProbe
    cache     Store
    ttl       time.Duration
    log       *zap.Logger
}

// NewRanker constructs a Ranker.  ttl bounds how stale a cached result
// may get between invalidations.
func NewRanker(locations LocationStore, probe AvailabilityProbe, store Store, ttl time.Duration, log *zap.Logger) *Ranker {
    return &Ranker{
        locations: locations,
        probe:     probe,
        cache:     store,
        ttl:       ttl,
        log:       log,
    }
}

// Search returns rooms able to serve the query, sorted descending by
// score with ties keeping discovery order.  Rooms below the requested
// capacity are excluded by the candidate query; rooms claimed by a
// different branch never appear.
func (r *Ranker) Search(ctx context.Context, c Criteria) ([]RankedRoom, error) {
    if !c.Start.Before(c.End) {
        return nil, errors.New("search window must start before it ends")
    }
    key := c.cacheKey()
    if b, err := r.cache.Get(ctx, key); err == nil {
        var cached []RankedRoom
        if err := json.Unmarshal(b, &cached); err == nil {
            return cached, nil
        }
        // Fall through on a corrupt entry; it will be overwritten.
    } else if !errors.Is(err, cache.ErrMiss) {
        r.log.Warn("search cache read failed", zap.Error(err))
    }

    var ref *model.RoomLocation
    if c.FromRoomID != 0 {
        loc, err := r.locations.GetRoomLocation(ctx, c.FromRoomID)
        if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
            return nil, err
        }
        ref = loc
    }

    candidates, err := r.locations.ListCandidateLocations(ctx, c.Capacity, c.Branch)
    if err != nil {
        return nil, err
    }

    results := make([]RankedRoom, 0, len(candidates))
    for _, cand := range candidates {
        available, err := r.probe.HasRoomOverlap(ctx, cand.RoomID, c.Start, c.End)
        if err != nil {
            return nil, err
        }
        dist := Distance(ref, &cand)
        results = append(results, RankedRoom{
            RoomID:    cand.RoomID,
            RoomName:  cand.RoomName,
            Capacity:  cand.Capacity,
            Distance:  dist,
            Available: !available,
            Score:     score(c.Capacity, cand.Capacity, !available, dist),
        })
    }
    // Stable sort keeps discovery order for equal scores.
    sort.SliceStable(results, func(i, j int) bool {
        return results[i].Score > results[j].Score
    })

    if b, err := json.Marshal(results); err == nil {
        if err := r.cache.SetWithTTL(ctx, key, b, r.ttl); err != nil {
            r.log.Warn("search cache write failed", zap.Error(err))
        }
    }
    return results, nil
}

// Distance walks the containment hierarchy from the reference room to
// the candidate.  Each level's local offset is added exactly once: the
// room offset always, the floor offset when crossing floors, the
// building offset when crossing buildings, and the block offset when
// crossing blocks.  A nil reference costs nothing.
func Distance(ref, cand *model.RoomLocation) float64 {
    if ref == nil || ref.RoomID == cand.RoomID {
        return 0
    }
    if cand.FloorID == ref.FloorID {
        return cand.RoomDistance
    }
    d := cand.RoomDistance + cand.FloorDistance
    if cand.BuildingID != ref.BuildingID {
        d += cand.BuildingDistance
        if cand.BlockID != ref.BlockID {
            d += cand.BlockDistance
        }
    }
    return d
}

// score combines the three ranking terms.  An exact capacity match is
// worth the full capacity term; each seat of excess costs two points,
// floored at zero.
func score(requested, actual uint32, available bool, distance float64) int {
    s := capacityMax - excessPenalty*int(actual-requested)
    if s < 0 {
        s = 0
    }
    if available {
        s += availabilityTerm
    }
    proximity := proximityMax - int(distance)
    if proximity > 0 {
        s += proximity
    }
    return s
}
