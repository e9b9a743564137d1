package repository

import (
    "context"
    "database/sql"

    "github.com/campushq/campus-reservation/internal/model"
)

// CampusRepo provides read access to the block/building/floor hierarchy
// and the joined room-location rows the search ranker walks.  The
// hierarchy only feeds distance computation and browse endpoints; it is
// never involved in locking.
type CampusRepo struct {
    db *sql.DB
}

// NewCampusRepo constructs a CampusRepo with the given DB handle.
func NewCampusRepo(db *sql.DB) *CampusRepo {
    return &CampusRepo{db: db}
}

// BuildingRow is a building joined with its block name for browse
// responses.
type BuildingRow struct {
    ID        uint64  `json:"id"`
    Name      string  `json:"name"`
    BlockID   uint64  `json:"block_id"`
    BlockName string  `json:"block_name"`
    Distance  float64 `json:"distance"`
    Rooms     int     `json:"rooms"`
}

// ListBuildings returns all buildings with their block names and room
// counts, ordered by id.
func (r *CampusRepo) ListBuildings(ctx context.Context) ([]BuildingRow, error) {
    const q = `SELECT bd.id, bd.name, bl.id, bl.name, bd.distance,
                      (SELECT COUNT(*) FROM rooms rm JOIN floors f ON f.id = rm.floor_id WHERE f.building_id = bd.id)
               FROM buildings bd
               JOIN blocks bl ON bl.id = bd.block_id
               ORDER BY bd.id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]BuildingRow, 0)
    for rows.Next() {
        var b BuildingRow
        if err := rows.Scan(&b.ID, &b.Name, &b.BlockID, &b.BlockName, &b.Distance, &b.Rooms); err != nil {
            return nil, err
        }
        result = append(result, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// GetBuilding retrieves a building by id.  Returns ErrBuildingNotFound
// when no row exists.
func (r *CampusRepo) GetBuilding(ctx context.Context, id uint64) (*model.Building, error) {
    const q = `SELECT id, block_id, name, distance FROM buildings WHERE id = ?`
    var b model.Building
    err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.BlockID, &b.Name, &b.Distance)
    if err == sql.ErrNoRows {
        return nil, ErrBuildingNotFound
    }
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// ListRoomsByBuilding returns all rooms inside a building ordered by
// floor then room id, for the browse endpoint.
func (r *CampusRepo) ListRoomsByBuilding(ctx context.Context, buildingID uint64) ([]model.Room, error) {
    const q = `SELECT rm.id, rm.floor_id, rm.name, rm.capacity, rm.seat_rows, rm.seat_cols,
                      rm.claimed, rm.branch_allocated, rm.distance, rm.version, rm.created_at, rm.updated_at
               FROM rooms rm
               JOIN floors f ON f.id = rm.floor_id
               WHERE f.building_id = ?
               ORDER BY f.id, rm.id`
    rows, err := r.db.QueryContext(ctx, q, buildingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *rm)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// ListRoomIDsByBuilding returns the ids of every room in a building in
// ascending order.  Used to scope building-wide allocation and
// displacement repair.
func (r *CampusRepo) ListRoomIDsByBuilding(ctx context.Context, buildingID uint64) ([]uint64, error) {
    const q = `SELECT rm.id
               FROM rooms rm
               JOIN floors f ON f.id = rm.floor_id
               WHERE f.building_id = ?
               ORDER BY rm.id`
    rows, err := r.db.QueryContext(ctx, q, buildingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

const locationColumns = `rm.id, rm.name, rm.capacity, rm.distance,
                      f.id, f.distance,
                      bd.id, bd.distance,
                      bl.id, bl.distance`

const locationJoins = `FROM rooms rm
               JOIN floors f     ON f.id = rm.floor_id
               JOIN buildings bd ON bd.id = f.building_id
               JOIN blocks bl    ON bl.id = bd.block_id`

func scanLocation(row interface{ Scan(...any) error }) (*model.RoomLocation, error) {
    var loc model.RoomLocation
    if err := row.Scan(
        &loc.RoomID, &loc.RoomName, &loc.Capacity, &loc.RoomDistance,
        &loc.FloorID, &loc.FloorDistance,
        &loc.BuildingID, &loc.BuildingDistance,
        &loc.BlockID, &loc.BlockDistance,
    ); err != nil {
        return nil, err
    }
    return &loc, nil
}

// GetRoomLocation returns a single room joined with the distance
// offsets of its containing floor, building and block.  Returns
// ErrRoomNotFound when the room does not exist.
func (r *CampusRepo) GetRoomLocation(ctx context.Context, roomID uint64) (*model.RoomLocation, error) {
    const q = `SELECT ` + locationColumns + `
               ` + locationJoins + `
               WHERE rm.id = ?`
    loc, err := scanLocation(r.db.QueryRowContext(ctx, q, roomID))
    if err == sql.ErrNoRows {
        return nil, ErrRoomNotFound
    }
    return loc, err
}

// ListCandidateLocations returns location rows for every room that can
// serve a search: capacity at least the requested amount and either
// unclaimed or already tagged with the searching branch.  Rooms come
// back in id order; that order is what score ties preserve.
func (r *CampusRepo) ListCandidateLocations(ctx context.Context, minCapacity uint32, branch string) ([]model.RoomLocation, error) {
    const q = `SELECT ` + locationColumns + `
               ` + locationJoins + `
               WHERE rm.capacity >= ?
                 AND (rm.branch_allocated IS NULL OR rm.branch_allocated = ?)
               ORDER BY rm.id`
    rows, err := r.db.QueryContext(ctx, q, minCapacity, branch)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.RoomLocation, 0)
    for rows.Next() {
        loc, err := scanLocation(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *loc)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}
