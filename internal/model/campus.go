package model

// Block is the top level of the campus containment hierarchy.  Blocks
// group buildings and carry a local distance offset that is added when
// a search has to traverse between sibling blocks.  The hierarchy is
// used only for distance computation, never for locking.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – unique block name (e.g. "North Campus").
//  Distance – local traversal cost added when crossing block boundaries.
type Block struct {
    ID       uint64  // blocks.id
    Name     string  // blocks.name
    Distance float64 // blocks.distance
}

// Building belongs to exactly one Block and contains floors.  Its
// Distance is the cost of moving between sibling buildings inside the
// same block.
//
// Fields:
//  ID       – primary key identifier.
//  BlockID  – containing block.
//  Name     – building name, unique per block.
//  Distance – local traversal cost between sibling buildings.
type Building struct {
    ID       uint64  // buildings.id
    BlockID  uint64  // buildings.block_id
    Name     string  // buildings.name
    Distance float64 // buildings.distance
}

// Floor belongs to exactly one Building and contains rooms.  Its
// Distance is the cost of moving between floors of the same building.
//
// Fields:
//  ID         – primary key identifier.
//  BuildingID – containing building.
//  Name       – floor label (e.g. "G", "1", "2").
//  Distance   – local traversal cost between sibling floors.
type Floor struct {
    ID         uint64  // floors.id
    BuildingID uint64  // floors.building_id
    Name       string  // floors.name
    Distance   float64 // floors.distance
}
