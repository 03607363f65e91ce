package domain

// RelationKind identifies one traversal of the knowledge graph.
type RelationKind string

const (
	RelationNPCLocation   RelationKind = "npc_location"
	RelationMonsterSpawn  RelationKind = "monster_spawn"
	RelationItemSeller    RelationKind = "item_seller"
	RelationItemDropper   RelationKind = "item_dropper"
	RelationMapConnection RelationKind = "map_connection"
	RelationMapNPCs       RelationKind = "map_npcs"
	RelationMapMonsters   RelationKind = "map_monsters"
)

// RelationSpec describes an edge pattern: which side is matched by name
// (the anchor) and which side answers the question.
type RelationSpec struct {
	Kind           RelationKind
	Edge           string
	SourceCategory Category
	TargetCategory Category
	AnchorIsSource bool
}

var relationSpecs = map[RelationKind]RelationSpec{
	RelationNPCLocation:   {Kind: RelationNPCLocation, Edge: "LOCATED_IN", SourceCategory: CategoryNPC, TargetCategory: CategoryMap, AnchorIsSource: true},
	RelationMonsterSpawn:  {Kind: RelationMonsterSpawn, Edge: "SPAWNS_IN", SourceCategory: CategoryMonster, TargetCategory: CategoryMap, AnchorIsSource: true},
	RelationItemSeller:    {Kind: RelationItemSeller, Edge: "SELLS", SourceCategory: CategoryNPC, TargetCategory: CategoryItem, AnchorIsSource: false},
	RelationItemDropper:   {Kind: RelationItemDropper, Edge: "DROPS", SourceCategory: CategoryMonster, TargetCategory: CategoryItem, AnchorIsSource: false},
	RelationMapConnection: {Kind: RelationMapConnection, Edge: "CONNECTS_TO", SourceCategory: CategoryMap, TargetCategory: CategoryMap, AnchorIsSource: true},
	RelationMapNPCs:       {Kind: RelationMapNPCs, Edge: "HAS_NPC", SourceCategory: CategoryMap, TargetCategory: CategoryNPC, AnchorIsSource: true},
	RelationMapMonsters:   {Kind: RelationMapMonsters, Edge: "HAS_MONSTER", SourceCategory: CategoryMap, TargetCategory: CategoryMonster, AnchorIsSource: true},
}

func LookupRelation(kind RelationKind) (RelationSpec, bool) {
	spec, ok := relationSpecs[kind]
	return spec, ok
}

// AnswerCategory is the category of the side the traversal resolves to.
func (s RelationSpec) AnswerCategory() Category {
	if s.AnchorIsSource {
		return s.TargetCategory
	}
	return s.SourceCategory
}

// RelationTuple is one edge returned by the graph store, in edge direction.
type RelationTuple struct {
	Kind       RelationKind `json:"kind"`
	Relation   string       `json:"relation"`
	SourceID   string       `json:"source_id"`
	SourceName string       `json:"source_name"`
	TargetID   string       `json:"target_id"`
	TargetName string       `json:"target_name"`
}

// AnswerSide returns the id and name on the non-anchor side of the edge.
func (t RelationTuple) AnswerSide() (id, name string) {
	spec, ok := LookupRelation(t.Kind)
	if !ok || spec.AnchorIsSource {
		return t.TargetID, t.TargetName
	}
	return t.SourceID, t.SourceName
}

// MapPath is a shortest route between two maps over CONNECTS_TO edges.
type MapPath struct {
	Names    []string `json:"names"`
	Distance int      `json:"distance"`
}
