package world

import (
	"fmt"

	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/data"
)

// Kind classifies world objects.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindCreature
	KindGameObject
	KindTrap
	KindCorpse
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindCreature:
		return "creature"
	case KindGameObject:
		return "gameobject"
	case KindTrap:
		return "trap"
	case KindCorpse:
		return "corpse"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Client is the connection of a player object. net.Session implements it.
type Client interface {
	Send(data []byte)
	Close()
}

// DefaultPhase is the visibility phase every object starts in.
const DefaultPhase uint32 = 1

// Object is anything placed in a region. Accessed only from the owning
// region's loop, no locks.
type Object struct {
	ID          ecs.EntityID
	Entry       uint32
	Kind        Kind
	Name        string
	Position    Vector3
	Orientation float32
	Phase       uint32 // bitmask; objects see each other when phases overlap
	Owner       *Unit  // responsible unit of traps and summoned objects
	Client      Client

	region *Region
	unit   *Unit
}

func NewObject(kind Kind, entry uint32, name string) *Object {
	return &Object{Kind: kind, Entry: entry, Name: name, Phase: DefaultPhase}
}

func (o *Object) Region() *Region { return o.region }
func (o *Object) InWorld() bool   { return o.region != nil }
func (o *Object) IsPlayer() bool  { return o.Kind == KindPlayer }

// Unit returns the animate view of the object, nil for traps and game objects.
func (o *Object) Unit() *Unit { return o.unit }

// Responsible returns the unit that answers for this object's actions:
// itself when animate, otherwise its owner (may be nil).
func (o *Object) Responsible() *Unit {
	if o.unit != nil {
		return o.unit
	}
	return o.Owner
}

// Ref takes a lightweight reference that outlives the object's presence.
func (o *Object) Ref() Reference {
	r := Reference{ID: o.ID, Entry: o.Entry, Kind: o.Kind, Name: o.Name, region: o.region}
	if o.unit != nil {
		r.Level = o.unit.Level
	}
	return r
}

func (o *Object) String() string {
	return fmt.Sprintf("%s(%s %s)", o.Name, o.Kind, o.ID)
}

// Unit is an animate object: players and creatures.
type Unit struct {
	Object

	Level     int
	Health    int
	MaxHealth int
	Power     int
	MaxPower  int
	Faction   uint32

	Evading       bool
	Invulnerable  bool
	ImmuneSchools data.SchoolMask
	Staff         bool // GM; invulnerability checks always apply
	GodMode       bool // GM god mode; skips player-cast checks and hit rolls
	Mounted       bool
	Sitting       bool
	Silenced      bool

	CastSpeed           float64 // 1.0 = normal, <1 faster
	InterruptProtection int     // percent of pushback ignored
	HitChanceMod        int     // flat spell hit bonus

	Tamable          bool
	Exotic           bool
	CanControlExotic bool
	Target           ecs.EntityID // selected target
	Tamer            ecs.EntityID // unit currently taming this one
	Master           ecs.EntityID // owner of a tamed or summoned unit

	Skills    map[uint32]int // skill id → level
	Inventory *Inventory
	Auras     *Auras
}

func NewUnit(kind Kind, entry uint32, name string, level int) *Unit {
	u := &Unit{
		Object:    *NewObject(kind, entry, name),
		Level:     level,
		Health:    100,
		MaxHealth: 100,
		CastSpeed: 1,
		Skills:    make(map[uint32]int),
		Inventory: NewInventory(),
		Auras:     NewAuras(),
	}
	u.unit = u
	return u
}

func (u *Unit) Alive() bool { return u.Health > 0 }

func (u *Unit) SkillLevel(id uint32) int { return u.Skills[id] }

func (u *Unit) IsHostileTo(o *Unit) bool {
	return o != nil && u.Faction != o.Faction
}

// ImmuneTo reports full immunity: every school of the spell is blocked.
func (u *Unit) ImmuneTo(schools data.SchoolMask) bool {
	return schools != 0 && u.ImmuneSchools&schools == schools
}

// TakeDamage lowers health, floored at zero, and returns the damage dealt.
func (u *Unit) TakeDamage(n int) int {
	if n <= 0 || !u.Alive() {
		return 0
	}
	if n > u.Health {
		n = u.Health
	}
	u.Health -= n
	return n
}

// Heal raises health, capped at MaxHealth, and returns the amount healed.
func (u *Unit) Heal(n int) int {
	if n <= 0 || !u.Alive() {
		return 0
	}
	if u.Health+n > u.MaxHealth {
		n = u.MaxHealth - u.Health
	}
	u.Health += n
	return n
}

// Reference identifies an object without keeping it alive. It resolves to
// nil once the object has left its region.
type Reference struct {
	ID    ecs.EntityID
	Entry uint32
	Kind  Kind
	Name  string
	Level int

	region *Region
}

func (r Reference) IsZero() bool { return r.ID.IsZero() }

func (r Reference) Region() *Region { return r.region }

// Object resolves the reference, nil when the object is gone.
func (r Reference) Object() *Object {
	if r.region == nil || r.ID.IsZero() {
		return nil
	}
	return r.region.FindObject(r.ID)
}

// Unit resolves the reference to an animate object, nil otherwise.
func (r Reference) Unit() *Unit {
	if o := r.Object(); o != nil {
		return o.Unit()
	}
	return nil
}
