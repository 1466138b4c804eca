package world

import (
	"github.com/l1jgo/spellcast/internal/component"
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/core/task"
	"go.uber.org/zap"
)

// DefaultVisibilityRange is how far objects perceive each other.
const DefaultVisibilityRange float32 = 40

// Region is one map partition. Everything in it is mutated only from the
// region's own turn of the game loop; other goroutines and other regions
// reach it through Tasks().
type Region struct {
	ID              uint32
	Name            string
	VisibilityRange float32

	ecs      *ecs.World
	objects  *ecs.PtrComponentStore[Object]
	sessions *ecs.PtrComponentStore[component.SessionRef]
	ai       *ecs.PtrComponentStore[component.AICaster]
	grid     *AOIGrid
	tasks    *task.Queue

	removeListeners []func(*Object)
	log             *zap.Logger
}

func NewRegion(id uint32, name string, log *zap.Logger) *Region {
	r := &Region{
		ID:              id,
		Name:            name,
		VisibilityRange: DefaultVisibilityRange,
		ecs:             ecs.NewWorld(),
		objects:         ecs.NewPtrComponentStore[Object](),
		sessions:        ecs.NewPtrComponentStore[component.SessionRef](),
		ai:              ecs.NewPtrComponentStore[component.AICaster](),
		grid:            NewAOIGrid(),
		tasks:           task.NewQueue(),
		log:             log.With(zap.Uint32("region", id)),
	}
	reg := r.ecs.Registry()
	reg.Register(r.objects)
	reg.Register(r.sessions)
	reg.Register(r.ai)
	return r
}

// Tasks is the region's FIFO work queue, safe for any goroutine.
func (r *Region) Tasks() *task.Queue { return r.tasks }

// ExecuteInContext schedules fn for the region's next task drain.
func (r *Region) ExecuteInContext(fn func()) {
	r.tasks.Enqueue(fn)
}

// OnRemove registers a listener called when an object leaves the region.
func (r *Region) OnRemove(fn func(*Object)) {
	r.removeListeners = append(r.removeListeners, fn)
}

// Spawn places obj at pos and assigns it a fresh entity id.
func (r *Region) Spawn(obj *Object, pos Vector3) ecs.EntityID {
	id := r.ecs.CreateEntity()
	obj.ID = id
	obj.Position = pos
	obj.region = r
	r.objects.Set(id, obj)
	r.grid.Add(id, pos)
	return id
}

// SpawnUnit is Spawn for animate objects.
func (r *Region) SpawnUnit(u *Unit, pos Vector3) ecs.EntityID {
	return r.Spawn(&u.Object, pos)
}

// BindSession links a player entity to its network session.
func (r *Region) BindSession(id ecs.EntityID, sessionID uint64) {
	r.sessions.Set(id, &component.SessionRef{SessionID: sessionID})
}

// SessionOf returns the session id bound to a player entity.
func (r *Region) SessionOf(id ecs.EntityID) (uint64, bool) {
	ref, ok := r.sessions.Get(id)
	if !ok {
		return 0, false
	}
	return ref.SessionID, true
}

// SetAI marks a creature as AI-controlled.
func (r *Region) SetAI(id ecs.EntityID, ai *component.AICaster) {
	r.ai.Set(id, ai)
}

// EachAI visits every AI-controlled unit still in the region.
func (r *Region) EachAI(fn func(*Unit, *component.AICaster)) {
	ecs.Each2(r.objects, r.ai, func(_ ecs.EntityID, o *Object, ai *component.AICaster) {
		if u := o.Unit(); u != nil {
			fn(u, ai)
		}
	})
}

// EachUnit visits every animate object still in the region.
func (r *Region) EachUnit(fn func(*Unit)) {
	r.objects.Each(func(_ ecs.EntityID, o *Object) {
		if u := o.Unit(); u != nil && o.region == r {
			fn(u)
		}
	})
}

// Move updates an object's position.
func (r *Region) Move(obj *Object, pos Vector3) {
	if obj.region != r {
		return
	}
	r.grid.Move(obj.ID, obj.Position, pos)
	obj.Position = pos
}

// Remove takes obj out of the world. Remove listeners run first, while the
// object is still resolvable; its id is recycled at the next FlushDestroyed.
func (r *Region) Remove(obj *Object) {
	if obj == nil || obj.region != r {
		return
	}
	for _, fn := range r.removeListeners {
		fn(obj)
	}
	r.grid.Remove(obj.ID, obj.Position)
	r.ecs.MarkForDestruction(obj.ID)
	obj.region = nil
	r.log.Debug("物件離開區域", zap.String("object", obj.String()))
}

// FlushDestroyed recycles the ids of removed objects. CleanupSystem calls
// this at the end of each tick.
func (r *Region) FlushDestroyed() int {
	n := r.ecs.PendingDestruction()
	r.ecs.FlushDestroyQueue()
	return n
}

// FindObject resolves an id to a live object, nil if gone or stale.
func (r *Region) FindObject(id ecs.EntityID) *Object {
	if !r.ecs.Alive(id) {
		return nil
	}
	obj, ok := r.objects.Get(id)
	if !ok {
		return nil
	}
	return obj
}

// FindUnit resolves an id to a live animate object.
func (r *Region) FindUnit(id ecs.EntityID) *Unit {
	if obj := r.FindObject(id); obj != nil {
		return obj.Unit()
	}
	return nil
}

// FindPlayerByName looks up a player in this region by exact name.
func (r *Region) FindPlayerByName(name string) *Unit {
	var found *Unit
	r.objects.Each(func(_ ecs.EntityID, o *Object) {
		if found == nil && o.IsPlayer() && o.Name == name {
			found = o.Unit()
		}
	})
	return found
}

// CanSee reports whether observer perceives target: both in this region,
// overlapping phases, within visibility range.
func (r *Region) CanSee(observer, target *Object) bool {
	if observer == nil || target == nil {
		return false
	}
	if observer.region != r || target.region != r {
		return false
	}
	if observer.Phase&target.Phase == 0 {
		return false
	}
	vr := r.VisibilityRange
	return observer.Position.DistanceSq(target.Position) <= vr*vr
}

// ObjectsInRadius returns every object within radius of center whose phase
// overlaps phase.
func (r *Region) ObjectsInRadius(center Vector3, radius float32, phase uint32) []*Object {
	var result []*Object
	rsq := radius * radius
	for _, id := range r.grid.GetNearby(center, radius) {
		obj := r.FindObject(id)
		if obj == nil || obj.Phase&phase == 0 {
			continue
		}
		if obj.Position.DistanceSq(center) <= rsq {
			result = append(result, obj)
		}
	}
	return result
}

// UnitsInRadius is ObjectsInRadius restricted to living units.
func (r *Region) UnitsInRadius(center Vector3, radius float32, phase uint32) []*Unit {
	var result []*Unit
	for _, obj := range r.ObjectsInRadius(center, radius, phase) {
		if u := obj.Unit(); u != nil && u.Alive() {
			result = append(result, u)
		}
	}
	return result
}

// NearbyClients returns the clients of players that can see obj, obj's own
// client included.
func (r *Region) NearbyClients(obj *Object) []Client {
	var result []Client
	for _, other := range r.ObjectsInRadius(obj.Position, r.VisibilityRange, obj.Phase) {
		if other.Client != nil {
			result = append(result, other.Client)
		}
	}
	return result
}

// Count returns the number of objects in the region.
func (r *Region) Count() int { return r.objects.Len() }
