package world

import (
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
)

// ObjID names an object in the world. Zero means none.
type ObjID uint16

// Handle is an ObjID pinned to one incarnation of its slot. Resolving a
// handle whose object has since been destroyed yields nil even if the id
// was reused.
type Handle struct {
	ID  ObjID
	Gen uint32
}

// Object is anything stored in the object table: plain items, containers,
// actors and the main actor.
type Object interface {
	ObjID() ObjID
	ClassName() string
	AsItem() *Item

	// ReceiveHit and Destroy dispatch to the most derived type.
	ReceiveHit(other ObjID, dir geom.Direction, damage int, typ uint16)
	Destroy(delNow bool)

	saveData(w *encoding.Writer)
	loadData(r *encoding.Reader, version uint32) error
}

type slot struct {
	obj Object
	gen uint32
	// dead slots keep their id out of circulation until the deferred free
	// queue drains.
	dead bool
}

// ObjectManager is a generation-checked slot map from ObjID to Object.
type ObjectManager struct {
	slots []slot
	free  []ObjID
	next  ObjID
	count int
}

const maxObjID ObjID = 0xFFFE

func NewObjectManager() *ObjectManager {
	return &ObjectManager{
		slots: make([]slot, int(maxObjID)+1),
		next:  firstItemID,
	}
}

func (m *ObjectManager) Len() int { return m.count }

// Assign gives o the next free item id (>= 256). Returns 0 when full.
func (m *ObjectManager) Assign(o Object) ObjID {
	if n := len(m.free); n > 0 {
		id := m.free[0]
		m.free = m.free[1:]
		m.place(id, o)
		return id
	}
	for range int(maxObjID - firstItemID + 1) {
		id := m.next
		m.next++
		if m.next > maxObjID {
			m.next = firstItemID
		}
		s := &m.slots[id]
		if s.obj == nil && !s.dead {
			m.place(id, o)
			return id
		}
	}
	return 0
}

// AssignID places o at a fixed id, used for NPCs and when loading.
func (m *ObjectManager) AssignID(id ObjID, o Object) bool {
	if id == 0 || id > maxObjID {
		return false
	}
	s := &m.slots[id]
	if s.obj != nil || s.dead {
		return false
	}
	m.free = removeID(m.free, id)
	m.place(id, o)
	return true
}

func (m *ObjectManager) place(id ObjID, o Object) {
	s := &m.slots[id]
	s.obj = o
	s.gen++
	m.count++
}

// Release detaches the object from its id immediately. The id is not
// handed out again until Recycle.
func (m *ObjectManager) Release(id ObjID) {
	if id == 0 || id > maxObjID {
		return
	}
	s := &m.slots[id]
	if s.obj == nil {
		return
	}
	s.obj = nil
	s.dead = true
	s.gen++
	m.count--
}

// Recycle returns a released id to the free pool.
func (m *ObjectManager) Recycle(id ObjID) {
	if id == 0 || id > maxObjID {
		return
	}
	s := &m.slots[id]
	if !s.dead {
		return
	}
	s.dead = false
	if id >= firstItemID {
		m.free = append(m.free, id)
	}
}

func (m *ObjectManager) Get(id ObjID) Object {
	if id == 0 || id > maxObjID {
		return nil
	}
	return m.slots[id].obj
}

func (m *ObjectManager) Handle(id ObjID) Handle {
	if m.Get(id) == nil {
		return Handle{}
	}
	return Handle{ID: id, Gen: m.slots[id].gen}
}

func (m *ObjectManager) Resolve(h Handle) Object {
	if h.ID == 0 || h.ID > maxObjID {
		return nil
	}
	s := &m.slots[h.ID]
	if s.gen != h.Gen {
		return nil
	}
	return s.obj
}

// Each visits live objects in ascending id order.
func (m *ObjectManager) Each(fn func(Object)) {
	for id := 1; id <= int(maxObjID); id++ {
		if o := m.slots[id].obj; o != nil {
			fn(o)
		}
	}
}

// Reset forgets every object. Generations are kept, so a handle taken
// before the reset never resolves to an object placed after it.
func (m *ObjectManager) Reset() {
	for i := range m.slots {
		m.slots[i].obj = nil
		m.slots[i].dead = false
	}
	m.free = m.free[:0]
	m.next = firstItemID
	m.count = 0
}

func removeID(ids []ObjID, id ObjID) []ObjID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
