package world

import (
	"fmt"

	"u8sim/internal/sim/encoding"
)

const classContainer = "Container"

// Container is an item that holds other items.
type Container struct {
	Item
	contents []ObjID
}

func newContainer(w *World) *Container {
	c := &Container{}
	c.world = w
	c.self = c
	return c
}

func (c *Container) ClassName() string       { return classContainer }
func (c *Container) AsContainer() *Container { return c }

// Contents lists the held items in insertion order.
func (c *Container) Contents() []ObjID { return append([]ObjID(nil), c.contents...) }

func (c *Container) Contains(id ObjID) bool {
	for _, v := range c.contents {
		if v == id {
			return true
		}
	}
	return false
}

func containerOf(o Object) *Container {
	if o == nil {
		return nil
	}
	if c, ok := o.(interface{ AsContainer() *Container }); ok {
		return c.AsContainer()
	}
	return nil
}

// Capacity is the content volume limit; 0 means unlimited.
func (c *Container) Capacity() uint32 {
	if c.objID == MainActorID {
		return uint32(c.world.tun.MainActor.BackpackVolume)
	}
	if actorOf(c.self) != nil {
		return 0
	}
	return uint32(c.ShapeInfo().Capacity)
}

// ContentVolume sums the volume of carried, unequipped items.
func (c *Container) ContentVolume() uint32 {
	var v uint32
	for _, id := range c.contents {
		if it := c.world.Item(id); it != nil && it.flags&FlagEquipped == 0 {
			v += it.Volume()
		}
	}
	return v
}

func (c *Container) TotalWeight() uint32 {
	w := c.Weight()
	for _, id := range c.contents {
		if it := c.world.Item(id); it != nil {
			w += it.TotalWeight()
		}
	}
	return w
}

// CanAddItem checks that it may go into c: not an actor, not an ancestor
// of c, and, with checkWeightVolume, within volume and the avatar's carry
// limit.
func (c *Container) CanAddItem(it *Item, checkWeightVolume bool) bool {
	if it == nil {
		return false
	}
	if it.parent == c.objID {
		return true
	}
	if it.objID < firstItemID {
		return false
	}
	if ic := containerOf(it.self); ic != nil {
		for p := c; p != nil; p = p.ParentAsContainer() {
			if p == ic {
				return false
			}
		}
	}
	if !checkWeightVolume {
		return true
	}
	if limit := c.Capacity(); limit > 0 && c.ContentVolume()+it.Volume() > limit {
		return false
	}
	if c.world.rules.Game() == GameU8 {
		top := c.TopItem()
		if top.objID == MainActorID && it.TopItem().objID != MainActorID {
			if av := c.world.MainActor(); av != nil {
				limit := uint32(c.world.tun.MainActor.CarryWeightPerStr) * uint32(av.Str()) * 10
				if top.TotalWeight()+it.TotalWeight() > limit {
					return false
				}
			}
		}
	}
	return true
}

// addItem appends it to the contents. Ownership flags are the caller's job.
func (c *Container) addItem(it *Item, checkWeightVolume bool) bool {
	if checkWeightVolume && !c.CanAddItem(it, true) {
		return false
	}
	if c.Contains(it.objID) {
		return true
	}
	c.contents = append(c.contents, it.objID)
	return true
}

func (c *Container) removeItem(it *Item) bool {
	n := len(c.contents)
	c.contents = removeID(c.contents, it.objID)
	return len(c.contents) != n
}

// removeContents spills the contents into c's own container, or onto the
// ground at c's location.
func (c *Container) removeContents() {
	parent := c.ParentAsContainer()
	p := c.Point()
	for len(c.contents) > 0 {
		it := c.world.Item(c.contents[0])
		if it == nil {
			c.contents = c.contents[1:]
			continue
		}
		if parent != nil {
			if !it.MoveToContainer(parent, false) {
				c.removeItem(it)
			}
		} else {
			it.Move(p)
		}
	}
}

// destroyContents destroys everything held, recursively.
func (c *Container) destroyContents() {
	for len(c.contents) > 0 {
		it := c.world.Item(c.contents[0])
		if it == nil {
			c.contents = c.contents[1:]
			continue
		}
		if cc := containerOf(it.self); cc != nil {
			cc.destroyContents()
		}
		it.self.Destroy(true)
	}
}

func (c *Container) Destroy(delNow bool) {
	if !c.isLive() {
		return
	}
	c.removeContents()
	c.Item.Destroy(delNow)
}

// FindItemByShape returns the first held item (searching nested containers
// depth first) of shape.
func (c *Container) FindItemByShape(shape uint32) *Item {
	for _, id := range c.contents {
		it := c.world.Item(id)
		if it == nil {
			continue
		}
		if it.shape == shape {
			return it
		}
		if cc := containerOf(it.self); cc != nil {
			if found := cc.FindItemByShape(shape); found != nil {
				return found
			}
		}
	}
	return nil
}

func (c *Container) saveData(w *encoding.Writer) {
	c.Item.saveData(w)
	c.saveContents(w)
}

func (c *Container) saveContents(w *encoding.Writer) {
	var live []Object
	for _, id := range c.contents {
		if o := c.world.objects.Get(id); o != nil {
			live = append(live, o)
		}
	}
	w.WriteU32(uint32(len(live)))
	for _, o := range live {
		c.world.saveObject(w, o)
	}
}

func (c *Container) loadData(r *encoding.Reader, version uint32) error {
	if err := c.Item.loadData(r, version); err != nil {
		return err
	}
	return c.loadContents(r, version)
}

func (c *Container) loadContents(r *encoding.Reader, version uint32) error {
	n := r.ReadU32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) > r.Remaining() {
		return fmt.Errorf("container %d: content count %d exceeds stream", c.objID, n)
	}
	c.contents = make([]ObjID, 0, n)
	for range n {
		o, err := c.world.loadObject(r, version)
		if err != nil {
			return err
		}
		it := o.AsItem()
		it.parent = c.objID
		c.contents = append(c.contents, it.objID)
	}
	return nil
}
