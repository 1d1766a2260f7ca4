package box2d

import (
	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/common"
)

// jointPool is the block allocator of one joint variant, seen through the
// Joint interface.
type jointPool interface {
	get(h alloc.Handle) (Joint, bool)
	at(i int) (Joint, bool)
	free(h alloc.Handle)
	live() int
	slots() int
}

type jointSlots[T any, P interface {
	*T
	Joint
}] struct {
	pool *alloc.Pool[T]
}

func (s jointSlots[T, P]) get(h alloc.Handle) (Joint, bool) {
	j, ok := s.pool.Get(h)
	if !ok {
		return nil, false
	}
	return P(j), true
}

func (s jointSlots[T, P]) at(i int) (Joint, bool) {
	j, ok := s.pool.At(i)
	if !ok {
		return nil, false
	}
	return P(j), true
}

func (s jointSlots[T, P]) free(h alloc.Handle) { s.pool.Free(h) }
func (s jointSlots[T, P]) live() int           { return s.pool.Len() }
func (s jointSlots[T, P]) slots() int          { return s.pool.Cap() }

// jointPools holds one pool per joint variant. Joints live in their pool slot,
// so a JointHandle resolves to the joint itself and its generation guards the
// joint storage.
type jointPools struct {
	revolute  *alloc.Pool[RevoluteJoint]
	prismatic *alloc.Pool[PrismaticJoint]
	distance  *alloc.Pool[DistanceJoint]
	pulley    *alloc.Pool[PulleyJoint]
	mouse     *alloc.Pool[MouseJoint]
	gear      *alloc.Pool[GearJoint]
	wheel     *alloc.Pool[WheelJoint]
	weld      *alloc.Pool[WeldJoint]
	friction  *alloc.Pool[FrictionJoint]
	rope      *alloc.Pool[RopeJoint]
	motor     *alloc.Pool[MotorJoint]

	byType [jointTypeCount]jointPool
}

func newJointPools() *jointPools {
	p := &jointPools{
		revolute:  alloc.NewPool[RevoluteJoint](),
		prismatic: alloc.NewPool[PrismaticJoint](),
		distance:  alloc.NewPool[DistanceJoint](),
		pulley:    alloc.NewPool[PulleyJoint](),
		mouse:     alloc.NewPool[MouseJoint](),
		gear:      alloc.NewPool[GearJoint](),
		wheel:     alloc.NewPool[WheelJoint](),
		weld:      alloc.NewPool[WeldJoint](),
		friction:  alloc.NewPool[FrictionJoint](),
		rope:      alloc.NewPool[RopeJoint](),
		motor:     alloc.NewPool[MotorJoint](),
	}
	p.byType = [jointTypeCount]jointPool{
		JointRevolute:  jointSlots[RevoluteJoint, *RevoluteJoint]{p.revolute},
		JointPrismatic: jointSlots[PrismaticJoint, *PrismaticJoint]{p.prismatic},
		JointDistance:  jointSlots[DistanceJoint, *DistanceJoint]{p.distance},
		JointPulley:    jointSlots[PulleyJoint, *PulleyJoint]{p.pulley},
		JointMouse:     jointSlots[MouseJoint, *MouseJoint]{p.mouse},
		JointGear:      jointSlots[GearJoint, *GearJoint]{p.gear},
		JointWheel:     jointSlots[WheelJoint, *WheelJoint]{p.wheel},
		JointWeld:      jointSlots[WeldJoint, *WeldJoint]{p.weld},
		JointFriction:  jointSlots[FrictionJoint, *FrictionJoint]{p.friction},
		JointRope:      jointSlots[RopeJoint, *RopeJoint]{p.rope},
		JointMotor:     jointSlots[MotorJoint, *MotorJoint]{p.motor},
	}
	return p
}

// place moves a constructed joint into a slot of its pool and stamps the
// handle.
func place[T any, P interface {
	*T
	Joint
}](pool *alloc.Pool[T], v T) Joint {
	h, slot := pool.Alloc()
	*slot = v
	j := P(slot)
	b := j.base()
	b.handle = JointHandle{slot: h, kind: b.kind}
	return j
}

func (p *jointPools) get(h JointHandle) (Joint, bool) {
	if h.kind >= jointTypeCount {
		return nil, false
	}
	return p.byType[h.kind].get(h.slot)
}

func (p *jointPools) mustGet(h JointHandle) Joint {
	j, ok := p.get(h)
	if !ok {
		common.Panicf("stale joint handle %+v", h)
	}
	return j
}

func (p *jointPools) free(h JointHandle) {
	common.Assert(h.kind < jointTypeCount, "joint handle of unknown type")
	p.byType[h.kind].free(h.slot)
}

// count is the number of live joints of every variant.
func (p *jointPools) count() int {
	n := 0
	for _, pool := range p.byType {
		n += pool.live()
	}
	return n
}

// each calls f for every live joint, variant by variant in slot order, until f
// returns false.
func (p *jointPools) each(f func(Joint) bool) {
	for _, pool := range p.byType {
		for i := range pool.slots() {
			if j, ok := pool.at(i); ok && !f(j) {
				return
			}
		}
	}
}
