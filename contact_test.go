package box2d

import (
	"testing"

	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// restingContact settles a box on a ground edge and returns their contact.
func restingContact(t *testing.T) *Contact {
	t.Helper()
	w := NewWorld(Vec2{0, -10})
	ground := w.Body(w.CreateBody(NewBodyDef()))
	ground.CreateFixtureFromShape(collision.NewEdge(Vec2{-10, 0}, Vec2{10, 0}), 0)

	bd := NewBodyDef()
	bd.Type = DynamicBody
	bd.Position = Vec2{0, 0.5}
	box := w.Body(w.CreateBody(bd))
	box.CreateFixtureFromShape(collision.NewBox(0.5, 0.5), 1)

	cfg := DefaultStepConfig()
	cfg.AllowSleep = false
	for range 60 {
		w.Step(1.0/60.0, cfg)
	}

	for c := range w.Contacts() {
		if c.IsTouching() {
			return c
		}
	}
	t.Fatal("box is not touching the ground")
	return nil
}

func TestContactUpdateCarriesImpulsesByFeature(t *testing.T) {
	c := restingContact(t)
	if c.manifold.PointCount != 2 {
		t.Fatalf("resting box has %d contact points", c.manifold.PointCount)
	}

	stored := map[uint32]collision.ManifoldPoint{}
	for _, p := range c.manifold.Points[:c.manifold.PointCount] {
		if p.NormalImpulse <= 0 {
			t.Fatalf("no impulse stored for %+v", p.ID)
		}
		stored[p.ID.Key()] = p
	}

	var old collision.Manifold
	c.update(nil, &old)
	if old.PointCount != 2 {
		t.Fatalf("previous manifold not kept: %+v", old)
	}
	for _, p := range c.manifold.Points[:c.manifold.PointCount] {
		want, ok := stored[p.ID.Key()]
		if !ok {
			t.Fatalf("feature %+v is new although nothing moved", p.ID)
		}
		if p.NormalImpulse != want.NormalImpulse || p.TangentImpulse != want.TangentImpulse {
			t.Errorf("feature %+v: impulses %v/%v, expected %v/%v", p.ID,
				p.NormalImpulse, p.TangentImpulse, want.NormalImpulse, want.TangentImpulse)
		}
	}

	// A point whose feature changed starts cold; the other keeps its impulse.
	lost := c.manifold.Points[0].ID.Key()
	c.manifold.Points[0].ID.IndexA = 200
	c.update(nil, &old)
	for _, p := range c.manifold.Points[:c.manifold.PointCount] {
		if p.ID.Key() == lost {
			if p.NormalImpulse != 0 || p.TangentImpulse != 0 {
				t.Errorf("unmatched feature kept impulses %v/%v", p.NormalImpulse, p.TangentImpulse)
			}
			continue
		}
		if p.NormalImpulse != stored[p.ID.Key()].NormalImpulse {
			t.Errorf("matched feature lost its impulse: %v", p.NormalImpulse)
		}
	}
}

func TestIsFastUsesMotionFraction(t *testing.T) {
	w := NewWorld(Vec2{})
	bd := NewBodyDef()
	bd.Type = DynamicBody
	b := w.Body(w.CreateBody(bd))
	if b.isFast() {
		t.Error("a body without fixtures is fast")
	}

	b.CreateFixtureFromShape(collision.NewBox(0.5, 0.5), 1)
	threshold := common.ToiMotionFraction * b.minExtent

	b.sweep.C0 = Vec2{}
	b.sweep.C = Vec2{0.9 * threshold, 0}
	if b.isFast() {
		t.Errorf("moving %v of a %v threshold is fast", 0.9*threshold, threshold)
	}

	b.sweep.C = Vec2{0, 1.1 * threshold}
	if !b.isFast() {
		t.Errorf("moving %v past a %v threshold is slow", 1.1*threshold, threshold)
	}

	b.sweep.C = b.sweep.C0
	b.SetBullet(true)
	if !b.isFast() {
		t.Error("a resting bullet is not fast")
	}
}
