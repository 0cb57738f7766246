package app

import (
	"sync"

	"github.com/google/uuid"
)

// Object is a node in an application's ownership tree. Destroying an object
// destroys its children first, then runs its own destroy hooks.
type Object struct {
	id    uuid.UUID
	name  string
	value any

	mu        sync.Mutex
	parent    *Object
	children  []*Object
	hooks     []func()
	destroyed bool
}

// NewObject creates a detached object carrying value.
func NewObject(name string, value any) *Object {
	return &Object{
		id:    uuid.New(),
		name:  name,
		value: value,
	}
}

func (o *Object) ID() uuid.UUID { return o.id }
func (o *Object) Name() string  { return o.name }
func (o *Object) Value() any    { return o.value }

// Parent returns the owning object, or nil for a root or detached object.
func (o *Object) Parent() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.parent
}

// Children returns a snapshot of the direct children in attach order.
func (o *Object) Children() []*Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

// treeMu serializes changes to parent links across all trees, so the cycle
// check and the attach see the same structure.
var treeMu sync.Mutex

// AddChild attaches child below o. The child is destroyed together with o.
func (o *Object) AddChild(child *Object) error {
	if child == nil {
		return nil
	}

	treeMu.Lock()
	defer treeMu.Unlock()

	for p := o; p != nil; p = p.Parent() {
		if p == child {
			return ErrObjectCycle
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.destroyed {
		return ErrObjectDestroyed
	}

	child.mu.Lock()
	defer child.mu.Unlock()
	if child.destroyed {
		return ErrObjectDestroyed
	}
	if child.parent != nil {
		return ErrObjectHasParent
	}

	child.parent = o
	o.children = append(o.children, child)
	return nil
}

// RemoveChild detaches child without destroying it.
func (o *Object) RemoveChild(child *Object) bool {
	treeMu.Lock()
	defer treeMu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.removeChildLocked(child)
}

func (o *Object) removeChildLocked(child *Object) bool {
	for i, c := range o.children {
		if c != child {
			continue
		}
		o.children = append(o.children[:i], o.children[i+1:]...)
		child.mu.Lock()
		child.parent = nil
		child.mu.Unlock()
		return true
	}
	return false
}

// OnDestroy registers fn to run when o is destroyed. It returns false, and
// does not register fn, if o is already destroyed.
func (o *Object) OnDestroy(fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.destroyed {
		return false
	}
	o.hooks = append(o.hooks, fn)
	return true
}

// IsDestroyed reports whether Destroy has been called.
func (o *Object) IsDestroyed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.destroyed
}

// Destroy tears down the subtree rooted at o. It is idempotent.
func (o *Object) Destroy() {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		return
	}
	o.destroyed = true
	children := o.children
	hooks := o.hooks
	o.children = nil
	o.hooks = nil
	parent := o.parent
	o.mu.Unlock()

	for _, c := range children {
		c.Destroy()
	}
	for _, fn := range hooks {
		fn()
	}

	if parent != nil {
		parent.RemoveChild(o)
	}
}

// FindChild returns the value of the first direct child of o whose value has
// type T.
func FindChild[T any](o *Object) (T, bool) {
	for _, c := range o.Children() {
		if v, ok := c.Value().(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FindChildByName returns the first direct child named name, or nil.
func (o *Object) FindChildByName(name string) *Object {
	for _, c := range o.Children() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
