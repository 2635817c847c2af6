package containers

import "sync/atomic"

// RefCount tracks shared ownership of an object. The count starts at 1
// for the creating owner. Acquire refuses to resurrect an object whose
// count already reached zero, so the zero transition happens exactly once
// no matter which goroutine observes it.
type RefCount struct {
	count atomic.Int64
}

func NewRefCount() *RefCount {
	rc := &RefCount{}
	rc.count.Store(1)
	return rc
}

// Acquire increments the count. It returns false if the object already
// reached zero and is being destroyed.
func (rc *RefCount) Acquire() bool {
	for {
		c := rc.count.Load()
		if c <= 0 {
			return false
		}
		if rc.count.CompareAndSwap(c, c+1) {
			return true
		}
	}
}

// Release decrements the count and reports whether this call performed
// the zero transition. The caller that receives true owns destruction.
func (rc *RefCount) Release() bool {
	return rc.count.Add(-1) == 0
}

// Load returns the current count. Only meaningful for introspection.
func (rc *RefCount) Load() int64 {
	return rc.count.Load()
}
