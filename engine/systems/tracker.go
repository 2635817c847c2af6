package systems

import (
	"sync"

	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/** @brief Whether a binding reads or writes the resource it references. */
type UsageKind uint32

const (
	UsageRead UsageKind = iota
	UsageWrite
)

// usageOf derives the hazard class of a binding from its declared type.
func usageOf(bindingType metadata.BindingType) UsageKind {
	switch bindingType {
	case metadata.BindingTypeStorageBuffer, metadata.BindingTypeWriteonlyStorageTexture:
		return UsageWrite
	default:
		return UsageRead
	}
}

/**
 * @brief One recorded resource use. Selector narrows texture uses to a
 * sub-resource range; buffer and sampler uses always cover the whole
 * resource.
 */
type ResourceUse struct {
	Kind     metadata.ResourceKind
	Resource uint32
	Group    metadata.BindGroupID
	Usage    UsageKind
	Selector metadata.Selector
}

/**
 * @brief UsageTrackerSystem records which resources each bind group
 * references so command submission can insert barriers between
 * conflicting uses. Registration happens once, at bind group creation;
 * the record is dropped when the group is destroyed.
 */
type UsageTrackerSystem struct {
	mutex sync.RWMutex
	uses  map[metadata.BindGroupID][]ResourceUse
}

func NewUsageTrackerSystem() *UsageTrackerSystem {
	return &UsageTrackerSystem{
		uses: make(map[metadata.BindGroupID][]ResourceUse),
	}
}

func (ut *UsageTrackerSystem) RegisterUse(use ResourceUse) {
	ut.mutex.Lock()
	defer ut.mutex.Unlock()
	ut.uses[use.Group] = append(ut.uses[use.Group], use)
}

// UsesOf returns a copy of the uses recorded for the given group.
func (ut *UsageTrackerSystem) UsesOf(group metadata.BindGroupID) []ResourceUse {
	ut.mutex.RLock()
	defer ut.mutex.RUnlock()
	uses := make([]ResourceUse, len(ut.uses[group]))
	copy(uses, ut.uses[group])
	return uses
}

// ReleaseGroup drops every use recorded for the given group.
func (ut *UsageTrackerSystem) ReleaseGroup(group metadata.BindGroupID) {
	ut.mutex.Lock()
	defer ut.mutex.Unlock()
	delete(ut.uses, group)
}

/**
 * @brief Conflicts reports whether two bind groups reference the same
 * resource with at least one writing use. Overlap of texture selectors
 * is resolved pessimistically: distinct ranges of the same resource
 * still conflict.
 */
func (ut *UsageTrackerSystem) Conflicts(a, b metadata.BindGroupID) bool {
	ut.mutex.RLock()
	defer ut.mutex.RUnlock()
	for _, ua := range ut.uses[a] {
		for _, ub := range ut.uses[b] {
			if ua.Kind != ub.Kind || ua.Resource != ub.Resource {
				continue
			}
			if ua.Usage == UsageWrite || ub.Usage == UsageWrite {
				return true
			}
		}
	}
	return false
}
