package systems

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vulcano/engine/containers"
	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

type BindingSystemConfig struct {
	/** @brief The maximum number of bind group layouts alive at once. */
	MaxBindGroupLayoutCount uint32
	/** @brief The maximum number of pipeline layouts alive at once. */
	MaxPipelineLayoutCount uint32
	/** @brief The maximum number of bind groups alive at once. */
	MaxBindGroupCount uint32
}

type bindGroupLayoutRecord struct {
	layout *metadata.BindGroupLayout
	refs   *containers.RefCount
}

type pipelineLayoutRecord struct {
	layout *metadata.PipelineLayout
	refs   *containers.RefCount
	/** @brief Strong references held for the whole lifetime. */
	groupLayouts []*bindGroupLayoutRecord
}

type bindGroupRecord struct {
	group *metadata.BindGroup
	refs  *containers.RefCount
	/** @brief Strong reference on the layout the group was built against. */
	layout *bindGroupLayoutRecord
	/** @brief Strong references on every bound resource. */
	buffers      []*bufferRecord
	samplers     []*samplerRecord
	textureViews []*textureViewRecord
}

/**
 * @brief BindingSystem owns the resource binding model: bind group
 * layouts, pipeline layouts and bind groups, each registered in a
 * handle table and shared by reference count. All validation happens
 * here, before anything reaches the native API, where malformed input
 * is undefined behavior rather than a clean failure.
 */
type BindingSystem struct {
	Config *BindingSystemConfig

	/** @brief Identity of this device, stamped on every owned object. */
	DeviceID uint32

	backend        metadata.BindingBackend
	resourceSystem *ResourceSystem
	tracker        *UsageTrackerSystem

	bindGroupLayouts *containers.HandleTable[*bindGroupLayoutRecord]
	pipelineLayouts  *containers.HandleTable[*pipelineLayoutRecord]
	bindGroups       *containers.HandleTable[*bindGroupRecord]
}

func NewBindingSystem(config *BindingSystemConfig, backend metadata.BindingBackend, rs *ResourceSystem, tracker *UsageTrackerSystem) (*BindingSystem, error) {
	if config.MaxBindGroupLayoutCount == 0 || config.MaxPipelineLayoutCount == 0 || config.MaxBindGroupCount == 0 {
		err := fmt.Errorf("func NewBindingSystem - all max counts must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &BindingSystem{
		Config:           config,
		backend:          backend,
		resourceSystem:   rs,
		tracker:          tracker,
		bindGroupLayouts: containers.NewHandleTable[*bindGroupLayoutRecord](int(config.MaxBindGroupLayoutCount)),
		pipelineLayouts:  containers.NewHandleTable[*pipelineLayoutRecord](int(config.MaxPipelineLayoutCount)),
		bindGroups:       containers.NewHandleTable[*bindGroupRecord](int(config.MaxBindGroupCount)),
	}, nil
}

/**
 * @brief CreateBindGroupLayout validates the descriptor entry by entry
 * and, on success, registers a new layout holding the slot map, the
 * aggregate descriptor demand and the native set layout. Any failure
 * rejects the whole descriptor; no partial layout is ever registered.
 */
func (bs *BindingSystem) CreateBindGroupLayout(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutID, error) {
	entryMap := make(map[uint32]metadata.BindGroupLayoutEntry, len(desc.Entries))
	var counts metadata.DescriptorCounts
	var dynamicCount uint32

	for i := range desc.Entries {
		entry := desc.Entries[i]
		if err := entry.Validate(); err != nil {
			layoutErr := &metadata.EntryError{Binding: entry.Binding, Cause: err.(*metadata.BindGroupLayoutEntryError)}
			core.LogError("bind group layout `%s` rejected: %s", desc.Label, layoutErr.Error())
			return metadata.InvalidID, layoutErr
		}
		if _, exists := entryMap[entry.Binding]; exists {
			layoutErr := &metadata.ConflictBindingError{Binding: entry.Binding}
			core.LogError("bind group layout `%s` rejected: %s", desc.Label, layoutErr.Error())
			return metadata.InvalidID, layoutErr
		}
		entryMap[entry.Binding] = entry
		counts.Add(entry.BindingType)
		if entry.HasDynamicOffset {
			dynamicCount++
		}
	}

	// The backend receives the entries in slot order regardless of how
	// the caller arranged them.
	sorted := make([]metadata.BindGroupLayoutEntry, len(desc.Entries))
	copy(sorted, desc.Entries)
	slices.SortFunc(sorted, func(a, b metadata.BindGroupLayoutEntry) int {
		return int(a.Binding) - int(b.Binding)
	})

	internal, err := bs.backend.DescriptorSetLayoutCreate(sorted)
	if err != nil {
		core.LogError("backend failed to create descriptor set layout for `%s`: %s", desc.Label, err.Error())
		return metadata.InvalidID, err
	}

	layout := &metadata.BindGroupLayout{
		ID:               metadata.InvalidID,
		Label:            desc.Label,
		Entries:          entryMap,
		DescriptorCounts: counts,
		DynamicCount:     dynamicCount,
		DeviceID:         bs.DeviceID,
		InternalData:     internal,
	}
	record := &bindGroupLayoutRecord{layout: layout, refs: containers.NewRefCount()}
	layout.ID = bs.bindGroupLayouts.Insert(record)
	core.LogDebug("bind group layout `%s` created with id %d (%d slots, %d dynamic)",
		desc.Label, layout.ID, len(entryMap), dynamicCount)
	return layout.ID, nil
}

func (bs *BindingSystem) GetBindGroupLayout(id metadata.BindGroupLayoutID) (*metadata.BindGroupLayout, error) {
	record, ok := bs.bindGroupLayouts.Get(id)
	if !ok {
		return nil, fmt.Errorf("bind group layout %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.layout, nil
}

// AddRefBindGroupLayout takes an additional strong reference.
func (bs *BindingSystem) AddRefBindGroupLayout(id metadata.BindGroupLayoutID) error {
	record, ok := bs.bindGroupLayouts.Get(id)
	if !ok {
		return fmt.Errorf("bind group layout %d: %w", id, core.ErrInvalidIdentity)
	}
	if !record.refs.Acquire() {
		return fmt.Errorf("bind group layout %d: %w", id, core.ErrDestroyed)
	}
	return nil
}

func (bs *BindingSystem) ReleaseBindGroupLayout(id metadata.BindGroupLayoutID) error {
	record, ok := bs.bindGroupLayouts.Get(id)
	if !ok {
		return fmt.Errorf("bind group layout %d: %w", id, core.ErrInvalidIdentity)
	}
	bs.releaseBindGroupLayoutRecord(record)
	return nil
}

func (bs *BindingSystem) releaseBindGroupLayoutRecord(record *bindGroupLayoutRecord) {
	if !record.refs.Release() {
		return
	}
	bs.bindGroupLayouts.Remove(record.layout.ID)
	if err := bs.backend.DescriptorSetLayoutDestroy(record.layout.InternalData); err != nil {
		core.LogWarn("backend failed to destroy descriptor set layout `%s`: %s", record.layout.Label, err.Error())
	}
	core.LogDebug("bind group layout `%s` (id %d) destroyed", record.layout.Label, record.layout.ID)
}

/**
 * @brief CreatePipelineLayout resolves the referenced layouts, takes a
 * strong reference on each so none can be destroyed while the pipeline
 * layout lives, and builds the native pipeline layout over them.
 */
func (bs *BindingSystem) CreatePipelineLayout(desc *metadata.PipelineLayoutDescriptor) (metadata.PipelineLayoutID, error) {
	if len(desc.BindGroupLayouts) > metadata.MaxBindGroups {
		err := &metadata.TooManyGroupsError{Count: len(desc.BindGroupLayouts)}
		core.LogError("pipeline layout `%s` rejected: %s", desc.Label, err.Error())
		return metadata.InvalidID, err
	}

	acquired := make([]*bindGroupLayoutRecord, 0, len(desc.BindGroupLayouts))
	releaseAcquired := func() {
		for _, record := range acquired {
			bs.releaseBindGroupLayoutRecord(record)
		}
	}

	setLayouts := make([]interface{}, 0, len(desc.BindGroupLayouts))
	for _, layoutID := range desc.BindGroupLayouts {
		record, ok := bs.bindGroupLayouts.Get(layoutID)
		if !ok || !record.refs.Acquire() {
			releaseAcquired()
			err := fmt.Errorf("pipeline layout `%s` references bind group layout %d: %w", desc.Label, layoutID, core.ErrInvalidIdentity)
			core.LogError(err.Error())
			return metadata.InvalidID, err
		}
		acquired = append(acquired, record)
		setLayouts = append(setLayouts, record.layout.InternalData)
	}

	internal, err := bs.backend.PipelineLayoutCreate(setLayouts)
	if err != nil {
		releaseAcquired()
		core.LogError("backend failed to create pipeline layout for `%s`: %s", desc.Label, err.Error())
		return metadata.InvalidID, err
	}

	layout := &metadata.PipelineLayout{
		ID:               metadata.InvalidID,
		Label:            desc.Label,
		BindGroupLayouts: append([]metadata.BindGroupLayoutID(nil), desc.BindGroupLayouts...),
		DeviceID:         bs.DeviceID,
		InternalData:     internal,
	}
	record := &pipelineLayoutRecord{layout: layout, refs: containers.NewRefCount(), groupLayouts: acquired}
	layout.ID = bs.pipelineLayouts.Insert(record)
	core.LogDebug("pipeline layout `%s` created with id %d over %d groups", desc.Label, layout.ID, len(acquired))
	return layout.ID, nil
}

func (bs *BindingSystem) GetPipelineLayout(id metadata.PipelineLayoutID) (*metadata.PipelineLayout, error) {
	record, ok := bs.pipelineLayouts.Get(id)
	if !ok {
		return nil, fmt.Errorf("pipeline layout %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.layout, nil
}

func (bs *BindingSystem) AddRefPipelineLayout(id metadata.PipelineLayoutID) error {
	record, ok := bs.pipelineLayouts.Get(id)
	if !ok {
		return fmt.Errorf("pipeline layout %d: %w", id, core.ErrInvalidIdentity)
	}
	if !record.refs.Acquire() {
		return fmt.Errorf("pipeline layout %d: %w", id, core.ErrDestroyed)
	}
	return nil
}

func (bs *BindingSystem) ReleasePipelineLayout(id metadata.PipelineLayoutID) error {
	record, ok := bs.pipelineLayouts.Get(id)
	if !ok {
		return fmt.Errorf("pipeline layout %d: %w", id, core.ErrInvalidIdentity)
	}
	if !record.refs.Release() {
		return nil
	}
	bs.pipelineLayouts.Remove(record.layout.ID)
	if err := bs.backend.PipelineLayoutDestroy(record.layout.InternalData); err != nil {
		core.LogWarn("backend failed to destroy pipeline layout `%s`: %s", record.layout.Label, err.Error())
	}
	for _, groupLayout := range record.groupLayouts {
		bs.releaseBindGroupLayoutRecord(groupLayout)
	}
	core.LogDebug("pipeline layout `%s` (id %d) destroyed", record.layout.Label, record.layout.ID)
	return nil
}

/**
 * @brief CreateBindGroup validates every entry against the layout's
 * declarations, then acquires a native descriptor set, writes each
 * resource into its slot and registers the uses with the tracker.
 * Failure leaves nothing behind: acquired references are dropped and a
 * descriptor set acquired before a failed write goes back to its pool.
 */
func (bs *BindingSystem) CreateBindGroup(desc *metadata.BindGroupDescriptor) (metadata.BindGroupID, error) {
	layoutRecord, ok := bs.bindGroupLayouts.Get(desc.Layout)
	if !ok || !layoutRecord.refs.Acquire() {
		err := fmt.Errorf("bind group `%s` references bind group layout %d: %w", desc.Label, desc.Layout, core.ErrInvalidIdentity)
		core.LogError(err.Error())
		return metadata.InvalidID, err
	}
	layout := layoutRecord.layout

	record := &bindGroupRecord{
		refs:   containers.NewRefCount(),
		layout: layoutRecord,
	}
	undo := func() {
		for _, buffer := range record.buffers {
			bs.resourceSystem.releaseBufferRecord(buffer)
		}
		for _, sampler := range record.samplers {
			bs.resourceSystem.releaseSamplerRecord(sampler)
		}
		for _, view := range record.textureViews {
			bs.resourceSystem.releaseTextureViewRecord(view)
		}
		bs.releaseBindGroupLayoutRecord(layoutRecord)
	}

	seen := make(map[uint32]bool, len(desc.Entries))
	for i := range desc.Entries {
		entry := &desc.Entries[i]
		declared, ok := layout.Entries[entry.Binding]
		if !ok {
			undo()
			err := &metadata.UnknownSlotError{Binding: entry.Binding}
			core.LogError("bind group `%s` rejected: %s", desc.Label, err.Error())
			return metadata.InvalidID, err
		}
		if seen[entry.Binding] {
			undo()
			err := &metadata.ConflictBindingError{Binding: entry.Binding}
			core.LogError("bind group `%s` rejected: %s", desc.Label, err.Error())
			return metadata.InvalidID, err
		}
		seen[entry.Binding] = true

		if expected := expectedResourceKind(declared.BindingType); entry.Resource.Kind != expected {
			undo()
			err := &metadata.BindingTypeMismatchError{
				Binding:  entry.Binding,
				Expected: declared.BindingType,
				Got:      entry.Resource.Kind,
			}
			core.LogError("bind group `%s` rejected: %s", desc.Label, err.Error())
			return metadata.InvalidID, err
		}

		switch entry.Resource.Kind {
		case metadata.ResourceKindBuffer:
			binding := entry.Resource.Buffer
			bufferRecord, ok := bs.resourceSystem.buffers.Get(binding.Buffer)
			if !ok || !bufferRecord.refs.Acquire() {
				undo()
				err := fmt.Errorf("bind group `%s` slot %d references buffer %d: %w", desc.Label, entry.Binding, binding.Buffer, core.ErrInvalidIdentity)
				core.LogError(err.Error())
				return metadata.InvalidID, err
			}
			record.buffers = append(record.buffers, bufferRecord)
			extent := bufferRecord.buffer.Size
			if binding.Offset > extent || binding.Size > extent-binding.Offset {
				undo()
				err := &metadata.BufferRangeError{
					Binding: entry.Binding,
					Offset:  binding.Offset,
					Size:    binding.Size,
					Extent:  extent,
				}
				core.LogError("bind group `%s` rejected: %s", desc.Label, err.Error())
				return metadata.InvalidID, err
			}

		case metadata.ResourceKindSampler:
			samplerRecord, ok := bs.resourceSystem.samplers.Get(entry.Resource.Sampler)
			if !ok || !samplerRecord.refs.Acquire() {
				undo()
				err := fmt.Errorf("bind group `%s` slot %d references sampler %d: %w", desc.Label, entry.Binding, entry.Resource.Sampler, core.ErrInvalidIdentity)
				core.LogError(err.Error())
				return metadata.InvalidID, err
			}
			record.samplers = append(record.samplers, samplerRecord)

		case metadata.ResourceKindTextureView:
			viewRecord, ok := bs.resourceSystem.textureViews.Get(entry.Resource.TextureView)
			if !ok || !viewRecord.refs.Acquire() {
				undo()
				err := fmt.Errorf("bind group `%s` slot %d references texture view %d: %w", desc.Label, entry.Binding, entry.Resource.TextureView, core.ErrInvalidIdentity)
				core.LogError(err.Error())
				return metadata.InvalidID, err
			}
			record.textureViews = append(record.textureViews, viewRecord)
		}
	}

	// Every declared slot must be filled; there is no implicit
	// defaulting. Report the lowest missing slot for determinism.
	if len(seen) != len(layout.Entries) {
		missing := make([]uint32, 0, len(layout.Entries))
		for slot := range layout.Entries {
			if !seen[slot] {
				missing = append(missing, slot)
			}
		}
		slices.Sort(missing)
		undo()
		err := &metadata.MissingSlotError{Binding: missing[0]}
		core.LogError("bind group `%s` rejected: %s", desc.Label, err.Error())
		return metadata.InvalidID, err
	}

	set, err := bs.backend.DescriptorSetAllocate(layout.InternalData, &layout.DescriptorCounts)
	if err != nil {
		undo()
		core.LogError("backend failed to allocate descriptor set for `%s`: %s", desc.Label, err.Error())
		return metadata.InvalidID, err
	}

	for i := range desc.Entries {
		entry := &desc.Entries[i]
		declared := layout.Entries[entry.Binding]
		var writeErr error
		switch entry.Resource.Kind {
		case metadata.ResourceKindBuffer:
			buffer, _ := bs.resourceSystem.GetBuffer(entry.Resource.Buffer.Buffer)
			writeErr = bs.backend.DescriptorSetWriteBuffer(set, entry.Binding, declared.BindingType, buffer, entry.Resource.Buffer.Offset, entry.Resource.Buffer.Size)
		case metadata.ResourceKindSampler:
			sampler, _ := bs.resourceSystem.GetSampler(entry.Resource.Sampler)
			writeErr = bs.backend.DescriptorSetWriteSampler(set, entry.Binding, declared.BindingType, sampler)
		case metadata.ResourceKindTextureView:
			view, _ := bs.resourceSystem.GetTextureView(entry.Resource.TextureView)
			writeErr = bs.backend.DescriptorSetWriteTextureView(set, entry.Binding, declared.BindingType, view)
		}
		if writeErr != nil {
			if freeErr := bs.backend.DescriptorSetFree(set); freeErr != nil {
				core.LogWarn("backend failed to free descriptor set for `%s`: %s", desc.Label, freeErr.Error())
			}
			undo()
			core.LogError("backend failed to write descriptor for `%s` slot %d: %s", desc.Label, entry.Binding, writeErr.Error())
			return metadata.InvalidID, writeErr
		}
	}

	group := &metadata.BindGroup{
		ID:           metadata.InvalidID,
		Label:        desc.Label,
		Layout:       layout.ID,
		DynamicCount: layout.DynamicCount,
		DeviceID:     bs.DeviceID,
		InternalData: set,
	}
	record.group = group
	group.ID = bs.bindGroups.Insert(record)

	for i := range desc.Entries {
		entry := &desc.Entries[i]
		declared := layout.Entries[entry.Binding]
		use := ResourceUse{
			Kind:  entry.Resource.Kind,
			Group: group.ID,
			Usage: usageOf(declared.BindingType),
		}
		switch entry.Resource.Kind {
		case metadata.ResourceKindBuffer:
			use.Resource = entry.Resource.Buffer.Buffer
		case metadata.ResourceKindSampler:
			use.Resource = entry.Resource.Sampler
		case metadata.ResourceKindTextureView:
			use.Resource = entry.Resource.TextureView
			if view, err := bs.resourceSystem.GetTextureView(entry.Resource.TextureView); err == nil {
				use.Selector = view.Selector
			}
		}
		bs.tracker.RegisterUse(use)
	}

	core.LogDebug("bind group `%s` created with id %d against layout %d", desc.Label, group.ID, layout.ID)
	return group.ID, nil
}

func (bs *BindingSystem) GetBindGroup(id metadata.BindGroupID) (*metadata.BindGroup, error) {
	record, ok := bs.bindGroups.Get(id)
	if !ok {
		return nil, fmt.Errorf("bind group %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.group, nil
}

func (bs *BindingSystem) AddRefBindGroup(id metadata.BindGroupID) error {
	record, ok := bs.bindGroups.Get(id)
	if !ok {
		return fmt.Errorf("bind group %d: %w", id, core.ErrInvalidIdentity)
	}
	if !record.refs.Acquire() {
		return fmt.Errorf("bind group %d: %w", id, core.ErrDestroyed)
	}
	return nil
}

func (bs *BindingSystem) ReleaseBindGroup(id metadata.BindGroupID) error {
	record, ok := bs.bindGroups.Get(id)
	if !ok {
		return fmt.Errorf("bind group %d: %w", id, core.ErrInvalidIdentity)
	}
	if !record.refs.Release() {
		return nil
	}
	bs.bindGroups.Remove(record.group.ID)
	if err := bs.backend.DescriptorSetFree(record.group.InternalData); err != nil {
		core.LogWarn("backend failed to free descriptor set of `%s`: %s", record.group.Label, err.Error())
	}
	bs.tracker.ReleaseGroup(record.group.ID)
	for _, buffer := range record.buffers {
		bs.resourceSystem.releaseBufferRecord(buffer)
	}
	for _, sampler := range record.samplers {
		bs.resourceSystem.releaseSamplerRecord(sampler)
	}
	for _, view := range record.textureViews {
		bs.resourceSystem.releaseTextureViewRecord(view)
	}
	bs.releaseBindGroupLayoutRecord(record.layout)
	core.LogDebug("bind group `%s` (id %d) destroyed", record.group.Label, record.group.ID)
	return nil
}

// expectedResourceKind maps a declared binding type to the resource
// kind an entry must supply for it.
func expectedResourceKind(bindingType metadata.BindingType) metadata.ResourceKind {
	switch bindingType {
	case metadata.BindingTypeUniformBuffer, metadata.BindingTypeStorageBuffer, metadata.BindingTypeReadonlyStorageBuffer:
		return metadata.ResourceKindBuffer
	case metadata.BindingTypeSampler, metadata.BindingTypeComparisonSampler:
		return metadata.ResourceKindSampler
	default:
		return metadata.ResourceKindTextureView
	}
}

func (bs *BindingSystem) Shutdown() error {
	bs.bindGroups.Range(func(id uint32, record *bindGroupRecord) bool {
		core.LogWarn("bind group `%s` (id %d) still alive at shutdown", record.group.Label, id)
		if err := bs.backend.DescriptorSetFree(record.group.InternalData); err != nil {
			core.LogWarn("backend failed to free descriptor set of `%s`: %s", record.group.Label, err.Error())
		}
		return true
	})
	bs.pipelineLayouts.Range(func(id uint32, record *pipelineLayoutRecord) bool {
		core.LogWarn("pipeline layout `%s` (id %d) still alive at shutdown", record.layout.Label, id)
		if err := bs.backend.PipelineLayoutDestroy(record.layout.InternalData); err != nil {
			core.LogWarn("backend failed to destroy pipeline layout `%s`: %s", record.layout.Label, err.Error())
		}
		return true
	})
	bs.bindGroupLayouts.Range(func(id uint32, record *bindGroupLayoutRecord) bool {
		core.LogWarn("bind group layout `%s` (id %d) still alive at shutdown", record.layout.Label, id)
		if err := bs.backend.DescriptorSetLayoutDestroy(record.layout.InternalData); err != nil {
			core.LogWarn("backend failed to destroy descriptor set layout `%s`: %s", record.layout.Label, err.Error())
		}
		return true
	})
	return nil
}
