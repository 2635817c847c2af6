package systems

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

// mockBackend counts native calls and can be told to fail descriptor
// writes, which is how the free-on-failure path gets exercised.
type mockBackend struct {
	layoutsCreated   int
	layoutsDestroyed int

	pipelineLayoutsCreated   int
	pipelineLayoutsDestroyed int

	setsAllocated int
	setsFreed     int
	writes        int
	failWrites    bool

	buffersCreated    int
	buffersDestroyed  int
	samplersCreated   int
	samplersDestroyed int
}

func (m *mockBackend) Initialize(appName string) error { return nil }
func (m *mockBackend) Shutdown() error                 { return nil }

func (m *mockBackend) DescriptorSetLayoutCreate(entries []metadata.BindGroupLayoutEntry) (interface{}, error) {
	m.layoutsCreated++
	return fmt.Sprintf("layout-%d", m.layoutsCreated), nil
}

func (m *mockBackend) DescriptorSetLayoutDestroy(layout interface{}) error {
	m.layoutsDestroyed++
	return nil
}

func (m *mockBackend) PipelineLayoutCreate(setLayouts []interface{}) (interface{}, error) {
	m.pipelineLayoutsCreated++
	return fmt.Sprintf("pipeline-layout-%d", m.pipelineLayoutsCreated), nil
}

func (m *mockBackend) PipelineLayoutDestroy(layout interface{}) error {
	m.pipelineLayoutsDestroyed++
	return nil
}

func (m *mockBackend) DescriptorSetAllocate(layout interface{}, counts *metadata.DescriptorCounts) (interface{}, error) {
	m.setsAllocated++
	return fmt.Sprintf("set-%d", m.setsAllocated), nil
}

func (m *mockBackend) DescriptorSetFree(set interface{}) error {
	m.setsFreed++
	return nil
}

func (m *mockBackend) DescriptorSetWriteBuffer(set interface{}, binding uint32, bindingType metadata.BindingType, buffer *metadata.Buffer, offset, size uint64) error {
	if m.failWrites {
		return fmt.Errorf("descriptor write refused")
	}
	m.writes++
	return nil
}

func (m *mockBackend) DescriptorSetWriteSampler(set interface{}, binding uint32, bindingType metadata.BindingType, sampler *metadata.Sampler) error {
	if m.failWrites {
		return fmt.Errorf("descriptor write refused")
	}
	m.writes++
	return nil
}

func (m *mockBackend) DescriptorSetWriteTextureView(set interface{}, binding uint32, bindingType metadata.BindingType, view *metadata.TextureView) error {
	if m.failWrites {
		return fmt.Errorf("descriptor write refused")
	}
	m.writes++
	return nil
}

func (m *mockBackend) BufferCreate(buffer *metadata.Buffer) error {
	m.buffersCreated++
	return nil
}

func (m *mockBackend) BufferDestroy(buffer *metadata.Buffer) error {
	m.buffersDestroyed++
	return nil
}

func (m *mockBackend) SamplerCreate(sampler *metadata.Sampler) error {
	m.samplersCreated++
	return nil
}

func (m *mockBackend) SamplerDestroy(sampler *metadata.Sampler) error {
	m.samplersDestroyed++
	return nil
}

func newTestSystems(t *testing.T) (*mockBackend, *ResourceSystem, *UsageTrackerSystem, *BindingSystem) {
	t.Helper()
	backend := &mockBackend{}
	rs, err := NewResourceSystem(&ResourceSystemConfig{
		MaxBufferCount:      64,
		MaxSamplerCount:     64,
		MaxTextureViewCount: 64,
	}, backend)
	if err != nil {
		t.Fatalf("NewResourceSystem failed: %v", err)
	}
	tracker := NewUsageTrackerSystem()
	bs, err := NewBindingSystem(&BindingSystemConfig{
		MaxBindGroupLayoutCount: 64,
		MaxPipelineLayoutCount:  64,
		MaxBindGroupCount:       64,
	}, backend, rs, tracker)
	if err != nil {
		t.Fatalf("NewBindingSystem failed: %v", err)
	}
	return backend, rs, tracker, bs
}

func uniformEntry(binding uint32) metadata.BindGroupLayoutEntry {
	return metadata.BindGroupLayoutEntry{
		Binding:     binding,
		Visibility:  metadata.ShaderStageFragment,
		BindingType: metadata.BindingTypeUniformBuffer,
	}
}

func TestCreateBindGroupLayoutRejectsDuplicateSlot(t *testing.T) {
	backend, _, _, bs := newTestSystems(t)

	_, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label:   "dup",
		Entries: []metadata.BindGroupLayoutEntry{uniformEntry(0), uniformEntry(1), uniformEntry(1)},
	})
	var conflict *metadata.ConflictBindingError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictBindingError, got %v", err)
	}
	if conflict.Binding != 1 {
		t.Fatalf("expected conflict on slot 1, got %d", conflict.Binding)
	}
	if backend.layoutsCreated != 0 {
		t.Fatalf("rejected layout must not reach the backend, got %d creations", backend.layoutsCreated)
	}

	id, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label:   "ok",
		Entries: []metadata.BindGroupLayoutEntry{uniformEntry(0), uniformEntry(1), uniformEntry(2)},
	})
	if err != nil {
		t.Fatalf("distinct slots must be accepted: %v", err)
	}
	layout, err := bs.GetBindGroupLayout(id)
	if err != nil {
		t.Fatalf("GetBindGroupLayout failed: %v", err)
	}
	if len(layout.Entries) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(layout.Entries))
	}
	for _, slot := range []uint32{0, 1, 2} {
		if _, ok := layout.Entries[slot]; !ok {
			t.Fatalf("declaration for slot %d not retrievable", slot)
		}
	}
}

func TestCreateBindGroupLayoutRejectsInvalidEntry(t *testing.T) {
	_, _, _, bs := newTestSystems(t)

	entry := uniformEntry(3)
	entry.Visibility = 0
	_, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label:   "blind",
		Entries: []metadata.BindGroupLayoutEntry{uniformEntry(0), entry},
	})
	var entryErr *metadata.EntryError
	if !errors.As(err, &entryErr) {
		t.Fatalf("expected EntryError, got %v", err)
	}
	if entryErr.Binding != 3 {
		t.Fatalf("expected offending slot 3, got %d", entryErr.Binding)
	}
	if entryErr.Cause.Violation != metadata.EntryViolationNoVisibility {
		t.Fatalf("expected no-visibility violation, got %s", entryErr.Cause.Violation)
	}
}

func TestCreatePipelineLayoutEnforcesGroupBound(t *testing.T) {
	_, _, _, bs := newTestSystems(t)

	layouts := make([]metadata.BindGroupLayoutID, 0, metadata.MaxBindGroups+1)
	for i := 0; i <= metadata.MaxBindGroups; i++ {
		id, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group-%d", i),
			Entries: []metadata.BindGroupLayoutEntry{uniformEntry(0)},
		})
		if err != nil {
			t.Fatalf("CreateBindGroupLayout failed: %v", err)
		}
		layouts = append(layouts, id)
	}

	if _, err := bs.CreatePipelineLayout(&metadata.PipelineLayoutDescriptor{
		Label:            "at-max",
		BindGroupLayouts: layouts[:metadata.MaxBindGroups],
	}); err != nil {
		t.Fatalf("pipeline layout at the bound must succeed: %v", err)
	}

	_, err := bs.CreatePipelineLayout(&metadata.PipelineLayoutDescriptor{
		Label:            "over-max",
		BindGroupLayouts: layouts,
	})
	var tooMany *metadata.TooManyGroupsError
	if !errors.As(err, &tooMany) {
		t.Fatalf("expected TooManyGroupsError, got %v", err)
	}
	if tooMany.Count != metadata.MaxBindGroups+1 {
		t.Fatalf("expected reported count %d, got %d", metadata.MaxBindGroups+1, tooMany.Count)
	}
}

func TestPipelineLayoutKeepsGroupLayoutsAlive(t *testing.T) {
	backend, _, _, bs := newTestSystems(t)

	layoutID, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label:   "shared",
		Entries: []metadata.BindGroupLayoutEntry{uniformEntry(0)},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	pipelineID, err := bs.CreatePipelineLayout(&metadata.PipelineLayoutDescriptor{
		Label:            "holder",
		BindGroupLayouts: []metadata.BindGroupLayoutID{layoutID},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout failed: %v", err)
	}

	// The creator's reference goes away but the pipeline layout still
	// holds one.
	if err := bs.ReleaseBindGroupLayout(layoutID); err != nil {
		t.Fatalf("ReleaseBindGroupLayout failed: %v", err)
	}
	if backend.layoutsDestroyed != 0 {
		t.Fatalf("group layout destroyed while a pipeline layout references it")
	}
	if _, err := bs.GetBindGroupLayout(layoutID); err != nil {
		t.Fatalf("group layout must stay resolvable: %v", err)
	}

	if err := bs.ReleasePipelineLayout(pipelineID); err != nil {
		t.Fatalf("ReleasePipelineLayout failed: %v", err)
	}
	if backend.layoutsDestroyed != 1 {
		t.Fatalf("expected group layout destroyed with the pipeline layout, got %d", backend.layoutsDestroyed)
	}
	if backend.pipelineLayoutsDestroyed != 1 {
		t.Fatalf("expected pipeline layout destroyed, got %d", backend.pipelineLayoutsDestroyed)
	}
}

// groupFixture builds the layout and resources used by the bind group
// tests: slot 0 uniform buffer, slot 1 sampler.
func groupFixture(t *testing.T, rs *ResourceSystem, bs *BindingSystem) (metadata.BindGroupLayoutID, metadata.BufferID, metadata.SamplerID) {
	t.Helper()
	layoutID, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label: "fixture",
		Entries: []metadata.BindGroupLayoutEntry{
			uniformEntry(0),
			{Binding: 1, Visibility: metadata.ShaderStageFragment, BindingType: metadata.BindingTypeSampler},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	bufferID, err := rs.CreateBuffer("ubo", 256, metadata.BufferUsageUniform)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	samplerID, err := rs.CreateSampler("smp", false)
	if err != nil {
		t.Fatalf("CreateSampler failed: %v", err)
	}
	return layoutID, bufferID, samplerID
}

func bufferEntry(binding uint32, buffer metadata.BufferID, offset, size uint64) metadata.BindGroupEntry {
	return metadata.BindGroupEntry{
		Binding: binding,
		Resource: metadata.BindingResource{
			Kind:   metadata.ResourceKindBuffer,
			Buffer: metadata.BufferBinding{Buffer: buffer, Offset: offset, Size: size},
		},
	}
}

func samplerEntry(binding uint32, sampler metadata.SamplerID) metadata.BindGroupEntry {
	return metadata.BindGroupEntry{
		Binding: binding,
		Resource: metadata.BindingResource{
			Kind:    metadata.ResourceKindSampler,
			Sampler: sampler,
		},
	}
}

func TestCreateBindGroupRejectsTypeMismatch(t *testing.T) {
	backend, rs, _, bs := newTestSystems(t)
	layoutID, _, samplerID := groupFixture(t, rs, bs)

	// A sampler where the layout declares a uniform buffer.
	_, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:   "mismatched",
		Layout:  layoutID,
		Entries: []metadata.BindGroupEntry{samplerEntry(0, samplerID), samplerEntry(1, samplerID)},
	})
	var mismatch *metadata.BindingTypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected BindingTypeMismatchError, got %v", err)
	}
	if mismatch.Binding != 0 {
		t.Fatalf("expected mismatch on slot 0, got %d", mismatch.Binding)
	}
	if mismatch.Expected != metadata.BindingTypeUniformBuffer || mismatch.Got != metadata.ResourceKindSampler {
		t.Fatalf("unexpected mismatch detail: expected %s, got %s", mismatch.Expected, mismatch.Got)
	}
	if backend.setsAllocated != 0 {
		t.Fatalf("rejected group must not allocate a descriptor set")
	}
}

func TestCreateBindGroupRejectsOutOfRangeBuffer(t *testing.T) {
	_, rs, _, bs := newTestSystems(t)
	layoutID, bufferID, samplerID := groupFixture(t, rs, bs)

	cases := []struct{ offset, size uint64 }{
		{offset: 512, size: 0},   // offset past the end
		{offset: 0, size: 512},   // size past the end
		{offset: 128, size: 256}, // tail past the end
	}
	for _, tc := range cases {
		_, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
			Label:  "ranged",
			Layout: layoutID,
			Entries: []metadata.BindGroupEntry{
				bufferEntry(0, bufferID, tc.offset, tc.size),
				samplerEntry(1, samplerID),
			},
		})
		var rangeErr *metadata.BufferRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("offset %d size %d: expected BufferRangeError, got %v", tc.offset, tc.size, err)
		}
		if rangeErr.Extent != 256 {
			t.Fatalf("expected extent 256 in the error, got %d", rangeErr.Extent)
		}
	}

	// The full extent is a valid range.
	if _, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "full",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 256),
			samplerEntry(1, samplerID),
		},
	}); err != nil {
		t.Fatalf("full-extent binding must succeed: %v", err)
	}
}

func TestCreateBindGroupRejectsUnknownAndMissingSlots(t *testing.T) {
	_, rs, _, bs := newTestSystems(t)
	layoutID, bufferID, samplerID := groupFixture(t, rs, bs)

	_, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "stray",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 256),
			samplerEntry(1, samplerID),
			samplerEntry(7, samplerID),
		},
	})
	var unknown *metadata.UnknownSlotError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSlotError, got %v", err)
	}
	if unknown.Binding != 7 {
		t.Fatalf("expected stray slot 7, got %d", unknown.Binding)
	}

	_, err = bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:   "sparse",
		Layout:  layoutID,
		Entries: []metadata.BindGroupEntry{samplerEntry(1, samplerID)},
	})
	var missing *metadata.MissingSlotError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSlotError, got %v", err)
	}
	if missing.Binding != 0 {
		t.Fatalf("expected lowest missing slot 0, got %d", missing.Binding)
	}

	_, err = bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "doubled",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 256),
			samplerEntry(1, samplerID),
			samplerEntry(1, samplerID),
		},
	})
	var conflict *metadata.ConflictBindingError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictBindingError for a doubled entry, got %v", err)
	}
	if conflict.Binding != 1 {
		t.Fatalf("expected doubled slot 1, got %d", conflict.Binding)
	}
}

func TestCreateBindGroupHoldsResourceReferences(t *testing.T) {
	backend, rs, tracker, bs := newTestSystems(t)
	layoutID, bufferID, samplerID := groupFixture(t, rs, bs)

	groupID, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "live",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 128),
			samplerEntry(1, samplerID),
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}

	groupRecord, ok := bs.bindGroups.Get(groupID)
	if !ok {
		t.Fatalf("bind group not registered")
	}
	if got := groupRecord.refs.Load(); got != 1 {
		t.Fatalf("fresh bind group must hold exactly one reference, got %d", got)
	}
	bufferRecord, _ := rs.buffers.Get(bufferID)
	if got := bufferRecord.refs.Load(); got != 2 {
		t.Fatalf("bound buffer must be at two references, got %d", got)
	}

	uses := tracker.UsesOf(groupID)
	if len(uses) != 2 {
		t.Fatalf("expected 2 recorded uses, got %d", len(uses))
	}
	for _, use := range uses {
		if use.Usage != UsageRead {
			t.Fatalf("uniform and sampler uses must be reads")
		}
	}

	// The creator releases its resources; the group keeps them alive.
	if err := rs.ReleaseBuffer(bufferID); err != nil {
		t.Fatalf("ReleaseBuffer failed: %v", err)
	}
	if err := rs.ReleaseSampler(samplerID); err != nil {
		t.Fatalf("ReleaseSampler failed: %v", err)
	}
	if backend.buffersDestroyed != 0 || backend.samplersDestroyed != 0 {
		t.Fatalf("bound resources destroyed while their group lives")
	}

	if err := bs.ReleaseBindGroup(groupID); err != nil {
		t.Fatalf("ReleaseBindGroup failed: %v", err)
	}
	if backend.buffersDestroyed != 1 || backend.samplersDestroyed != 1 {
		t.Fatalf("releasing the group must destroy the orphaned resources, got %d/%d",
			backend.buffersDestroyed, backend.samplersDestroyed)
	}
	if backend.setsFreed != 1 {
		t.Fatalf("descriptor set must be freed with the group, got %d", backend.setsFreed)
	}
	if len(tracker.UsesOf(groupID)) != 0 {
		t.Fatalf("tracker must drop uses of a destroyed group")
	}
}

func TestCreateBindGroupRefCountRoundTrip(t *testing.T) {
	backend, rs, _, bs := newTestSystems(t)
	layoutID, bufferID, samplerID := groupFixture(t, rs, bs)

	groupID, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "shared",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 128),
			samplerEntry(1, samplerID),
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}

	const extra = 5
	for i := 0; i < extra; i++ {
		if err := bs.AddRefBindGroup(groupID); err != nil {
			t.Fatalf("AddRefBindGroup failed: %v", err)
		}
	}
	for i := 0; i < extra; i++ {
		if err := bs.ReleaseBindGroup(groupID); err != nil {
			t.Fatalf("ReleaseBindGroup failed: %v", err)
		}
	}
	if _, err := bs.GetBindGroup(groupID); err != nil {
		t.Fatalf("group must survive a balanced add/release round trip: %v", err)
	}
	if backend.setsFreed != 0 {
		t.Fatalf("descriptor set freed while the group lives")
	}

	if err := bs.ReleaseBindGroup(groupID); err != nil {
		t.Fatalf("final ReleaseBindGroup failed: %v", err)
	}
	if _, err := bs.GetBindGroup(groupID); err == nil {
		t.Fatalf("destroyed group must not resolve")
	}
	if backend.setsFreed != 1 {
		t.Fatalf("descriptor set must be freed exactly once, got %d", backend.setsFreed)
	}
}

func TestCreateBindGroupFreesSetOnWriteFailure(t *testing.T) {
	backend, rs, tracker, bs := newTestSystems(t)
	layoutID, bufferID, samplerID := groupFixture(t, rs, bs)

	backend.failWrites = true
	_, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "doomed",
		Layout: layoutID,
		Entries: []metadata.BindGroupEntry{
			bufferEntry(0, bufferID, 0, 128),
			samplerEntry(1, samplerID),
		},
	})
	if err == nil {
		t.Fatalf("expected bind group creation to fail")
	}
	if backend.setsAllocated != 1 || backend.setsFreed != 1 {
		t.Fatalf("descriptor set must go back to the pool on write failure, allocated %d freed %d",
			backend.setsAllocated, backend.setsFreed)
	}

	// The failure path drops every acquired reference.
	bufferRecord, _ := rs.buffers.Get(bufferID)
	if got := bufferRecord.refs.Load(); got != 1 {
		t.Fatalf("buffer must be back at one reference, got %d", got)
	}
	layoutRecord, _ := bs.bindGroupLayouts.Get(layoutID)
	if got := layoutRecord.refs.Load(); got != 1 {
		t.Fatalf("layout must be back at one reference, got %d", got)
	}
	if bs.bindGroups.Count() != 0 {
		t.Fatalf("no group may be registered after a failed creation")
	}
	if len(tracker.UsesOf(0)) != 0 {
		t.Fatalf("no uses may be recorded after a failed creation")
	}
}

func TestUsageTrackerConflicts(t *testing.T) {
	_, rs, tracker, bs := newTestSystems(t)

	layoutID, err := bs.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label: "storage",
		Entries: []metadata.BindGroupLayoutEntry{
			{Binding: 0, Visibility: metadata.ShaderStageCompute, BindingType: metadata.BindingTypeStorageBuffer},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	bufferID, err := rs.CreateBuffer("scratch", 1024, metadata.BufferUsageStorage)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	makeGroup := func(label string) metadata.BindGroupID {
		id, err := bs.CreateBindGroup(&metadata.BindGroupDescriptor{
			Label:   label,
			Layout:  layoutID,
			Entries: []metadata.BindGroupEntry{bufferEntry(0, bufferID, 0, 1024)},
		})
		if err != nil {
			t.Fatalf("CreateBindGroup failed: %v", err)
		}
		return id
	}
	a := makeGroup("writer-a")
	b := makeGroup("writer-b")

	uses := tracker.UsesOf(a)
	if len(uses) != 1 || uses[0].Usage != UsageWrite {
		t.Fatalf("storage buffer use must be recorded as a write, got %+v", uses)
	}
	if !tracker.Conflicts(a, b) {
		t.Fatalf("two writers of the same buffer must conflict")
	}

	if err := bs.ReleaseBindGroup(b); err != nil {
		t.Fatalf("ReleaseBindGroup failed: %v", err)
	}
	if tracker.Conflicts(a, b) {
		t.Fatalf("a destroyed group cannot conflict")
	}
}
