package systems

import (
	"fmt"

	"github.com/spaghettifunk/vulcano/engine/containers"
	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

type ResourceSystemConfig struct {
	/** @brief The maximum number of buffers that can be registered at once. */
	MaxBufferCount uint32
	/** @brief The maximum number of samplers that can be registered at once. */
	MaxSamplerCount uint32
	/** @brief The maximum number of texture views that can be registered at once. */
	MaxTextureViewCount uint32
}

type bufferRecord struct {
	buffer *metadata.Buffer
	refs   *containers.RefCount
}

type samplerRecord struct {
	sampler *metadata.Sampler
	refs    *containers.RefCount
}

type textureViewRecord struct {
	view *metadata.TextureView
	refs *containers.RefCount
}

/**
 * @brief ResourceSystem registers the shader-visible resources bind
 * groups are built from. Each resource is reference counted: the
 * creator holds one reference and every bind group binding the resource
 * holds another, so a resource outlives every descriptor set that
 * references it.
 */
type ResourceSystem struct {
	Config *ResourceSystemConfig

	backend metadata.BindingBackend

	buffers      *containers.HandleTable[*bufferRecord]
	samplers     *containers.HandleTable[*samplerRecord]
	textureViews *containers.HandleTable[*textureViewRecord]
}

func NewResourceSystem(config *ResourceSystemConfig, backend metadata.BindingBackend) (*ResourceSystem, error) {
	if config.MaxBufferCount == 0 || config.MaxSamplerCount == 0 || config.MaxTextureViewCount == 0 {
		err := fmt.Errorf("func NewResourceSystem - all max counts must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &ResourceSystem{
		Config:       config,
		backend:      backend,
		buffers:      containers.NewHandleTable[*bufferRecord](int(config.MaxBufferCount)),
		samplers:     containers.NewHandleTable[*samplerRecord](int(config.MaxSamplerCount)),
		textureViews: containers.NewHandleTable[*textureViewRecord](int(config.MaxTextureViewCount)),
	}, nil
}

func (rs *ResourceSystem) CreateBuffer(label string, size uint64, usage metadata.BufferUsage) (metadata.BufferID, error) {
	if size == 0 {
		err := fmt.Errorf("func CreateBuffer - buffer `%s` must have a size > 0", label)
		core.LogError(err.Error())
		return metadata.InvalidID, err
	}
	buffer := &metadata.Buffer{
		ID:    metadata.InvalidID,
		Label: label,
		Size:  size,
		Usage: usage,
	}
	if err := rs.backend.BufferCreate(buffer); err != nil {
		core.LogError("backend failed to create buffer `%s`: %s", label, err.Error())
		return metadata.InvalidID, err
	}
	record := &bufferRecord{buffer: buffer, refs: containers.NewRefCount()}
	buffer.ID = rs.buffers.Insert(record)
	core.LogDebug("buffer `%s` registered with id %d", label, buffer.ID)
	return buffer.ID, nil
}

func (rs *ResourceSystem) GetBuffer(id metadata.BufferID) (*metadata.Buffer, error) {
	record, ok := rs.buffers.Get(id)
	if !ok {
		return nil, fmt.Errorf("buffer %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.buffer, nil
}

func (rs *ResourceSystem) ReleaseBuffer(id metadata.BufferID) error {
	record, ok := rs.buffers.Get(id)
	if !ok {
		return fmt.Errorf("buffer %d: %w", id, core.ErrInvalidIdentity)
	}
	rs.releaseBufferRecord(record)
	return nil
}

func (rs *ResourceSystem) releaseBufferRecord(record *bufferRecord) {
	if !record.refs.Release() {
		return
	}
	rs.buffers.Remove(record.buffer.ID)
	if err := rs.backend.BufferDestroy(record.buffer); err != nil {
		core.LogWarn("backend failed to destroy buffer `%s`: %s", record.buffer.Label, err.Error())
	}
	core.LogDebug("buffer `%s` (id %d) destroyed", record.buffer.Label, record.buffer.ID)
}

func (rs *ResourceSystem) CreateSampler(label string, comparison bool) (metadata.SamplerID, error) {
	sampler := &metadata.Sampler{
		ID:         metadata.InvalidID,
		Label:      label,
		Comparison: comparison,
	}
	if err := rs.backend.SamplerCreate(sampler); err != nil {
		core.LogError("backend failed to create sampler `%s`: %s", label, err.Error())
		return metadata.InvalidID, err
	}
	record := &samplerRecord{sampler: sampler, refs: containers.NewRefCount()}
	sampler.ID = rs.samplers.Insert(record)
	core.LogDebug("sampler `%s` registered with id %d", label, sampler.ID)
	return sampler.ID, nil
}

func (rs *ResourceSystem) GetSampler(id metadata.SamplerID) (*metadata.Sampler, error) {
	record, ok := rs.samplers.Get(id)
	if !ok {
		return nil, fmt.Errorf("sampler %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.sampler, nil
}

func (rs *ResourceSystem) ReleaseSampler(id metadata.SamplerID) error {
	record, ok := rs.samplers.Get(id)
	if !ok {
		return fmt.Errorf("sampler %d: %w", id, core.ErrInvalidIdentity)
	}
	rs.releaseSamplerRecord(record)
	return nil
}

func (rs *ResourceSystem) releaseSamplerRecord(record *samplerRecord) {
	if !record.refs.Release() {
		return
	}
	rs.samplers.Remove(record.sampler.ID)
	if err := rs.backend.SamplerDestroy(record.sampler); err != nil {
		core.LogWarn("backend failed to destroy sampler `%s`: %s", record.sampler.Label, err.Error())
	}
	core.LogDebug("sampler `%s` (id %d) destroyed", record.sampler.Label, record.sampler.ID)
}

/**
 * @brief CreateTextureView registers a view whose native object is
 * created and owned elsewhere in the renderer. The view's selector
 * describes which sub-resources it covers.
 */
func (rs *ResourceSystem) CreateTextureView(view *metadata.TextureView) (metadata.TextureViewID, error) {
	if view == nil {
		err := fmt.Errorf("func CreateTextureView - view must not be nil")
		core.LogError(err.Error())
		return metadata.InvalidID, err
	}
	record := &textureViewRecord{view: view, refs: containers.NewRefCount()}
	view.ID = rs.textureViews.Insert(record)
	core.LogDebug("texture view `%s` registered with id %d", view.Label, view.ID)
	return view.ID, nil
}

func (rs *ResourceSystem) GetTextureView(id metadata.TextureViewID) (*metadata.TextureView, error) {
	record, ok := rs.textureViews.Get(id)
	if !ok {
		return nil, fmt.Errorf("texture view %d: %w", id, core.ErrInvalidIdentity)
	}
	return record.view, nil
}

func (rs *ResourceSystem) ReleaseTextureView(id metadata.TextureViewID) error {
	record, ok := rs.textureViews.Get(id)
	if !ok {
		return fmt.Errorf("texture view %d: %w", id, core.ErrInvalidIdentity)
	}
	rs.releaseTextureViewRecord(record)
	return nil
}

func (rs *ResourceSystem) releaseTextureViewRecord(record *textureViewRecord) {
	if !record.refs.Release() {
		return
	}
	rs.textureViews.Remove(record.view.ID)
	core.LogDebug("texture view `%s` (id %d) released", record.view.Label, record.view.ID)
}

func (rs *ResourceSystem) Shutdown() error {
	rs.buffers.Range(func(id uint32, record *bufferRecord) bool {
		core.LogWarn("buffer `%s` (id %d) still alive at shutdown", record.buffer.Label, id)
		if err := rs.backend.BufferDestroy(record.buffer); err != nil {
			core.LogWarn("backend failed to destroy buffer `%s`: %s", record.buffer.Label, err.Error())
		}
		return true
	})
	rs.samplers.Range(func(id uint32, record *samplerRecord) bool {
		core.LogWarn("sampler `%s` (id %d) still alive at shutdown", record.sampler.Label, id)
		if err := rs.backend.SamplerDestroy(record.sampler); err != nil {
			core.LogWarn("backend failed to destroy sampler `%s`: %s", record.sampler.Label, err.Error())
		}
		return true
	})
	return nil
}
