package systems

import (
	"fmt"

	"github.com/spaghettifunk/vulcano/engine/config"
	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
	"github.com/spaghettifunk/vulcano/engine/trace"
)

/**
 * @brief SystemManager builds and owns every system in dependency
 * order and exposes the binding API as one surface. When tracing is
 * enabled, every call that goes through the manager is recorded, and
 * the manager is also the Player a recorded trace is replayed through.
 */
type SystemManager struct {
	ResourceSystem *ResourceSystem
	BindingSystem  *BindingSystem
	Tracker        *UsageTrackerSystem

	backend  metadata.BindingBackend
	recorder *trace.Recorder
}

func NewSystemManager(cfg *config.Config, backend metadata.BindingBackend) (*SystemManager, error) {
	if err := backend.Initialize(cfg.Renderer.ApplicationName); err != nil {
		core.LogError("failed to initialize renderer backend: %s", err.Error())
		return nil, err
	}

	resourceSystem, err := NewResourceSystem(&ResourceSystemConfig{
		MaxBufferCount:      cfg.Limits.MaxBufferCount,
		MaxSamplerCount:     cfg.Limits.MaxSamplerCount,
		MaxTextureViewCount: cfg.Limits.MaxTextureViewCount,
	}, backend)
	if err != nil {
		return nil, err
	}

	tracker := NewUsageTrackerSystem()

	bindingSystem, err := NewBindingSystem(&BindingSystemConfig{
		MaxBindGroupLayoutCount: cfg.Limits.MaxBindGroupLayoutCount,
		MaxPipelineLayoutCount:  cfg.Limits.MaxPipelineLayoutCount,
		MaxBindGroupCount:       cfg.Limits.MaxBindGroupCount,
	}, backend, resourceSystem, tracker)
	if err != nil {
		return nil, err
	}

	sm := &SystemManager{
		ResourceSystem: resourceSystem,
		BindingSystem:  bindingSystem,
		Tracker:        tracker,
		backend:        backend,
	}

	if cfg.Trace.Enabled {
		recorder, err := trace.NewRecorder(cfg.Trace.Path)
		if err != nil {
			return nil, err
		}
		sm.recorder = recorder
	}
	return sm, nil
}

func (sm *SystemManager) CreateBuffer(label string, size uint64, usage metadata.BufferUsage) (metadata.BufferID, error) {
	id, err := sm.ResourceSystem.CreateBuffer(label, size, usage)
	if err == nil && sm.recorder != nil {
		sm.recorder.BufferCreated(id, label, size, usage)
	}
	return id, err
}

func (sm *SystemManager) CreateSampler(label string, comparison bool) (metadata.SamplerID, error) {
	id, err := sm.ResourceSystem.CreateSampler(label, comparison)
	if err == nil && sm.recorder != nil {
		sm.recorder.SamplerCreated(id, label, comparison)
	}
	return id, err
}

func (sm *SystemManager) CreateTextureView(view *metadata.TextureView) (metadata.TextureViewID, error) {
	id, err := sm.ResourceSystem.CreateTextureView(view)
	if err == nil && sm.recorder != nil {
		sm.recorder.TextureViewCreated(id, view)
	}
	return id, err
}

func (sm *SystemManager) CreateBindGroupLayout(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutID, error) {
	id, err := sm.BindingSystem.CreateBindGroupLayout(desc)
	if err == nil && sm.recorder != nil {
		sm.recorder.BindGroupLayoutCreated(id, desc)
	}
	return id, err
}

func (sm *SystemManager) CreatePipelineLayout(desc *metadata.PipelineLayoutDescriptor) (metadata.PipelineLayoutID, error) {
	id, err := sm.BindingSystem.CreatePipelineLayout(desc)
	if err == nil && sm.recorder != nil {
		sm.recorder.PipelineLayoutCreated(id, desc)
	}
	return id, err
}

func (sm *SystemManager) CreateBindGroup(desc *metadata.BindGroupDescriptor) (metadata.BindGroupID, error) {
	id, err := sm.BindingSystem.CreateBindGroup(desc)
	if err == nil && sm.recorder != nil {
		sm.recorder.BindGroupCreated(id, desc)
	}
	return id, err
}

func (sm *SystemManager) Release(kind trace.ObjectKind, id uint32) error {
	var err error
	switch kind {
	case trace.ObjectKindBuffer:
		err = sm.ResourceSystem.ReleaseBuffer(id)
	case trace.ObjectKindSampler:
		err = sm.ResourceSystem.ReleaseSampler(id)
	case trace.ObjectKindTextureView:
		err = sm.ResourceSystem.ReleaseTextureView(id)
	case trace.ObjectKindBindGroupLayout:
		err = sm.BindingSystem.ReleaseBindGroupLayout(id)
	case trace.ObjectKindPipelineLayout:
		err = sm.BindingSystem.ReleasePipelineLayout(id)
	case trace.ObjectKindBindGroup:
		err = sm.BindingSystem.ReleaseBindGroup(id)
	default:
		err = fmt.Errorf("release of object %d: unknown kind %d: %w", id, kind, core.ErrUnknown)
	}
	if err == nil && sm.recorder != nil {
		sm.recorder.Released(kind, id)
	}
	return err
}

// Shutdown tears the systems down in reverse dependency order.
func (sm *SystemManager) Shutdown() error {
	if err := sm.BindingSystem.Shutdown(); err != nil {
		core.LogError("binding system failed to shutdown: %s", err.Error())
	}
	if err := sm.ResourceSystem.Shutdown(); err != nil {
		core.LogError("resource system failed to shutdown: %s", err.Error())
	}
	if err := sm.backend.Shutdown(); err != nil {
		core.LogError("renderer backend failed to shutdown: %s", err.Error())
	}
	if sm.recorder != nil {
		if err := sm.recorder.Close(); err != nil {
			core.LogWarn("trace recorder failed to close: %s", err.Error())
		}
	}
	return nil
}
