package null

import (
	"sync/atomic"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/**
 * @brief NullBackend satisfies the binding backend with inert handles.
 * It exists for machines without a Vulkan loader, for replaying traces
 * offline and for exercising the frontend in tools. Validation still
 * happens in full; only the native calls are elided.
 */
type NullBackend struct {
	next atomic.Uint64

	SetsAlive atomic.Int64
}

type nullHandle struct {
	id uint64
}

func New() *NullBackend {
	return &NullBackend{}
}

func (nb *NullBackend) handle() *nullHandle {
	return &nullHandle{id: nb.next.Add(1)}
}

func (nb *NullBackend) Initialize(appName string) error {
	core.LogInfo("null renderer backend initialized for `%s`", appName)
	return nil
}

func (nb *NullBackend) Shutdown() error {
	if alive := nb.SetsAlive.Load(); alive != 0 {
		core.LogWarn("null backend shutting down with %d descriptor sets alive", alive)
	}
	return nil
}

func (nb *NullBackend) DescriptorSetLayoutCreate(entries []metadata.BindGroupLayoutEntry) (interface{}, error) {
	return nb.handle(), nil
}

func (nb *NullBackend) DescriptorSetLayoutDestroy(layout interface{}) error {
	return nil
}

func (nb *NullBackend) PipelineLayoutCreate(setLayouts []interface{}) (interface{}, error) {
	return nb.handle(), nil
}

func (nb *NullBackend) PipelineLayoutDestroy(layout interface{}) error {
	return nil
}

func (nb *NullBackend) DescriptorSetAllocate(layout interface{}, counts *metadata.DescriptorCounts) (interface{}, error) {
	nb.SetsAlive.Add(1)
	return nb.handle(), nil
}

func (nb *NullBackend) DescriptorSetFree(set interface{}) error {
	nb.SetsAlive.Add(-1)
	return nil
}

func (nb *NullBackend) DescriptorSetWriteBuffer(set interface{}, binding uint32, bindingType metadata.BindingType, buffer *metadata.Buffer, offset, size uint64) error {
	return nil
}

func (nb *NullBackend) DescriptorSetWriteSampler(set interface{}, binding uint32, bindingType metadata.BindingType, sampler *metadata.Sampler) error {
	return nil
}

func (nb *NullBackend) DescriptorSetWriteTextureView(set interface{}, binding uint32, bindingType metadata.BindingType, view *metadata.TextureView) error {
	return nil
}

func (nb *NullBackend) BufferCreate(buffer *metadata.Buffer) error {
	buffer.InternalData = nb.handle()
	return nil
}

func (nb *NullBackend) BufferDestroy(buffer *metadata.Buffer) error {
	buffer.InternalData = nil
	return nil
}

func (nb *NullBackend) SamplerCreate(sampler *metadata.Sampler) error {
	sampler.InternalData = nb.handle()
	return nil
}

func (nb *NullBackend) SamplerDestroy(sampler *metadata.Sampler) error {
	sampler.InternalData = nil
	return nil
}
