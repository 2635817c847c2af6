package metadata

import "math"

/** @brief Sentinel for an unassigned or released identity. */
const InvalidID uint32 = math.MaxUint32

type (
	BufferID          = uint32
	SamplerID         = uint32
	TextureViewID     = uint32
	BindGroupLayoutID = uint32
	PipelineLayoutID  = uint32
	BindGroupID       = uint32
)

/** @brief Usage flags a buffer was created with. */
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 0x1
	BufferUsageStorage BufferUsage = 0x2
	BufferUsageVertex  BufferUsage = 0x4
	BufferUsageIndex   BufferUsage = 0x8
)

/**
 * @brief A buffer resource registered with the resource system. Memory
 * allocation policy lives in the backend; the frontend only tracks the
 * extent used for range validation.
 */
type Buffer struct {
	ID    BufferID
	Label string
	/** @brief The total extent of the buffer in bytes. */
	Size  uint64
	Usage BufferUsage
	/** @brief An opaque pointer holding renderer API specific data. */
	InternalData interface{}
}

/** @brief A sampler resource. */
type Sampler struct {
	ID    SamplerID
	Label string
	/** @brief True for comparison (shadow) samplers. */
	Comparison bool
	/** @brief An opaque pointer holding renderer API specific data. */
	InternalData interface{}
}

/**
 * @brief A view over a texture sub-resource. The view carries the
 * selector describing which mip levels and array layers it covers.
 */
type TextureView struct {
	ID        TextureViewID
	Label     string
	Dimension TextureViewDimension
	Format    TextureFormat
	/** @brief Number of samples per texel. 1 unless multisampled. */
	SampleCount uint32
	Selector    Selector
	/** @brief An opaque pointer holding renderer API specific data. */
	InternalData interface{}
}

/** @brief Which sub-resources of a texture a use covers. */
type SelectorKind uint32

const (
	/** @brief The whole resource. Buffers and samplers always use this. */
	SelectorNone SelectorKind = 0
	/** @brief A mip level / array layer range of a texture. */
	SelectorRange SelectorKind = 1
)

/**
 * @brief Selector narrows a resource use to a sub-resource range.
 * Dispatch on Kind explicitly; a zero Selector means the whole resource.
 */
type Selector struct {
	Kind            SelectorKind
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

/** @brief The resource kinds a bind group entry may supply. */
type ResourceKind uint32

const (
	ResourceKindBuffer      ResourceKind = 0
	ResourceKindSampler     ResourceKind = 1
	ResourceKindTextureView ResourceKind = 2
)

func (rk ResourceKind) String() string {
	switch rk {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindSampler:
		return "sampler"
	case ResourceKindTextureView:
		return "texture view"
	}
	return "unknown"
}

/** @brief A byte range of a buffer bound to a slot. */
type BufferBinding struct {
	Buffer BufferID
	Offset uint64
	Size   uint64
}

/**
 * @brief The resource supplied for one slot. Kind selects which member
 * is meaningful.
 */
type BindingResource struct {
	Kind        ResourceKind
	Buffer      BufferBinding
	Sampler     SamplerID
	TextureView TextureViewID
}

/** @brief Pairs a slot index with the resource bound to it. */
type BindGroupEntry struct {
	Binding  uint32
	Resource BindingResource
}
