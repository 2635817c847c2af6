package metadata

/** @brief Shader stages a binding may be visible to. Combined as a mask. */
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x00000008
)

/**
 * @brief The kind of resource a shader-visible slot holds.
 *
 * The numeric values are part of the trace format and must never be
 * reordered or reused.
 */
type BindingType uint32

const (
	BindingTypeUniformBuffer           BindingType = 0
	BindingTypeStorageBuffer           BindingType = 1
	BindingTypeReadonlyStorageBuffer   BindingType = 2
	BindingTypeSampler                 BindingType = 3
	BindingTypeComparisonSampler       BindingType = 4
	BindingTypeSampledTexture          BindingType = 5
	BindingTypeReadonlyStorageTexture  BindingType = 6
	BindingTypeWriteonlyStorageTexture BindingType = 7
)

func (bt BindingType) String() string {
	switch bt {
	case BindingTypeUniformBuffer:
		return "uniform_buffer"
	case BindingTypeStorageBuffer:
		return "storage_buffer"
	case BindingTypeReadonlyStorageBuffer:
		return "readonly_storage_buffer"
	case BindingTypeSampler:
		return "sampler"
	case BindingTypeComparisonSampler:
		return "comparison_sampler"
	case BindingTypeSampledTexture:
		return "sampled_texture"
	case BindingTypeReadonlyStorageTexture:
		return "readonly_storage_texture"
	case BindingTypeWriteonlyStorageTexture:
		return "writeonly_storage_texture"
	}
	return "unknown"
}

/** @brief Dimensionality of a texture view binding. */
type TextureViewDimension uint32

const (
	TextureViewDimension1D        TextureViewDimension = 0
	TextureViewDimension2D        TextureViewDimension = 1
	TextureViewDimension2DArray   TextureViewDimension = 2
	TextureViewDimensionCube      TextureViewDimension = 3
	TextureViewDimensionCubeArray TextureViewDimension = 4
	TextureViewDimension3D        TextureViewDimension = 5
)

/** @brief Scalar component type sampled out of a texture. */
type TextureComponentType uint32

const (
	TextureComponentTypeFloat TextureComponentType = 0
	TextureComponentTypeSint  TextureComponentType = 1
	TextureComponentTypeUint  TextureComponentType = 2
)

/** @brief Texel formats a storage texture binding may declare. */
type TextureFormat uint32

const (
	TextureFormatUndefined   TextureFormat = 0
	TextureFormatR8Unorm     TextureFormat = 1
	TextureFormatR32Float    TextureFormat = 2
	TextureFormatRG32Float   TextureFormat = 3
	TextureFormatRGBA8Unorm  TextureFormat = 4
	TextureFormatBGRA8Unorm  TextureFormat = 5
	TextureFormatRGBA16Float TextureFormat = 6
	TextureFormatRGBA32Float TextureFormat = 7
)

/**
 * @brief Maximum number of bind group slots a pipeline layout may
 * reference. This is a hardware-limited resource, not a configuration
 * knob.
 */
const MaxBindGroups = 4

/**
 * @brief Describes one shader-visible slot of a bind group layout.
 */
type BindGroupLayoutEntry struct {
	/** @brief The slot index, unique within a layout. */
	Binding uint32
	/** @brief The shader stages the slot is visible to. Must not be empty. */
	Visibility ShaderStage
	/** @brief The kind of resource bound at this slot. */
	BindingType BindingType
	/** @brief Valid only for sampled texture bindings. */
	Multisampled bool
	/** @brief Valid only for uniform and storage buffer bindings. */
	HasDynamicOffset bool
	ViewDimension    TextureViewDimension
	/** @brief The component type sampled from texture bindings. */
	TextureComponentType TextureComponentType
	/** @brief The texel format of storage texture bindings. */
	StorageTextureFormat TextureFormat
}

/**
 * @brief Validate checks the self-consistency of a single entry.
 *
 * Rules are checked in order and the first violation wins. The check
 * runs once, at layout creation; nothing re-validates entries later.
 */
func (e *BindGroupLayoutEntry) Validate() error {
	if e.Visibility == 0 {
		return &BindGroupLayoutEntryError{Violation: EntryViolationNoVisibility}
	}
	switch e.BindingType {
	case BindingTypeUniformBuffer, BindingTypeStorageBuffer:
	default:
		if e.HasDynamicOffset {
			return &BindGroupLayoutEntryError{Violation: EntryViolationUnexpectedHasDynamicOffset}
		}
	}
	switch e.BindingType {
	case BindingTypeSampledTexture:
	default:
		if e.Multisampled {
			return &BindGroupLayoutEntryError{Violation: EntryViolationUnexpectedMultisampled}
		}
	}
	return nil
}

/**
 * @brief Caller-supplied description of a bind group layout. The entry
 * slice is borrowed for the duration of the call only.
 */
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

/** @brief Caller-supplied description of a pipeline layout. */
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayoutID
}

/** @brief Caller-supplied description of a bind group. */
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayoutID
	Entries []BindGroupEntry
}
