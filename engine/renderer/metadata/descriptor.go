package metadata

/**
 * @brief Native descriptor classes used for pool sizing. Several binding
 * types share a class (e.g. both sampler variants consume sampler
 * descriptors).
 */
type DescriptorClass uint32

const (
	DescriptorClassUniformBuffer DescriptorClass = iota
	DescriptorClassStorageBuffer
	DescriptorClassSampler
	DescriptorClassSampledTexture
	DescriptorClassStorageTexture
	DescriptorClassCount
)

func (dc DescriptorClass) String() string {
	switch dc {
	case DescriptorClassUniformBuffer:
		return "uniform_buffer"
	case DescriptorClassStorageBuffer:
		return "storage_buffer"
	case DescriptorClassSampler:
		return "sampler"
	case DescriptorClassSampledTexture:
		return "sampled_texture"
	case DescriptorClassStorageTexture:
		return "storage_texture"
	}
	return "unknown"
}

// DescriptorClass maps a binding type to the pool class it consumes.
func (bt BindingType) DescriptorClass() DescriptorClass {
	switch bt {
	case BindingTypeUniformBuffer:
		return DescriptorClassUniformBuffer
	case BindingTypeStorageBuffer, BindingTypeReadonlyStorageBuffer:
		return DescriptorClassStorageBuffer
	case BindingTypeSampler, BindingTypeComparisonSampler:
		return DescriptorClassSampler
	case BindingTypeSampledTexture:
		return DescriptorClassSampledTexture
	case BindingTypeReadonlyStorageTexture, BindingTypeWriteonlyStorageTexture:
		return DescriptorClassStorageTexture
	}
	return DescriptorClassCount
}

/**
 * @brief Aggregate descriptor-pool demand of a layout: how many native
 * descriptors of each class a set instantiated against it consumes.
 * Arrays of descriptors are not supported, so each declared binding
 * contributes exactly one unit.
 */
type DescriptorCounts [DescriptorClassCount]uint32

func (dc *DescriptorCounts) Add(bt BindingType) {
	dc[bt.DescriptorClass()]++
}

// Total returns the number of native descriptor slots across classes.
func (dc *DescriptorCounts) Total() uint32 {
	var total uint32
	for _, n := range dc {
		total += n
	}
	return total
}
