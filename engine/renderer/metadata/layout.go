package metadata

/**
 * @brief A validated, immutable bind group layout. Owned by the binding
 * system; shared by reference with every pipeline layout and bind group
 * built against it.
 */
type BindGroupLayout struct {
	ID    BindGroupLayoutID
	Label string
	/** @brief Slot index to declaration. Immutable after creation. */
	Entries map[uint32]BindGroupLayoutEntry
	/** @brief Aggregate descriptor-pool demand, derived at creation. */
	DescriptorCounts DescriptorCounts
	/** @brief Number of dynamic-offset-capable bindings. */
	DynamicCount uint32
	/** @brief Identity of the owning device. */
	DeviceID uint32
	/** @brief The native descriptor set layout, owned by the backend. */
	InternalData interface{}
}

/**
 * @brief An ordered, capacity-bounded list of bind group layouts that
 * together define the binding surface of a pipeline. Holds a strong
 * reference on each layout for its whole lifetime.
 */
type PipelineLayout struct {
	ID    PipelineLayoutID
	Label string
	/** @brief At most MaxBindGroups entries, in slot order. */
	BindGroupLayouts []BindGroupLayoutID
	DeviceID         uint32
	/** @brief The native pipeline layout, owned by the backend. */
	InternalData interface{}
}

/**
 * @brief A concrete instantiation of a layout with actual resources.
 * Owns a native descriptor set for as long as it lives.
 */
type BindGroup struct {
	ID     BindGroupID
	Label  string
	Layout BindGroupLayoutID
	/** @brief Copied from the layout at creation. */
	DynamicCount uint32
	DeviceID     uint32
	/** @brief The native descriptor set, released on destruction. */
	InternalData interface{}
}
