package metadata

/**
 * @brief BindingBackend abstracts the native graphics API behind the
 * binding model. One implementation exists per native object family
 * (Vulkan, a recording null backend for tools and tests).
 *
 * The frontend never calls these methods with unvalidated input; the
 * backend may assume entries are self-consistent and slots are unique.
 * Native handles travel as opaque values stowed in the frontend
 * objects' InternalData fields.
 */
type BindingBackend interface {
	Initialize(appName string) error
	Shutdown() error

	/**
	 * @brief Creates the native descriptor set layout for the given
	 * declarations, pre-sorted by slot index.
	 */
	DescriptorSetLayoutCreate(entries []BindGroupLayoutEntry) (interface{}, error)
	DescriptorSetLayoutDestroy(layout interface{}) error

	/** @brief Creates the native pipeline layout over the given set layouts. */
	PipelineLayoutCreate(setLayouts []interface{}) (interface{}, error)
	PipelineLayoutDestroy(layout interface{}) error

	/**
	 * @brief Acquires a native descriptor set sized per the layout's
	 * aggregate demand. Released with DescriptorSetFree, including on
	 * the failure path of bind group creation.
	 */
	DescriptorSetAllocate(layout interface{}, counts *DescriptorCounts) (interface{}, error)
	DescriptorSetFree(set interface{}) error

	/** @brief Writes a buffer range into a native descriptor slot. */
	DescriptorSetWriteBuffer(set interface{}, binding uint32, bindingType BindingType, buffer *Buffer, offset, size uint64) error
	/** @brief Writes a sampler into a native descriptor slot. */
	DescriptorSetWriteSampler(set interface{}, binding uint32, bindingType BindingType, sampler *Sampler) error
	/** @brief Writes a texture view into a native descriptor slot. */
	DescriptorSetWriteTextureView(set interface{}, binding uint32, bindingType BindingType, view *TextureView) error

	/**
	 * @brief Creates native state for frontend resources. Buffers get
	 * backing memory per the backend's own allocation policy.
	 */
	BufferCreate(buffer *Buffer) error
	BufferDestroy(buffer *Buffer) error
	SamplerCreate(sampler *Sampler) error
	SamplerDestroy(sampler *Sampler) error
}
