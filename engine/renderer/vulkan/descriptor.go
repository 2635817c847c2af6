package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/**
 * @brief The native half of a bind group layout. Types keeps the exact
 * descriptor type per slot so later writes match what the layout
 * declared, dynamic variants included.
 */
type VulkanSetLayout struct {
	Handle vk.DescriptorSetLayout
	Types  map[uint32]vk.DescriptorType
}

/**
 * @brief A descriptor set together with the pool it was carved from.
 * Each set owns a dedicated pool sized to its layout's demand, so
 * freeing the set is destroying the pool.
 */
type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   vk.DescriptorPool
	Layout *VulkanSetLayout
}

func descriptorType(entry metadata.BindGroupLayoutEntry) vk.DescriptorType {
	switch entry.BindingType {
	case metadata.BindingTypeUniformBuffer:
		if entry.HasDynamicOffset {
			return vk.DescriptorTypeUniformBufferDynamic
		}
		return vk.DescriptorTypeUniformBuffer
	case metadata.BindingTypeStorageBuffer, metadata.BindingTypeReadonlyStorageBuffer:
		if entry.HasDynamicOffset {
			return vk.DescriptorTypeStorageBufferDynamic
		}
		return vk.DescriptorTypeStorageBuffer
	case metadata.BindingTypeSampler, metadata.BindingTypeComparisonSampler:
		return vk.DescriptorTypeSampler
	case metadata.BindingTypeSampledTexture:
		return vk.DescriptorTypeSampledImage
	default:
		return vk.DescriptorTypeStorageImage
	}
}

func shaderStageFlags(visibility metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if visibility&metadata.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if visibility&metadata.ShaderStageGeometry != 0 {
		flags |= vk.ShaderStageGeometryBit
	}
	if visibility&metadata.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	if visibility&metadata.ShaderStageCompute != 0 {
		flags |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(flags)
}

func (vb *VulkanBackend) DescriptorSetLayoutCreate(entries []metadata.BindGroupLayoutEntry) (interface{}, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(entries))
	types := make(map[uint32]vk.DescriptorType, len(entries))
	for i, entry := range entries {
		dt := descriptorType(entry)
		types[entry.Binding] = dt
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         entry.Binding,
			DescriptorType:  dt,
			DescriptorCount: 1,
			StageFlags:      shaderStageFlags(entry.Visibility),
		}
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	layout := &VulkanSetLayout{Types: types}
	err := vb.context.lock.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(vb.context.Device.LogicalDevice, &layoutInfo, vb.context.Allocator, &layout.Handle); res != vk.Success {
			return fmt.Errorf("failed to create descriptor set layout with error `%s`", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func (vb *VulkanBackend) DescriptorSetLayoutDestroy(layout interface{}) error {
	native, ok := layout.(*VulkanSetLayout)
	if !ok {
		return fmt.Errorf("descriptor set layout handle is not a VulkanSetLayout")
	}
	return vb.context.lock.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(vb.context.Device.LogicalDevice, native.Handle, vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) PipelineLayoutCreate(setLayouts []interface{}) (interface{}, error) {
	handles := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, layout := range setLayouts {
		native, ok := layout.(*VulkanSetLayout)
		if !ok {
			return nil, fmt.Errorf("set layout %d is not a VulkanSetLayout", i)
		}
		handles[i] = native.Handle
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(handles)),
		PSetLayouts:    handles,
	}

	var handle vk.PipelineLayout
	err := vb.context.lock.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(vb.context.Device.LogicalDevice, &layoutInfo, vb.context.Allocator, &handle); res != vk.Success {
			return fmt.Errorf("failed to create pipeline layout with error `%s`", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return handle, nil
}

func (vb *VulkanBackend) PipelineLayoutDestroy(layout interface{}) error {
	handle, ok := layout.(vk.PipelineLayout)
	if !ok {
		return fmt.Errorf("pipeline layout handle is not a vk.PipelineLayout")
	}
	return vb.context.lock.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) DescriptorSetAllocate(layout interface{}, counts *metadata.DescriptorCounts) (interface{}, error) {
	native, ok := layout.(*VulkanSetLayout)
	if !ok {
		return nil, fmt.Errorf("descriptor set layout handle is not a VulkanSetLayout")
	}

	// Pool sizes come from the layout's exact per-type tally rather than
	// the class-level counts, so dynamic variants are sized correctly.
	tally := make(map[vk.DescriptorType]uint32)
	for _, dt := range native.Types {
		tally[dt]++
	}
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(tally))
	for dt, count := range tally {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            dt,
			DescriptorCount: count * vb.poolHeadroom,
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       vb.poolHeadroom,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	set := &VulkanDescriptorSet{Layout: native}
	err := vb.context.lock.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(vb.context.Device.LogicalDevice, &poolInfo, vb.context.Allocator, &set.Pool); res != vk.Success {
			return fmt.Errorf("failed to create descriptor pool with error `%s`", VulkanResultString(res, true))
		}

		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     set.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{native.Handle},
		}
		sets := make([]vk.DescriptorSet, 1)
		if res := vk.AllocateDescriptorSets(vb.context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
			vk.DestroyDescriptorPool(vb.context.Device.LogicalDevice, set.Pool, vb.context.Allocator)
			return fmt.Errorf("failed to allocate descriptor set with error `%s`", VulkanResultString(res, true))
		}
		set.Handle = sets[0]
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return set, nil
}

func (vb *VulkanBackend) DescriptorSetFree(set interface{}) error {
	native, ok := set.(*VulkanDescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a VulkanDescriptorSet")
	}
	// The set goes down with its pool.
	return vb.context.lock.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vb.context.Device.LogicalDevice, native.Pool, vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) DescriptorSetWriteBuffer(set interface{}, binding uint32, bindingType metadata.BindingType, buffer *metadata.Buffer, offset, size uint64) error {
	native, ok := set.(*VulkanDescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a VulkanDescriptorSet")
	}
	nativeBuffer, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer `%s` has no native state", buffer.Label)
	}

	// A zero size binds the remainder of the buffer.
	bindingRange := vk.DeviceSize(size)
	if size == 0 {
		bindingRange = vk.DeviceSize(vk.WholeSize)
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: nativeBuffer.Handle,
		Offset: vk.DeviceSize(offset),
		Range:  bindingRange,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          native.Handle,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  native.Layout.Types[binding],
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	return vb.context.lock.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vb.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}

func (vb *VulkanBackend) DescriptorSetWriteSampler(set interface{}, binding uint32, bindingType metadata.BindingType, sampler *metadata.Sampler) error {
	native, ok := set.(*VulkanDescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a VulkanDescriptorSet")
	}
	nativeSampler, ok := sampler.InternalData.(vk.Sampler)
	if !ok {
		return fmt.Errorf("sampler `%s` has no native state", sampler.Label)
	}

	imageInfo := vk.DescriptorImageInfo{
		Sampler: nativeSampler,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          native.Handle,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  native.Layout.Types[binding],
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	return vb.context.lock.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vb.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}

func (vb *VulkanBackend) DescriptorSetWriteTextureView(set interface{}, binding uint32, bindingType metadata.BindingType, view *metadata.TextureView) error {
	native, ok := set.(*VulkanDescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a VulkanDescriptorSet")
	}
	nativeView, ok := view.InternalData.(vk.ImageView)
	if !ok {
		return fmt.Errorf("texture view `%s` has no native state", view.Label)
	}

	layout := vk.ImageLayoutShaderReadOnlyOptimal
	if bindingType == metadata.BindingTypeReadonlyStorageTexture || bindingType == metadata.BindingTypeWriteonlyStorageTexture {
		layout = vk.ImageLayoutGeneral
	}

	imageInfo := vk.DescriptorImageInfo{
		ImageView:   nativeView,
		ImageLayout: layout,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          native.Handle,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  native.Layout.Types[binding],
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	return vb.context.lock.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vb.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}
