package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/** @brief Native buffer state: the handle and its backing memory. */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

func bufferUsageFlags(usage metadata.BufferUsage) vk.BufferUsageFlags {
	// Every buffer can be a transfer target so uploads work uniformly.
	flags := vk.BufferUsageFlagBits(vk.BufferUsageTransferDstBit)
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage&metadata.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func (vb *VulkanBackend) BufferCreate(buffer *metadata.Buffer) error {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(buffer.Size),
		Usage:       bufferUsageFlags(buffer.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	native := &VulkanBuffer{Size: vk.DeviceSize(buffer.Size)}
	err := vb.context.lock.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(vb.context.Device.LogicalDevice, &bufferInfo, vb.context.Allocator, &native.Handle); res != vk.Success {
			return fmt.Errorf("failed to create buffer with error `%s`", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vb.context.Device.LogicalDevice, native.Handle, &requirements)
	requirements.Deref()

	memoryIndex := vb.context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex == -1 {
		vb.destroyNativeBuffer(native)
		err := fmt.Errorf("no suitable memory type for buffer `%s`", buffer.Label)
		core.LogError(err.Error())
		return err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	err = vb.context.lock.SafeCall(MemoryManagement, func() error {
		if res := vk.AllocateMemory(vb.context.Device.LogicalDevice, &allocInfo, vb.context.Allocator, &native.Memory); res != vk.Success {
			return fmt.Errorf("failed to allocate buffer memory with error `%s`", VulkanResultString(res, true))
		}
		if res := vk.BindBufferMemory(vb.context.Device.LogicalDevice, native.Handle, native.Memory, 0); res != vk.Success {
			return fmt.Errorf("failed to bind buffer memory with error `%s`", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		vb.destroyNativeBuffer(native)
		core.LogError(err.Error())
		return err
	}

	buffer.InternalData = native
	return nil
}

func (vb *VulkanBackend) BufferDestroy(buffer *metadata.Buffer) error {
	native, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer `%s` has no native state", buffer.Label)
	}
	vb.destroyNativeBuffer(native)
	buffer.InternalData = nil
	return nil
}

func (vb *VulkanBackend) destroyNativeBuffer(native *VulkanBuffer) {
	vb.context.lock.SafeCall(BufferManagement, func() error {
		if native.Handle != vk.NullBuffer {
			vk.DestroyBuffer(vb.context.Device.LogicalDevice, native.Handle, vb.context.Allocator)
			native.Handle = vk.NullBuffer
		}
		if native.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(vb.context.Device.LogicalDevice, native.Memory, vb.context.Allocator)
			native.Memory = vk.NullDeviceMemory
		}
		return nil
	})
}
