package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

func (vb *VulkanBackend) SamplerCreate(sampler *metadata.Sampler) error {
	// TODO: filtering should be configurable per sampler.
	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    16,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		MaxLod:           vk.LodClampNone,
	}
	if sampler.Comparison {
		samplerInfo.CompareEnable = vk.True
		samplerInfo.CompareOp = vk.CompareOpLessOrEqual
	}

	var handle vk.Sampler
	err := vb.context.lock.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(vb.context.Device.LogicalDevice, &samplerInfo, vb.context.Allocator, &handle); res != vk.Success {
			return fmt.Errorf("failed to create sampler with error `%s`", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	sampler.InternalData = handle
	return nil
}

func (vb *VulkanBackend) SamplerDestroy(sampler *metadata.Sampler) error {
	handle, ok := sampler.InternalData.(vk.Sampler)
	if !ok {
		return fmt.Errorf("sampler `%s` has no native state", sampler.Label)
	}
	err := vb.context.lock.SafeCall(SamplerManagement, func() error {
		vk.DestroySampler(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
		return nil
	})
	if err != nil {
		return err
	}
	sampler.InternalData = nil
	return nil
}
