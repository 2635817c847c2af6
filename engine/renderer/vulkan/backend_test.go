package vulkan

import (
	"testing"

	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/**
 * @brief Brings up a real Vulkan device when one is available. Machines
 * without a loader or a suitable GPU skip rather than fail so the rest
 * of the suite stays runnable everywhere.
 */
func newTestBackend(t *testing.T) *VulkanBackend {
	t.Helper()

	backend := New(0)
	if err := backend.Initialize("vulcano-test"); err != nil {
		t.Skipf("no usable Vulkan device: %s", err)
	}
	t.Cleanup(func() {
		if err := backend.Shutdown(); err != nil {
			t.Errorf("backend shutdown failed: %s", err)
		}
	})
	return backend
}

func TestBackendDescriptorSetLifecycle(t *testing.T) {
	backend := newTestBackend(t)

	entries := []metadata.BindGroupLayoutEntry{
		{
			Binding:     0,
			Visibility:  metadata.ShaderStageVertex | metadata.ShaderStageFragment,
			BindingType: metadata.BindingTypeUniformBuffer,
		},
		{
			Binding:     1,
			Visibility:  metadata.ShaderStageFragment,
			BindingType: metadata.BindingTypeSampler,
		},
	}

	layout, err := backend.DescriptorSetLayoutCreate(entries)
	if err != nil {
		t.Fatalf("descriptor set layout creation failed: %s", err)
	}
	defer func() {
		if err := backend.DescriptorSetLayoutDestroy(layout); err != nil {
			t.Errorf("descriptor set layout destroy failed: %s", err)
		}
	}()

	pipelineLayout, err := backend.PipelineLayoutCreate([]interface{}{layout})
	if err != nil {
		t.Fatalf("pipeline layout creation failed: %s", err)
	}
	defer func() {
		if err := backend.PipelineLayoutDestroy(pipelineLayout); err != nil {
			t.Errorf("pipeline layout destroy failed: %s", err)
		}
	}()

	buffer := &metadata.Buffer{Label: "test-ubo", Size: 256, Usage: metadata.BufferUsageUniform}
	if err := backend.BufferCreate(buffer); err != nil {
		t.Fatalf("buffer creation failed: %s", err)
	}
	defer func() {
		if err := backend.BufferDestroy(buffer); err != nil {
			t.Errorf("buffer destroy failed: %s", err)
		}
	}()

	sampler := &metadata.Sampler{Label: "test-sampler"}
	if err := backend.SamplerCreate(sampler); err != nil {
		t.Fatalf("sampler creation failed: %s", err)
	}
	defer func() {
		if err := backend.SamplerDestroy(sampler); err != nil {
			t.Errorf("sampler destroy failed: %s", err)
		}
	}()

	var counts metadata.DescriptorCounts
	for i := range entries {
		counts.Add(entries[i].BindingType)
	}

	set, err := backend.DescriptorSetAllocate(layout, &counts)
	if err != nil {
		t.Fatalf("descriptor set allocation failed: %s", err)
	}

	if err := backend.DescriptorSetWriteBuffer(set, 0, metadata.BindingTypeUniformBuffer, buffer, 0, 0); err != nil {
		t.Errorf("buffer write failed: %s", err)
	}
	if err := backend.DescriptorSetWriteSampler(set, 1, metadata.BindingTypeSampler, sampler); err != nil {
		t.Errorf("sampler write failed: %s", err)
	}

	if err := backend.DescriptorSetFree(set); err != nil {
		t.Errorf("descriptor set free failed: %s", err)
	}
}
