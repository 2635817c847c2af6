package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulcano/engine/core"
)

/**
 * @brief VulkanBackend realizes the binding model on a headless Vulkan
 * device. No surface or swapchain is created; the backend exists to
 * own descriptor set layouts, pipeline layouts, descriptor pools and
 * the native buffers and samplers written into them.
 */
type VulkanBackend struct {
	context *VulkanContext

	/** @brief Multiplier applied to per-layout demand when sizing pools. */
	poolHeadroom uint32

	debug bool
}

func New(poolHeadroom uint32) *VulkanBackend {
	if poolHeadroom == 0 {
		poolHeadroom = VULKAN_DEFAULT_POOL_HEADROOM
	}
	return &VulkanBackend{
		context: &VulkanContext{
			Allocator: nil,
			lock:      NewVulkanLockPool(),
		},
		poolHeadroom: poolHeadroom,
		debug:        true,
	}
}

func (vb *VulkanBackend) Initialize(appName string) error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		core.LogError("failed to locate the Vulkan loader: %s", err.Error())
		return err
	}
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err.Error())
		return err
	}

	// TODO: custom allocator.
	vb.context.Allocator = nil

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Vulcano Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// No presentation, so no surface extensions are required.
	requiredExtensions := []string{}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	if vb.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	requiredValidationLayerNames := []string{}

	// If validation should be done, get a list of the required validation layer names
	// and make sure they exist. Validation layers should only be enabled on non-release builds.
	if vb.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers with error `%s`", VulkanResultString(res, true))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers with error `%s`", VulkanResultString(res, true))
		}

		// Verify all required layers are available; drop validation when
		// the loader does not carry it rather than failing startup.
		for i := range requiredValidationLayerNames {
			core.LogInfo("Searching for layer: %s...", requiredValidationLayerNames[i])
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					core.LogInfo("Found.")
					break
				}
			}
			if !found {
				core.LogWarn("Validation layer is missing: %s, continuing without validation", requiredValidationLayerNames[i])
				requiredValidationLayerNames = nil
				break
			}
		}
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	err := vb.context.lock.SafeCall(InstanceManagement, func() error {
		if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &vb.context.Instance); res != vk.Success {
			err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := vk.InitInstance(vb.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if vb.debug && len(requiredValidationLayerNames) > 0 {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vb.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	// Device creation
	vb.context.Device = &VulkanDevice{
		GraphicsQueueIndex: -1,
		TransferQueueIndex: -1,
	}
	err = vb.context.lock.SafeCall(DeviceManagement, func() error {
		return DeviceCreate(vb.context)
	})
	if err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	core.LogInfo("Vulkan binding backend initialized successfully.")
	return nil
}

func (vb *VulkanBackend) Shutdown() error {
	if vb.context.Device != nil && vb.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vb.context.Device.LogicalDevice)
	}

	// Destroy in the opposite order of creation.
	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vb.context)

	if vb.debug {
		core.LogDebug("Destroying Vulkan debugger...")
		if vb.context.debugMessenger != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugMessenger, vb.context.Allocator)
		}
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)

	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
