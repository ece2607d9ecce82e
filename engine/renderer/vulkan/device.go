// Package vulkan implements the gpu interfaces on top of goki/vulkan. One
// Device owns the instance, surface and logical device; one Swapchain owns
// the presentable image chain. Everything else (buffers, images, pipelines,
// descriptor pools, sync objects) is created through them.
package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

var _ gpu.Device = (*Device)(nil)

// Device implements gpu.Device. It owns the Vulkan instance and surface,
// the selected physical device, the logical device with its graphics and
// present queues, and the command pool command buffers allocate from.
type Device struct {
	context *Context

	physicalDevice vk.PhysicalDevice
	logical        vk.Device

	graphicsQueueIndex int32
	presentQueueIndex  int32

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	commandPool vk.CommandPool

	properties  vk.PhysicalDeviceProperties
	depthFormat vk.Format

	locks    *lockPool
	validate bool
}

// deviceRequirements is what a physical device must offer to be selected.
type deviceRequirements struct {
	SamplerAnisotropy    bool
	DeviceExtensionNames []string
}

// queueFamilyInfo holds the family indices discovered on a physical device.
// An index of -1 means no suitable family was found.
type queueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// swapchainSupport is the surface support queried from a physical device,
// with all structs already dereferenced to their Go side.
type swapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// NewDevice initializes Vulkan, creates the instance and window surface and
// brings up a logical device on the best physical device available. With
// validate set, the validation layer is enabled and its messages forwarded
// to the engine log.
func NewDevice(appName string, window *glfw.Window, validate bool) (*Device, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("failed to locate the Vulkan loader: GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = fmt.Errorf("failed to initialize Vulkan: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	d := &Device{
		context:            &Context{},
		graphicsQueueIndex: -1,
		presentQueueIndex:  -1,
		locks:              newLockPool(),
		validate:           validate,
	}

	if err := d.createInstance(appName, window); err != nil {
		return nil, err
	}

	if validate {
		if err := d.createDebugCallback(); err != nil {
			return nil, err
		}
	}

	surface, err := window.CreateWindowSurface(d.context.Instance, nil)
	if err != nil {
		err = fmt.Errorf("failed to create window surface: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	d.context.Surface = vk.SurfaceFromPointer(surface)

	if err := d.selectPhysicalDevice(); err != nil {
		return nil, err
	}

	if err := d.createLogicalDevice(); err != nil {
		return nil, err
	}

	if err := d.detectDepthFormat(); err != nil {
		return nil, err
	}

	core.LogInfo("vulkan device ready")
	return d, nil
}

func (d *Device) createInstance(appName string, window *glfw.Window) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		// 1.1 for the negative-height viewport flip (maintenance1).
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(appName),
		PEngineName:        safeString("vkr"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := window.GetRequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if d.validate {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	for _, ext := range requiredExtensions {
		core.LogDebug("requiring instance extension %s", ext)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = safeStrings(requiredExtensions)

	layerNames := []string{}
	if d.validate {
		var availableCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
			return vkError("vkEnumerateInstanceLayerProperties", res)
		}
		available := make([]vk.LayerProperties, availableCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); res != vk.Success {
			return vkError("vkEnumerateInstanceLayerProperties", res)
		}

		found := false
		for i := range available {
			available[i].Deref()
			if trimNul(available[i].LayerName[:]) == validationLayerName {
				found = true
				break
			}
		}
		if !found {
			core.LogWarn("validation requested but %s is not installed, continuing without it", validationLayerName)
			d.validate = false
		} else {
			layerNames = append(layerNames, validationLayerName)
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layerNames))
	createInfo.PpEnabledLayerNames = safeStrings(layerNames)

	if res := vk.CreateInstance(&createInfo, d.context.Allocator, &d.context.Instance); res != vk.Success {
		err := vkError("vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(d.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogDebug("vulkan instance created")
	return nil
}

func (d *Device) createDebugCallback() error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(d.context.Instance, &debugCreateInfo, d.context.Allocator, &callback); res != vk.Success {
		err := vkError("vkCreateDebugReportCallback", res)
		core.LogError(err.Error())
		return err
	}
	d.context.debugCallback = callback
	return nil
}

// selectPhysicalDevice walks the available devices and keeps the first one
// meeting the requirements, upgrading to a discrete GPU when one appears
// later in the list.
func (d *Device) selectPhysicalDevice() error {
	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(d.context.Instance, &deviceCount, nil); res != vk.Success {
		return vkError("vkEnumeratePhysicalDevices", res)
	}
	if deviceCount == 0 {
		err := fmt.Errorf("no devices supporting Vulkan were found")
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	if res := vk.EnumeratePhysicalDevices(d.context.Instance, &deviceCount, physicalDevices); res != vk.Success {
		return vkError("vkEnumeratePhysicalDevices", res)
	}

	requirements := deviceRequirements{
		SamplerAnisotropy:    true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		queueInfo, ok := d.deviceMeetsRequirements(candidate, &requirements)
		if !ok {
			continue
		}

		discrete := properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
		if d.physicalDevice != nil && !discrete {
			continue
		}

		d.physicalDevice = candidate
		d.properties = properties
		d.graphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		d.presentQueueIndex = queueInfo.PresentFamilyIndex

		if discrete {
			break
		}
	}

	if d.physicalDevice == nil {
		err := fmt.Errorf("no physical device meets the engine requirements")
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("selected device %s (graphics family %d, present family %d)",
		trimNul(d.properties.DeviceName[:]), d.graphicsQueueIndex, d.presentQueueIndex)
	core.LogDebug("driver version %d.%d.%d, api version %d.%d.%d",
		vk.Version(d.properties.DriverVersion).Major(),
		vk.Version(d.properties.DriverVersion).Minor(),
		vk.Version(d.properties.DriverVersion).Patch(),
		vk.Version(d.properties.ApiVersion).Major(),
		vk.Version(d.properties.ApiVersion).Minor(),
		vk.Version(d.properties.ApiVersion).Patch())
	return nil
}

func (d *Device) deviceMeetsRequirements(device vk.PhysicalDevice, requirements *deviceRequirements) (queueFamilyInfo, bool) {
	info := queueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	for i := range families {
		families[i].Deref()

		if info.GraphicsFamilyIndex == -1 && families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			info.GraphicsFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), d.context.Surface, &supportsPresent); res != vk.Success {
			return info, false
		}
		if info.PresentFamilyIndex == -1 && supportsPresent == vk.True {
			info.PresentFamilyIndex = int32(i)
		}
	}

	if info.GraphicsFamilyIndex == -1 || info.PresentFamilyIndex == -1 {
		return info, false
	}

	support, err := d.querySwapchainSupport(device)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogDebug("device lacks swapchain support, skipping")
		return info, false
	}

	var availableCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableCount, nil); res != vk.Success {
		return info, false
	}
	available := make([]vk.ExtensionProperties, availableCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableCount, available); res != vk.Success {
		return info, false
	}
	for _, required := range requirements.DeviceExtensionNames {
		found := false
		for i := range available {
			available[i].Deref()
			if trimNul(available[i].ExtensionName[:]) == required {
				found = true
				break
			}
		}
		if !found {
			core.LogDebug("device lacks extension %s, skipping", required)
			return info, false
		}
	}

	if requirements.SamplerAnisotropy {
		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(device, &features)
		features.Deref()
		if features.SamplerAnisotropy == vk.False {
			core.LogDebug("device lacks sampler anisotropy, skipping")
			return info, false
		}
	}

	return info, true
}

func (d *Device) createLogicalDevice() error {
	indices := []uint32{uint32(d.graphicsQueueIndex)}
	if d.presentQueueIndex != d.graphicsQueueIndex {
		indices = append(indices, uint32(d.presentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if d.hasDeviceExtension("VK_KHR_portability_subset") {
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: safeStrings(extensionNames),
	}

	if res := vk.CreateDevice(d.physicalDevice, &deviceCreateInfo, d.context.Allocator, &d.logical); res != vk.Success {
		err := vkError("vkCreateDevice", res)
		core.LogError(err.Error())
		return err
	}

	vk.GetDeviceQueue(d.logical, uint32(d.graphicsQueueIndex), 0, &d.graphicsQueue)
	vk.GetDeviceQueue(d.logical, uint32(d.presentQueueIndex), 0, &d.presentQueue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.graphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(d.logical, &poolCreateInfo, d.context.Allocator, &d.commandPool); res != vk.Success {
		err := vkError("vkCreateCommandPool", res)
		core.LogError(err.Error())
		return err
	}

	core.LogDebug("logical device, queues and command pool created")
	return nil
}

func (d *Device) hasDeviceExtension(name string) bool {
	var availableCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(d.physicalDevice, "", &availableCount, nil); res != vk.Success {
		return false
	}
	available := make([]vk.ExtensionProperties, availableCount)
	if res := vk.EnumerateDeviceExtensionProperties(d.physicalDevice, "", &availableCount, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if trimNul(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (d *Device) querySwapchainSupport(device vk.PhysicalDevice) (swapchainSupport, error) {
	var support swapchainSupport

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(device, d.context.Surface, &support.Capabilities); res != vk.Success {
		return support, vkError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	support.Capabilities.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(device, d.context.Surface, &formatCount, nil); res != vk.Success {
		return support, vkError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(device, d.context.Surface, &formatCount, support.Formats); res != vk.Success {
			return support, vkError("vkGetPhysicalDeviceSurfaceFormats", res)
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(device, d.context.Surface, &modeCount, nil); res != vk.Success {
		return support, vkError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	if modeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(device, d.context.Surface, &modeCount, support.PresentModes); res != vk.Success {
			return support, vkError("vkGetPhysicalDeviceSurfacePresentModes", res)
		}
	}

	return support, nil
}

// detectDepthFormat picks the first depth format with optimal-tiling
// attachment support out of the usual candidates.
func (d *Device) detectDepthFormat() error {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.physicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			d.depthFormat = candidate
			return nil
		}
	}
	err := fmt.Errorf("no supported depth format found")
	core.LogError(err.Error())
	return err
}

// Submit hands one recorded command buffer to the graphics queue. Queue
// access is serialized against staging uploads through the lock pool.
func (d *Device) Submit(info gpu.SubmitInfo) error {
	cmd, ok := info.CommandBuffer.(*CommandBuffer)
	if !ok || cmd == nil {
		err := fmt.Errorf("submit: command buffer was not created by this device")
		core.LogError(err.Error())
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd.handle},
	}
	if info.WaitSemaphore != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{info.WaitSemaphore.(*Semaphore).handle}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if info.SignalSemaphore != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{info.SignalSemaphore.(*Semaphore).handle}
	}

	fence := vk.NullFence
	if info.Fence != nil {
		fence = info.Fence.(*Fence).handle
	}

	return d.locks.SafeCall(queueManagement, func() error {
		if res := vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
			err := fmt.Errorf("failed to submit command buffer: %w", vkError("vkQueueSubmit", res))
			core.LogError(err.Error())
			return err
		}
		return nil
	})
}

// WaitIdle blocks until the device finished all submitted work.
func (d *Device) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.logical); res != vk.Success {
		err := fmt.Errorf("failed to wait for device idle: %w", vkError("vkDeviceWaitIdle", res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// Destroy tears down the device and the instance state. The swapchain and
// every object created through the device must already be gone.
func (d *Device) Destroy() {
	if d.logical != nil {
		vk.DeviceWaitIdle(d.logical)
		vk.DestroyCommandPool(d.logical, d.commandPool, d.context.Allocator)
		vk.DestroyDevice(d.logical, d.context.Allocator)
		d.logical = nil
	}
	d.graphicsQueue = nil
	d.presentQueue = nil
	d.physicalDevice = nil

	if d.context.Surface != vk.NullSurface {
		vk.DestroySurface(d.context.Instance, d.context.Surface, d.context.Allocator)
		d.context.Surface = vk.NullSurface
	}
	if d.context.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.context.Instance, d.context.debugCallback, d.context.Allocator)
		d.context.debugCallback = vk.NullDebugReportCallback
	}
	if d.context.Instance != nil {
		vk.DestroyInstance(d.context.Instance, d.context.Allocator)
		d.context.Instance = nil
	}
}
