package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/renderer/logger"
)

// vkInstance drives the real loader through vkngwrapper, creating the
// surface from an SDL window.
type vkInstance struct {
	window *sdl.Window
	sink   logger.Sink

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	portability bool
}

func newVKInstance(window *sdl.Window, sink logger.Sink) (*vkInstance, error) {
	globalDriver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "cannot load vulkan")
	}

	return &vkInstance{window: window, sink: sink, globalDriver: globalDriver}, nil
}

func (i *vkInstance) RequiredExtensions() ([]string, error) {
	extensions := i.window.VulkanGetInstanceExtensions()
	if len(extensions) == 0 {
		return nil, errors.New("sdl reported no vulkan instance extensions")
	}
	return extensions, nil
}

func (i *vkInstance) AvailableExtensions() (map[string]bool, error) {
	extensions, _, err := i.globalDriver.AvailableExtensions()
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(extensions))
	for name := range extensions {
		names[name] = true
	}
	i.portability = names[khr_portability_enumeration.ExtensionName]
	return names, nil
}

func (i *vkInstance) AvailableLayers() (map[string]bool, error) {
	layers, _, err := i.globalDriver.AvailableLayers()
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(layers))
	for name := range layers {
		names[name] = true
	}
	return names, nil
}

func (i *vkInstance) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logDebug,
	}
}

func (i *vkInstance) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := logger.Warn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = logger.Error
	}
	i.sink.Log("validation", "["+msgType.String()+"] "+data.Message, level)
	return false
}

func (i *vkInstance) CreateInstance(info instanceInfo) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:       info.ApplicationName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            info.EngineName,
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_2,
		EnabledLayerNames:     info.Layers,
		EnabledExtensionNames: append([]string(nil), info.Extensions...),
	}

	if i.portability {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if info.Debug {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		instanceOptions.Next = i.debugMessengerOptions()
	}

	var err error
	i.instanceDriver, _, err = i.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return err
	}

	if info.Debug {
		i.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(i.instanceDriver)
		i.debugMessenger, _, err = i.debugDriver.CreateDebugUtilsMessenger(nil, i.debugMessengerOptions())
		if err != nil {
			i.DestroyInstance()
			return err
		}
	}

	i.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(i.instanceDriver)
	return nil
}

func (i *vkInstance) DestroyInstance() {
	if i.debugMessenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.debugMessenger, nil)
		i.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if i.instanceDriver != nil {
		i.instanceDriver.DestroyInstance(nil)
		i.instanceDriver = nil
	}
}

func (i *vkInstance) CreateSurface() error {
	surface, err := vkng_sdl2.CreateSurface(i.instanceDriver.Instance(), i.surfaceExtension, i.window)
	if err != nil {
		return err
	}

	i.surface = surface
	return nil
}

func (i *vkInstance) Surface() khr_surface.Surface {
	return i.surface
}

func (i *vkInstance) DestroySurface() {
	if i.surface.Initialized() {
		i.surfaceExtension.DestroySurface(i.surface, nil)
		i.surface = khr_surface.Surface{}
	}
}

func (i *vkInstance) SurfaceSupport(device physicalDevice) (surfaceSupport, error) {
	var details surfaceSupport

	capabilities, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(i.surface, device.Handle)
	if err != nil {
		return details, err
	}
	details.Capabilities = *capabilities

	details.Formats, _, err = i.surfaceExtension.GetPhysicalDeviceSurfaceFormats(i.surface, device.Handle)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = i.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(i.surface, device.Handle)
	return details, err
}

func (i *vkInstance) PhysicalDevices() ([]physicalDevice, error) {
	handles, _, err := i.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]physicalDevice, 0, len(handles))
	for _, handle := range handles {
		properties, err := i.instanceDriver.GetPhysicalDeviceProperties(handle)
		if err != nil {
			return nil, err
		}

		device := physicalDevice{
			Handle:            handle,
			Name:              properties.DriverName,
			Type:              properties.DriverType,
			PipelineCacheUUID: properties.PipelineCacheUUID,
			Extensions:        map[string]bool{},
		}

		for familyIdx, family := range i.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(handle) {
			supported, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceSupport(i.surface, handle, familyIdx)
			if err != nil {
				return nil, err
			}

			device.Families = append(device.Families, queueFamily{Flags: family.QueueFlags, Present: supported})
		}

		extensions, _, err := i.instanceDriver.EnumerateDeviceExtensionProperties(handle)
		if err != nil {
			return nil, err
		}
		for name := range extensions {
			device.Extensions[name] = true
		}

		devices = append(devices, device)
	}

	return devices, nil
}

func (i *vkInstance) CreateDevice(device physicalDevice, families []int, extensions []string) (deviceDriver, error) {
	queuePriority := float32(1.0)
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	for _, family := range families {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	extensionNames := append([]string(nil), extensions...)

	// Makes the device usable through MoltenVK
	if device.Extensions[khr_portability_subset.ExtensionName] {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	deviceOptions := core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledExtensionNames: extensionNames,
	}
	deviceOptions.Next = dynamicRenderingFeatures{
		DynamicRendering: true,
	}

	deviceDriver, _, err := i.instanceDriver.CreateDevice(device.Handle, nil, deviceOptions)
	if err != nil {
		return nil, err
	}

	rendering, err := loadDynamicRendering(deviceDriver)
	if err != nil {
		deviceDriver.DestroyDevice(nil)
		return nil, err
	}

	return &vkDevice{
		driver:    deviceDriver,
		swapchain: khr_swapchain.CreateExtensionDriverFromCoreDriver(deviceDriver),
		rendering: rendering,
	}, nil
}

// vkDevice forwards device-level calls to the vkngwrapper drivers.
type vkDevice struct {
	driver    core1_0.CoreDeviceDriver
	swapchain khr_swapchain.ExtensionDriver
	rendering *dynamicRendering
}

func (d *vkDevice) GetQueue(family int) core1_0.Queue {
	return d.driver.GetQueue(family, 0)
}

func (d *vkDevice) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *vkDevice) QueueWaitIdle(queue core1_0.Queue) error {
	_, err := d.driver.QueueWaitIdle(queue)
	return err
}

func (d *vkDevice) Destroy() {
	d.driver.DestroyDevice(nil)
}

func (d *vkDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (d *vkDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.driver.DestroySemaphore(semaphore, nil)
}

func (d *vkDevice) CreateFence(signaled bool) (core1_0.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	return fence, err
}

func (d *vkDevice) DestroyFence(fence core1_0.Fence) {
	d.driver.DestroyFence(fence, nil)
}

func (d *vkDevice) WaitForFence(fence core1_0.Fence, timeout time.Duration) (common.VkResult, error) {
	return d.driver.WaitForFences(true, timeout, fence)
}

func (d *vkDevice) ResetFence(fence core1_0.Fence) error {
	_, err := d.driver.ResetFences(fence)
	return err
}

func (d *vkDevice) CreateCommandPool(family int) (core1_0.CommandPool, error) {
	pool, _, err := d.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: family,
	})
	return pool, err
}

func (d *vkDevice) DestroyCommandPool(pool core1_0.CommandPool) {
	d.driver.DestroyCommandPool(pool, nil)
}

func (d *vkDevice) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	return buffers, err
}

func (d *vkDevice) FreeCommandBuffers(buffers ...core1_0.CommandBuffer) {
	d.driver.FreeCommandBuffers(buffers...)
}

func (d *vkDevice) ResetCommandBuffer(buffer core1_0.CommandBuffer) error {
	_, err := d.driver.ResetCommandBuffer(buffer, 0)
	return err
}

func (d *vkDevice) BeginCommandBuffer(buffer core1_0.CommandBuffer) error {
	_, err := d.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

func (d *vkDevice) EndCommandBuffer(buffer core1_0.CommandBuffer) error {
	_, err := d.driver.EndCommandBuffer(buffer)
	return err
}

func (d *vkDevice) CmdImageBarrier(buffer core1_0.CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error {
	return d.driver.CmdPipelineBarrier(buffer, srcStage, dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
}

func (d *vkDevice) CmdBeginRendering(buffer core1_0.CommandBuffer, info renderingInfo) error {
	return d.rendering.CmdBeginRendering(buffer, info)
}

func (d *vkDevice) CmdEndRendering(buffer core1_0.CommandBuffer) {
	d.rendering.CmdEndRendering(buffer)
}

func (d *vkDevice) QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error {
	_, err := d.driver.QueueSubmit(queue, fence, submit)
	return err
}

func (d *vkDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	swapchain, _, err := d.swapchain.CreateSwapchain(nil, info)
	return swapchain, err
}

func (d *vkDevice) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.swapchain.DestroySwapchain(swapchain, nil)
}

func (d *vkDevice) GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	images, _, err := d.swapchain.GetSwapchainImages(swapchain)
	return images, err
}

func (d *vkDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	view, _, err := d.driver.CreateImageView(nil, info)
	return view, err
}

func (d *vkDevice) DestroyImageView(view core1_0.ImageView) {
	d.driver.DestroyImageView(view, nil)
}

func (d *vkDevice) AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore core1_0.Semaphore) (int, common.VkResult, error) {
	return d.swapchain.AcquireNextImage(swapchain, timeout, &semaphore, nil)
}

func (d *vkDevice) QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error) {
	return d.swapchain.QueuePresent(queue, info)
}
