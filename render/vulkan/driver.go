package vulkan

import (
	"time"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// instanceInfo is what the device context asks the instance driver to build.
type instanceInfo struct {
	ApplicationName string
	EngineName      string
	Layers          []string
	Extensions      []string
	Debug           bool
}

// queueFamily is the part of a queue family the device context cares about.
type queueFamily struct {
	Flags   core1_0.QueueFlags
	Present bool
}

// physicalDevice is a GPU as seen through the presentation surface.
type physicalDevice struct {
	Handle            core1_0.PhysicalDevice
	Name              string
	Type              core1_0.PhysicalDeviceType
	PipelineCacheUUID uuid.UUID
	Families          []queueFamily
	Extensions        map[string]bool
}

type surfaceSupport struct {
	Capabilities khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// renderingAttachment is one color target of a dynamic render pass.
type renderingAttachment struct {
	ImageView   core1_0.ImageView
	ImageLayout core1_0.ImageLayout
	LoadOp      core1_0.AttachmentLoadOp
	StoreOp     core1_0.AttachmentStoreOp
	ClearValue  core1_0.ClearValue
}

// renderingInfo describes a dynamic render pass. The binding in
// dynamic_rendering.go lays it out for vkCmdBeginRendering.
type renderingInfo struct {
	RenderArea       core1_0.Rect2D
	LayerCount       int
	ColorAttachments []renderingAttachment
}

// instanceDriver covers the instance-level calls made while constructing the
// device context. The vkng implementation lives in vkng.go.
type instanceDriver interface {
	RequiredExtensions() ([]string, error)
	AvailableExtensions() (map[string]bool, error)
	AvailableLayers() (map[string]bool, error)
	CreateInstance(info instanceInfo) error
	DestroyInstance()

	CreateSurface() error
	Surface() khr_surface.Surface
	DestroySurface()
	SurfaceSupport(device physicalDevice) (surfaceSupport, error)

	PhysicalDevices() ([]physicalDevice, error)
	CreateDevice(device physicalDevice, families []int, extensions []string) (deviceDriver, error)
}

// deviceDriver covers every logical-device call made by the swapchain manager
// and the frame synchronizer.
type deviceDriver interface {
	GetQueue(family int) core1_0.Queue
	WaitIdle() error
	QueueWaitIdle(queue core1_0.Queue) error
	Destroy()

	CreateSemaphore() (core1_0.Semaphore, error)
	DestroySemaphore(semaphore core1_0.Semaphore)
	CreateFence(signaled bool) (core1_0.Fence, error)
	DestroyFence(fence core1_0.Fence)
	WaitForFence(fence core1_0.Fence, timeout time.Duration) (common.VkResult, error)
	ResetFence(fence core1_0.Fence) error

	CreateCommandPool(family int) (core1_0.CommandPool, error)
	DestroyCommandPool(pool core1_0.CommandPool)
	AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error)
	FreeCommandBuffers(buffers ...core1_0.CommandBuffer)
	ResetCommandBuffer(buffer core1_0.CommandBuffer) error
	BeginCommandBuffer(buffer core1_0.CommandBuffer) error
	EndCommandBuffer(buffer core1_0.CommandBuffer) error
	CmdImageBarrier(buffer core1_0.CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error
	CmdBeginRendering(buffer core1_0.CommandBuffer, info renderingInfo) error
	CmdEndRendering(buffer core1_0.CommandBuffer)
	QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error

	CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error)
	DestroySwapchain(swapchain khr_swapchain.Swapchain)
	GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error)
	CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error)
	DestroyImageView(view core1_0.ImageView)
	AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore core1_0.Semaphore) (int, common.VkResult, error)
	QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error)
}
