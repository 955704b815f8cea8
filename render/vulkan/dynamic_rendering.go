package vulkan

/*
#include <stdint.h>
#include <stdlib.h>

#if defined(_WIN32)
#define VKAPI_PTR __stdcall
#else
#define VKAPI_PTR
#endif

#define VK_STRUCTURE_TYPE_RENDERING_INFO 1000044000
#define VK_STRUCTURE_TYPE_RENDERING_ATTACHMENT_INFO 1000044001
#define VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_DYNAMIC_RENDERING_FEATURES 1000044003

typedef struct VkCommandBuffer_T* VkCommandBuffer;
typedef uint64_t VkImageView;

typedef struct VkRect2D {
	int32_t x;
	int32_t y;
	uint32_t width;
	uint32_t height;
} VkRect2D;

typedef union VkClearValue {
	float float32[4];
	int32_t int32[4];
	uint32_t uint32[4];
} VkClearValue;

typedef struct VkRenderingAttachmentInfo {
	int32_t sType;
	const void* pNext;
	VkImageView imageView;
	int32_t imageLayout;
	uint32_t resolveMode;
	VkImageView resolveImageView;
	int32_t resolveImageLayout;
	int32_t loadOp;
	int32_t storeOp;
	VkClearValue clearValue;
} VkRenderingAttachmentInfo;

typedef struct VkRenderingInfo {
	int32_t sType;
	const void* pNext;
	uint32_t flags;
	VkRect2D renderArea;
	uint32_t layerCount;
	uint32_t viewMask;
	uint32_t colorAttachmentCount;
	const VkRenderingAttachmentInfo* pColorAttachments;
	const VkRenderingAttachmentInfo* pDepthAttachment;
	const VkRenderingAttachmentInfo* pStencilAttachment;
} VkRenderingInfo;

typedef struct VkPhysicalDeviceDynamicRenderingFeatures {
	int32_t sType;
	void* pNext;
	uint32_t dynamicRendering;
} VkPhysicalDeviceDynamicRenderingFeatures;

typedef void (VKAPI_PTR *PFN_vkCmdBeginRendering)(VkCommandBuffer commandBuffer, const VkRenderingInfo* pRenderingInfo);
typedef void (VKAPI_PTR *PFN_vkCmdEndRendering)(VkCommandBuffer commandBuffer);

void cgoCmdBeginRendering(PFN_vkCmdBeginRendering fn, VkCommandBuffer commandBuffer, const VkRenderingInfo* pRenderingInfo) {
	fn(commandBuffer, pRenderingInfo);
}

void cgoCmdEndRendering(PFN_vkCmdEndRendering fn, VkCommandBuffer commandBuffer) {
	fn(commandBuffer);
}
*/
import "C"
import (
	"unsafe"

	"github.com/CannibalVox/cgoparam"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
)

// dynamicRenderingExtensionName is VK_KHR_dynamic_rendering, promoted to core
// in Vulkan 1.3.
const dynamicRenderingExtensionName = "VK_KHR_dynamic_rendering"

// dynamicRenderingFeatures enables dynamic rendering when chained onto
// core1_0.DeviceCreateInfo.
type dynamicRenderingFeatures struct {
	DynamicRendering bool

	common.NextOptions
}

func (o dynamicRenderingFeatures) PopulateCPointer(allocator *cgoparam.Allocator, preallocatedPointer unsafe.Pointer, next unsafe.Pointer) (unsafe.Pointer, error) {
	if preallocatedPointer == nil {
		preallocatedPointer = allocator.Malloc(int(unsafe.Sizeof(C.VkPhysicalDeviceDynamicRenderingFeatures{})))
	}

	info := (*C.VkPhysicalDeviceDynamicRenderingFeatures)(preallocatedPointer)
	info.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_DYNAMIC_RENDERING_FEATURES
	info.pNext = next
	info.dynamicRendering = C.uint32_t(0)

	if o.DynamicRendering {
		info.dynamicRendering = C.uint32_t(1)
	}

	return preallocatedPointer, nil
}

// dynamicRendering holds the device-level entry points for
// vkCmdBeginRendering and vkCmdEndRendering.
type dynamicRendering struct {
	beginRendering C.PFN_vkCmdBeginRendering
	endRendering   C.PFN_vkCmdEndRendering
}

func loadDynamicRendering(driver core1_0.DeviceDriver) (*dynamicRendering, error) {
	arena := cgoparam.GetAlloc()
	defer cgoparam.ReturnAlloc(arena)

	procAddr := func(names ...string) unsafe.Pointer {
		for _, name := range names {
			if ptr := driver.Loader().LoadProcAddr((*loader.Char)(arena.CString(name))); ptr != nil {
				return ptr
			}
		}
		return nil
	}

	begin := procAddr("vkCmdBeginRenderingKHR", "vkCmdBeginRendering")
	end := procAddr("vkCmdEndRenderingKHR", "vkCmdEndRendering")
	if begin == nil || end == nil {
		return nil, errors.Wrap(ErrMissingExtension, "dynamic rendering entry points not found")
	}

	return &dynamicRendering{
		beginRendering: (C.PFN_vkCmdBeginRendering)(begin),
		endRendering:   (C.PFN_vkCmdEndRendering)(end),
	}, nil
}

func (r *dynamicRendering) CmdBeginRendering(buffer core1_0.CommandBuffer, info renderingInfo) error {
	if !buffer.Initialized() {
		return errors.New("command buffer cannot be uninitialized")
	}

	arena := cgoparam.GetAlloc()
	defer cgoparam.ReturnAlloc(arena)

	cInfo, err := populateRenderingInfo(arena, info)
	if err != nil {
		return err
	}

	C.cgoCmdBeginRendering(r.beginRendering, C.VkCommandBuffer(unsafe.Pointer(buffer.Handle())), cInfo)
	return nil
}

func (r *dynamicRendering) CmdEndRendering(buffer core1_0.CommandBuffer) {
	C.cgoCmdEndRendering(r.endRendering, C.VkCommandBuffer(unsafe.Pointer(buffer.Handle())))
}

// populateRenderingInfo lays info out in allocator memory. Only color
// attachments are supported.
func populateRenderingInfo(allocator *cgoparam.Allocator, info renderingInfo) (*C.VkRenderingInfo, error) {
	if info.LayerCount < 1 {
		return nil, errors.Newf("rendering layer count must be positive, got %d", info.LayerCount)
	}

	cInfo := (*C.VkRenderingInfo)(allocator.Malloc(int(unsafe.Sizeof(C.VkRenderingInfo{}))))
	cInfo.sType = C.VK_STRUCTURE_TYPE_RENDERING_INFO
	cInfo.pNext = nil
	cInfo.flags = 0
	cInfo.renderArea = C.VkRect2D{
		x:      C.int32_t(info.RenderArea.Offset.X),
		y:      C.int32_t(info.RenderArea.Offset.Y),
		width:  C.uint32_t(info.RenderArea.Extent.Width),
		height: C.uint32_t(info.RenderArea.Extent.Height),
	}
	cInfo.layerCount = C.uint32_t(info.LayerCount)
	cInfo.viewMask = 0
	cInfo.colorAttachmentCount = C.uint32_t(len(info.ColorAttachments))
	cInfo.pColorAttachments = nil
	cInfo.pDepthAttachment = nil
	cInfo.pStencilAttachment = nil

	count := len(info.ColorAttachments)
	if count == 0 {
		return cInfo, nil
	}

	attachmentPtr := (*C.VkRenderingAttachmentInfo)(allocator.Malloc(count * int(unsafe.Sizeof(C.VkRenderingAttachmentInfo{}))))
	attachments := unsafe.Slice(attachmentPtr, count)
	for i, attachment := range info.ColorAttachments {
		c := &attachments[i]
		c.sType = C.VK_STRUCTURE_TYPE_RENDERING_ATTACHMENT_INFO
		c.pNext = nil
		c.imageView = C.VkImageView(attachment.ImageView.Handle())
		c.imageLayout = C.int32_t(attachment.ImageLayout)
		c.resolveMode = 0
		c.resolveImageView = 0
		c.resolveImageLayout = 0
		c.loadOp = C.int32_t(attachment.LoadOp)
		c.storeOp = C.int32_t(attachment.StoreOp)
		c.clearValue = C.VkClearValue{}
		if attachment.ClearValue != nil {
			attachment.ClearValue.PopulateValueUnion(unsafe.Pointer(&c.clearValue))
		}
	}
	cInfo.pColorAttachments = attachmentPtr

	return cInfo, nil
}
