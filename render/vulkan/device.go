package vulkan

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/renderer/logger"
)

// deviceContext owns the instance, surface and logical device, along with
// the two queues the renderer uses.
type deviceContext struct {
	instance instanceDriver
	device   deviceDriver
	physical physicalDevice

	graphicsFamily int
	graphicsQueue  core1_0.Queue
	transferFamily int
	transferQueue  core1_0.Queue

	// graphicsPool backs the per-frame command buffers and one-shot work.
	graphicsPool core1_0.CommandPool
	hasPool      bool

	// transferPool lives on the transfer family and holds transferBuffer,
	// which uploads record into.
	transferPool    core1_0.CommandPool
	transferBuffer  core1_0.CommandBuffer
	hasTransferPool bool
}

func newDeviceContext(instance instanceDriver, sink logger.Sink, opts Options) (ctx *deviceContext, err error) {
	ctx = &deviceContext{instance: instance}

	required, err := instance.RequiredExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sdl instance extensions")
	}

	available, err := instance.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate instance extensions")
	}

	if missing := missingExtensions(available, required); len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingExtension, "required instance extension '%s'", missing[0])
	}

	var layers []string
	if opts.Validation {
		availableLayers, err := instance.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "failed to enumerate instance layers")
		}

		if missing := missingExtensions(availableLayers, opts.ValidationLayers); len(missing) > 0 {
			return nil, errors.Wrapf(ErrMissingLayer, "validation layer '%s' (install the LunarG Vulkan SDK)", missing[0])
		}
		layers = opts.ValidationLayers
	}

	err = instance.CreateInstance(instanceInfo{
		ApplicationName: opts.ApplicationName,
		EngineName:      opts.EngineName,
		Layers:          layers,
		Extensions:      required,
		Debug:           opts.Validation,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create instance")
	}
	sink.Log(area, "instance successfully created", logger.Info)

	if err := instance.CreateSurface(); err != nil {
		instance.DestroyInstance()
		return nil, errors.Wrap(err, "sdl surface creation failed")
	}

	// From here on every failure has a surface and an instance to release.
	defer func() {
		if err != nil {
			ctx.release()
			ctx = nil
		}
	}()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return ctx, errors.Wrap(err, "failed to enumerate physical devices")
	}

	choice, ok := pickPhysicalDevice(devices)
	if !ok {
		return ctx, ErrNoSuitableDevice
	}

	ctx.physical = choice.Device
	ctx.graphicsFamily = choice.GraphicsFamily
	ctx.transferFamily = choice.TransferFamily
	sink.Log(area, fmt.Sprintf("using device '%s' (pipeline cache %s)", choice.Device.Name, choice.Device.PipelineCacheUUID), logger.Info)

	if missing := missingExtensions(choice.Device.Extensions, deviceExtensions); len(missing) > 0 {
		return ctx, errors.Wrapf(ErrMissingExtension, "required device extension '%s'", strings.Join(missing, "', '"))
	}

	ctx.device, err = instance.CreateDevice(choice.Device, uniqueFamilies(ctx.graphicsFamily, ctx.transferFamily), deviceExtensions)
	if err != nil {
		return ctx, errors.Wrap(err, "failed to create logical device")
	}

	ctx.graphicsQueue = ctx.device.GetQueue(ctx.graphicsFamily)
	ctx.transferQueue = ctx.device.GetQueue(ctx.transferFamily)

	ctx.graphicsPool, err = ctx.device.CreateCommandPool(ctx.graphicsFamily)
	if err != nil {
		return ctx, errors.Wrap(err, "failed to create graphics command pool")
	}
	ctx.hasPool = true

	ctx.transferPool, err = ctx.device.CreateCommandPool(ctx.transferFamily)
	if err != nil {
		return ctx, errors.Wrap(err, "failed to create transfer command pool")
	}
	ctx.hasTransferPool = true

	buffers, err := ctx.device.AllocateCommandBuffers(ctx.transferPool, 1)
	if err != nil {
		return ctx, errors.Wrap(err, "failed to allocate transfer command buffer")
	}
	ctx.transferBuffer = buffers[0]

	return ctx, nil
}

func (c *deviceContext) PipelineCacheUUID() uuid.UUID {
	return c.physical.PipelineCacheUUID
}

// submitOnce records fn into a throwaway command buffer, submits it on the
// graphics queue and blocks until the queue is idle.
func (c *deviceContext) submitOnce(fn func(buffer core1_0.CommandBuffer) error) error {
	buffers, err := c.device.AllocateCommandBuffers(c.graphicsPool, 1)
	if err != nil {
		return err
	}
	buffer := buffers[0]
	defer c.device.FreeCommandBuffers(buffer)

	if err := c.device.BeginCommandBuffer(buffer); err != nil {
		return err
	}

	if err := fn(buffer); err != nil {
		return err
	}

	if err := c.device.EndCommandBuffer(buffer); err != nil {
		return err
	}

	err = c.device.QueueSubmit(c.graphicsQueue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{buffer},
	})
	if err != nil {
		return err
	}

	return c.device.QueueWaitIdle(c.graphicsQueue)
}

// release destroys what was created, device before surface before
// instance. The caller must have drained the device.
func (c *deviceContext) release() {
	if c.device != nil {
		if c.hasTransferPool {
			c.device.DestroyCommandPool(c.transferPool)
			c.hasTransferPool = false
		}
		if c.hasPool {
			c.device.DestroyCommandPool(c.graphicsPool)
			c.hasPool = false
		}
		c.device.Destroy()
		c.device = nil
	}

	c.instance.DestroySurface()
	c.instance.DestroyInstance()
}
