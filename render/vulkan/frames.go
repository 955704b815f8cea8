package vulkan

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/renderer/logger"
)

// frame is one reusable slot: a command buffer and the objects that order
// its GPU work.
type frame struct {
	commandBuffer  core1_0.CommandBuffer
	imageAcquired  core1_0.Semaphore
	renderFinished core1_0.Semaphore
	submitFinished core1_0.Fence

	// fenceReset is set between resetting submitFinished and the submission
	// that signals it.
	fenceReset bool
}

// Stats describes the most recent frames.
type Stats struct {
	Frames    uint64
	LastFrame time.Duration
	FenceWait time.Duration
}

// frameSync drives acquire, record, submit and present over FrameCount
// slots. It is not safe for concurrent use.
type frameSync struct {
	ctx       *deviceContext
	swapchain *swapchain
	surface   Surface
	sink      logger.Sink
	opts      Options

	frames       [FrameCount]frame
	currentFrame int
	imageIndex   int
	recording    bool
	stale        bool

	frameStart time.Duration
	stats      Stats
}

func newFrameSync(ctx *deviceContext, sc *swapchain, surface Surface, sink logger.Sink, opts Options) (*frameSync, error) {
	f := &frameSync{
		ctx:       ctx,
		swapchain: sc,
		surface:   surface,
		sink:      sink,
		opts:      opts,
	}

	buffers, err := ctx.device.AllocateCommandBuffers(ctx.graphicsPool, FrameCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate frame command buffers")
	}

	created := 0
	for i := range f.frames {
		fr := &f.frames[i]
		fr.commandBuffer = buffers[i]

		if fr.imageAcquired, err = ctx.device.CreateSemaphore(); err != nil {
			break
		}
		if fr.renderFinished, err = ctx.device.CreateSemaphore(); err != nil {
			ctx.device.DestroySemaphore(fr.imageAcquired)
			break
		}
		// Signaled so the first wait on each slot returns at once.
		if fr.submitFinished, err = ctx.device.CreateFence(true); err != nil {
			ctx.device.DestroySemaphore(fr.imageAcquired)
			ctx.device.DestroySemaphore(fr.renderFinished)
			break
		}
		created++
	}
	if err != nil {
		f.destroyFrames(created)
		ctx.device.FreeCommandBuffers(buffers...)
		return nil, errors.Wrap(err, "failed to create frame sync objects")
	}

	return f, nil
}

// CurrentFrame is the index of the slot the next begin will use.
func (f *frameSync) CurrentFrame() int {
	return f.currentFrame
}

func (f *frameSync) warn(text string) {
	f.sink.Log(area, text, logger.Warn)
}

func (f *frameSync) begin(clear bool, clearColor core1_0.ClearValueFloat) error {
	if f.recording {
		return ErrAlreadyRecording
	}

	fr := &f.frames[f.currentFrame]
	f.frameStart = hrtime.Now()

	// The slot's previous submission must be done before its command buffer
	// and acquire semaphore are reused. A fence that is already reset has no
	// submission behind it and would never signal.
	if !fr.fenceReset {
		res, err := f.ctx.device.WaitForFence(fr.submitFinished, f.opts.timeout())
		switch {
		case err == nil && res == core1_0.VKSuccess:
		case err == nil && res == core1_0.VKTimeout && f.opts.FrameTimeout > 0:
			return errors.Wrapf(ErrFrameTimeout, "waited %s for submit fence of frame %d", f.opts.FrameTimeout, f.currentFrame)
		default:
			f.warn(fmt.Sprintf("failed to wait for submit fence: %s", resultText(res, err)))
		}
	}
	f.stats.FenceWait = hrtime.Since(f.frameStart)

	imageIndex, err := f.acquire(fr)
	if err != nil {
		return err
	}
	f.imageIndex = imageIndex

	if err := f.record(fr, clear, clearColor); err != nil {
		f.abandon(fr)
		return err
	}

	f.recording = true
	return nil
}

// record opens the slot's command buffer and starts rendering into the
// acquired image.
func (f *frameSync) record(fr *frame, clear bool, clearColor core1_0.ClearValueFloat) error {
	if err := f.ctx.device.ResetCommandBuffer(fr.commandBuffer); err != nil {
		return errors.Wrap(err, "failed to reset command buffer")
	}

	if err := f.ctx.device.BeginCommandBuffer(fr.commandBuffer); err != nil {
		return errors.Wrap(err, "failed to begin command buffer")
	}

	err := f.ctx.device.CmdImageBarrier(fr.commandBuffer, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageColorAttachmentOutput, core1_0.ImageMemoryBarrier{
		DstAccessMask:       core1_0.AccessColorAttachmentWrite,
		OldLayout:           f.swapchain.initialLayout(),
		NewLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               f.swapchain.images[f.imageIndex],
		SubresourceRange:    colorSubresource(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to record image barrier")
	}

	colorAttachment := renderingAttachment{
		ImageView:   f.swapchain.views[f.imageIndex],
		ImageLayout: core1_0.ImageLayoutColorAttachmentOptimal,
		LoadOp:      f.loadOp(clear),
		StoreOp:     core1_0.AttachmentStoreOpStore,
	}
	if clear {
		colorAttachment.ClearValue = clearColor
	}

	err = f.ctx.device.CmdBeginRendering(fr.commandBuffer, renderingInfo{
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: f.swapchain.extent,
		},
		LayerCount:       1,
		ColorAttachments: []renderingAttachment{colorAttachment},
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin rendering")
	}
	return nil
}

func (f *frameSync) loadOp(clear bool) core1_0.AttachmentLoadOp {
	switch {
	case clear:
		return core1_0.AttachmentLoadOpClear
	case f.swapchain.pretransitioned:
		return core1_0.AttachmentLoadOpLoad
	}
	return core1_0.AttachmentLoadOpDontCare
}

// acquire fetches the next image, rebuilding the swapchain once if it is
// out of date and recreation is enabled.
func (f *frameSync) acquire(fr *frame) (int, error) {
	for attempt := 0; ; attempt++ {
		imageIndex, res, err := f.ctx.device.AcquireNextImage(f.swapchain.handle, f.opts.timeout(), fr.imageAcquired)
		switch res {
		case core1_0.VKSuccess:
			return imageIndex, nil
		case khr_swapchain.VKSuboptimal:
			f.warn("using suboptimal or out of date swapchain")
			f.stale = true
			return imageIndex, nil
		case khr_swapchain.VKErrorOutOfDate:
			f.warn("using suboptimal or out of date swapchain")
			if !f.opts.RecreateSwapchain || attempt > 0 {
				return 0, errors.Wrap(errOrResult(res, err), "swapchain out of date")
			}
			if err := f.recreate(); err != nil {
				return 0, err
			}
			continue
		case core1_0.VKTimeout, core1_0.VKNotReady:
			return 0, errors.Wrapf(ErrFrameTimeout, "acquiring swapchain image after %s", f.opts.timeout())
		}
		return 0, errors.Wrap(errOrResult(res, err), "failed to acquire swapchain image")
	}
}

func (f *frameSync) finish() error {
	if !f.recording {
		return ErrNotRecording
	}
	f.recording = false
	fr := &f.frames[f.currentFrame]

	if err := f.submit(fr); err != nil {
		f.abandon(fr)
		return err
	}

	res, err := f.ctx.device.QueuePresent(f.ctx.graphicsQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{fr.renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{f.swapchain.handle},
		ImageIndices:   []int{f.imageIndex},
	})
	if err != nil || res != core1_0.VKSuccess {
		f.warn(fmt.Sprintf("failed to present image: %s", resultText(res, err)))
		if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
			f.stale = true
		}
	}

	f.currentFrame = (f.currentFrame + 1) % FrameCount
	f.stats.Frames++
	f.stats.LastFrame = hrtime.Since(f.frameStart)

	if f.stale && f.opts.RecreateSwapchain {
		return f.recreate()
	}
	return nil
}

// submit closes the slot's command buffer and queues it. The fence is reset
// only right before the submission that signals it again.
func (f *frameSync) submit(fr *frame) error {
	f.ctx.device.CmdEndRendering(fr.commandBuffer)

	err := f.ctx.device.CmdImageBarrier(fr.commandBuffer, core1_0.PipelineStageColorAttachmentOutput, core1_0.PipelineStageBottomOfPipe, core1_0.ImageMemoryBarrier{
		SrcAccessMask:       core1_0.AccessColorAttachmentWrite,
		OldLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout:           khr_swapchain.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               f.swapchain.images[f.imageIndex],
		SubresourceRange:    colorSubresource(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to record present barrier")
	}

	if err := f.ctx.device.EndCommandBuffer(fr.commandBuffer); err != nil {
		return errors.Wrap(err, "failed to end command buffer")
	}

	if err := f.resetFence(fr); err != nil {
		return err
	}

	err = f.ctx.device.QueueSubmit(f.ctx.graphicsQueue, &fr.submitFinished, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{fr.imageAcquired},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{fr.commandBuffer},
		SignalSemaphores: []core1_0.Semaphore{fr.renderFinished},
	})
	if err != nil {
		return errors.Wrap(err, "failed to submit frame")
	}
	fr.fenceReset = false
	return nil
}

func (f *frameSync) resetFence(fr *frame) error {
	if fr.fenceReset {
		return nil
	}
	if err := f.ctx.device.ResetFence(fr.submitFinished); err != nil {
		return errors.Wrap(err, "failed to reset submit fence")
	}
	fr.fenceReset = true
	return nil
}

// abandon retires a frame that acquired an image but never submitted it. An
// empty batch consumes the pending imageAcquired signal and re-arms the slot
// fence. The image stays acquired until the swapchain is rebuilt, so the
// swapchain is marked stale.
func (f *frameSync) abandon(fr *frame) {
	f.stale = true

	var fence *core1_0.Fence
	if err := f.resetFence(fr); err != nil {
		f.warn(err.Error())
	} else {
		fence = &fr.submitFinished
	}

	err := f.ctx.device.QueueSubmit(f.ctx.graphicsQueue, fence, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{fr.imageAcquired},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
	})
	if err != nil {
		f.warn(fmt.Sprintf("failed to release abandoned frame %d: %v", f.currentFrame, err))
		return
	}
	if fence != nil {
		fr.fenceReset = false
	}
}

// recreate rebuilds the swapchain at the surface's current pixel size. A
// zero-sized surface keeps the old swapchain until it has an area again. The
// old chain is destroyed only once its replacement exists; on failure it is
// kept and the swapchain stays stale.
func (f *frameSync) recreate() error {
	width, height := f.surface.PixelExtent()
	if width == 0 || height == 0 {
		return nil
	}

	if err := f.ctx.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}

	sc, err := newSwapchain(f.ctx, width, height, f.opts, f.swapchain.handle)
	if err != nil {
		f.stale = true
		return errors.Wrap(err, "failed to recreate swapchain")
	}

	old := *f.swapchain
	*f.swapchain = *sc
	old.destroy(f.ctx.device)

	f.stale = false
	f.sink.Log(area, fmt.Sprintf("swapchain recreated at %dx%d", sc.extent.Width, sc.extent.Height), logger.Info)
	return nil
}

func (f *frameSync) destroyFrames(count int) {
	for i := 0; i < count; i++ {
		fr := &f.frames[i]
		f.ctx.device.DestroySemaphore(fr.imageAcquired)
		f.ctx.device.DestroySemaphore(fr.renderFinished)
		f.ctx.device.DestroyFence(fr.submitFinished)
	}
}

// destroy releases every slot. The caller must have drained the device.
func (f *frameSync) destroy() {
	f.destroyFrames(FrameCount)

	buffers := make([]core1_0.CommandBuffer, 0, FrameCount)
	for _, fr := range f.frames {
		buffers = append(buffers, fr.commandBuffer)
	}
	f.ctx.device.FreeCommandBuffers(buffers...)
}

func errOrResult(res common.VkResult, err error) error {
	if err != nil {
		return err
	}
	return errors.Newf("vulkan result %s", res)
}

func resultText(res common.VkResult, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprint(res)
}
