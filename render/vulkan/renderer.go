package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/renderer/gfx"
	"github.com/vkngwrapper/renderer/logger"
)

// Surface is the window the renderer presents to.
type Surface interface {
	Native() *sdl.Window
	// PixelExtent is the drawable size in pixels, 0x0 while minimized.
	PixelExtent() (int, int)
}

// Renderer is the Vulkan backend. Every method must be called from the
// thread that created it.
type Renderer struct {
	ctx        *deviceContext
	swapchain  *swapchain
	frames     *frameSync
	sink       logger.Sink
	clearColor core1_0.ClearValueFloat
	destroyed  bool
}

// New brings up the instance, device, swapchain and frame slots for surface.
func New(surface Surface, sink logger.Sink, opts Options) (*Renderer, error) {
	if sink == nil {
		sink = logger.Discard
	}
	sink.Log(area, "init begin", logger.Info)

	instance, err := newVKInstance(surface.Native(), sink)
	if err != nil {
		return nil, err
	}

	return newRenderer(instance, surface, sink, opts)
}

func newRenderer(instance instanceDriver, surface Surface, sink logger.Sink, opts Options) (*Renderer, error) {
	ctx, err := newDeviceContext(instance, sink, opts)
	if err != nil {
		return nil, err
	}

	width, height := surface.PixelExtent()
	sc, err := newSwapchain(ctx, width, height, opts, khr_swapchain.Swapchain{})
	if err != nil {
		ctx.release()
		return nil, err
	}

	frames, err := newFrameSync(ctx, sc, surface, sink, opts)
	if err != nil {
		sc.destroy(ctx.device)
		ctx.release()
		return nil, err
	}

	sink.Log(area, "renderer init done", logger.Info)
	return &Renderer{
		ctx:       ctx,
		swapchain: sc,
		frames:    frames,
		sink:      sink,
	}, nil
}

// SetClearColor sets the color used by Begin when asked to clear. Components
// are linear floats in [0,1].
func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.clearColor = core1_0.ClearValueFloat{red, green, blue, alpha}
}

// Begin waits for the current slot, acquires an image and starts recording
// into it.
func (r *Renderer) Begin(clear bool) error {
	return r.frames.begin(clear, r.clearColor)
}

// Finish ends recording, submits the frame and presents it.
func (r *Renderer) Finish() error {
	return r.frames.finish()
}

// Render records a draw of mesh at transform into the current frame. Mesh
// drawing is not implemented, so inside a frame this does nothing.
func (r *Renderer) Render(mesh gfx.Mesh, transform gfx.Transform) error {
	if !r.frames.recording {
		return errors.Wrapf(ErrNotRecording, "render mesh %d", mesh.ID)
	}
	return nil
}

func (r *Renderer) Stats() Stats {
	return r.frames.stats
}

// PipelineCacheUUID identifies the selected device's pipeline cache format.
func (r *Renderer) PipelineCacheUUID() uuid.UUID {
	return r.ctx.PipelineCacheUUID()
}

// TransferQueue returns the transfer queue and its family index.
func (r *Renderer) TransferQueue() (core1_0.Queue, int) {
	return r.ctx.transferQueue, r.ctx.transferFamily
}

// TransferCommandBuffer is allocated from a pool on the transfer family and
// may be submitted to TransferQueue.
func (r *Renderer) TransferCommandBuffer() core1_0.CommandBuffer {
	return r.ctx.transferBuffer
}

// Destroy drains the device and releases everything in reverse creation
// order. Calling it more than once is a no-op.
func (r *Renderer) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true

	if err := r.ctx.device.WaitIdle(); err != nil {
		r.sink.Log(area, "failed to wait for device idle: "+err.Error(), logger.Warn)
	}

	r.frames.destroy()
	r.swapchain.destroy(r.ctx.device)
	r.ctx.release()
}
