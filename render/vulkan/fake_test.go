package vulkan

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/renderer/logger"
)

type logEntry struct {
	Area  string
	Text  string
	Level logger.Level
}

type recordingSink struct {
	entries []logEntry
}

func (s *recordingSink) Log(area, text string, level logger.Level) {
	s.entries = append(s.entries, logEntry{Area: area, Text: text, Level: level})
}

func (s *recordingSink) count(level logger.Level, substr string) int {
	n := 0
	for _, e := range s.entries {
		if e.Level == level && strings.Contains(e.Text, substr) {
			n++
		}
	}
	return n
}

type eventLog struct {
	events []string
}

func (l *eventLog) add(event string) {
	l.events = append(l.events, event)
}

func (l *eventLog) index(event string) int {
	for i, e := range l.events {
		if e == event {
			return i
		}
	}
	return -1
}

func (l *eventLog) last(event string) int {
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i] == event {
			return i
		}
	}
	return -1
}

func (l *eventLog) count(event string) int {
	n := 0
	for _, e := range l.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeSurface struct {
	width, height int
}

func (s *fakeSurface) Native() *sdl.Window { return nil }

func (s *fakeSurface) PixelExtent() (int, int) { return s.width, s.height }

// fakeInstance hands out a fakeDevice and records instance-level calls.
type fakeInstance struct {
	log *eventLog

	required   []string
	extensions map[string]bool
	layers     map[string]bool
	devices    []physicalDevice
	support    surfaceSupport

	createErr  error
	surfaceErr error
	deviceErr  error

	info           instanceInfo
	deviceFamilies []int
	device         *fakeDevice
}

func newFakeInstance() *fakeInstance {
	log := &eventLog{}
	return &fakeInstance{
		log:        log,
		required:   []string{khr_surface.ExtensionName, "VK_KHR_xlib_surface"},
		extensions: map[string]bool{khr_surface.ExtensionName: true, "VK_KHR_xlib_surface": true},
		layers:     map[string]bool{"VK_LAYER_KHRONOS_validation": true},
		devices: []physicalDevice{
			{
				Name: "fake discrete",
				Type: core1_0.PhysicalDeviceTypeDiscreteGPU,
				Families: []queueFamily{
					{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer, Present: true},
					{Flags: core1_0.QueueTransfer},
				},
				Extensions: map[string]bool{
					khr_swapchain.ExtensionName:         true,
					dynamicRenderingExtensionName: true,
				},
			},
		},
		support: surfaceSupport{
			Capabilities: khr_surface.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  3,
				MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
		},
		device: newFakeDevice(log),
	}
}

func (i *fakeInstance) RequiredExtensions() ([]string, error) {
	return i.required, nil
}

func (i *fakeInstance) AvailableExtensions() (map[string]bool, error) {
	return i.extensions, nil
}

func (i *fakeInstance) AvailableLayers() (map[string]bool, error) {
	return i.layers, nil
}

func (i *fakeInstance) CreateInstance(info instanceInfo) error {
	if i.createErr != nil {
		return i.createErr
	}
	i.info = info
	i.log.add("CreateInstance")
	return nil
}

func (i *fakeInstance) DestroyInstance() {
	i.log.add("DestroyInstance")
}

func (i *fakeInstance) CreateSurface() error {
	if i.surfaceErr != nil {
		return i.surfaceErr
	}
	i.log.add("CreateSurface")
	return nil
}

func (i *fakeInstance) Surface() khr_surface.Surface {
	var surface khr_surface.Surface
	return surface
}

func (i *fakeInstance) DestroySurface() {
	i.log.add("DestroySurface")
}

func (i *fakeInstance) SurfaceSupport(device physicalDevice) (surfaceSupport, error) {
	return i.support, nil
}

func (i *fakeInstance) PhysicalDevices() ([]physicalDevice, error) {
	return i.devices, nil
}

func (i *fakeInstance) CreateDevice(device physicalDevice, families []int, extensions []string) (deviceDriver, error) {
	if i.deviceErr != nil {
		return nil, i.deviceErr
	}
	i.deviceFamilies = families
	i.log.add("CreateDevice")
	return i.device, nil
}

// fakeDevice simulates the GPU side of the frame loop. Handles are zero
// values, so per-slot state is keyed by the synchronizer's current slot.
// A slot's submission stays in flight until its fence is waited on.
type fakeDevice struct {
	log  *eventLog
	slot func() int

	imageCount int
	nextImage  int

	inFlight      [FrameCount]bool
	fenceSignaled [FrameCount]bool
	// overlaps counts slot reuse while the slot's previous submission was
	// still executing.
	overlaps int
	// earlyResets counts fence resets before the fence was signaled.
	earlyResets int
	// hangs counts waits on a fence that nothing will ever signal.
	hangs int

	waitResult     common.VkResult
	acquireResults []common.VkResult
	presentResults []common.VkResult
	createFenceErr error
	// beginErr and submitErr fail the next call only. Empty batches are not
	// affected by submitErr.
	beginErr           error
	submitErr          error
	createSwapchainErr error
	// createPoolErrAt fails the nth command pool creation, counting from 1.
	createPoolErrAt int
	poolFamilies    []int

	swapchainInfos []khr_swapchain.SwapchainCreateInfo
	renderings     []renderingInfo
	barriers       []core1_0.ImageMemoryBarrier
	submits        []core1_0.SubmitInfo
	presents       []khr_swapchain.PresentInfo
	acquireTimeout time.Duration
}

func newFakeDevice(log *eventLog) *fakeDevice {
	return &fakeDevice{
		log:        log,
		imageCount: 3,
		waitResult: core1_0.VKSuccess,
	}
}

func (d *fakeDevice) currentSlot() int {
	if d.slot == nil {
		return 0
	}
	return d.slot()
}

func (d *fakeDevice) GetQueue(family int) core1_0.Queue {
	var queue core1_0.Queue
	return queue
}

func (d *fakeDevice) WaitIdle() error {
	d.log.add("WaitIdle")
	for i := range d.inFlight {
		if d.inFlight[i] {
			d.inFlight[i] = false
			d.fenceSignaled[i] = true
		}
	}
	return nil
}

func (d *fakeDevice) QueueWaitIdle(queue core1_0.Queue) error {
	d.log.add("QueueWaitIdle")
	return nil
}

func (d *fakeDevice) Destroy() {
	d.log.add("DestroyDevice")
}

func (d *fakeDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	d.log.add("CreateSemaphore")
	var semaphore core1_0.Semaphore
	return semaphore, nil
}

func (d *fakeDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.log.add("DestroySemaphore")
}

func (d *fakeDevice) CreateFence(signaled bool) (core1_0.Fence, error) {
	var fence core1_0.Fence
	if d.createFenceErr != nil {
		return fence, d.createFenceErr
	}
	d.log.add("CreateFence")
	for i := range d.fenceSignaled {
		d.fenceSignaled[i] = signaled
	}
	return fence, nil
}

func (d *fakeDevice) DestroyFence(fence core1_0.Fence) {
	d.log.add("DestroyFence")
}

func (d *fakeDevice) WaitForFence(fence core1_0.Fence, timeout time.Duration) (common.VkResult, error) {
	d.log.add("WaitForFence")
	slot := d.currentSlot()
	if !d.fenceSignaled[slot] && !d.inFlight[slot] {
		d.hangs++
	}
	if d.waitResult != core1_0.VKSuccess {
		return d.waitResult, nil
	}

	d.inFlight[slot] = false
	d.fenceSignaled[slot] = true
	return core1_0.VKSuccess, nil
}

func (d *fakeDevice) ResetFence(fence core1_0.Fence) error {
	d.log.add("ResetFence")
	slot := d.currentSlot()
	if !d.fenceSignaled[slot] {
		d.earlyResets++
	}
	d.fenceSignaled[slot] = false
	return nil
}

func (d *fakeDevice) CreateCommandPool(family int) (core1_0.CommandPool, error) {
	var pool core1_0.CommandPool
	if d.createPoolErrAt == len(d.poolFamilies)+1 {
		return pool, errors.New("out of device memory")
	}
	d.log.add("CreateCommandPool")
	d.poolFamilies = append(d.poolFamilies, family)
	return pool, nil
}

func (d *fakeDevice) DestroyCommandPool(pool core1_0.CommandPool) {
	d.log.add("DestroyCommandPool")
}

func (d *fakeDevice) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error) {
	d.log.add("AllocateCommandBuffers")
	return make([]core1_0.CommandBuffer, count), nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers ...core1_0.CommandBuffer) {
	d.log.add("FreeCommandBuffers")
}

func (d *fakeDevice) ResetCommandBuffer(buffer core1_0.CommandBuffer) error {
	d.log.add("ResetCommandBuffer")
	if d.inFlight[d.currentSlot()] {
		d.overlaps++
	}
	return nil
}

func (d *fakeDevice) BeginCommandBuffer(buffer core1_0.CommandBuffer) error {
	d.log.add("BeginCommandBuffer")
	if err := d.beginErr; err != nil {
		d.beginErr = nil
		return err
	}
	return nil
}

func (d *fakeDevice) EndCommandBuffer(buffer core1_0.CommandBuffer) error {
	d.log.add("EndCommandBuffer")
	return nil
}

func (d *fakeDevice) CmdImageBarrier(buffer core1_0.CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error {
	d.log.add("CmdImageBarrier")
	d.barriers = append(d.barriers, barrier)
	return nil
}

func (d *fakeDevice) CmdBeginRendering(buffer core1_0.CommandBuffer, info renderingInfo) error {
	d.log.add("CmdBeginRendering")
	d.renderings = append(d.renderings, info)
	return nil
}

func (d *fakeDevice) CmdEndRendering(buffer core1_0.CommandBuffer) {
	d.log.add("CmdEndRendering")
}

func (d *fakeDevice) QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error {
	d.log.add("QueueSubmit")
	if err := d.submitErr; err != nil && len(submit.CommandBuffers) > 0 {
		d.submitErr = nil
		return err
	}
	d.submits = append(d.submits, submit)
	if fence == nil {
		return nil
	}

	slot := d.currentSlot()
	if d.inFlight[slot] {
		d.overlaps++
	}
	d.inFlight[slot] = true
	d.fenceSignaled[slot] = false
	return nil
}

func (d *fakeDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	d.log.add("CreateSwapchain")
	d.swapchainInfos = append(d.swapchainInfos, info)
	var swapchain khr_swapchain.Swapchain
	if d.createSwapchainErr != nil {
		return swapchain, d.createSwapchainErr
	}
	return swapchain, nil
}

func (d *fakeDevice) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.log.add("DestroySwapchain")
}

func (d *fakeDevice) GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	return make([]core1_0.Image, d.imageCount), nil
}

func (d *fakeDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	d.log.add("CreateImageView")
	var view core1_0.ImageView
	return view, nil
}

func (d *fakeDevice) DestroyImageView(view core1_0.ImageView) {
	d.log.add("DestroyImageView")
}

func (d *fakeDevice) AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore core1_0.Semaphore) (int, common.VkResult, error) {
	d.log.add("AcquireNextImage")
	d.acquireTimeout = timeout

	res := core1_0.VKSuccess
	if len(d.acquireResults) > 0 {
		res = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
	}

	index := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return index, res, nil
}

func (d *fakeDevice) QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error) {
	d.log.add("QueuePresent")
	d.presents = append(d.presents, info)

	res := core1_0.VKSuccess
	if len(d.presentResults) > 0 {
		res = d.presentResults[0]
		d.presentResults = d.presentResults[1:]
	}
	return res, nil
}

// newTestRenderer builds a renderer over instance with the fake device wired
// to the renderer's current slot.
func newTestRenderer(instance *fakeInstance, surface *fakeSurface, sink *recordingSink, opts Options) (*Renderer, error) {
	r, err := newRenderer(instance, surface, sink, opts)
	if err != nil {
		return nil, err
	}
	instance.device.slot = r.frames.CurrentFrame
	return r, nil
}
