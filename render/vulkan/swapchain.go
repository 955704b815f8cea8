package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// swapchain owns the presentable image chain and one view per image. The
// images themselves belong to the presentation engine.
type swapchain struct {
	handle      khr_swapchain.Swapchain
	format      khr_surface.SurfaceFormat
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D
	images      []core1_0.Image
	views       []core1_0.ImageView

	// pretransitioned is set once every image sits in the present layout.
	pretransitioned bool
}

func chooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(availableFormats) == 0 {
		return khr_surface.SurfaceFormat{}, errors.New("surface reports no formats")
	}

	for _, format := range availableFormats {
		if format.Format == core1_0.FormatR8G8B8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format, nil
		}
	}

	return availableFormats[0], nil
}

func choosePresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// chooseImageCount clamps desired into [MinImageCount, MaxImageCount], where
// a zero maximum means unbounded.
func chooseImageCount(desired int, capabilities khr_surface.SurfaceCapabilities) int {
	imageCount := desired
	if imageCount < capabilities.MinImageCount {
		imageCount = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func chooseExtent(width, height int, capabilities khr_surface.SurfaceCapabilities) core1_0.Extent2D {
	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

func colorSubresource() core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// newSwapchain builds a chain for the surface. A non-zero old chain is passed
// as the retiring swapchain; the caller still owns and destroys it.
func newSwapchain(ctx *deviceContext, width, height int, opts Options, old khr_swapchain.Swapchain) (*swapchain, error) {
	support, err := ctx.instance.SurfaceSupport(ctx.physical)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface support")
	}

	surfaceFormat, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		return nil, err
	}

	s := &swapchain{
		format:      surfaceFormat,
		presentMode: choosePresentMode(support.PresentModes),
		extent:      chooseExtent(width, height, support.Capabilities),
	}

	s.handle, err = ctx.device.CreateSwapchain(khr_swapchain.SwapchainCreateInfo{
		Surface: ctx.instance.Surface(),

		MinImageCount:    chooseImageCount(FrameCount, support.Capabilities),
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   core1_0.SharingModeExclusive,
		QueueFamilyIndices: []int{ctx.graphicsFamily},

		PreTransform:   khr_surface.TransformIdentity,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    s.presentMode,
		Clipped:        false,
		OldSwapchain:   old,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create swapchain")
	}

	s.images, err = ctx.device.GetSwapchainImages(s.handle)
	if err != nil {
		s.destroy(ctx.device)
		return nil, errors.Wrap(err, "failed to get swapchain images")
	}

	for _, image := range s.images {
		view, err := ctx.device.CreateImageView(core1_0.ImageViewCreateInfo{
			Image:            image,
			ViewType:         core1_0.ImageViewType2D,
			Format:           s.format.Format,
			SubresourceRange: colorSubresource(),
		})
		if err != nil {
			s.destroy(ctx.device)
			return nil, errors.Wrap(err, "failed to create swapchain image view")
		}

		s.views = append(s.views, view)
	}

	if opts.PretransitionImages {
		if err := s.transitionToPresent(ctx); err != nil {
			s.destroy(ctx.device)
			return nil, errors.Wrap(err, "failed to transition swapchain images")
		}
	}

	return s, nil
}

// transitionToPresent moves every image from the undefined layout to the
// present layout in one blocking submission.
func (s *swapchain) transitionToPresent(ctx *deviceContext) error {
	err := ctx.submitOnce(func(buffer core1_0.CommandBuffer) error {
		for _, image := range s.images {
			err := ctx.device.CmdImageBarrier(buffer, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageBottomOfPipe, core1_0.ImageMemoryBarrier{
				OldLayout:           core1_0.ImageLayoutUndefined,
				NewLayout:           khr_swapchain.ImageLayoutPresentSrc,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image,
				SubresourceRange:    colorSubresource(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.pretransitioned = true
	return nil
}

// initialLayout is the layout an acquired image is in before a frame starts
// recording into it.
func (s *swapchain) initialLayout() core1_0.ImageLayout {
	if s.pretransitioned {
		return khr_swapchain.ImageLayoutPresentSrc
	}
	return core1_0.ImageLayoutUndefined
}

// destroy releases the views before the swapchain that owns their images.
func (s *swapchain) destroy(device deviceDriver) {
	for _, view := range s.views {
		device.DestroyImageView(view)
	}
	s.views = nil
	s.images = nil

	device.DestroySwapchain(s.handle)
	s.handle = khr_swapchain.Swapchain{}
}
