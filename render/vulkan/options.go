package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// FrameCount is the number of frame slots cycled by the synchronizer.
const FrameCount = 2

const area = "vulkan"

var deviceExtensions = []string{khr_swapchain.ExtensionName, dynamicRenderingExtensionName}

var (
	ErrNoSuitableDevice = errors.New("no suitable gpu was found")
	ErrMissingExtension = errors.New("required extension is not supported")
	ErrMissingLayer     = errors.New("required layer is not available")
	ErrNotRecording     = errors.New("no frame is being recorded")
	ErrAlreadyRecording = errors.New("a frame is already being recorded")
	ErrFrameTimeout     = errors.New("frame timeout elapsed")
)

type Options struct {
	ApplicationName string
	EngineName      string

	// Validation enables ValidationLayers and routes their messages to the
	// sink under the "validation" area.
	Validation       bool
	ValidationLayers []string

	// PretransitionImages moves every new swapchain image to the present
	// layout once at creation, so each frame transitions from present-source
	// and can keep the previous contents when begin is asked not to clear.
	PretransitionImages bool

	// RecreateSwapchain rebuilds the swapchain when acquire or present
	// reports it out of date or suboptimal. When false those results are
	// only logged.
	RecreateSwapchain bool

	// FrameTimeout bounds the fence wait and image acquire of every frame.
	// Zero waits forever. When it elapses begin fails with ErrFrameTimeout
	// and the slot is left untouched for the next attempt.
	FrameTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		ApplicationName:     "game",
		EngineName:          "no engine",
		Validation:          true,
		ValidationLayers:    []string{"VK_LAYER_KHRONOS_validation"},
		PretransitionImages: true,
		RecreateSwapchain:   true,
	}
}

func (o Options) timeout() time.Duration {
	if o.FrameTimeout <= 0 {
		return common.NoTimeout
	}
	return o.FrameTimeout
}
