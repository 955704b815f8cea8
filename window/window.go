// Package window owns the SDL video subsystem and the native windows the
// renderer draws into.
//
// Init must be called once by the process entry point before any window is
// opened, and Quit once after the last window has been destroyed. SDL wants
// both on the main OS thread, so callers usually runtime.LockOSThread first.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/renderer/gfx"
)

func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "window: sdl init failed")
	}

	sdl.SetHint(sdl.HINT_VIDEO_X11_NET_WM_BYPASS_COMPOSITOR, "0")
	return nil
}

func Quit() {
	sdl.Quit()
}

type Window struct {
	inner    *sdl.Window
	platform gfx.Platform
}

// Open creates a centered, resizable, high-dpi window prepared for the given
// graphics platform.
func Open(title string, width, height int, platform gfx.Platform) (*Window, error) {
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_ALLOW_HIGHDPI | sdl.WINDOW_RESIZABLE)
	if platform == gfx.OpenGL {
		flags |= sdl.WINDOW_OPENGL
	} else {
		flags |= sdl.WINDOW_VULKAN
	}

	inner, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, int32(width), int32(height), flags)
	if err != nil {
		return nil, errors.Wrapf(err, "window: cannot create %s window", platform)
	}

	return &Window{inner: inner, platform: platform}, nil
}

func (w *Window) Native() *sdl.Window {
	return w.inner
}

func (w *Window) Platform() gfx.Platform {
	return w.platform
}

// PixelExtent reports the drawable size in pixels, which differs from the
// window size on high-dpi displays. A minimized window reports 0x0.
func (w *Window) PixelExtent() (int, int) {
	if (w.inner.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return 0, 0
	}

	var width, height int32
	if w.platform == gfx.OpenGL {
		width, height = w.inner.GLGetDrawableSize()
	} else {
		width, height = w.inner.VulkanGetDrawableSize()
	}
	return int(width), int(height)
}

func (w *Window) Destroy() {
	if w.inner != nil {
		w.inner.Destroy()
		w.inner = nil
	}
}
