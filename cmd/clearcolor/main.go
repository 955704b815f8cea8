// Command clearcolor opens a window and clears it to a solid color every
// frame until the window is closed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/renderer/gfx"
	"github.com/vkngwrapper/renderer/logger"
	"github.com/vkngwrapper/renderer/render"
	"github.com/vkngwrapper/renderer/render/vulkan"
	"github.com/vkngwrapper/renderer/window"
)

var (
	platformName = flag.String("platform", "vulkan", "Graphics platform: vulkan or opengl")
	width        = flag.Int("width", 1280, "Window width")
	height       = flag.Int("height", 720, "Window height")
	validation   = flag.Bool("validation", true, "Enable the Khronos validation layer")
	recreate     = flag.Bool("recreate", true, "Recreate the swapchain when it goes out of date")
	timeout      = flag.Duration("timeout", 0, "Per-frame fence and acquire timeout, 0 waits forever")
	logFile      = flag.String("log", "", "Write log lines to this file instead of stdout")
)

func main() {
	runtime.LockOSThread()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}

func run() error {
	platform, err := gfx.ParsePlatform(*platformName)
	if err != nil {
		return err
	}

	sink := logger.New()
	if *logFile != "" {
		sink, err = logger.NewFile(*logFile)
		if err != nil {
			return err
		}
	}
	defer sink.Close()

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Quit()

	win, err := window.Open("clearcolor", *width, *height, platform)
	if err != nil {
		return err
	}
	defer win.Destroy()

	opts := vulkan.DefaultOptions()
	opts.Validation = *validation
	opts.RecreateSwapchain = *recreate
	opts.FrameTimeout = *timeout

	renderer, err := render.Open(win, platform, sink, opts)
	if err != nil {
		sink.Log("render", fmt.Sprintf("failed to create %s renderer: %v", platform, err), logger.Error)
		return errors.Wrap(err, "renderer")
	}
	defer renderer.Destroy()

	renderer.SetClearColor(0, 1, 0, 1)

	start := hrtime.Now()
	rendering := true

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				}
			}
		}

		if !rendering {
			sdl.Delay(10)
			continue
		}

		if renderer.Begin(true) {
			renderer.Finish()
		}
	}

	if vk, ok := renderer.Backend().(*vulkan.Renderer); ok {
		stats := vk.Stats()
		elapsed := hrtime.Since(start)
		sink.Log("render", fmt.Sprintf("presented %d frames in %s (last frame %s, fence wait %s, %.1f fps)",
			stats.Frames, elapsed.Round(time.Millisecond), stats.LastFrame, stats.FenceWait,
			float64(stats.Frames)/elapsed.Seconds()), logger.Info)
	}

	return nil
}
