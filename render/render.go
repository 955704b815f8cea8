// Package render is the platform-neutral front of the renderer. A Renderer
// holds exactly one backend, picked by platform when it is opened, and
// forwards every call to it.
package render

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/renderer/gfx"
	"github.com/vkngwrapper/renderer/logger"
	"github.com/vkngwrapper/renderer/render/vulkan"
)

const area = "render"

// Surface is the window a backend draws into.
type Surface = vulkan.Surface

var (
	ErrNotRecording     = vulkan.ErrNotRecording
	ErrAlreadyRecording = vulkan.ErrAlreadyRecording
)

// Backend is the contract every platform implementation satisfies. Begin and
// Finish alternate; Render is only valid between them.
type Backend interface {
	SetClearColor(r, g, b, a float32)
	Begin(clear bool) error
	Finish() error
	Render(mesh gfx.Mesh, transform gfx.Transform) error
	Destroy()
}

type Renderer struct {
	platform gfx.Platform
	backend  Backend
	sink     logger.Sink
}

var osExit = os.Exit

// New opens a renderer with default options. Failure is fatal: it is logged
// once through sink and the process exits with status 1.
func New(surface Surface, platform gfx.Platform, sink logger.Sink) *Renderer {
	if sink == nil {
		sink = logger.Discard
	}

	r, err := Open(surface, platform, sink, vulkan.DefaultOptions())
	if err != nil {
		sink.Log(area, fmt.Sprintf("failed to create %s renderer: %v", platform, err), logger.Error)
		osExit(1)
		return nil
	}
	return r
}

// Open builds the backend for platform. opts only applies to Vulkan.
func Open(surface Surface, platform gfx.Platform, sink logger.Sink, opts vulkan.Options) (*Renderer, error) {
	if sink == nil {
		sink = logger.Discard
	}

	var backend Backend
	switch platform {
	case gfx.Vulkan:
		vk, err := vulkan.New(surface, sink, opts)
		if err != nil {
			return nil, err
		}
		backend = vk
	case gfx.OpenGL:
		backend = newOpenGL(sink)
	default:
		return nil, errors.Newf("unsupported platform %s", platform)
	}

	return newRenderer(platform, backend, sink), nil
}

func newRenderer(platform gfx.Platform, backend Backend, sink logger.Sink) *Renderer {
	return &Renderer{platform: platform, backend: backend, sink: sink}
}

func (r *Renderer) Platform() gfx.Platform {
	return r.platform
}

// Backend exposes the active backend, for platform-specific queries such as
// Vulkan frame statistics.
func (r *Renderer) Backend() Backend {
	return r.backend
}

func (r *Renderer) warn(op string, err error) {
	if err != nil {
		r.sink.Log(area, fmt.Sprintf("%s: %v", op, err), logger.Warn)
	}
}

// SetClearColor stores the color the next cleared frame uses.
func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.backend.SetClearColor(red, green, blue, alpha)
}

// Begin starts a frame and reports whether one is open. A false result has
// already been logged; the caller skips Finish for that frame.
func (r *Renderer) Begin(clear bool) bool {
	err := r.backend.Begin(clear)
	r.warn("begin", err)
	return err == nil
}

func (r *Renderer) Finish() {
	r.warn("finish", r.backend.Finish())
}

func (r *Renderer) Render(mesh gfx.Mesh, transform gfx.Transform) {
	r.warn("render", r.backend.Render(mesh, transform))
}

// Destroy waits for outstanding GPU work and releases the backend.
func (r *Renderer) Destroy() {
	if r.backend == nil {
		return
	}
	r.backend.Destroy()
	r.backend = nil
}
