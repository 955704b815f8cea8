package render

import (
	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/renderer/gfx"
	"github.com/vkngwrapper/renderer/logger"
)

const openGLArea = "opengl"

// openGL is a placeholder backend. It draws nothing but holds callers to the
// same begin/finish ordering as the Vulkan backend.
type openGL struct {
	sink       logger.Sink
	clearColor [4]float32
	recording  bool
	begins     uint64
	finishes   uint64
}

func newOpenGL(sink logger.Sink) *openGL {
	sink.Log(openGLArea, "using stub backend, nothing will be drawn", logger.Info)
	return &openGL{sink: sink}
}

func (g *openGL) SetClearColor(r, gr, b, a float32) {
	g.clearColor = [4]float32{r, gr, b, a}
}

func (g *openGL) Begin(clear bool) error {
	if g.recording {
		return ErrAlreadyRecording
	}
	g.recording = true
	g.begins++
	return nil
}

func (g *openGL) Finish() error {
	if !g.recording {
		return ErrNotRecording
	}
	g.recording = false
	g.finishes++
	return nil
}

func (g *openGL) Render(mesh gfx.Mesh, transform gfx.Transform) error {
	if !g.recording {
		return errors.Wrapf(ErrNotRecording, "render mesh %d", mesh.ID)
	}
	return nil
}

func (g *openGL) Destroy() {
	if g.begins != g.finishes {
		g.sink.Log(openGLArea, "destroyed with an unfinished frame", logger.Warn)
	}
}
