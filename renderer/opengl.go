package renderer

import (
	"math/rand"
	"runtime"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/scenelab/scenelab/accumulation"
	"github.com/scenelab/scenelab/scene"
	"github.com/scenelab/scenelab/types"
)

const (
	// Degrees of yaw/pitch per pixel of cursor movement.
	mouseSensitivityX float32 = 0.25
	mouseSensitivityY float32 = 0.25

	// Camera movement speed
	cameraMoveSpeed float32 = 0.05

	// Height in pixels for stacked series widgets
	stackedSeriesHeight int = 20
)

func init() {
	// glfw event handling must run on the main thread.
	runtime.LockOSThread()
}

// An interactive opengl-based renderer that displays the view of the focused
// camera and lets the user fly it around.
type interactiveGLRenderer struct {
	*defaultRenderer

	// opengl handles
	window    *glfw.Window
	texture   uint32
	texFbo    uint32
	texW      int
	texH      int
	pixels    []uint8
	glStarted bool

	// state
	cameraID      int
	lastCursorPos types.Vec2
	mousePressed  bool

	// Display options
	showUI                bool
	blockAssignmentSeries *stackedSeries
}

// Create a new interactive opengl renderer for the focused camera.
func NewInteractive(sc *scene.Scene, cameras *scene.Cameras, opts Options) (Renderer, error) {
	base, err := NewDefault(sc, cameras, opts)
	if err != nil {
		return nil, err
	}

	r := &interactiveGLRenderer{defaultRenderer: base}

	cameraID, _, ok := cameras.Focused()
	if !ok {
		cameraID, _ = cameras.Create()
		_ = cameras.Focus(cameraID)
	}

	if err = r.initGL(opts); err != nil {
		r.Close()
		return nil, err
	}
	if err = r.attachCamera(cameraID); err != nil {
		r.Close()
		return nil, err
	}
	r.initUI()

	return r, nil
}

func (r *interactiveGLRenderer) Close() {
	r.releaseTarget()
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
	if r.glStarted {
		glfw.Terminate()
		r.glStarted = false
	}
	r.defaultRenderer.Close()
}

func (r *interactiveGLRenderer) initGL(opts Options) error {
	if err := glfw.Init(); err != nil {
		return displayErr("failed to initialize glfw", err)
	}
	r.glStarted = true

	width, height := opts.FrameW, opts.FrameH
	if width <= 0 || height <= 0 {
		width, height = accumulation.DefaultWidth, accumulation.DefaultHeight
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	window, err := glfw.CreateWindow(width, height, "scenelab", nil, nil)
	if err != nil {
		return displayErr("could not create opengl window", err)
	}
	r.window = window
	r.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return displayErr("could not init opengl", err)
	}

	// Bind event callbacks
	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)

	return nil
}

// Bind the display to a camera, creating a view for it if needed. Views of
// previously displayed cameras keep their samples but only the displayed one
// is traced. The view uses the window size unless the display texture cannot
// be created at that size, in which case both fall back to the minimum safe
// resolution.
func (r *interactiveGLRenderer) attachCamera(cameraID int) error {
	width, height := r.window.GetFramebufferSize()
	if err := r.CreateView(cameraID, width, height); err != nil {
		return err
	}
	r.cameraID = cameraID

	view, _ := r.View(cameraID)
	w, h := view.Resolution()
	if err := r.createTarget(w, h); err == nil {
		return nil
	}

	r.logger.Warningf("could not create %dx%d display target; falling back to %dx%d", w, h, accumulation.MinSafeWidth, accumulation.MinSafeHeight)
	if err := r.ResizeView(cameraID, accumulation.MinSafeWidth, accumulation.MinSafeHeight); err != nil {
		return err
	}
	return r.createTarget(accumulation.MinSafeWidth, accumulation.MinSafeHeight)
}

// Setup a texture for image data and attach it to an FBO we can blit from.
func (r *interactiveGLRenderer) createTarget(width, height int) error {
	r.releaseTarget()

	gl.GenTextures(1, &r.texture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	gl.GenFramebuffers(1, &r.texFbo)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, r.texture, 0)
	status := gl.CheckFramebufferStatus(gl.READ_FRAMEBUFFER)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		r.releaseTarget()
		return errors.New("display framebuffer is incomplete").
			WithType(ErrTypeDisplay).
			WithTag("status", status).
			WithTag("width", width).
			WithTag("height", height)
	}

	r.texW, r.texH = width, height
	r.pixels = make([]uint8, 4*width*height)
	return nil
}

func (r *interactiveGLRenderer) releaseTarget() {
	if r.texFbo != 0 {
		gl.DeleteFramebuffers(1, &r.texFbo)
		r.texFbo = 0
	}
	if r.texture != 0 {
		gl.DeleteTextures(1, &r.texture)
		r.texture = 0
	}
	r.pixels = nil
}

func (r *interactiveGLRenderer) Render() error {
	for !r.window.ShouldClose() {
		glfw.PollEvents()

		view, ok := r.View(r.cameraID)
		if !ok {
			return errUnknownView(r.cameraID)
		}

		// Stop tracing once enough samples have been accumulated; moving
		// the camera starts over.
		if !r.Converged(r.cameraID) {
			if err := r.RenderView(r.cameraID); err != nil {
				return err
			}
		}
		r.present(view)
	}
	return nil
}

// Upload the tone mapped accumulation buffer and blit it to the window.
func (r *interactiveGLRenderer) present(view *accumulation.View) {
	front := view.Front()
	if front == nil || front.Width != r.texW || front.Height != r.texH {
		return
	}

	ToneMapInto(r.pixels, front, r.options.Exposure)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(r.texW), int32(r.texH), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(r.pixels))

	// Row 0 of the image is the top row so flip it while blitting.
	winW, winH := r.window.GetFramebufferSize()
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
	gl.BlitFramebuffer(0, 0, int32(r.texW), int32(r.texH), 0, int32(winH), int32(winW), 0, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	// Display tracer stats
	if r.showUI {
		r.renderUI(winW, winH)
	}

	r.window.SwapBuffers()
}

func (r *interactiveGLRenderer) initUI() {
	r.blockAssignmentSeries = makeStackedSeries(len(r.tracers), r.texW)
}

func (r *interactiveGLRenderer) onBeforeShowUI() {
	r.blockAssignmentSeries.Clear()
}

// Outline the rows assigned to each tracer and plot the assignment history.
func (r *interactiveGLRenderer) renderUI(winW, winH int) {
	// Setup ortho projection for UI bits
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(r.texW), float64(r.texH), 0, -1, 1)
	gl.Viewport(0, 0, int32(winW), int32(winH))
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	var y int32 = 1
	frameW := int32(r.texW) - 1
	gl.LineWidth(2.0)
	for seriesIndex, blockH := range r.blockAssignments {
		gl.Color3fv(&r.blockAssignmentSeries.colors[seriesIndex][0])
		gl.Begin(gl.LINE_LOOP)
		gl.Vertex2i(0, y)
		gl.Vertex2i(frameW, y)
		gl.Vertex2i(frameW, y+int32(blockH))
		gl.Vertex2i(0, y+int32(blockH))
		gl.End()

		y += int32(blockH)
	}

	for seriesIndex, blockH := range r.blockAssignments {
		r.blockAssignmentSeries.Append(seriesIndex, float32(blockH))
	}
	r.blockAssignmentSeries.Render(r.texH-stackedSeriesHeight, stackedSeriesHeight)
}

func (r *interactiveGLRenderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	var moveDir scene.CameraDirection
	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
		return
	case glfw.KeyUp, glfw.KeyW:
		moveDir = scene.Forward
	case glfw.KeyDown, glfw.KeyS:
		moveDir = scene.Backward
	case glfw.KeyLeft, glfw.KeyA:
		moveDir = scene.Left
	case glfw.KeyRight, glfw.KeyD:
		moveDir = scene.Right
	case glfw.KeyE:
		moveDir = scene.Up
	case glfw.KeyQ:
		moveDir = scene.Down
	case glfw.KeyTab:
		r.showUI = !r.showUI
		if r.showUI {
			r.onBeforeShowUI()
		}
		return
	case glfw.Key1, glfw.Key2, glfw.Key3, glfw.Key4, glfw.Key5, glfw.Key6, glfw.Key7, glfw.Key8, glfw.Key9:
		r.switchCamera(int(key-glfw.Key1) + 1)
		return
	default:
		return
	}

	camera, ok := r.cameras.Get(r.cameraID)
	if !ok {
		return
	}

	// Double speed if shift is pressed
	var speedScaler float32 = 1.0
	if (mods & glfw.ModShift) == glfw.ModShift {
		speedScaler = 2.0
	}
	camera.Move(moveDir, speedScaler*cameraMoveSpeed)
}

// Display the n-th camera (in id order).
func (r *interactiveGLRenderer) switchCamera(n int) {
	ids := r.cameras.IDs()
	if n > len(ids) || ids[n-1] == r.cameraID {
		return
	}

	cameraID := ids[n-1]
	if err := r.cameras.Focus(cameraID); err != nil {
		r.logger.Warningf("could not focus camera %d: %v", cameraID, err)
		return
	}
	if err := r.attachCamera(cameraID); err != nil {
		r.logger.Errorf("could not display camera %d: %v", cameraID, err)
		return
	}
	r.logger.Noticef("switched to camera %d", cameraID)
}

func (r *interactiveGLRenderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}

	r.mousePressed = action == glfw.Press
	if r.mousePressed {
		xPos, yPos := w.GetCursorPos()
		r.lastCursorPos = types.XY(float32(xPos), float32(yPos))
	}
}

func (r *interactiveGLRenderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.mousePressed {
		return
	}

	// Calculate delta movement and apply mouse sensitivity
	newPos := types.XY(float32(xPos), float32(yPos))
	delta := r.lastCursorPos.Sub(newPos)
	r.lastCursorPos = newPos

	// The left mouse button rotates the camera around its position.
	if camera, ok := r.cameras.Get(r.cameraID); ok {
		camera.Rotate(delta[1]*mouseSensitivityY, -delta[0]*mouseSensitivityX)
	}
}

func displayErr(msg string, err error) error {
	return errors.New(msg).WithType(ErrTypeDisplay).Wrap(err)
}

type stackedSeries struct {
	series [][]float32
	colors []types.Vec3
}

func makeStackedSeries(numSeries, histCount int) *stackedSeries {
	s := &stackedSeries{
		series: make([][]float32, numSeries),
		colors: make([]types.Vec3, numSeries),
	}

	for sIndex := 0; sIndex < numSeries; sIndex++ {
		s.series[sIndex] = make([]float32, histCount)
		s.colors[sIndex] = types.Vec3{rand.Float32(), rand.Float32(), 1.0}
	}

	return s
}

// Clear series
func (s *stackedSeries) Clear() {
	for sIndex := range s.series {
		clear(s.series[sIndex])
	}
}

// Shift series values and append new value at the end.
func (s *stackedSeries) Append(seriesIndex int, val float32) {
	if len(s.series[seriesIndex]) == 0 {
		return
	}
	s.series[seriesIndex] = append(s.series[seriesIndex][1:], val)
}

func (s *stackedSeries) Render(rY, rHeight int) {
	if len(s.series) == 0 {
		return
	}

	gl.LineWidth(1.0)
	gl.Begin(gl.LINES)
	for x := 0; x < len(s.series[0]); x++ {
		var sum float32
		var scale float32 = 1.0
		for seriesIndex := range s.series {
			sum += s.series[seriesIndex][x]
		}
		if sum > 0.0 {
			scale = float32(rHeight) / sum
		}

		y := float32(rY)
		for seriesIndex := range s.series {
			sH := s.series[seriesIndex][x] * scale
			gl.Color3fv(&s.colors[seriesIndex][0])
			gl.Vertex2f(float32(x), y)
			gl.Vertex2f(float32(x), y+sH)
			y += sH
		}
	}
	gl.End()
}
