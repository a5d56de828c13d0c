package scene

import (
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const ErrTypeUnknownCamera = "unknown_camera"

// Cameras is a registry of cameras addressed by integer ids. Ids start at 1
// and are never reused; at most one camera is focused at any time.
type Cameras struct {
	cameras map[int]*Camera
	nextID  int
	focused int
}

func NewCameras() *Cameras {
	return &Cameras{
		cameras: make(map[int]*Camera),
		nextID:  1,
	}
}

// Create registers a new camera with the default field of view and returns
// its id.
func (c *Cameras) Create() (int, *Camera) {
	return c.Add(NewCamera(DefaultFOV))
}

// Add registers an existing camera and returns its id.
func (c *Cameras) Add(camera *Camera) (int, *Camera) {
	id := c.nextID
	c.nextID++
	c.cameras[id] = camera
	return id, camera
}

// Destroy removes a camera. Destroying the focused camera clears the focus;
// unknown ids are ignored.
func (c *Cameras) Destroy(id int) {
	delete(c.cameras, id)
	if c.focused == id {
		c.focused = 0
	}
}

// Focus marks the camera with the given id as focused.
func (c *Cameras) Focus(id int) error {
	if _, ok := c.cameras[id]; !ok {
		return errors.New("camera not found").
			WithType(ErrTypeUnknownCamera).
			WithTag("id", id)
	}
	c.focused = id
	return nil
}

// Get returns the camera with the given id.
func (c *Cameras) Get(id int) (*Camera, bool) {
	cam, ok := c.cameras[id]
	return cam, ok
}

// Focused returns the focused camera and its id.
func (c *Cameras) Focused() (int, *Camera, bool) {
	cam, ok := c.cameras[c.focused]
	if !ok {
		return 0, nil, false
	}
	return c.focused, cam, true
}

// Len returns the number of registered cameras.
func (c *Cameras) Len() int {
	return len(c.cameras)
}

// IDs returns the registered camera ids in ascending order.
func (c *Cameras) IDs() []int {
	ids := make([]int, 0, len(c.cameras))
	for id := range c.cameras {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
