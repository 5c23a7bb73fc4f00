package trail

import (
	"OcularBiomarker/pkg/geometry"
)

const DefaultCapacity = 20

// Trail is a fixed-capacity FIFO of gaze points. It is not safe for
// concurrent use; Store implementations guard it.
type Trail struct {
	buf   []geometry.Vector
	start int
	size  int
}

func New(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{buf: make([]geometry.Vector, capacity)}
}

// Push appends p, evicting the oldest point when the trail is full.
func (t *Trail) Push(p geometry.Vector) {
	if t.size < len(t.buf) {
		t.buf[(t.start+t.size)%len(t.buf)] = p
		t.size++
		return
	}
	t.buf[t.start] = p
	t.start = (t.start + 1) % len(t.buf)
}

// Points returns a copy ordered oldest to newest.
func (t *Trail) Points() []geometry.Vector {
	out := make([]geometry.Vector, t.size)
	for i := 0; i < t.size; i++ {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}

func (t *Trail) Len() int {
	return t.size
}

func (t *Trail) Cap() int {
	return len(t.buf)
}

// Segments pairs consecutive points for line rendering.
func Segments(points []geometry.Vector) [][2]geometry.Vector {
	if len(points) < 2 {
		return nil
	}
	out := make([][2]geometry.Vector, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		out = append(out, [2]geometry.Vector{points[i-1], points[i]})
	}
	return out
}
