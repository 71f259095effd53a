package views

// Slideshow tracks the visible slide. With no slides every move is a no-op.
type Slideshow struct {
	length int
	index  int
}

func NewSlideshow(length, start int) Slideshow {
	s := Slideshow{length: length}
	return s.Select(start)
}

func (s Slideshow) Index() int { return s.index }
func (s Slideshow) Len() int   { return s.length }

// Controls reports whether prev/next and the dots should be offered.
func (s Slideshow) Controls() bool {
	return s.length > 1
}

func (s Slideshow) Next() Slideshow {
	if s.length == 0 {
		return s
	}
	s.index = (s.index + 1) % s.length
	return s
}

func (s Slideshow) Prev() Slideshow {
	if s.length == 0 {
		return s
	}
	s.index = (s.index - 1 + s.length) % s.length
	return s
}

func (s Slideshow) Select(index int) Slideshow {
	switch {
	case s.length == 0, index < 0:
		s.index = 0
	case index >= s.length:
		s.index = s.length - 1
	default:
		s.index = index
	}
	return s
}
