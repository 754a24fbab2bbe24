package view

// Slide is one panel of static marketing copy.
type Slide struct {
	Title       string
	Description string
	Icon        string
}

// Dot is a position indicator under the carousel.
type Dot struct {
	Index  int
	Active bool
}

// Carousel tracks the selected slide of a fixed slide list. Navigation
// wraps around both ends. The zero value is an empty carousel.
type Carousel struct {
	slides []Slide
	index  int
}

// NewCarousel copies slides and selects start when it is in range.
func NewCarousel(slides []Slide, start int) *Carousel {
	c := &Carousel{slides: append([]Slide(nil), slides...)}
	c.ScrollTo(start)
	return c
}

// Len returns the number of slides.
func (c *Carousel) Len() int {
	return len(c.slides)
}

// Index returns the selected position.
func (c *Carousel) Index() int {
	return c.index
}

// Slides returns a copy of every slide.
func (c *Carousel) Slides() []Slide {
	return append([]Slide(nil), c.slides...)
}

// Current returns the selected slide, or a zero Slide when empty.
func (c *Carousel) Current() Slide {
	if len(c.slides) == 0 {
		return Slide{}
	}
	return c.slides[c.index]
}

// Next advances one slide, looping to the first after the last.
func (c *Carousel) Next() Slide {
	c.index = c.NextIndex()
	return c.Current()
}

// Prev steps back one slide, looping to the last before the first.
func (c *Carousel) Prev() Slide {
	c.index = c.PrevIndex()
	return c.Current()
}

// NextIndex is the position Next would select, without moving.
func (c *Carousel) NextIndex() int {
	if len(c.slides) == 0 {
		return 0
	}
	return (c.index + 1) % len(c.slides)
}

// PrevIndex is the position Prev would select, without moving.
func (c *Carousel) PrevIndex() int {
	if len(c.slides) == 0 {
		return 0
	}
	return (c.index - 1 + len(c.slides)) % len(c.slides)
}

// ScrollTo selects slide i. Out of range positions are ignored.
func (c *Carousel) ScrollTo(i int) bool {
	if i < 0 || i >= len(c.slides) {
		return false
	}
	c.index = i
	return true
}

// Dots returns one indicator per slide; only the selected one is active.
func (c *Carousel) Dots() []Dot {
	dots := make([]Dot, len(c.slides))
	for i := range dots {
		dots[i] = Dot{Index: i, Active: i == c.index}
	}
	return dots
}
