package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSlides() []Slide {
	return []Slide{
		{Title: "one", Icon: "gauge"},
		{Title: "two", Icon: "palette"},
		{Title: "three", Icon: "database-zap"},
	}
}

func TestCarouselLoopsBothWays(t *testing.T) {
	c := NewCarousel(sampleSlides(), 0)

	assert.Equal(t, "three", c.Prev().Title)
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, "one", c.Next().Title)
	assert.Equal(t, "two", c.Next().Title)
	assert.Equal(t, "three", c.Next().Title)
	assert.Equal(t, "one", c.Next().Title)
}

func TestCarouselDotsMarkOnlyCurrent(t *testing.T) {
	c := NewCarousel(sampleSlides(), 1)

	for step := 0; step < 5; step++ {
		dots := c.Dots()
		require.Len(t, dots, 3)
		active := 0
		for i, dot := range dots {
			assert.Equal(t, i, dot.Index)
			if dot.Active {
				active++
				assert.Equal(t, c.Index(), dot.Index)
			}
		}
		assert.Equal(t, 1, active)
		c.Next()
	}
}

func TestCarouselScrollTo(t *testing.T) {
	c := NewCarousel(sampleSlides(), 0)

	assert.True(t, c.ScrollTo(2))
	assert.Equal(t, "three", c.Current().Title)
	assert.False(t, c.ScrollTo(3))
	assert.False(t, c.ScrollTo(-1))
	assert.Equal(t, 2, c.Index())

	assert.Equal(t, 0, NewCarousel(sampleSlides(), 9).Index())
}

func TestCarouselPeekIndexes(t *testing.T) {
	c := NewCarousel(sampleSlides(), 0)
	assert.Equal(t, 2, c.PrevIndex())
	assert.Equal(t, 1, c.NextIndex())
	assert.Equal(t, 0, c.Index())
}

func TestEmptyCarousel(t *testing.T) {
	var c Carousel
	assert.Equal(t, Slide{}, c.Next())
	assert.Equal(t, Slide{}, c.Prev())
	assert.Empty(t, c.Dots())
	assert.False(t, c.ScrollTo(0))
}

func TestNewCarouselCopiesSlides(t *testing.T) {
	slides := sampleSlides()
	c := NewCarousel(slides, 0)
	slides[0].Title = "changed"
	assert.Equal(t, "one", c.Current().Title)
}

func TestIconSVGFallsBack(t *testing.T) {
	assert.Equal(t, IconSVG("gauge"), IconSVG(" GAUGE "))
	assert.Equal(t, defaultIcon.SVG, IconSVG("unknown"))
	assert.Equal(t, defaultIcon.SVG, IconSVG(""))
	for _, option := range IconOptions() {
		assert.True(t, strings.HasPrefix(IconSVG(option.Key), "<svg"), option.Key)
		assert.NotEqual(t, defaultIcon.SVG, IconSVG(option.Key), option.Key)
	}
}
