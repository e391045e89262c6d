package geo

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBlendLocalFirstNoOrigin(t *testing.T) {
	c := qt.New(t)

	window := []place{at(1, barcelona), at(2, london), nowhere(3), at(4, newYork)}

	// Without an origin the window passes through unchanged, truncated.
	c.Assert(ids(BlendLocalFirst(nil, 25, window, 3)), qt.DeepEquals, []int{1, 2, 3})
	c.Assert(ids(BlendLocalFirst(nil, 25, window, 10)), qt.DeepEquals, []int{1, 2, 3, 4})
}

func TestBlendLocalFirstPartition(t *testing.T) {
	c := qt.New(t)

	// Newest-first window mixing local, distant and coordinate-less items.
	window := []place{
		at(1, barcelona),    // distant
		at(2, williamsburg), // local
		nowhere(3),          // no coordinate
		at(4, newYork),      // local
		at(5, london),       // distant
	}

	blended := BlendLocalFirst(&newYork, 25, window, 10)

	// Local group first, each group keeping newest-first order.
	c.Assert(ids(blended), qt.DeepEquals, []int{2, 4, 1, 3, 5})
}

func TestBlendLocalFirstNeverEmptyOnScarceLocal(t *testing.T) {
	c := qt.New(t)

	// No local content at all: the feed degrades to pure recency.
	window := []place{at(1, barcelona), at(2, london), nowhere(3)}
	c.Assert(ids(BlendLocalFirst(&newYork, 25, window, 2)), qt.DeepEquals, []int{1, 2})
}

func TestBlendLocalFirstTruncation(t *testing.T) {
	c := qt.New(t)

	window := []place{
		at(1, barcelona),
		at(2, williamsburg),
		at(3, newYork),
	}
	blended := BlendLocalFirst(&newYork, 25, window, 2)

	// Truncation happens after blending, so local items win the cut.
	c.Assert(ids(blended), qt.DeepEquals, []int{2, 3})
}
