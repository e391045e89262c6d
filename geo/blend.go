package geo

// BlendLocalFirst composes a local-first feed from a newest-first window.
//
// Without an origin the window is returned as-is, truncated to limit.
// Otherwise the window is partitioned into in-radius entities and the
// rest (out of range or without a coordinate), each group keeping its
// newest-first order, and the groups are concatenated local group first.
// Local content is surfaced ahead of distant content without ever
// emptying the feed when local content is scarce.
//
// The caller is responsible for oversampling the window so that
// truncation still yields limit items when possible; no further
// fetching happens here.
func BlendLocalFirst[T Locatable](origin *Coordinate, radiusMiles int, window []T, limit int) []T {
	if limit < 0 {
		limit = 0
	}
	if origin == nil {
		if len(window) > limit {
			return window[:limit]
		}
		return window
	}

	local := make([]T, 0, len(window))
	rest := make([]T, 0, len(window))
	for _, item := range window {
		c, ok := item.Coord()
		if ok && Distance(*origin, c) <= float64(radiusMiles) {
			local = append(local, item)
		} else {
			rest = append(rest, item)
		}
	}

	blended := append(local, rest...)
	if len(blended) > limit {
		blended = blended[:limit]
	}
	return blended
}
