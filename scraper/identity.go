package scraper

import (
	"context"

	"github.com/use-agent/menugrab/simhash"
)

// itemKeyThreshold is the max SimHash distance at which two renderings are
// taken to be the same item.
const itemKeyThreshold = 3

// itemKeys fingerprints the markup of each item. A virtualized list may
// shift after a click, so keys taken at first enumeration are used to find
// an item again by content rather than by position. A key of 0 means the
// item had no usable markup and is matched by position only.
func itemKeys(ctx context.Context, items []Element) []uint64 {
	keys := make([]uint64, len(items))
	for i, el := range items {
		keys[i] = itemKey(ctx, el)
	}
	return keys
}

func itemKey(ctx context.Context, el Element) uint64 {
	html, err := el.HTML(ctx)
	if err != nil {
		return 0
	}
	return simhash.Fingerprint(html)
}

// locateItem returns the index in items of the item with key, preferring
// position ii, or -1 when it is no longer rendered.
func locateItem(ctx context.Context, items []Element, ii int, key uint64) int {
	if key == 0 {
		if ii < len(items) {
			return ii
		}
		return -1
	}
	if ii < len(items) && simhash.Similar(itemKey(ctx, items[ii]), key, itemKeyThreshold) {
		return ii
	}

	best, bestDist := -1, itemKeyThreshold+1
	for i, el := range items {
		if i == ii {
			continue
		}
		if d := simhash.Distance(itemKey(ctx, el), key); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
