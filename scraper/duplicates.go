package scraper

import (
	"strings"

	"github.com/use-agent/menugrab/models"
	"github.com/use-agent/menugrab/simhash"
)

// findDuplicates groups records whose name, description and image fingerprint
// within threshold of each other. Records with no text are never grouped.
// Groups are returned in order of their first member; only groups with more
// than one member are returned. A negative threshold disables the report.
func findDuplicates(records []models.MenuItemRecord, threshold int) [][]int {
	if threshold < 0 || len(records) < 2 {
		return nil
	}

	prints := make([]uint64, len(records))
	empty := make([]bool, len(records))
	for i, rec := range records {
		name := models.StrOrEmpty(rec.Name)
		desc := models.StrOrEmpty(rec.Description)
		img := models.StrOrEmpty(rec.ImageURL)
		empty[i] = strings.TrimSpace(name+desc+img) == ""
		prints[i] = simhash.FingerprintFields(name, desc, img)
	}

	group := make([]int, len(records))
	for i := range group {
		group[i] = -1
	}

	var groups [][]int
	for i := range records {
		if empty[i] || group[i] >= 0 {
			continue
		}
		members := []int{i}
		for j := i + 1; j < len(records); j++ {
			if empty[j] || group[j] >= 0 {
				continue
			}
			if simhash.Similar(prints[i], prints[j], threshold) {
				members = append(members, j)
			}
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			group[m] = len(groups)
		}
		groups = append(groups, members)
	}
	return groups
}
