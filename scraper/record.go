package scraper

import (
	"encoding/json"
	"fmt"

	"github.com/use-agent/menugrab/models"
	"github.com/ysmood/gson"
)

// Default payload layout of the item detail response.
const (
	DefaultRecordPath = "data.itemPage.itemHeader"
	fieldName         = "name"
	fieldDescription  = "description"
	fieldImageURL     = "imageUrl"
)

// RecordExtractor turns a detail response body into a MenuItemRecord.
// It is pure: the same body always yields the same record.
type RecordExtractor struct {
	// Path is the dot path to the object holding the item fields.
	// Empty means the payload root.
	Path string

	// Normalize, when set, rewrites a non-nil description. If it fails the
	// raw description is kept.
	Normalize func(string) (string, error)
}

// Extract parses resp.Body. Any missing or non-string field becomes nil;
// only a body that is not a JSON object is an error (MALFORMED_PAYLOAD).
func (x *RecordExtractor) Extract(resp *InterceptedResponse) (models.MenuItemRecord, error) {
	var rec models.MenuItemRecord

	// gson decodes lazily and swallows syntax errors, so validate first.
	if !json.Valid(resp.Body) {
		return rec, models.NewScrapeError(models.ErrCodeMalformedPayload,
			fmt.Sprintf("response from %s is not valid JSON", resp.URL), nil)
	}
	root := gson.New(resp.Body)
	if _, ok := root.Val().(map[string]interface{}); !ok {
		return rec, models.NewScrapeError(models.ErrCodeMalformedPayload,
			fmt.Sprintf("response from %s is not a JSON object", resp.URL), nil)
	}

	header := root
	if x.Path != "" {
		var found bool
		header, found = root.Gets(gson.Path(x.Path)...)
		if !found {
			return rec, nil
		}
	}

	rec.Name = stringField(header, fieldName)
	rec.Description = stringField(header, fieldDescription)
	rec.ImageURL = stringField(header, fieldImageURL)

	if rec.Description != nil && x.Normalize != nil {
		if normalized, err := x.Normalize(*rec.Description); err == nil {
			rec.Description = &normalized
		}
	}
	return rec, nil
}

// stringField returns obj[key] when it is a JSON string, nil otherwise.
func stringField(obj gson.JSON, key string) *string {
	v, ok := obj.Gets(key)
	if !ok {
		return nil
	}
	s, ok := v.Val().(string)
	if !ok {
		return nil
	}
	return &s
}
