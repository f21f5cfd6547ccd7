package directory

import (
	"maps"
	"strconv"
)

const defaultKeyPrefix = "default_"

// TemplateAssets holds a template's ordered asset lists as stored.
type TemplateAssets struct {
	Images []string `json:"images"`
	Colors []string `json:"colors"`
	Fonts  []string `json:"fonts"`
}

// AssetSet is the keyed asset bundle handed to renderers.
type AssetSet struct {
	Images map[string]string `json:"images"`
	Colors map[string]string `json:"colors"`
	Fonts  map[string]string `json:"fonts"`
}

// DefaultKey returns the positional key for index i: default_0, default_1, ...
func DefaultKey(i int) string {
	return defaultKeyPrefix + strconv.Itoa(i)
}

// Project turns the ordered lists into positionally keyed maps.
func (a TemplateAssets) Project() AssetSet {
	return AssetSet{
		Images: projectList(a.Images),
		Colors: projectList(a.Colors),
		Fonts:  projectList(a.Fonts),
	}
}

// MergeAssets overlays overrides on base key by key. A key present in overrides
// always wins, even with an empty value. Neither input is modified.
func MergeAssets(base, overrides AssetSet) AssetSet {
	return AssetSet{
		Images: mergeMap(base.Images, overrides.Images),
		Colors: mergeMap(base.Colors, overrides.Colors),
		Fonts:  mergeMap(base.Fonts, overrides.Fonts),
	}
}

func projectList(in []string) map[string]string {
	out := make(map[string]string, len(in))
	for i, v := range in {
		out[DefaultKey(i)] = v
	}
	return out
}

func mergeMap(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	maps.Copy(out, base)
	maps.Copy(out, overrides)
	return out
}
