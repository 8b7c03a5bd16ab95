package animation

import (
	"fmt"
	"strings"

	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/value"
)

// PropertyInfo describes an animatable property.
type PropertyInfo struct {
	Key   string     `json:"key"`
	Title string     `json:"title"`
	Kind  value.Kind `json:"kind"`
	// IsAdd marks keyframe values that are deltas added to the previous key
	// instead of absolute targets.
	IsAdd     bool   `json:"isAdd"`
	InputType string `json:"inputType"`
	Hidden    bool   `json:"hidden,omitempty"`
}

// RotationKey is the single track that rotation.x/y/z keyframe values are
// coalesced into.
const RotationKey = "rotation"

var catalog = []PropertyInfo{
	{Key: "position.x", Title: "Position X", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: "position.y", Title: "Position Y", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: "position.z", Title: "Position Z", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: "scaling.x", Title: "Scale X", Kind: value.KindNumber, InputType: "number"},
	{Key: "scaling.y", Title: "Scale Y", Kind: value.KindNumber, InputType: "number"},
	{Key: "scaling.z", Title: "Scale Z", Kind: value.KindNumber, InputType: "number"},
	{Key: "rotation.x", Title: "Rotation X", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: "rotation.y", Title: "Rotation Y", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: "rotation.z", Title: "Rotation Z", Kind: value.KindNumber, IsAdd: true, InputType: "number"},
	{Key: RotationKey, Title: "Rotation", Kind: value.KindVector3, IsAdd: true, Hidden: true},
	{Key: "material.emissiveColor", Title: "Emissive colour", Kind: value.KindColor3, InputType: "color"},
	{Key: "material.diffuseColor", Title: "Diffuse colour", Kind: value.KindColor3, InputType: "color"},
	{Key: "material.specularColor", Title: "Specular colour", Kind: value.KindColor3, InputType: "color"},
	{Key: "material.ambientColor", Title: "Ambient colour", Kind: value.KindColor3, InputType: "color"},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, info := range catalog {
		idx[info.Key] = i
	}
	return idx
}()

// Properties returns the catalog in display order.
func Properties() []PropertyInfo {
	out := make([]PropertyInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for key.
func Lookup(key string) (PropertyInfo, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return PropertyInfo{}, false
	}
	return catalog[i], true
}

// IsRotation reports whether key addresses the rotation.
func IsRotation(key string) bool {
	return strings.HasPrefix(key, RotationKey)
}

// DecodeInitValues rebuilds persisted init values using the kind recorded in
// the catalog. Unknown keys are skipped.
func DecodeInitValues(wire map[string]any) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(wire))
	for key, raw := range wire {
		info, ok := Lookup(key)
		if !ok {
			logger.Debug("skipping unknown animation init value", "property", key)
			continue
		}
		v, err := value.FromWire(raw, info.Kind)
		if err != nil {
			return nil, fmt.Errorf("init value %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// EncodeInitValues converts init values to their wire form.
func EncodeInitValues(values map[string]value.Value) map[string]any {
	out := make(map[string]any, len(values))
	for key, v := range values {
		out[key] = value.ToWire(v)
	}
	return out
}
