// Package item holds the read-only identity and configuration of a tracked item.
package item

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/kailas-cloud/invman/internal/domain"
	"github.com/kailas-cloud/invman/internal/domain/observer"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
)

// Platform is the host entity platform an entity belongs to.
type Platform string

// Platform constants.
const (
	PlatformNumber       Platform = "number"
	PlatformSensor       Platform = "sensor"
	PlatformBinarySensor Platform = "binary_sensor"
)

// Entity describes one host entity derived from an item.
type Entity struct {
	Kind     string
	Platform Platform
	UniqueID string
	EntityID string
}

// Item is an inventory item: a replenishable supply consumed by scheduled doses.
type Item struct {
	name            string
	size            string
	vendor          string
	warnBeforeEmpty float64
}

// New validates and creates an Item. size and vendor are optional.
// warnBeforeEmpty is the number of days before depletion at which the warning turns on.
func New(name, size, vendor string, warnBeforeEmpty float64) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("%w: name is required", domain.ErrInvalidItem)
	}
	if math.IsNaN(warnBeforeEmpty) || math.IsInf(warnBeforeEmpty, 0) || warnBeforeEmpty < 0 {
		return Item{}, fmt.Errorf("%w: warn_before_empty must be a non-negative number, got %v",
			domain.ErrInvalidItem, warnBeforeEmpty)
	}
	return Item{
		name:            name,
		size:            strings.TrimSpace(size),
		vendor:          strings.TrimSpace(vendor),
		warnBeforeEmpty: warnBeforeEmpty,
	}, nil
}

// Name returns the configured item name.
func (i Item) Name() string { return i.name }

// Size returns the optional package size, e.g. "20mg".
func (i Item) Size() string { return i.size }

// Vendor returns the optional manufacturer.
func (i Item) Vendor() string { return i.vendor }

// WarnBeforeEmpty returns the warning threshold in days.
func (i Item) WarnBeforeEmpty() float64 { return i.warnBeforeEmpty }

// ID returns the device identifier: the lowercased name, suffixed with the size if set.
func (i Item) ID() string {
	id := strings.ToLower(i.name)
	if i.size != "" {
		id += "-" + strings.ToLower(i.size)
	}
	return id
}

// DisplayName returns name and size joined by a space.
func (i Item) DisplayName() string {
	if i.size == "" {
		return i.name
	}
	return i.name + " " + i.size
}

// UniqueID returns the per-entity unique ID for kind.
func (i Item) UniqueID(kind string) string {
	return i.ID() + "_" + strings.ToLower(kind)
}

// Entities returns the host entities of the item: one number per quantity
// plus the prediction sensor and the warning binary sensor.
func (i Item) Entities() []Entity {
	out := make([]Entity, 0, len(quantity.All())+len(observer.Slots()))
	for _, q := range quantity.All() {
		out = append(out, i.entity(q.String(), PlatformNumber))
	}
	out = append(out,
		i.entity(observer.EmptyPrediction.String(), PlatformSensor),
		i.entity(observer.Warning.String(), PlatformBinarySensor),
	)
	return out
}

func (i Item) entity(kind string, p Platform) Entity {
	uid := i.UniqueID(kind)
	return Entity{
		Kind:     kind,
		Platform: p,
		UniqueID: uid,
		EntityID: string(p) + "." + Slugify(uid),
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics into "_".
func Slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
