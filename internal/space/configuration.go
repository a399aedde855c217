// Package space defines the configuration-space value objects: a point in
// the adjustable design parameter space, the simulated population outcome
// for that point, and the goal/objective definitions used to steer and
// filter the exploration.
package space

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
)

// Configuration is an immutable point in design parameter space: a set of
// named dimension scores, each in [0, 1]. Child configurations are derived
// with Apply; direct construction rejects out-of-range values rather than
// clamping them.
type Configuration struct {
	dims map[string]float64
}

// NewConfiguration creates a Configuration from the given dimension scores.
// Every value must already be in [0, 1]; out-of-range values are a
// validation error, not a clamp. The input map is copied.
func NewConfiguration(dims map[string]float64) (Configuration, error) {
	if len(dims) == 0 {
		return Configuration{}, fmt.Errorf("%w: configuration requires at least one dimension", ErrValidation)
	}
	copied := make(map[string]float64, len(dims))
	for name, v := range dims {
		if name == "" {
			return Configuration{}, fmt.Errorf("%w: dimension name cannot be empty", ErrValidation)
		}
		if v < 0 || v > 1 {
			return Configuration{}, fmt.Errorf("%w: dimension %q value %.4f outside [0, 1]", ErrValidation, name, v)
		}
		copied[name] = v
	}
	return Configuration{dims: copied}, nil
}

// Apply derives a new Configuration by adding the named deltas to this one.
// Every touched dimension is clamped into [0, 1]; dimensions not named in
// deltas are copied unchanged. Deltas naming unknown dimensions are ignored.
// Apply is pure: the receiver is never modified.
func (c Configuration) Apply(deltas map[string]float64) Configuration {
	derived := make(map[string]float64, len(c.dims))
	for name, v := range c.dims {
		derived[name] = v
	}
	for name, d := range deltas {
		v, ok := derived[name]
		if !ok {
			continue
		}
		derived[name] = clamp01(v + d)
	}
	return Configuration{dims: derived}
}

// Value returns the score for a dimension and whether it exists.
func (c Configuration) Value(dim string) (float64, bool) {
	v, ok := c.dims[dim]
	return v, ok
}

// Has reports whether the configuration defines the given dimension.
func (c Configuration) Has(dim string) bool {
	_, ok := c.dims[dim]
	return ok
}

// Dimensions returns the dimension names in sorted order for stable iteration.
func (c Configuration) Dimensions() []string {
	names := make([]string, 0, len(c.dims))
	for name := range c.dims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of dimensions.
func (c Configuration) Len() int {
	return len(c.dims)
}

// Map returns a copy of the dimension scores for serialization.
func (c Configuration) Map() map[string]float64 {
	copied := make(map[string]float64, len(c.dims))
	for name, v := range c.dims {
		copied[name] = v
	}
	return copied
}

// Equal reports whether two configurations have identical dimensions and values.
func (c Configuration) Equal(other Configuration) bool {
	if len(c.dims) != len(other.dims) {
		return false
	}
	for name, v := range c.dims {
		ov, ok := other.dims[name]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable 64-bit digest of the configuration's sorted
// dimension values. Used to derive per-configuration random streams so that
// concurrent evaluation order cannot change simulation results.
func (c Configuration) Fingerprint() uint64 {
	h := sha256.New()
	for _, name := range c.Dimensions() {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(int64(c.dims[name]*1e9)))
		h.Write([]byte(name))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
