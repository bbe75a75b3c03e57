package functor

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Options is the immutable option bag of a functor. Values are cty values
// so that HCL and YAML configuration can feed them without loss.
type Options struct {
	values map[string]cty.Value
}

// NewOptions creates an option bag from a map. The map is copied.
func NewOptions(values map[string]cty.Value) *Options {
	return &Options{values: maps.Clone(values)}
}

// Merge returns a new bag with overrides layered on top of o.
func (o *Options) Merge(overrides map[string]cty.Value) *Options {
	merged := make(map[string]cty.Value, len(o.values)+len(overrides))
	maps.Copy(merged, o.values)
	maps.Copy(merged, overrides)
	return &Options{values: merged}
}

// Keys returns the option names in sorted order.
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(o.values))
}

// Has reports whether key is set.
func (o *Options) Has(key string) bool {
	if o == nil {
		return false
	}
	v, ok := o.values[key]
	return ok && !v.IsNull()
}

// Value returns the raw cty value of key.
func (o *Options) Value(key string) (cty.Value, bool) {
	if !o.Has(key) {
		return cty.NilVal, false
	}
	return o.values[key], true
}

// Decode converts the option into target, which must be a pointer. Missing
// options leave target untouched.
func (o *Options) Decode(key string, target any) error {
	val, ok := o.Value(key)
	if !ok {
		return nil
	}
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("option %q: target must be a non-nil pointer, got %T", key, target)
	}
	ty, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		return gocty.FromCtyValue(val, target)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("option %q: cannot convert %s to %s: %w", key, val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return fmt.Errorf("option %q: %w", key, err)
	}
	return nil
}

// Float returns a numeric option or def when unset.
func (o *Options) Float(key string, def float64) (float64, error) {
	out := def
	err := o.Decode(key, &out)
	return out, err
}

// Int returns an integer option or def when unset.
func (o *Options) Int(key string, def int) (int, error) {
	out := def
	err := o.Decode(key, &out)
	return out, err
}

// Bool returns a boolean option or def when unset.
func (o *Options) Bool(key string, def bool) (bool, error) {
	out := def
	err := o.Decode(key, &out)
	return out, err
}

// String returns a string option or def when unset.
func (o *Options) String(key string, def string) (string, error) {
	out := def
	err := o.Decode(key, &out)
	return out, err
}

// Strings returns a list-of-strings option or def when unset.
func (o *Options) Strings(key string, def []string) ([]string, error) {
	if !o.Has(key) {
		return def, nil
	}
	var out []string
	err := o.Decode(key, &out)
	return out, err
}
