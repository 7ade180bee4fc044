// Package configbinder copies loosely typed step properties onto tasklet config structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes properties into target, matching keys against `yaml` tags.
// Strings are converted to numbers and bools, "5s"-style strings to time.Duration,
// and comma separated strings to slices. A nil or empty map leaves target untouched.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("configbinder: cannot build decoder for %s: %w", typeName(target), err)
	}
	if err := decoder.Decode(properties); err != nil {
		return fmt.Errorf("configbinder: bind %s: %w", typeName(target), err)
	}
	return nil
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
