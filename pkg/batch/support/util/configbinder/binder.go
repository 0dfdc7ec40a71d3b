// Package configbinder binds free-form property maps from the YAML configuration
// onto typed option structs.
package configbinder

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// BindProperties decodes properties into target using the "yaml" struct tags.
// Input is weakly typed, so "5432" binds to an int field and "true" to a bool.
// Keys with no matching field are logged and otherwise ignored.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		return fmt.Errorf("failed to bind properties to struct %s: %w", typeName(target), err)
	}

	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		logger.Warnf("Ignoring unknown properties for %s: %s", typeName(target), strings.Join(md.Unused, ", "))
	}
	return nil
}

func typeName(target interface{}) string {
	t := reflect.TypeOf(target)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
