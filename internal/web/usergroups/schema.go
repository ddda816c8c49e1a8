package usergroups

import (
	"sort"

	"github.com/Laisky/errors/v2"
)

// Schemas are the usergroup setting schemas keyed by setting name
type Schemas map[string]SettingSchema

// Validate checks that every schema has a known type and a matching default
func (s Schemas) Validate() error {
	for _, name := range s.names() {
		schema := s[name]
		switch schema.Type {
		case TypeBoolean, TypeNumber, TypeString:
		default:
			return errors.Errorf("setting %q has unknown type %q", name, schema.Type)
		}

		if schema.Default != nil && !matchesType(schema.Type, schema.Default) {
			return errors.Errorf("default of setting %q is not a %s", name, schema.Type)
		}
	}

	return nil
}

func (s Schemas) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory groups schemas as category -> name -> schema
func (s Schemas) ByCategory() map[string]map[string]SettingSchema {
	out := map[string]map[string]SettingSchema{}
	for name, schema := range s {
		if out[schema.Category] == nil {
			out[schema.Category] = map[string]SettingSchema{}
		}
		out[schema.Category][name] = schema
	}

	return out
}

// Items groups schemas as group -> name -> item, with values taken from
// values when present and from the schema defaults otherwise
func (s Schemas) Items(values map[string]any) map[string]map[string]SettingItem {
	out := map[string]map[string]SettingItem{}
	for name, schema := range s {
		group := schema.Group
		if group == "" {
			group = schema.Category
		}

		item := SettingItem{SettingSchema: schema, Value: schema.Default}
		if v, ok := values[name]; ok {
			item.Value = v
		}

		if out[group] == nil {
			out[group] = map[string]SettingItem{}
		}
		out[group][name] = item
	}

	return out
}

// Check verifies that settings only use known keys with values of the schema type.
// It returns the name of the first bad key.
func (s Schemas) Check(settings map[string]any) (badKey string, err error) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		schema, ok := s[k]
		if !ok {
			return k, errors.Errorf("unknown setting %q", k)
		}
		if !matchesType(schema.Type, settings[k]) {
			return k, errors.Errorf("setting %q must be a %s", k, schema.Type)
		}
	}

	return "", nil
}

func matchesType(typ string, v any) bool {
	switch typ {
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
	}

	return false
}
