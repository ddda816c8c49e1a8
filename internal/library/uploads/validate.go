package uploads

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var extRe = regexp.MustCompile(`[a-z]+`)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindBool
	kindFormat
	kindSource
)

var resizeFields = map[string]fieldKind{
	"skip_size":     kindInt,
	"type":          kindFormat,
	"from":          kindSource,
	"width":         kindInt,
	"height":        kindInt,
	"max_width":     kindInt,
	"max_height":    kindInt,
	"jpeg_quality":  kindInt,
	"gif_animation": kindBool,
	"unsharp":       kindBool,
}

var (
	formats = []string{FormatJPEG, FormatPNG, FormatGIF}
	sources = []string{PreviewOrig, PreviewMd, PreviewSm}
)

// validateConfig returns one `'field' message 'value'` line per problem
func validateConfig(root map[string]any) (errs []string) {
	add := func(field, msg string, value any) {
		errs = append(errs, fmt.Sprintf("'%s' %s '%s'", field, msg, formatValue(value)))
	}

	for _, k := range sortedKeys(root) {
		switch k {
		case "extensions", "max_size", "jpeg_quality", "gif_animation", "resize", "types":
		default:
			add("data", "has additional properties", k)
		}
	}

	exts, ok := root["extensions"]
	switch {
	case !ok:
		add("data.extensions", "is required", nil)
	default:
		list, isList := exts.([]any)
		if !isList {
			add("data.extensions", "is the wrong type", exts)
			break
		}
		if len(list) == 0 {
			add("data.extensions", "has less items than allowed", exts)
		}

		seen := map[string]bool{}
		for i, item := range list {
			field := fmt.Sprintf("data.extensions.%d", i)
			s, isStr := item.(string)
			if !isStr {
				add(field, "is the wrong type", item)
				continue
			}
			if !extRe.MatchString(s) {
				add(field, "pattern mismatch", item)
				continue
			}
			if seen[s] {
				add("data.extensions", "must be unique", exts)
			}
			seen[s] = true
		}
	}

	validateInt(root, "max_size", "data", add)
	validateInt(root, "jpeg_quality", "data", add)
	validateBool(root, "gif_animation", "data", add)

	if v, ok := root["resize"]; ok {
		validateResize(v, "data.resize", add)
	}

	if v, ok := root["types"]; ok {
		types, isMap := v.(map[string]any)
		if !isMap {
			add("data.types", "is the wrong type", v)
			return errs
		}

		for _, name := range sortedKeys(types) {
			field := "data.types." + name
			t, isMap := types[name].(map[string]any)
			if !isMap {
				add(field, "is the wrong type", types[name])
				continue
			}

			validateInt(t, "max_size", field, add)
			validateInt(t, "jpeg_quality", field, add)
			validateBool(t, "gif_animation", field, add)
			if r, ok := t["resize"]; ok {
				validateResize(r, field+".resize", add)
			}
		}
	}

	return errs
}

func validateResize(v any, field string, add func(string, string, any)) {
	resize, ok := v.(map[string]any)
	if !ok {
		add(field, "is the wrong type", v)
		return
	}

	for _, name := range sortedKeys(resize) {
		previewField := field + "." + name
		preview, ok := resize[name].(map[string]any)
		if !ok {
			add(previewField, "is the wrong type", resize[name])
			continue
		}

		for _, k := range sortedKeys(preview) {
			kind, known := resizeFields[k]
			if !known {
				continue
			}

			switch kind {
			case kindInt:
				validateInt(preview, k, previewField, add)
			case kindBool:
				validateBool(preview, k, previewField, add)
			case kindFormat:
				if s, ok := preview[k].(string); !ok || !contains(formats, s) {
					add(previewField+"."+k, "must be an enum value", preview[k])
				}
			case kindSource:
				if s, ok := preview[k].(string); !ok || !contains(sources, s) || s == name {
					add(previewField+"."+k, "must be an enum value", preview[k])
				}
			}
		}
	}
}

func validateInt(m map[string]any, key, parent string, add func(string, string, any)) {
	v, ok := m[key]
	if !ok {
		return
	}

	f, isNum := v.(float64)
	if !isNum || f != math.Trunc(f) || f < 0 {
		add(parent+"."+key, "is the wrong type", v)
	}
}

func validateBool(m map[string]any, key, parent string, add func(string, string, any)) {
	v, ok := m[key]
	if !ok {
		return
	}

	if _, isBool := v.(bool); !isBool {
		add(parent+"."+key, "is the wrong type", v)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == math.Trunc(val) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprint(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
