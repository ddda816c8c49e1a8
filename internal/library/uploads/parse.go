package uploads

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
)

var parsed sync.Map // map[string]*Config, keyed by the raw config json

// Parse validates raw and expands per-extension settings.
//
// raw is the decoded `settings.uploads.<name>` value. Results are
// memoized by the json form of raw, so callers may parse on every request.
func Parse(raw any) (*Config, error) {
	normalized, err := normalize(raw)
	if err != nil {
		return nil, errors.Wrap(err, "normalize uploads config")
	}

	keyBytes, err := json.Marshal(normalized)
	if err != nil {
		return nil, errors.Wrap(err, "marshal uploads config")
	}
	key := string(keyBytes)
	if cfg, ok := parsed.Load(key); ok {
		return cfg.(*Config), nil
	}

	root, ok := normalized.(map[string]any)
	if !ok {
		return nil, errors.New("invalid uploads config: 'data' is the wrong type")
	}

	// early configs spell it `extentions`
	if v, ok := root["extentions"]; ok {
		if _, exists := root["extensions"]; !exists {
			root["extensions"] = v
		}
		delete(root, "extentions")
	}

	if errs := validateConfig(root); len(errs) != 0 {
		return nil, errors.Errorf("invalid uploads config: %s", strings.Join(errs, ", "))
	}

	expanded := expand(root)
	body, err := json.Marshal(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "marshal expanded config")
	}

	cfg := new(Config)
	if err = json.Unmarshal(body, cfg); err != nil {
		return nil, errors.Wrap(err, "decode expanded config")
	}

	actual, _ := parsed.LoadOrStore(key, cfg)
	return actual.(*Config), nil
}

// expand builds the `types` map with one complete entry per listed extension
func expand(root map[string]any) map[string]any {
	types, _ := root["types"].(map[string]any)
	globalResize, _ := root["resize"].(map[string]any)

	result := make(map[string]any, len(root))
	for k, v := range root {
		if k == "types" {
			continue
		}
		result[k] = v
	}

	expanded := map[string]any{}
	for _, item := range root["extensions"].([]any) {
		ext := item.(string)
		mimeType := MimeByExt(ext)
		realExt := CanonicalExt(mimeType, ext)

		typeCfg, _ := types[realExt].(map[string]any)
		extCfg := map[string]any{}

		if IsImageMime(mimeType) {
			typeResize, _ := typeCfg["resize"].(map[string]any)
			resize := map[string]any{}

			for name, p := range globalResize {
				preview := p.(map[string]any)
				typePreview, _ := typeResize[name].(map[string]any)

				merged := assign(map[string]any{}, preview, typePreview)

				previewType, _ := merged["type"].(string)
				if previewType == FormatJPEG || (realExt == FormatJPEG && previewType == "") {
					merged["jpeg_quality"] = firstTruthy(
						merged["jpeg_quality"],
						typePreview["jpeg_quality"],
						root["jpeg_quality"],
					)
				}
				if previewType == FormatGIF || (realExt == FormatGIF && previewType == "") {
					merged["gif_animation"] = truthy(typePreview["gif_animation"]) ||
						truthy(root["gif_animation"])
				}

				for k, v := range merged {
					if v == nil {
						delete(merged, k)
					}
				}
				resize[name] = merged
			}

			extCfg["resize"] = resize
		}

		for k, v := range typeCfg {
			if k == "resize" {
				continue
			}
			extCfg[k] = v
		}

		expanded[ext] = extCfg
	}

	result["types"] = expanded
	return result
}

// normalize converts yaml-style maps into json compatible values
// and returns a deep copy of v
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out, nil
	case nil, string, bool:
		return val, nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		body, err := json.Marshal(val)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		var f float64
		if err = json.Unmarshal(body, &f); err != nil {
			return nil, errors.WithStack(err)
		}
		return f, nil
	default:
		return nil, errors.Errorf("unsupported value type %T", v)
	}
}

func assign(dst map[string]any, srcs ...map[string]any) map[string]any {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}

	return dst
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

func firstTruthy(vals ...any) any {
	for _, v := range vals {
		if truthy(v) {
			return v
		}
	}

	return nil
}

// PreviewOrder returns the preview names of resize so that `orig` comes
// first and every preview follows the one it is made from
func PreviewOrder(resize map[string]ResizeOptions) []string {
	names := make([]string, 0, len(resize))
	for name := range resize {
		if name != PreviewOrig {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	order := make([]string, 0, len(resize))
	done := map[string]bool{}
	if _, ok := resize[PreviewOrig]; ok {
		order = append(order, PreviewOrig)
		done[PreviewOrig] = true
	}

	for len(names) != 0 {
		var rest []string
		for _, name := range names {
			if done[resize[name].Source()] {
				order = append(order, name)
				done[name] = true
			} else {
				rest = append(rest, name)
			}
		}

		if len(rest) == len(names) {
			// unresolvable sources, let the caller report them
			order = append(order, rest...)
			break
		}
		names = rest
	}

	return order
}
