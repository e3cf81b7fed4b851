package config

// mergeMaps merges override into base and returns the result. Nested maps are
// merged key by key; any other value in override replaces the one in base.
// Neither input is modified.
func mergeMaps(base, override map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		overrideMap, ok := asStringMap(v)
		if !ok {
			result[k] = v
			continue
		}
		baseMap, ok := asStringMap(result[k])
		if !ok {
			result[k] = mergeMaps(map[string]interface{}{}, overrideMap)
			continue
		}
		result[k] = mergeMaps(baseMap, overrideMap)
	}
	return result
}

// asStringMap normalizes the map shapes produced by the YAML and TOML decoders.
func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}
