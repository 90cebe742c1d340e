package fieldmap

// Maps output record field names to PiJuice source field names. The resolved
// map is built once at startup and treated as immutable afterwards.

// defaultMap is the built-in output -> source field map.
var defaultMap = map[string]string{
	"ups_temperature": "batt_temperature",
	"ups_charge":      "charge_level",
	"ups_voltage":     "batt_voltage",
	"ups_current":     "batt_current",
	"ups_io_voltage":  "io_voltage",
	"ups_io_current":  "io_current",
}

// knownSources is the fixed set of hardware reading identifiers that have a
// matching accessor.
var knownSources = map[string]struct{}{
	"batt_temperature": {},
	"charge_level":     {},
	"batt_voltage":     {},
	"batt_current":     {},
	"io_voltage":       {},
	"io_current":       {},
}

// Default returns a copy of the built-in field map.
func Default() map[string]string {
	m := make(map[string]string, len(defaultMap))
	for k, v := range defaultMap {
		m[k] = v
	}
	return m
}

// KnownSource reports whether a source field name has a hardware accessor.
// Unknown sources stay in the resolved map; the consumer skips them per field.
func KnownSource(name string) bool {
	_, ok := knownSources[name]
	return ok
}

// Resolve builds the final field map from an optional full replacement map and
// an optional extensions map. A non-empty replacement supersedes the default
// map entirely. Before extensions are merged, any base entry whose source
// field is also claimed by an extension is removed, so a source field is never
// mapped to two output fields at once. Extensions win on output-name collision.
func Resolve(replacement, extensions map[string]string) map[string]string {
	base := replacement
	if len(base) == 0 {
		base = defaultMap
	}
	m := make(map[string]string, len(base)+len(extensions))
	for k, v := range base {
		m[k] = v
	}
	if len(extensions) > 0 {
		claimed := make(map[string]struct{}, len(extensions))
		for _, src := range extensions {
			claimed[src] = struct{}{}
		}
		for k, v := range m {
			if _, ok := claimed[v]; ok {
				delete(m, k)
			}
		}
		for k, v := range extensions {
			m[k] = v
		}
	}
	return m
}
