package manifest

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"
)

// reservedNames lists builtin type names that a package namespace or a
// declared class may not take, since type references resolve them first.
var reservedNames = map[string]bool{
	"*":       true,
	"Object":  true,
	"Number":  true,
	"int":     true,
	"uint":    true,
	"Boolean": true,
	"String":  true,
	"Class":   true,
}

// IsReservedName reports whether name is a builtin type name. Only the
// root segment of a qualified name is checked: "geom::Number" is fine
// because the root is "geom".
func IsReservedName(name string) bool {
	root := name
	if idx := strings.Index(name, "::"); idx >= 0 {
		root = name[:idx]
	}
	return reservedNames[root]
}

// decodeStrict decodes TOML into v and rejects keys v has no field for.
func decodeStrict(data []byte, v any) error {
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(v)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &UnknownKeysError{Keys: keys}
	}
	return nil
}

// UnknownKeysError reports manifest keys that no setting recognizes.
type UnknownKeysError struct {
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return "unknown keys: " + strings.Join(e.Keys, ", ")
}
