package secretstore

import (
	"strings"
)

// LatestVersion is the version label that selects the newest active version
// of a secret instead of a fixed one.
const LatestVersion = "latest"

// Key identifies a single lookup against a Store.
//
// A Key is either Latest(name), which resolves to the newest active version
// at lookup time, or Version(name, v), which always refers to the same
// immutable version. Keys are comparable values and may be used as map keys.
// The explicit label "latest" is normalized to Latest(name), so
// Version("db", "latest") == Latest("db").
type Key struct {
	name     string
	version  string
	explicit bool
}

// Latest returns a key selecting the newest active version of name.
func Latest(name string) Key {
	return Key{name: name}
}

// Version returns a key selecting one explicit version of name.
func Version(name, version string) Key {
	if version == LatestVersion {
		return Latest(name)
	}
	return Key{name: name, version: version, explicit: true}
}

// KeyOf builds a key from one part (name) or two parts (name, version).
// Any other shape is rejected with InvalidKeyError.
func KeyOf(parts ...string) (Key, error) {
	var k Key
	switch len(parts) {
	case 1:
		k = Latest(parts[0])
	case 2:
		k = Version(parts[0], parts[1])
	default:
		return Key{}, InvalidKeyError{
			Parts:  append([]string(nil), parts...),
			Reason: "a key is either a name or a name and a version",
		}
	}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// ParseKey parses a textual reference of the form "name", "name:version"
// or "name@version".
//
//	ParseKey("db-password")      // Latest("db-password")
//	ParseKey("db-password:3")    // Version("db-password", "3")
//	ParseKey("db-password@3")    // Version("db-password", "3")
//	ParseKey("db-password@latest") // Latest("db-password")
func ParseKey(ref string) (Key, error) {
	if name, version, ok := strings.Cut(ref, ":"); ok {
		return KeyOf(name, version)
	}
	if name, version, ok := strings.Cut(ref, "@"); ok {
		return KeyOf(name, version)
	}
	return KeyOf(ref)
}

// Name returns the secret name.
func (k Key) Name() string {
	return k.name
}

// Version returns the explicit version label, or LatestVersion.
func (k Key) Version() string {
	if !k.explicit {
		return LatestVersion
	}
	return k.version
}

// IsLatest reports whether the key resolves to the newest active version.
func (k Key) IsLatest() bool {
	return !k.explicit
}

// String renders the key in the form accepted by ParseKey.
func (k Key) String() string {
	if !k.explicit {
		return k.name
	}
	return k.name + ":" + k.version
}

// Validate reports whether the key can be looked up.
func (k Key) Validate() error {
	if strings.TrimSpace(k.name) == "" {
		return InvalidKeyError{Parts: k.parts(), Reason: "secret name must be a non-empty string"}
	}
	if k.explicit && strings.TrimSpace(k.version) == "" {
		return InvalidKeyError{Parts: k.parts(), Reason: "version must be a non-empty string"}
	}
	return nil
}

func (k Key) parts() []string {
	if !k.explicit {
		return []string{k.name}
	}
	return []string{k.name, k.version}
}
