package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrRecordNotFound  = errors.New("not found in registry")
	ErrMalformedRecord = errors.New("malformed registry entry")
)

// Manifest is the remote version registry (versions.json).
//
// Only the document itself must be a JSON object. Addon entries are kept raw
// and decoded on lookup, so one broken entry never hides the others, and
// mistyped top-level metadata is dropped rather than failing the fetch.
type Manifest struct {
	Repository     string
	SupportContact string
	SupportServer  string
	LastUpdated    string

	addons map[string]json.RawMessage
}

// AddonRecord is the registry entry for a single addon
type AddonRecord struct {
	Version     string `json:"version" yaml:"version"`
	ReleaseDate string `json:"releaseDate,omitempty" yaml:"releaseDate,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Homepage    string `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Changelog   string `json:"changelog,omitempty" yaml:"changelog,omitempty"`

	// Advisory flags; absent and null both mean false
	Urgent   bool `json:"urgent,omitempty" yaml:"urgent,omitempty"`
	Breaking bool `json:"breaking,omitempty" yaml:"breaking,omitempty"`
	External bool `json:"external,omitempty" yaml:"external,omitempty"`
}

// Document is the serializable view of a manifest. Entries that do not
// decode are left out.
type Document struct {
	Repository     string                  `json:"repository,omitempty" yaml:"repository,omitempty"`
	SupportContact string                  `json:"supportContact,omitempty" yaml:"supportContact,omitempty"`
	SupportServer  string                  `json:"supportServer,omitempty" yaml:"supportServer,omitempty"`
	LastUpdated    string                  `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	Addons         map[string]*AddonRecord `json:"addons" yaml:"addons"`
}

// Constants
const (
	// DefaultURL is the public PlexAddons registry
	DefaultURL = "https://raw.githubusercontent.com/Bali0531-RC/PlexAddons/main/versions.json"

	// ClientVersion is reported in the User-Agent header
	ClientVersion = "1.0.0"

	// maxManifestSize caps how much of a response body is read
	maxManifestSize = 10 << 20
)

// UserAgent returns the User-Agent sent when checking on behalf of addonName
func UserAgent(addonName string) string {
	return fmt.Sprintf("PlexAddons-%s/%s", addonName, ClientVersion)
}

// UnmarshalJSON requires an object at the top level and nothing more
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	if top == nil {
		return errors.New("manifest is null")
	}

	*m = Manifest{
		Repository:     looseString(top["repository"]),
		SupportContact: looseString(top["supportContact"]),
		SupportServer:  looseString(top["supportServer"]),
		LastUpdated:    looseString(top["lastUpdated"]),
	}

	// anything but an object means no addons are listed
	var addons map[string]json.RawMessage
	if err := json.Unmarshal(top["addons"], &addons); err == nil {
		m.addons = addons
	}
	return nil
}

// MarshalJSON encodes the Document view
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Document())
}

// MarshalYAML encodes the Document view
func (m *Manifest) MarshalYAML() (interface{}, error) {
	return m.Document(), nil
}

// Lookup decodes the record for an addon. A missing addons map, a missing
// key and an explicit null entry return ErrRecordNotFound. An entry that is
// not an object or whose version is not a string returns ErrMalformedRecord;
// mistyped optional fields are ignored.
func (m *Manifest) Lookup(name string) (*AddonRecord, error) {
	if m == nil {
		return nil, ErrRecordNotFound
	}
	raw, ok := m.addons[name]
	if !ok || isNull(raw) {
		return nil, ErrRecordNotFound
	}
	return decodeRecord(raw)
}

// Support returns the support contact, falling back to the legacy supportServer field
func (m *Manifest) Support() string {
	if m.SupportContact != "" {
		return m.SupportContact
	}
	return m.SupportServer
}

// Names returns the addon names in the manifest, sorted alphabetically.
// Null entries are skipped; malformed ones are listed.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.addons))
	for name, raw := range m.addons {
		if isNull(raw) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document returns the serializable view of the manifest
func (m *Manifest) Document() Document {
	doc := Document{
		Repository:     m.Repository,
		SupportContact: m.SupportContact,
		SupportServer:  m.SupportServer,
		LastUpdated:    m.LastUpdated,
		Addons:         make(map[string]*AddonRecord, len(m.addons)),
	}
	for _, name := range m.Names() {
		if rec, err := m.Lookup(name); err == nil {
			doc.Addons[name] = rec
		}
	}
	return doc
}

func decodeRecord(raw json.RawMessage) (*AddonRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: entry is not an object", ErrMalformedRecord)
	}

	rec := &AddonRecord{
		ReleaseDate: looseString(fields["releaseDate"]),
		DownloadURL: looseString(fields["downloadUrl"]),
		Description: looseString(fields["description"]),
		Author:      looseString(fields["author"]),
		Homepage:    looseString(fields["homepage"]),
		Changelog:   looseString(fields["changelog"]),
		Urgent:      looseBool(fields["urgent"]),
		Breaking:    looseBool(fields["breaking"]),
		External:    looseBool(fields["external"]),
	}

	if version, ok := fields["version"]; ok && !isNull(version) {
		if err := json.Unmarshal(version, &rec.Version); err != nil {
			return nil, fmt.Errorf("%w: version must be a string, got %s", ErrMalformedRecord, version)
		}
	}

	return rec, nil
}

// looseString returns a string value, or the literal text of a number or
// boolean. Anything else yields "".
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	default:
		return ""
	}
}

// looseBool is true only for a JSON true
func looseBool(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
