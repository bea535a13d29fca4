package mearec

import (
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-mearec/internal/object"
)

// Attribute names
const (
	attrLive             = "is-live"
	attrLastValidSample  = "last-valid-sample"
	attrUUID             = "uuid"
	attrSampleRate       = "sample-rate"
	attrGain             = "gain"
	attrOffset           = "offset"
	attrBlockSize        = "block-size"
	attrDate             = "date"
	attrRoom             = "room"
	attrArray            = "array"
	attrChannelMeans     = "channel-means"
	attrAnalogOutputSize = "analog-output-size"
)

// Scope selects the object an attribute belongs to.
type Scope uint8

const (
	// ScopeFile attributes live on the root group and stay readable without
	// the dataset.
	ScopeFile Scope = iota
	// ScopeData attributes describe the sample dataset.
	ScopeData
)

func (s Scope) String() string {
	if s == ScopeFile {
		return "file"
	}
	return "data"
}

type knownAttr struct {
	scope Scope
	kind  Kind
	fixed bool
}

// known attributes are routed through the typed setters so the cached
// state and the protocol checks stay in effect.
var known = map[string]knownAttr{
	attrLive:             {ScopeFile, KindUint8, false},
	attrLastValidSample:  {ScopeFile, KindUint64, false},
	attrUUID:             {ScopeFile, KindString, true},
	attrSampleRate:       {ScopeData, KindFloat32, false},
	attrGain:             {ScopeData, KindFloat32, false},
	attrOffset:           {ScopeData, KindFloat32, false},
	attrBlockSize:        {ScopeData, KindUint32, true},
	attrDate:             {ScopeData, KindString, false},
	attrRoom:             {ScopeData, KindString, false},
	attrArray:            {ScopeData, KindString, false},
	attrChannelMeans:     {ScopeData, KindFloat64s, false},
	attrAnalogOutputSize: {ScopeData, KindUint64, false},
}

// AttributeStore is the name to Value view of one scope.
type AttributeStore struct {
	f     *DataFile
	scope Scope
}

// Attrs returns the attribute store of scope.
func (f *DataFile) Attrs(scope Scope) *AttributeStore {
	return &AttributeStore{f: f, scope: scope}
}

func (s *AttributeStore) node() *node {
	if s.scope == ScopeFile {
		return s.f.root
	}
	return s.f.data
}

// Get returns the named value, or ErrNotFound.
func (s *AttributeStore) Get(name string) (Value, error) {
	if err := s.f.checkOpen(); err != nil {
		return Value{}, err
	}
	a := s.node().hdr.Attribute(name)
	if a == nil {
		return Value{}, fmt.Errorf("%s attribute %q: %w", s.scope, name, ErrNotFound)
	}
	v, err := valueOf(a)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s attribute %q: %w", ErrAttributeAccess, s.scope, name, err)
	}
	return v, nil
}

// Exists reports whether the attribute is present.
func (s *AttributeStore) Exists(name string) bool {
	return !s.f.closed && s.node().hdr.Attribute(name) != nil
}

// Names returns the attribute names in lexical order.
func (s *AttributeStore) Names() []string {
	var names []string
	for _, a := range s.node().hdr.Attributes() {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Set overwrites or adds the named value. Well-known attributes must have
// their documented kind and go through the matching DataFile setter.
func (s *AttributeStore) Set(name string, v Value) error {
	if err := s.f.checkWritable(); err != nil {
		return err
	}
	k, ok := known[name]
	if !ok || k.scope != s.scope {
		return s.f.setAttr(s.node(), name, v)
	}
	if v.Kind() != k.kind {
		return fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, name, k.kind, v.Kind())
	}
	if k.fixed {
		return fmt.Errorf("%w: %s is fixed at creation", ErrReadOnly, name)
	}

	switch name {
	case attrLive:
		n, _ := v.AsUint()
		return s.f.SetLive(n != 0)
	case attrLastValidSample:
		n, _ := v.AsUint()
		return s.f.SetLastValidSample(n)
	case attrSampleRate:
		x, _ := v.AsFloat()
		return s.f.SetSampleRate(float32(x))
	case attrGain:
		x, _ := v.AsFloat()
		return s.f.SetGain(float32(x))
	case attrOffset:
		x, _ := v.AsFloat()
		return s.f.SetOffset(float32(x))
	case attrDate:
		str, _ := v.AsString()
		ok, err := s.f.setOptional(attrDate, v)
		if ok {
			s.f.date = str
		}
		return err
	case attrRoom:
		str, _ := v.AsString()
		return s.f.SetRoom(str)
	case attrArray:
		str, _ := v.AsString()
		return s.f.SetArray(str)
	case attrChannelMeans:
		fs, _ := v.AsFloats()
		return s.f.SetMeans(fs)
	case attrAnalogOutputSize:
		n, _ := v.AsUint()
		return s.f.SetAnalogOutputSize(n)
	}
	return s.f.setAttr(s.node(), name, v)
}

func requireAttr(h *object.Header, name string) (Value, error) {
	a := h.Attribute(name)
	if a == nil {
		return Value{}, corrupt("missing attribute %q", name)
	}
	v, err := valueOf(a)
	if err != nil {
		return Value{}, fmt.Errorf("%w: attribute %q: %w", ErrCorruptRecording, name, err)
	}
	return v, nil
}

func requireUint(h *object.Header, name string) (uint64, error) {
	v, err := requireAttr(h, name)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsUint()
	if !ok {
		return 0, corrupt("attribute %q holds %s", name, v.Kind())
	}
	return n, nil
}

func requireFloat(h *object.Header, name string) (float64, error) {
	v, err := requireAttr(h, name)
	if err != nil {
		return 0, err
	}
	x, ok := v.AsFloat()
	if !ok {
		return 0, corrupt("attribute %q holds %s", name, v.Kind())
	}
	return x, nil
}

// optional returns the named value, or an invalid Value when it is absent
// or unreadable. Unreadable values are logged.
func (f *DataFile) optional(h *object.Header, name string, kind Kind) Value {
	a := h.Attribute(name)
	if a == nil {
		return Value{}
	}
	v, err := valueOf(a)
	if err == nil && v.Kind() != kind {
		err = fmt.Errorf("holds %s, want %s", v.Kind(), kind)
	}
	if err != nil {
		f.log.Warnw("ignoring unreadable attribute", "attribute", name, "error", fmt.Errorf("%w: %w", ErrAttributeAccess, err))
		return Value{}
	}
	return v
}

func (f *DataFile) optionalString(h *object.Header, name string) string {
	s, _ := f.optional(h, name, KindString).AsString()
	return s
}

func (f *DataFile) optionalUint(h *object.Header, name string) uint64 {
	n, _ := f.optional(h, name, KindUint64).AsUint()
	return n
}

func (f *DataFile) optionalFloats(h *object.Header, name string) []float64 {
	fs, _ := f.optional(h, name, KindFloat64s).AsFloats()
	return fs
}
