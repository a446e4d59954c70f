package cim

import "strings"

// ClassName identifies a CIM class, optionally scoped to a namespace and
// host. See spec §3.2.
type ClassName struct {
	Name      string
	Namespace string // optional; empty means unset
	Host      string // optional; empty means unset
}

// Equal compares two ClassNames per spec §3.3: class name and host
// case-insensitive, namespace case-sensitive.
func (c ClassName) Equal(o ClassName) bool {
	return strings.EqualFold(c.Name, o.Name) &&
		strings.EqualFold(c.Host, o.Host) &&
		c.Namespace == o.Namespace
}

// String renders the class name's WBEM-URI-like form.
func (c ClassName) String() string {
	var b strings.Builder
	if c.Host != "" {
		b.WriteString("//")
		b.WriteString(c.Host)
		b.WriteByte('/')
	}
	if c.Namespace != "" {
		b.WriteString(c.Namespace)
		b.WriteByte(':')
	}
	b.WriteString(c.Name)
	return b.String()
}

// keybinding is one (name, value) pair identifying an instance. It
// satisfies the `named` constraint used by NamedList.
type keybinding struct {
	name  string
	value Value
}

func (k keybinding) Name() string { return k.name }

// InstanceName is an instance path: a class name, an ordered set of
// keybindings, and optional namespace/host. It may stand alone or be
// embedded as a reference value inside a property or keybinding.
// See spec §3.2.
type InstanceName struct {
	ClassName string
	Namespace string
	Host      string
	keys      *NamedList[keybinding]
}

// NewInstanceName builds an InstanceName with no keybindings set.
func NewInstanceName(className string) InstanceName {
	return InstanceName{ClassName: className, keys: NewNamedList[keybinding]()}
}

// SetKeybinding sets (or replaces) a keybinding value, preserving
// insertion order of first-seen names.
func (n *InstanceName) SetKeybinding(name string, v Value) {
	if n.keys == nil {
		n.keys = NewNamedList[keybinding]()
	}
	n.keys.Set(keybinding{name: name, value: v})
}

// Keybinding looks up a keybinding value by name, case-insensitively.
func (n InstanceName) Keybinding(name string) (Value, bool) {
	if n.keys == nil {
		return Value{}, false
	}
	kb, ok := n.keys.Get(name)
	return kb.value, ok
}

// Keybindings returns the keybindings in insertion order.
func (n InstanceName) Keybindings() []struct {
	Name  string
	Value Value
} {
	if n.keys == nil {
		return nil
	}
	kbs := n.keys.Slice()
	out := make([]struct {
		Name  string
		Value Value
	}, len(kbs))
	for i, kb := range kbs {
		out[i] = struct {
			Name  string
			Value Value
		}{kb.name, kb.value}
	}
	return out
}

// Equal compares two InstanceNames per spec §3.2: class name and host
// case-insensitive, namespace case-sensitive, keybindings compared as a
// case-insensitive name-keyed mapping of typed values.
func (n InstanceName) Equal(o InstanceName) bool {
	if !strings.EqualFold(n.ClassName, o.ClassName) {
		return false
	}
	if !strings.EqualFold(n.Host, o.Host) {
		return false
	}
	if n.Namespace != o.Namespace {
		return false
	}
	nk, ok := n.keys, o.keys
	if nk == nil {
		nk = NewNamedList[keybinding]()
	}
	if ok == nil {
		ok = NewNamedList[keybinding]()
	}
	return nk.Equal(ok, func(a, b keybinding) bool { return a.value.Equal(b.value) })
}

// Clone returns a deep copy.
func (n InstanceName) Clone() InstanceName {
	c := n
	if n.keys != nil {
		c.keys = n.keys.Clone()
	}
	return c
}
