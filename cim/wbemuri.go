package cim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WBEMURI renders the canonical WBEM URI form of an InstanceName:
//
//	//host/namespace:ClassName.key1="v1",key2=42
//
// Keybindings are sorted by name ascending (stable, case-insensitive) and
// values are quoted per CIM type: strings in double quotes with
// backslash escaping, integers and booleans bare, references as nested
// instance paths in single quotes. See spec §4.2 and §8 scenario 9.
func (n InstanceName) WBEMURI() string {
	var b strings.Builder
	if n.Host != "" {
		b.WriteString("//")
		b.WriteString(n.Host)
		b.WriteByte('/')
	}
	if n.Namespace != "" {
		b.WriteString(n.Namespace)
		b.WriteByte(':')
	}
	b.WriteString(n.ClassName)

	kbs := n.Keybindings()
	sort.SliceStable(kbs, func(i, j int) bool {
		return strings.ToLower(kbs[i].Name) < strings.ToLower(kbs[j].Name)
	})
	for i, kb := range kbs {
		if i == 0 {
			b.WriteByte('.')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(kb.Name)
		b.WriteByte('=')
		b.WriteString(quoteKeyValue(kb.Value))
	}
	return b.String()
}

func quoteKeyValue(v Value) string {
	switch v.CIMType() {
	case TypeString, TypeChar16, TypeDateTime:
		return `"` + escapeDoubleQuoted(fmt.Sprint(v.Scalar())) + `"`
	case TypeBoolean:
		if b, _ := v.Scalar().(bool); b {
			return "TRUE"
		}
		return "FALSE"
	case TypeReference:
		ref, _ := v.Scalar().(InstanceName)
		return "'" + escapeSingleQuoted(ref.WBEMURI()) + "'"
	default:
		return fmt.Sprint(v.Scalar())
	}
}

func escapeDoubleQuoted(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeSingleQuoted(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '\'':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseWBEMURI parses the canonical form rendered by WBEMURI back into an
// InstanceName. Parsing and stringification are inverses for the subset
// of paths WBEMURI can render (spec §3.3, §8 scenario 9).
func ParseWBEMURI(uri string) (InstanceName, error) {
	rest := uri
	var host, namespace string

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return InstanceName{}, fmt.Errorf("%w: missing '/' after host", ErrBadWBEMURI)
		}
		host, rest = rest[:slash], rest[slash+1:]
	}

	if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		if dot := strings.IndexByte(rest, '.'); dot < 0 || colon < dot {
			namespace, rest = rest[:colon], rest[colon+1:]
		}
	}

	dot := strings.IndexByte(rest, '.')
	className := rest
	kbPart := ""
	if dot >= 0 {
		className, kbPart = rest[:dot], rest[dot+1:]
	}
	if className == "" {
		return InstanceName{}, fmt.Errorf("%w: missing class name", ErrBadWBEMURI)
	}

	n := NewInstanceName(className)
	n.Host, n.Namespace = host, namespace

	if kbPart != "" {
		pairs, err := splitKeybindings(kbPart)
		if err != nil {
			return InstanceName{}, err
		}
		for _, p := range pairs {
			eq := strings.IndexByte(p, '=')
			if eq < 0 {
				return InstanceName{}, fmt.Errorf("%w: keybinding %q missing '='", ErrBadWBEMURI, p)
			}
			name, raw := p[:eq], p[eq+1:]
			v, err := parseKeyValue(raw)
			if err != nil {
				return InstanceName{}, err
			}
			n.SetKeybinding(name, v)
		}
	}
	return n, nil
}

// splitKeybindings splits a comma-separated keybinding list, respecting
// quoted substrings so that commas inside quotes are not split on.
func splitKeybindings(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrBadWBEMURI)
	}
	parts = append(parts, cur.String())
	return parts, nil
}

func parseKeyValue(raw string) (Value, error) {
	switch {
	case strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2:
		return NewScalar(TypeString, unescapeQuoted(raw[1:len(raw)-1], '"')), nil
	case strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") && len(raw) >= 2:
		ref, err := ParseWBEMURI(unescapeQuoted(raw[1:len(raw)-1], '\''))
		if err != nil {
			return Value{}, err
		}
		return NewReference(ref), nil
	case raw == "TRUE":
		return NewScalar(TypeBoolean, true), nil
	case raw == "FALSE":
		return NewScalar(TypeBoolean, false), nil
	default:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: unrecognized keyvalue %q", ErrBadWBEMURI, raw)
		}
		return NewScalar(TypeSint64, n), nil
	}
}

func unescapeQuoted(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == quote) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
