// Package glsl scans textual shader source for uniform and attribute
// declarations. Backends without a native reflection API run it over each
// stage's source at program link time to recover binding names, types and
// array sizes. The scan is declaration-level only; it does not validate
// the shader.
package glsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// BindingType tells a callback which kind of declaration was found.
type BindingType int

const (
	BindingTypeUniform BindingType = iota
	BindingTypeAttribute
)

func (b BindingType) String() string {
	if b == BindingTypeAttribute {
		return "attribute"
	}
	return "uniform"
}

// BindingFunc receives one callback per declaration, in declaration order.
// size is the declared array length, 1 when the binding is not an array.
// Declaration order is the binding index; callers assign indices as they
// append.
type BindingFunc func(bindingType BindingType, name string, dataType metadata.ShaderDataType, size uint32)

// qualifiers that may precede the type token in a declaration.
var skipQualifiers = map[string]bool{
	"highp":         true,
	"mediump":       true,
	"lowp":          true,
	"precise":       true,
	"flat":          true,
	"smooth":        true,
	"noperspective": true,
	"centroid":      true,
}

// ParseUniforms invokes fn for every uniform declaration in source.
// An unsupported type token fails the parse; shader compilers accept
// constructs the binding layer cannot represent, and skipping one would
// silently shift every later binding index.
func ParseUniforms(source string, fn BindingFunc) error {
	return parse(source, BindingTypeUniform, []string{"uniform"}, fn)
}

// ParseAttributes invokes fn for every vertex input declaration in source.
// Both the legacy "attribute" storage qualifier and the modern "in"
// qualifier are recognized. Run this on vertex stage source only; "in"
// declarations in later stages are varyings, not attributes.
func ParseAttributes(source string, fn BindingFunc) error {
	return parse(source, BindingTypeAttribute, []string{"attribute", "in"}, fn)
}

func parse(source string, bindingType BindingType, keywords []string, fn BindingFunc) error {
	for _, statement := range statements(source) {
		fields := strings.Fields(statement)
		if len(fields) < 2 || !matchesKeyword(fields[0], keywords) {
			continue
		}

		// Skip precision and interpolation qualifiers between the storage
		// qualifier and the type token.
		i := 1
		for i < len(fields) && skipQualifiers[fields[i]] {
			i++
		}
		if i >= len(fields) {
			return fmt.Errorf("glsl: %s declaration %q has no type", bindingType, statement)
		}
		dataType, err := metadata.ShaderDataTypeFromString(fields[i])
		if err != nil {
			return fmt.Errorf("glsl: unsupported %s type %q in %q", bindingType, fields[i], statement)
		}
		i++
		if i >= len(fields) {
			return fmt.Errorf("glsl: %s declaration %q has no name", bindingType, statement)
		}

		// One statement may declare several comma separated names.
		for _, declarator := range strings.Split(strings.Join(fields[i:], " "), ",") {
			name, size, err := parseDeclarator(declarator)
			if err != nil {
				return fmt.Errorf("glsl: %w in %q", err, statement)
			}
			fn(bindingType, name, dataType, size)
		}
	}
	return nil
}

func matchesKeyword(field string, keywords []string) bool {
	for _, kw := range keywords {
		if field == kw {
			return true
		}
	}
	return false
}

// parseDeclarator splits an identifier with an optional array suffix, e.g.
// "bones[16]" or "tint", into the name and element count.
func parseDeclarator(declarator string) (string, uint32, error) {
	declarator = strings.TrimSpace(declarator)
	name := declarator
	size := uint32(1)

	if open := strings.IndexByte(declarator, '['); open >= 0 {
		closing := strings.IndexByte(declarator, ']')
		if closing < open {
			return "", 0, fmt.Errorf("malformed array suffix %q", declarator)
		}
		count, err := strconv.ParseUint(strings.TrimSpace(declarator[open+1:closing]), 10, 32)
		if err != nil || count == 0 {
			return "", 0, fmt.Errorf("malformed array size in %q", declarator)
		}
		name = strings.TrimSpace(declarator[:open])
		size = uint32(count)
	}

	if !validIdentifier(name) {
		return "", 0, fmt.Errorf("invalid identifier %q", name)
	}
	return name, size, nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// statements strips comments, preprocessor lines and layout qualifier
// groups, then splits the remaining source into statements. Braces are
// treated as statement separators so global declarations always begin
// with their storage qualifier.
func statements(source string) []string {
	cleaned := stripComments(source)
	cleaned = stripPreprocessor(cleaned)
	cleaned = stripLayoutGroups(cleaned)
	return strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ';' || r == '{' || r == '}'
	})
}

func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for i := 0; i < len(source); {
		if i+1 < len(source) && source[i] == '/' && source[i+1] == '/' {
			for i < len(source) && source[i] != '\n' {
				i++
			}
			continue
		}
		if i+1 < len(source) && source[i] == '/' && source[i+1] == '*' {
			i += 2
			for i+1 < len(source) && !(source[i] == '*' && source[i+1] == '/') {
				i++
			}
			i += 2
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(source[i])
		i++
	}
	return sb.String()
}

func stripPreprocessor(source string) string {
	lines := strings.Split(source, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func stripLayoutGroups(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for i := 0; i < len(source); {
		if strings.HasPrefix(source[i:], "layout") {
			j := i + len("layout")
			for j < len(source) && (source[j] == ' ' || source[j] == '\t' || source[j] == '\n') {
				j++
			}
			if j < len(source) && source[j] == '(' {
				depth := 1
				j++
				for j < len(source) && depth > 0 {
					switch source[j] {
					case '(':
						depth++
					case ')':
						depth--
					}
					j++
				}
				sb.WriteByte(' ')
				i = j
				continue
			}
		}
		sb.WriteByte(source[i])
		i++
	}
	return sb.String()
}
