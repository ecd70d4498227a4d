package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldErrors map[string]string

// FromBindError maps a bind/validation error to field -> message.
// Keys follow the request's json (or form) tags, dotted for nested
// structs: "order.id". dst is the bound struct pointer.
func FromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructNamespace())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	// diğer bind hataları (bozuk JSON, tip uyuşmazlığı)
	out["_"] = "Request body is invalid."
	return out
}

// fieldKey walks the struct namespace ("checkoutInitInput.Order.ID") and
// rebuilds it from tag names.
func fieldKey(dst any, namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	t := reflect.TypeOf(dst)
	keys := make([]string, 0, len(parts))
	for _, name := range parts {
		for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
			t = t.Elem()
		}
		name, _, _ = strings.Cut(name, "[")
		if t == nil || t.Kind() != reflect.Struct {
			keys = append(keys, strings.ToLower(name))
			t = nil
			continue
		}
		f, ok := t.FieldByName(name)
		if !ok {
			keys = append(keys, strings.ToLower(name))
			t = nil
			continue
		}
		// untagged embedded structs add no path segment
		if !f.Anonymous || f.Tag.Get("json") != "" {
			keys = append(keys, tagName(f))
		}
		t = f.Type
	}
	return strings.Join(keys, ".")
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		tag := f.Tag.Get(key)
		// json:"email,omitempty" gibi durumlarda virgül sonrası at
		if i := strings.Index(tag, ","); i >= 0 {
			tag = tag[:i]
		}
		if tag != "" && tag != "-" {
			return tag
		}
	}
	return strings.ToLower(f.Name)
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "len":
		return "Must be exactly " + param + " characters."
	case "min":
		return "Must be at least " + param + " characters."
	case "max":
		return "Must be at most " + param + " characters."
	case "gte":
		return "Must be " + param + " or more."
	case "oneof":
		return "Must be one of: " + param + "."
	default:
		return "Invalid value."
	}
}
