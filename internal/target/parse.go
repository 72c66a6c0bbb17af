package target

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Parse validates a block into Settings. Warnings describe accepted but
// adjusted values and should be logged by the caller. Any error is a
// *ConfigError and aborts the whole block.
func Parse(b Block) (Settings, []string, error) {
	s := DefaultSettings()
	s.Name = b.Name

	if b.invalid != nil {
		err := *b.invalid
		err.Target = s.DispatchName()

		return Settings{}, nil, &err
	}

	var warnings []string

	for _, opt := range b.Options {
		fail := func(err error) (Settings, []string, error) {
			return Settings{}, warnings, &ConfigError{
				Target: s.DispatchName(),
				Key:    opt.Key,
				Err:    err,
			}
		}

		switch strings.ToLower(opt.Key) {
		case "prefix":
			v, err := scalarString(opt.Value)
			if err != nil {
				return fail(err)
			}

			s.Prefix = v
		case "tags":
			v, err := scalarString(opt.Value)
			if err != nil {
				return fail(err)
			}

			s.Tags = v
		case "storerates":
			v, err := scalarBool(opt.Value)
			if err != nil {
				return fail(err)
			}

			s.StoreRates = v
		case "escapecharacter":
			v, err := scalarString(opt.Value)
			if err != nil {
				return fail(err)
			}

			if v == "" {
				return fail(ErrEmptyEscapeChar)
			}

			r, size := utf8.DecodeRuneInString(v)
			if size < len(v) {
				warnings = append(warnings, fmt.Sprintf(
					"only the first character of EscapeCharacter (%q) will be used", r,
				))
			}

			s.EscapeChar = r
		default:
			return fail(ErrUnknownOption)
		}
	}

	return s, warnings, nil
}

func scalarString(n *yaml.Node) (string, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("expects a single string value")
	}

	var v string
	if err := n.Decode(&v); err != nil {
		return "", err
	}

	return v, nil
}

func scalarBool(n *yaml.Node) (bool, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return false, fmt.Errorf("expects a single boolean value")
	}

	switch strings.ToLower(n.Value) {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expects a boolean value, got %q", n.Value)
	}
}
