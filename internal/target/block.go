package target

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Option is one raw key/value entry of a target block.
type Option struct {
	Key   string
	Value *yaml.Node
}

// Block is an unvalidated target definition as it appears in the
// configuration file. Name is taken from the "name" key, every other key
// is kept as an Option in document order.
type Block struct {
	Name    string
	Options []Option
	Line    int

	// invalid is set when the block itself could not be decoded. Parse
	// reports it so only this block is rejected.
	invalid *ConfigError
}

// UnmarshalYAML collects the block without validating it, so a bad block
// can be reported on its own instead of failing the whole file.
func (b *Block) UnmarshalYAML(node *yaml.Node) error {
	b.Line = node.Line

	if node.Kind != yaml.MappingNode {
		b.invalid = &ConfigError{Err: ErrNotMapping}

		return nil
	}

	b.Options = make([]Option, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if strings.EqualFold(key.Value, "name") {
			name, err := scalarString(value)
			if err != nil {
				b.invalid = &ConfigError{Key: key.Value, Err: err}

				continue
			}

			b.Name = name

			continue
		}

		b.Options = append(b.Options, Option{Key: key.Value, Value: value})
	}

	return nil
}

// ConfigError reports an invalid target block. The target it describes is
// never registered.
type ConfigError struct {
	Target string
	Key    string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("target %s: %v", e.Target, e.Err)
	}

	return fmt.Sprintf("target %s: option %s: %v", e.Target, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var (
	// ErrUnknownOption is wrapped by a ConfigError for unrecognized keys.
	ErrUnknownOption = errors.New("invalid configuration option")

	// ErrEmptyEscapeChar is wrapped by a ConfigError for EscapeCharacter "".
	ErrEmptyEscapeChar = errors.New("cannot use an empty string for EscapeCharacter")

	// ErrNotMapping is wrapped by a ConfigError for a block that is not a
	// key/value mapping.
	ErrNotMapping = errors.New("target block must be a mapping")
)
