package target

const (
	// BaseName is the dispatch name of an unnamed target and the prefix
	// of every named one.
	BaseName = "write_syslog"

	// DefaultEscapeChar replaces disallowed characters in path components.
	DefaultEscapeChar = '_'
)

// Settings is the formatting policy of one export target. It is built
// once by Parse and never modified afterwards.
type Settings struct {
	Name       string
	Prefix     string
	Tags       string
	EscapeChar rune
	StoreRates bool
}

// DefaultSettings returns the settings of a target block with no options.
func DefaultSettings() Settings {
	return Settings{
		EscapeChar: DefaultEscapeChar,
		StoreRates: true,
	}
}

// DispatchName returns the name the target is registered under.
func (s Settings) DispatchName() string {
	if s.Name == "" {
		return BaseName
	}

	return BaseName + "/" + s.Name
}
