package driven

// ConfigStore holds settings under dotted keys such as "llm.model".
// Getters return the zero value when a key is missing or has another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt and GetFloat accept any numeric value.
	GetInt(key string) int
	GetFloat(key string) float64

	GetStringSlice(key string) []string

	// Set persists one key.
	Set(key string, value any) error

	// Update persists several keys in a single write. Either all of them
	// are stored or none are.
	Update(values map[string]any) error

	// Path locates the backing file, for display.
	Path() string
}
