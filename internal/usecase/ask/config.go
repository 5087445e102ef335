package ask

import "errors"

var ErrMissingAPIKey = errors.New("kagi api key is required")

// Config is loaded once by the host and handed to New by value.
type Config struct {
	APIKey    string
	DebugMode bool
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
