package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"`
}

// CheckAPIKeys returns the status of the upstream credentials.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("RapidAPI Key", cfg.RapidAPI.Key, "OPTISCREEN_RAPIDAPI_KEY", "RAPIDAPI_KEY"),
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, "OPTISCREEN_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
	}
}

func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{Name: name, IsSet: value != "", Source: KeySourceNone}
	if value == "" {
		return status
	}
	status.Source = KeySourceConfig
	for _, e := range envVars {
		if os.Getenv(e) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey shows only the first and last 3 characters of a key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
