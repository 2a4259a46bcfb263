package providers

import "strings"

// ChooseModel selects the model to use based on priority:
// 1. Config model (if specified in adapter configuration)
// 2. Default model (adapter-specific default)
func ChooseModel(configModel string, defaultModel string) string {
	if configModel != "" {
		return configModel
	}
	return defaultModel
}

// JoinEndpoint builds a request URL from a base URL and a path, tolerating
// trailing slashes in the configured base.
func JoinEndpoint(baseURL string, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
