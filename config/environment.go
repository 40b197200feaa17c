package config

import (
	"net"
	"strings"
	"time"
)

// Environment selects which database, bucket and secrets are used.
type Environment string

const (
	Dev  Environment = "dev"
	Prod Environment = "prod"
)

func (e Environment) prefix() string {
	return strings.ToUpper(string(e)) + "_"
}

// ResolveEnvironment picks dev or prod once at start. In order: FORCE_DEV,
// FORCE_PROD, APP_ENV, PUBLIC_HOSTNAME listed in PROD_DOMAINS (prod),
// PUBLIC_HOSTNAME on localhost or 127.* (dev). Anything else is prod.
func ResolveEnvironment(c map[string]string) Environment {
	if GetBool(c, "FORCE_DEV", false) {
		return Dev
	}
	if GetBool(c, "FORCE_PROD", false) {
		return Prod
	}
	switch strings.ToLower(strings.TrimSpace(GetString(c, "APP_ENV", ""))) {
	case "dev", "development", "local":
		return Dev
	case "prod", "production":
		return Prod
	}

	host := strings.ToLower(strings.TrimSpace(GetString(c, "PUBLIC_HOSTNAME", "")))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return Prod
	}
	for _, domain := range GetList(c, "PROD_DOMAINS") {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return Prod
		}
	}
	if host == "localhost" || strings.HasPrefix(host, "127.") {
		return Dev
	}
	return Prod
}

// Scoped looks keys up as <ENV>_<KEY> before <KEY>.
type Scoped struct {
	Env    Environment
	values map[string]string
}

func NewScoped(env Environment, values map[string]string) Scoped {
	return Scoped{Env: env, values: values}
}

func (s Scoped) String(key, defaultValue string) string {
	if v := GetString(s.values, s.Env.prefix()+key, ""); v != "" {
		return v
	}
	return GetString(s.values, key, defaultValue)
}

func (s Scoped) Int(key string, defaultValue int) int {
	if _, ok := s.values[s.Env.prefix()+key]; ok {
		return GetInt(s.values, s.Env.prefix()+key, defaultValue)
	}
	return GetInt(s.values, key, defaultValue)
}

func (s Scoped) Bool(key string, defaultValue bool) bool {
	if _, ok := s.values[s.Env.prefix()+key]; ok {
		return GetBool(s.values, s.Env.prefix()+key, defaultValue)
	}
	return GetBool(s.values, key, defaultValue)
}

func (s Scoped) Duration(key string, defaultValue time.Duration) time.Duration {
	if _, ok := s.values[s.Env.prefix()+key]; ok {
		return GetDuration(s.values, s.Env.prefix()+key, defaultValue)
	}
	return GetDuration(s.values, key, defaultValue)
}

func (s Scoped) List(key string) []string {
	if list := GetList(s.values, s.Env.prefix()+key); len(list) > 0 {
		return list
	}
	return GetList(s.values, key)
}
