package config

import (
	"fmt"
	"net/url"
	"strings"

	"blocksync/internal/feed"
)

var backendTypes = []string{string(BackendMemory), string(BackendSQLite), string(BackendLogseq)}

// Validate checks the whole configuration and reports every problem at
// once as a *ConfigurationErrorCollection.
func (c Config) Validate() error {
	errs := NewConfigurationErrorCollection()

	c.validateBackend(errs)
	c.validatePacing(errs)
	c.validateFeeds(errs)
	c.validateWatch(errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c Config) validateBackend(errs *ConfigurationErrorCollection) {
	if err := ValidateOneOf(string(c.Backend.Type), backendTypes); err != "" {
		errs.AddValidation(CategoryBackend, "backend.type", err)
		return
	}

	switch c.Backend.Type {
	case BackendSQLite:
		if strings.TrimSpace(c.Backend.Path) == "" {
			errs.AddValidation(CategoryBackend, "backend.path", "is required for the sqlite backend")
		}
	case BackendLogseq:
		u, err := url.Parse(c.Backend.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs.AddValidation(CategoryBackend, "backend.endpoint",
				fmt.Sprintf("must be an http(s) URL, got %q", c.Backend.Endpoint))
		}
	}
}

func (c Config) validatePacing(errs *ConfigurationErrorCollection) {
	if c.Pacing.MutationDelay < 0 {
		errs.AddValidation(CategoryPacing, "pacing.mutationDelay", "must not be negative")
	}
	if c.Pacing.YieldBatchSize < 1 {
		errs.AddValidation(CategoryPacing, "pacing.yieldBatchSize", "must be at least 1")
	}
}

func (c Config) validateFeeds(errs *ConfigurationErrorCollection) {
	seen := make(map[string]bool, len(c.Feeds))

	for i, def := range c.Feeds {
		prefix := fmt.Sprintf("feeds[%d]", i)

		if err := ValidateName(def.Name); err != "" {
			errs.AddValidation(CategoryFeeds, prefix+".name", err)
		} else if seen[def.Name] {
			errs.AddValidation(CategoryFeeds, prefix+".name", fmt.Sprintf("duplicate feed name %q", def.Name))
		}
		seen[def.Name] = true

		if strings.TrimSpace(def.File) == "" {
			errs.AddValidation(CategoryFeeds, prefix+".file", "is required")
		}
		if strings.TrimSpace(def.Parent) == "" {
			errs.AddValidation(CategoryFeeds, prefix+".parent", "is required")
		}

		if _, err := feed.NewStrategy(def); err != nil {
			errs.Add(ConfigurationError{
				Field:       prefix,
				Category:    CategoryFeeds,
				ErrorType:   ErrorTypeTemplate,
				Message:     err.Error(),
				Suggestions: []string{"Templates use Go text/template syntax with sprig functions"},
			})
		}
	}
}

func (c Config) validateWatch(errs *ConfigurationErrorCollection) {
	w := c.Watch
	if w.DebounceInterval < 0 {
		errs.AddValidation(CategoryWatch, "watch.debounceInterval", "must not be negative")
	}
	if w.MaxRetries < 0 {
		errs.AddValidation(CategoryWatch, "watch.maxRetries", "must not be negative")
	}
	if w.InitialBackoff <= 0 {
		errs.AddValidation(CategoryWatch, "watch.initialBackoff", "must be positive")
	}
	if w.ResyncInterval < 0 {
		errs.AddValidation(CategoryWatch, "watch.resyncInterval", "must not be negative")
	}
	if w.MaxBackoff < w.InitialBackoff {
		errs.AddValidation(CategoryWatch, "watch.maxBackoff", "must not be below watch.initialBackoff")
	}
}

// ValidateOneOf returns a message when value is not in allowed.
func ValidateOneOf(value string, allowed []string) string {
	for _, a := range allowed {
		if value == a {
			return ""
		}
	}
	return fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))
}

// ValidateName checks a feed name, which is used on the command line.
func ValidateName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "is required"
	case len(name) > 100:
		return "must not exceed 100 characters"
	case strings.ContainsAny(name, " \t\n/"):
		return "cannot contain spaces or slashes"
	}
	return ""
}
