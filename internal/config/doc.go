// Package config provides configuration management for blocksync.
//
// Configuration is loaded from a single directory. The default directory is
// ~/.config/blocksync; commands accept --config-path to point elsewhere.
//
// # Configuration Directory
//
// The directory contains:
//   - config.yaml (main configuration file)
//   - feeds/ (default location of feed files)
//   - blocks.db (default SQLite block store)
//
// Relative paths in config.yaml are resolved against the configuration
// directory; feed files are resolved against feedsDir.
//
// # Configuration Structure
//
//	backend:
//	  type: sqlite                # memory, sqlite or logseq (default: sqlite)
//	  path: blocks.db             # SQLite database file
//	  endpoint: http://127.0.0.1:12315
//	  tokenEnv: LOGSEQ_API_TOKEN  # variable holding the Logseq API token
//	pacing:
//	  mutationDelay: 100ms        # "0s" disables the delay
//	  yieldBatchSize: 3
//	feedsDir: feeds
//	feeds:
//	  - name: tasks
//	    file: tasks.yaml
//	    parent: Tasks
//	    template: "{{ .title }}"
//	    properties:
//	      - key: status
//	        template: "{{ .status }}"
//	    specialBlock:
//	      header: "#+BEGIN_NOTES"
//	      template: "{{ range .notes }}{{ . }}\n{{ end }}"
//	    preserveTag: "#keep"
//	watch:
//	  debounceInterval: 500ms
//	  maxRetries: 5
//	  initialBackoff: 1s
//	  maxBackoff: 5m
//	  resyncInterval: 1h          # optional periodic full resync
//
// Durations are written as strings ("250ms", "2m"); bare integers are
// rejected by the YAML decoder.
//
// # Errors
//
// LoadConfig reports validation problems all at once as a
// *ConfigurationErrorCollection, grouped by category:
//
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	var cerr *config.ConfigurationErrorCollection
//	if errors.As(err, &cerr) {
//	    fmt.Println(cerr.GetDetailedReport())
//	}
package config
