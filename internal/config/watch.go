package config

import (
	"fmt"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file on change and hands each valid snapshot to onChange.
// Invalid snapshots are logged and skipped. It is a no-op when no config file was loaded.
func Watch(onChange func(*Config)) error {
	activeMu.Lock()
	v := activeViper
	activeMu.Unlock()

	if v == nil {
		return fmt.Errorf("configuration has not been loaded")
	}
	if v.ConfigFileUsed() == "" {
		log.Println("[CONFIG] No config file in use, hot reload disabled")
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Printf("[CONFIG] Config file changed: %s (%s)", e.Name, e.Op)

		config, err := decode(v)
		if err != nil {
			log.Printf("[CONFIG] Ignoring invalid configuration change: %v", err)
			return
		}
		onChange(config)
	})
	v.WatchConfig()

	log.Printf("[CONFIG] Watching %s for changes", v.ConfigFileUsed())
	return nil
}
