package monitor

// WatchConfig is the singleton, persisted configuration of the monitor
// pipeline: which directories are watched, which metadata provider is used
// for lookups, and whether detected files are processed automatically.
//
// Mutations happen only through the service's AddFolder/RemoveFolder/
// UpdateConfig operations, each of which persists the new state before
// returning to the caller.
type WatchConfig struct {
	Folders           []string
	PreferredProvider string
	AutoProcess       bool
}

func (config *WatchConfig) hasFolder(folder string) bool {
	for _, existing := range config.Folders {
		if existing == folder {
			return true
		}
	}

	return false
}

func (config *WatchConfig) removeFolder(folder string) bool {
	for i, existing := range config.Folders {
		if existing == folder {
			config.Folders = append(config.Folders[:i], config.Folders[i+1:]...)
			return true
		}
	}

	return false
}

// clone returns a deep copy so that a snapshot handed out under the service
// mutex cannot be aliased by a later mutation.
func (config *WatchConfig) clone() WatchConfig {
	copied := *config
	copied.Folders = append([]string(nil), config.Folders...)
	return copied
}
