package assetload

import (
	"fmt"
	"path"
	"strings"
)

// Mode selects how a bundle is located and read.
type Mode int

const (
	// ModeDefault defers to the loader's configured default storage location.
	ModeDefault Mode = iota
	// ModePersistentSync reads from persistent storage on the calling goroutine.
	ModePersistentSync
	// ModeStreamingFetch fetches from the network backend in the background.
	ModeStreamingFetch
	// ModeBundledAsync reads from embedded resources in the background.
	ModeBundledAsync
	// ModeBundledSync reads from embedded resources on the calling goroutine.
	ModeBundledSync
)

var modeNames = map[Mode]string{
	ModeDefault:        "default",
	ModePersistentSync: "persistent-sync",
	ModeStreamingFetch: "streaming-fetch",
	ModeBundledAsync:   "bundled-async",
	ModeBundledSync:    "bundled-sync",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown load mode %q", s)
}

// Synchronous reports whether the backend read runs inline on the caller.
func (m Mode) Synchronous() bool {
	return m == ModePersistentSync || m == ModeBundledSync
}

// StorageLocation is where bundle bytes live.
type StorageLocation int

const (
	// LocationUnknown is the zero value and never a valid default.
	LocationUnknown StorageLocation = iota
	// LocationStreaming is a remote network source.
	LocationStreaming
	// LocationBundled is resources shipped with the application.
	LocationBundled
	// LocationPersistent is writable local storage.
	LocationPersistent
)

var locationNames = map[StorageLocation]string{
	LocationUnknown:    "unknown",
	LocationStreaming:  "streaming",
	LocationBundled:    "bundled",
	LocationPersistent: "persistent",
}

func (l StorageLocation) String() string {
	if s, ok := locationNames[l]; ok {
		return s
	}
	return fmt.Sprintf("StorageLocation(%d)", int(l))
}

// ParseStorageLocation parses the String form of a StorageLocation.
func ParseStorageLocation(s string) (StorageLocation, error) {
	for l, name := range locationNames {
		if l != LocationUnknown && strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return LocationUnknown, fmt.Errorf("unknown storage location %q", s)
}

// BackendKind is the kind of reader that serves a location.
type BackendKind int

const (
	BackendNetwork  BackendKind = iota + 1 // streaming fetch
	BackendDiskSync                        // synchronous persistent read
	BackendEmbedded                        // bundled resources
)

func (b BackendKind) String() string {
	switch b {
	case BackendNetwork:
		return "network"
	case BackendDiskSync:
		return "disk-sync"
	case BackendEmbedded:
		return "embedded"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(b))
	}
}

// Resolution is the outcome of resolving a Mode. Mode is never ModeDefault.
type Resolution struct {
	Mode     Mode
	Location StorageLocation
	Backend  BackendKind
}

// Resolve maps mode to its storage location and backend. defaultLocation is
// consulted only for ModeDefault; an unrecognized value then yields a
// *ConfigError.
func Resolve(mode Mode, defaultLocation StorageLocation) (Resolution, error) {
	if mode == ModeDefault {
		switch defaultLocation {
		case LocationStreaming:
			mode = ModeStreamingFetch
		case LocationBundled:
			mode = ModeBundledSync
		case LocationPersistent:
			mode = ModePersistentSync
		default:
			return Resolution{}, &ConfigError{
				Setting: "default location",
				Value:   defaultLocation.String(),
			}
		}
	}

	switch mode {
	case ModeBundledSync, ModeBundledAsync:
		return Resolution{Mode: mode, Location: LocationBundled, Backend: BackendEmbedded}, nil
	case ModeStreamingFetch:
		return Resolution{Mode: mode, Location: LocationStreaming, Backend: BackendNetwork}, nil
	case ModePersistentSync:
		return Resolution{Mode: mode, Location: LocationPersistent, Backend: BackendDiskSync}, nil
	default:
		return Resolution{}, &ConfigError{Setting: "mode", Value: mode.String()}
	}
}

// PhysicalPath returns the registry key for logicalPath under res:
// "<location>://<clean logical path>". Loads that resolve to the same
// physical path share one task.
func PhysicalPath(res Resolution, logicalPath string) string {
	return res.Location.String() + "://" + cleanLogicalPath(logicalPath)
}

func cleanLogicalPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
