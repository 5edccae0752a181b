package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"

	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
)

// Storage log prefixes
const (
	LogStore        = Blue + "[Store]" + Reset
	LogStoreInit    = Blue + "[Store:Init]" + Reset
	LogStoreBackup  = Blue + "[Store:Backup]" + Reset
	LogStoreBackups = Blue + "[Store:Backups]" + Reset
	LogSnapshot     = Cyan + "[Snapshot]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// songColors rotate per song id so interleaved logs for different songs are easy to tell apart
var songColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Song returns a colored song label for log messages.
// The same id always gets the same color.
func Song(id, name string) string {
	hash := 0
	for _, c := range id {
		hash += int(c)
	}
	color := songColors[hash%len(songColors)]
	return color + name + " (" + id + ")" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Player log prefixes
const (
	LogPlayer   = Green + "[Player]" + Reset
	LogPlaylist = BrightGreen + "[Playlist]" + Reset
	LogLyrics   = Blue + "[Lyrics]" + Reset
	LogLike     = BrightMagenta + "[Like]" + Reset
	LogRestore  = Cyan + "[Restore]" + Reset
	LogAudio    = BrightCyan + "[Audio]" + Reset
)

// Music server client log prefixes
const (
	LogMusicAPI = Purple + "[MusicAPI]" + Reset
	LogAuth     = Purple + "[Auth]" + Reset
	LogCSRF     = Cyan + "[CSRF]" + Reset
	LogSearch   = Blue + "[Search]" + Reset
	LogDownload = Green + "[Download]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)
