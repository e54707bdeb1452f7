package selector

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

// Strategy is an acquisition path chosen for a URL.
type Strategy string

const (
	// StrategyStreamed routes adaptive-streaming manifests and raw
	// segments through the remux utility. No fallback.
	StrategyStreamed Strategy = "streamed"
	// StrategyExtraction tries the extraction tool first and the
	// fallback API second.
	StrategyExtraction Strategy = "extraction"
	// StrategyDirect streams bytes over plain HTTP. No fallback.
	StrategyDirect Strategy = "direct"
)

// streamingExtensions maps manifest/segment extensions to the container
// extension the remuxed output gets.
var streamingExtensions = map[string]string{
	".m3u8": ".mp4",
	".m3u":  ".mp4",
	".mpd":  ".mp4",
	".ts":   ".mp4",
}

var streamingMimeTypes = map[string]bool{
	"application/vnd.apple.mpegurl": true,
	"application/x-mpegurl":         true,
	"application/dash+xml":          true,
	"audio/mpegurl":                 true,
	"audio/x-mpegurl":               true,
	"video/mp2t":                    true,
}

// extractorDomains are platforms the extraction tool is known to handle.
var extractorDomains = []string{
	"youtube.com", "youtu.be", "youtube-nocookie.com",
	"instagram.com",
	"twitter.com", "x.com", "t.co",
	"tiktok.com", "vm.tiktok.com",
	"facebook.com", "fb.watch", "fb.com",
	"reddit.com", "v.redd.it", "redd.it",
	"dailymotion.com", "dai.ly",
	"vimeo.com",
	"twitch.tv", "clips.twitch.tv",
	"soundcloud.com",
	"bilibili.com", "b23.tv",
	"pinterest.com", "pin.it",
	"streamable.com",
	"rumble.com",
	"odysee.com",
	"bitchute.com",
	"mixcloud.com",
}

// fallbackDomains are platforms the fallback API accepts.
var fallbackDomains = []string{
	"youtube.com", "youtu.be",
	"reddit.com", "v.redd.it", "redd.it",
}

// Classify picks the acquisition strategy for a URL. The "direct" format
// sentinel forces the plain-HTTP path regardless of domain. Only string
// inspection happens here; probes belong to the engines.
func Classify(rawURL, formatID string) (Strategy, error) {
	u, err := Validate(rawURL)
	if err != nil {
		return "", err
	}
	if formatID == types.FormatDirect {
		return StrategyDirect, nil
	}
	if _, ok := streamingExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return StrategyStreamed, nil
	}
	if hostInSet(u.Host, extractorDomains) {
		return StrategyExtraction, nil
	}
	return StrategyDirect, nil
}

// Validate rejects empty and malformed URLs with ErrValidation.
func Validate(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", types.ErrValidation)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: malformed URL %q", types.ErrValidation, rawURL)
	}
	return u, nil
}

// SupportsFallback reports whether the fallback API accepts this URL.
func SupportsFallback(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return hostInSet(u.Host, fallbackDomains)
}

// IsStreamingMime reports whether a probed content type identifies an
// adaptive stream that must be remuxed instead of copied.
func IsStreamingMime(contentType string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return streamingMimeTypes[mt]
}

func hostInSet(host string, domains []string) bool {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// NormalizeFormat parses the requested format selector. "best_<id>"
// unwraps to the concrete id it names, "best" and "direct" pass through
// as sentinels, empty stays empty, anything else must look like an
// extractor format id.
func NormalizeFormat(formatID string) (string, error) {
	formatID = strings.TrimSpace(formatID)
	formatID = strings.TrimPrefix(formatID, types.FormatBestPrefix)
	switch {
	case formatID == "":
		return "", nil
	case formatID == types.FormatDirect:
		return types.FormatDirect, nil
	case formatID == types.FormatBest:
		return types.FormatBest, nil
	}
	for _, r := range formatID {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' && r != '+' {
			return "", fmt.Errorf("%w: malformed format selector %q", types.ErrValidation, formatID)
		}
	}
	return formatID, nil
}

// SmartOutputName remaps known streaming extensions onto the container
// the remux produces, e.g. "stream.m3u8" becomes "stream.mp4".
func SmartOutputName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if mapped, ok := streamingExtensions[ext]; ok {
		return strings.TrimSuffix(filename, path.Ext(filename)) + mapped
	}
	return filename
}

// SanitizeFilename strips characters that are unsafe in staging paths
// and caps the stem at 80 runes to stay clear of OS path limits.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(path.Base(name))
	if name == "" || strings.Trim(name, ".") == "" {
		return "downloaded_file"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '\\', '/', '*', '?', '"', '<', '>', '|', ':', '\n', '\r', '\t':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if runes := []rune(stem); len(runes) > 80 {
		stem = string(runes[:80])
	}
	if stem == "" || stem == "." {
		stem = "downloaded_file"
	}
	return stem + ext
}

// FilenameFromURL derives a fallback filename from the URL path,
// percent-decoded, with the streaming extension remap applied. The
// extension may still be missing; the direct engine fills it in from the
// probed content type.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "downloaded_file"
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" || name == "." || name == "/" {
		name = "downloaded_file"
	}
	return SmartOutputName(name)
}

// canonicalExtensions pins the everyday media types to their usual
// extension. mime.ExtensionsByType sorts its answers alphabetically,
// which would hand video/mp4 a ".f4v".
var canonicalExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"audio/mpeg":       ".mp3",
	"audio/mp4":        ".m4a",
	"audio/ogg":        ".ogg",
	"audio/flac":       ".flac",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/webp":       ".webp",
	"image/gif":        ".gif",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
}

// ExtensionForMime guesses a file extension for a probed content type.
func ExtensionForMime(contentType string) string {
	mt := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if mt == "" {
		return ""
	}
	if ext, ok := canonicalExtensions[mt]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}
	ext := exts[0]
	if ext == ".jpe" {
		ext = ".jpg"
	}
	return ext
}
