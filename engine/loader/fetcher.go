package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

const defaultChunkSize = 32 * 1024

// Fetcher retrieves asset bytes by URL.
type Fetcher interface {
	// Fetch reads the whole asset. onProgress may be nil; when set it receives the bytes read
	// so far and the total size, or a total of -1 when the size is unknown.
	//
	// Parameters:
	//   - ctx: cancels the read between chunks
	//   - url: the asset URL, relative to the fetcher's root
	//   - onProgress: optional progress callback
	//
	// Returns:
	//   - []byte: the asset contents
	//   - error: error if the asset cannot be read or ctx is done
	Fetch(ctx context.Context, url string, onProgress func(loaded, total int64)) ([]byte, error)
}

// fsFetcher is the implementation of Fetcher over an fs.FS.
type fsFetcher struct {
	fsys      fs.FS
	chunkSize int
}

var _ Fetcher = &fsFetcher{}

// FSFetcherOption configures a Fetcher created with NewFSFetcher.
type FSFetcherOption func(*fsFetcher)

// WithChunkSize sets how many bytes are read between progress reports. Values <= 0 are ignored.
func WithChunkSize(n int) FSFetcherOption {
	return func(f *fsFetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// NewFSFetcher creates a Fetcher that reads from fsys, typically os.DirFS of the asset root.
//
// Parameters:
//   - fsys: the file system holding the assets
//   - options: functional options
//
// Returns:
//   - Fetcher: the fetcher
func NewFSFetcher(fsys fs.FS, options ...FSFetcherOption) Fetcher {
	f := &fsFetcher{
		fsys:      fsys,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *fsFetcher) Fetch(ctx context.Context, url string, onProgress func(loaded, total int64)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(url, "/"))
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", url, err)
	}
	defer file.Close()

	total := int64(-1)
	if info, err := file.Stat(); err == nil && info.Mode().IsRegular() {
		total = info.Size()
	}

	var buf []byte
	if total > 0 {
		buf = make([]byte, 0, total)
	}
	chunk := make([]byte, f.chunkSize)
	var loaded int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := file.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			loaded += int64(n)
			if onProgress != nil {
				onProgress(loaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", url, err)
		}
	}
	return buf, nil
}

// AssetResolver maps actor roles and location names to asset URLs.
type AssetResolver struct {
	// WinnerModel is the winner's model bundle URL.
	WinnerModel string

	// LoserModel is the loser's model bundle URL.
	LoserModel string

	// BackgroundDir holds one <name>.jpg per location.
	BackgroundDir string
}

// DefaultAssetResolver returns the resolver for the stock asset layout.
func DefaultAssetResolver() AssetResolver {
	return AssetResolver{
		WinnerModel:   "animations/assets/winnerModel.glb",
		LoserModel:    "animations/assets/loserModel.glb",
		BackgroundDir: "animations/assets/backgrounds",
	}
}

// WinnerURL returns the winner's model URL.
func (r AssetResolver) WinnerURL() string {
	return r.WinnerModel
}

// LoserURL returns the loser's model URL.
func (r AssetResolver) LoserURL() string {
	return r.LoserModel
}

// BackgroundURL returns the background image URL for a background name.
// An empty name yields an empty URL.
func (r AssetResolver) BackgroundURL(name string) string {
	if name == "" {
		return ""
	}
	return path.Join(r.BackgroundDir, name+".jpg")
}
