package loaders

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
)

// bundleManifest is the JSON wire format of a bundle: an id, the asset
// descriptors, and optionally the raw payloads (base64) co-located with
// the manifest so bundled assets skip their per-asset round trip.
type bundleManifest struct {
	ID     string            `json:"id"`
	Assets []bundleAsset     `json:"assets"`
	Data   map[string]string `json:"data,omitempty"`
}

type bundleAsset struct {
	Key        string `json:"key"`
	Type       string `json:"type"`
	Source     string `json:"source"`
	Priority   int    `json:"priority,omitempty"`
	TimeoutMS  int    `json:"timeout_ms,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty"`
	Quality    string `json:"quality,omitempty"`
	NoCache    bool   `json:"no_cache,omitempty"`
}

// ParseBundle decodes a JSON bundle manifest. Malformed manifests and
// undecodable payloads report a BundleError (matching asset.ErrBundle).
func ParseBundle(raw []byte) (asset.Bundle, error) {
	var mf bundleManifest
	if err := json.Unmarshal(raw, &mf); err != nil {
		return asset.Bundle{}, &asset.BundleError{ID: "", Err: fmt.Errorf("parse manifest: %w", err)}
	}
	if mf.ID == "" {
		return asset.Bundle{}, &asset.BundleError{ID: "", Err: fmt.Errorf("manifest has no id")}
	}

	b := asset.Bundle{ID: mf.ID}
	for _, a := range mf.Assets {
		if a.Key == "" || a.Type == "" {
			return asset.Bundle{}, &asset.BundleError{ID: mf.ID, Err: fmt.Errorf("asset entry missing key or type")}
		}
		b.Assets = append(b.Assets, asset.Descriptor{
			Key:        asset.Key(a.Key),
			Type:       a.Type,
			Source:     a.Source,
			Priority:   a.Priority,
			Timeout:    time.Duration(a.TimeoutMS) * time.Millisecond,
			MaxRetries: a.MaxRetries,
			Quality:    asset.Quality(a.Quality),
			NoCache:    a.NoCache,
		})
	}

	if len(mf.Data) > 0 {
		b.Payloads = make(map[asset.Key][]byte, len(mf.Data))
		for key, enc := range mf.Data {
			data, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return asset.Bundle{}, &asset.BundleError{ID: mf.ID, Err: fmt.Errorf("payload %q: %w", key, err)}
			}
			b.Payloads[asset.Key(key)] = data
		}
	}
	return b, nil
}
