package loaders

import (
	"errors"
	"testing"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
)

func TestParseBundle(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "level-1",
		"assets": [
			{"key": "map", "type": "json", "source": "map.json", "priority": 5, "timeout_ms": 2000},
			{"key": "bgm", "type": "audio", "source": "bgm.ogg", "quality": "low", "no_cache": true}
		],
		"data": {"map": "e30="}
	}`)

	b, err := ParseBundle(raw)
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != "level-1" || len(b.Assets) != 2 {
		t.Fatalf("bundle = %+v", b)
	}
	m := b.Assets[0]
	if m.Key != "map" || m.Priority != 5 || m.Timeout != 2*time.Second {
		t.Fatalf("map descriptor = %+v", m)
	}
	bgm := b.Assets[1]
	if bgm.Quality != asset.QualityLow || !bgm.NoCache {
		t.Fatalf("bgm descriptor = %+v", bgm)
	}
	if string(b.Payloads["map"]) != "{}" {
		t.Fatalf("payload = %q", b.Payloads["map"])
	}
}

func TestParseBundle_Malformed(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"bad json":     []byte(`{`),
		"no id":        []byte(`{"assets": []}`),
		"missing key":  []byte(`{"id": "x", "assets": [{"type": "json", "source": "s"}]}`),
		"missing type": []byte(`{"id": "x", "assets": [{"key": "k", "source": "s"}]}`),
		"bad base64":   []byte(`{"id": "x", "assets": [], "data": {"k": "%%%"}}`),
	}
	for name, raw := range cases {
		if _, err := ParseBundle(raw); !errors.Is(err, asset.ErrBundle) {
			t.Errorf("%s: want ErrBundle, got %v", name, err)
		}
	}
}
