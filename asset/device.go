package asset

import "time"

// Tier classifies the host device's performance class. The classification
// itself comes from outside; the manager only consumes it.
type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	}
	return "unknown"
}

// Connection describes the network the device is on.
type Connection string

const (
	ConnectionUnknown  Connection = ""
	ConnectionWifi     Connection = "wifi"
	ConnectionCellular Connection = "cellular"
	ConnectionOffline  Connection = "offline"
)

// DeviceProfile is the read-only device classification injected at
// construction. The manager never mutates it and performs no detection of
// its own.
type DeviceProfile struct {
	Tier              Tier
	AvailableMemoryMB int
	ScreenWidth       int
	ScreenHeight      int
	Connection        Connection
}

// tierDefaults are the effective knobs derived once from the profile.
type tierDefaults struct {
	maxConcurrent int
	memoryLimit   int64
	timeout       time.Duration
	retries       int
	quality       Quality
}

const mb = 1 << 20

// defaultsFor derives concurrency, cache budget and per-load defaults from
// the tier, screen width and connection.
func defaultsFor(p DeviceProfile) tierDefaults {
	var d tierDefaults
	switch p.Tier {
	case TierHigh:
		d = tierDefaults{maxConcurrent: 8, memoryLimit: 256 * mb, timeout: 15 * time.Second, retries: 3, quality: QualityHigh}
	case TierMid:
		d = tierDefaults{maxConcurrent: 4, memoryLimit: 128 * mb, timeout: 20 * time.Second, retries: 2, quality: QualityMedium}
	default:
		d = tierDefaults{maxConcurrent: 2, memoryLimit: 64 * mb, timeout: 30 * time.Second, retries: 1, quality: QualityLow}
	}

	// Never budget more than a quarter of what the device reports free.
	if p.AvailableMemoryMB > 0 {
		if quarter := int64(p.AvailableMemoryMB) * mb / 4; quarter < d.memoryLimit {
			d.memoryLimit = quarter
		}
	}

	// Small screens don't benefit from high-quality variants.
	if p.ScreenWidth > 0 && p.ScreenWidth < 720 && d.quality == QualityHigh {
		d.quality = QualityMedium
	}

	// Cellular links get half the in-flight budget and longer timeouts.
	if p.Connection == ConnectionCellular {
		d.maxConcurrent = max(1, d.maxConcurrent/2)
		d.timeout *= 2
	}
	return d
}
