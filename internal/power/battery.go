package power

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsBattery reads battery state from a Linux power_supply class directory.
type SysfsBattery struct {
	root      string
	threshold int
}

// NewSysfsBattery reports a low battery once a discharging battery under root
// is at or below threshold percent.
func NewSysfsBattery(root string, threshold int) *SysfsBattery {
	return &SysfsBattery{root: root, threshold: threshold}
}

// IsBatteryLow reports whether any discharging battery is at or below the
// threshold. Hosts without a readable battery are never low.
func (b *SysfsBattery) IsBatteryLow() bool {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		dir := filepath.Join(b.root, e.Name())
		if attr(dir, "type") != "Battery" {
			continue
		}
		switch attr(dir, "status") {
		case "Charging", "Full":
			continue
		}
		capacity, err := strconv.Atoi(attr(dir, "capacity"))
		if err != nil {
			continue
		}
		if capacity <= b.threshold {
			return true
		}
	}
	return false
}

func attr(dir, name string) string {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
