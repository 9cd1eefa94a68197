package telemetry

import (
	"os"
	"path/filepath"

	"github.com/vivekchamoli/legion2go/internal/util"
)

// IsOnBattery reports true if at least one mains supply exists and none of them is online
func IsOnBattery(powerSupplyPath string) bool {
	entries, err := os.ReadDir(powerSupplyPath)
	if err != nil {
		return false
	}
	mainsFound := false
	for _, entry := range entries {
		supplyPath := filepath.Join(powerSupplyPath, entry.Name())
		supplyType, err := util.ReadStringFromFile(filepath.Join(supplyPath, "type"))
		if err != nil || supplyType != "Mains" {
			continue
		}
		mainsFound = true
		online, err := util.ReadIntFromFile(filepath.Join(supplyPath, "online"))
		if err == nil && online == 1 {
			return false
		}
	}
	return mainsFound
}
